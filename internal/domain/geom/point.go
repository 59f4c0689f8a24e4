package geom

import "fmt"

// Scalar constrains the component types usable in points and vectors.
type Scalar interface {
	~int | ~int32 | ~int64 | ~float64
}

// Point2 is a position in 2-D space. Subtracting two points yields a
// Vec2; adding a Vec2 to a point yields another point. Points have no
// other arithmetic.
type Point2[T Scalar] struct {
	X T
	Y T
}

// Pt is shorthand for constructing a point.
func Pt[T Scalar](x, y T) Point2[T] { return Point2[T]{X: x, Y: y} }

// Sub returns the displacement from o to p.
func (p Point2[T]) Sub(o Point2[T]) Vec2[T] {
	return Vec2[T]{X: p.X - o.X, Y: p.Y - o.Y}
}

// AddVec translates the point by v.
func (p Point2[T]) AddVec(v Vec2[T]) Point2[T] {
	return Point2[T]{X: p.X + v.X, Y: p.Y + v.Y}
}

func (p Point2[T]) String() string {
	return fmt.Sprintf("(%v,%v)", p.X, p.Y)
}

// Vec2 is a displacement in 2-D space.
type Vec2[T Scalar] struct {
	X T
	Y T
}

// Vec is shorthand for constructing a vector.
func Vec[T Scalar](x, y T) Vec2[T] { return Vec2[T]{X: x, Y: y} }

// Add returns the component-wise sum.
func (v Vec2[T]) Add(o Vec2[T]) Vec2[T] {
	return Vec2[T]{X: v.X + o.X, Y: v.Y + o.Y}
}

// Sub returns the component-wise difference.
func (v Vec2[T]) Sub(o Vec2[T]) Vec2[T] {
	return Vec2[T]{X: v.X - o.X, Y: v.Y - o.Y}
}

// Scale multiplies both components by k.
func (v Vec2[T]) Scale(k T) Vec2[T] {
	return Vec2[T]{X: v.X * k, Y: v.Y * k}
}

// Div divides both components by k.
func (v Vec2[T]) Div(k T) Vec2[T] {
	return Vec2[T]{X: v.X / k, Y: v.Y / k}
}

func (v Vec2[T]) String() string {
	return fmt.Sprintf("[%v,%v]", v.X, v.Y)
}

// PointToF converts an integer point to its float64 equivalent.
func PointToF(p Point2[int]) Point2[float64] {
	return Point2[float64]{X: float64(p.X), Y: float64(p.Y)}
}
