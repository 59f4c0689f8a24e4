package image

import (
	"math"

	"github.com/openpiv/openpiv-go/internal/domain/geom"
)

// Number constrains the element types with full arithmetic; expression
// operators are defined over these.
type Number interface {
	~float64 | ~complex128
}

// Expr is a lazy element-wise expression over images. Every node
// reports a size and evaluates pixels by linear index; assignment into
// an image with EvalInto fuses the whole tree into one traversal with
// no temporaries.
type Expr[P Pixel] interface {
	// ExprSize returns the extent of the expression's result. A
	// broadcast constant reports a zero size and adopts the size of
	// the other operand.
	ExprSize() geom.Size
	// ExprAt evaluates the pixel at row-major linear index i.
	ExprAt(i int) P
}

// Ref wraps an image or view as an expression leaf.
func Ref[P Pixel](im ImageLike[P]) Expr[P] {
	return refExpr[P]{im: im}
}

type refExpr[P Pixel] struct {
	im ImageLike[P]
}

func (e refExpr[P]) ExprSize() geom.Size { return e.im.Size() }

func (e refExpr[P]) ExprAt(i int) P {
	w := e.im.Width()
	return e.im.Line(i / w)[i%w]
}

// Const wraps a broadcast constant. Its size is adopted from the other
// side of a binary operator.
func Const[P Pixel](v P) Expr[P] {
	return constExpr[P]{v: v}
}

type constExpr[P Pixel] struct {
	v P
}

func (e constExpr[P]) ExprSize() geom.Size { return geom.Size{} }
func (e constExpr[P]) ExprAt(int) P        { return e.v }

type binaryExpr[P Pixel] struct {
	l, r Expr[P]
	sz   geom.Size
	op   func(a, b P) P
}

func (e binaryExpr[P]) ExprSize() geom.Size { return e.sz }
func (e binaryExpr[P]) ExprAt(i int) P      { return e.op(e.l.ExprAt(i), e.r.ExprAt(i)) }

// binarySize resolves the result size of a binary node: the left size
// wins unless the left is a broadcast constant.
func binarySize[P Pixel](l, r Expr[P]) geom.Size {
	if s := l.ExprSize(); s != (geom.Size{}) {
		return s
	}
	return r.ExprSize()
}

func binary[P Pixel](l, r Expr[P], op func(a, b P) P) Expr[P] {
	return binaryExpr[P]{l: l, r: r, sz: binarySize(l, r), op: op}
}

// Add returns the element-wise sum l + r.
func Add[P Number](l, r Expr[P]) Expr[P] {
	return binary(l, r, func(a, b P) P { return a + b })
}

// Sub returns the element-wise difference l - r.
func Sub[P Number](l, r Expr[P]) Expr[P] {
	return binary(l, r, func(a, b P) P { return a - b })
}

// Mul returns the element-wise product l * r.
func Mul[P Number](l, r Expr[P]) Expr[P] {
	return binary(l, r, func(a, b P) P { return a * b })
}

// Div returns the element-wise quotient l / r.
func Div[P Number](l, r Expr[P]) Expr[P] {
	return binary(l, r, func(a, b P) P { return a / b })
}

// MapExpr applies f to every element, possibly changing the element
// type.
func MapExpr[A, B Pixel](e Expr[A], f func(A) B) Expr[B] {
	return mapExpr[A, B]{child: e, f: f}
}

type mapExpr[A, B Pixel] struct {
	child Expr[A]
	f     func(A) B
}

func (e mapExpr[A, B]) ExprSize() geom.Size { return e.child.ExprSize() }
func (e mapExpr[A, B]) ExprAt(i int) B      { return e.f(e.child.ExprAt(i)) }

// Conj returns the element-wise complex conjugate.
func Conj(e Expr[complex128]) Expr[complex128] {
	return MapExpr(e, func(c complex128) complex128 {
		return complex(real(c), -imag(c))
	})
}

// Abs returns the element-wise complex magnitude as a scalar
// expression.
func Abs(e Expr[complex128]) Expr[float64] {
	return MapExpr(e, func(c complex128) float64 {
		return math.Hypot(real(c), imag(c))
	})
}

// AbsSqr returns the element-wise squared magnitude as a scalar
// expression.
func AbsSqr(e Expr[complex128]) Expr[float64] {
	return MapExpr(e, func(c complex128) float64 {
		return real(c)*real(c) + imag(c)*imag(c)
	})
}

// RealPart returns the element-wise real component as a scalar
// expression.
func RealPart(e Expr[complex128]) Expr[float64] {
	return MapExpr(e, func(c complex128) float64 { return real(c) })
}

// ImagPart returns the element-wise imaginary component as a scalar
// expression.
func ImagPart(e Expr[complex128]) Expr[float64] {
	return MapExpr(e, func(c complex128) float64 { return imag(c) })
}

// EvalInto resizes dst to the expression's size and evaluates the tree
// element-wise in a single pass.
func EvalInto[P Pixel](dst *Image[P], e Expr[P]) {
	dst.Resize(e.ExprSize())
	for i := range dst.data {
		dst.data[i] = e.ExprAt(i)
	}
}

// Eval evaluates the expression into a fresh image.
func Eval[P Pixel](e Expr[P]) *Image[P] {
	dst := New[P](e.ExprSize())
	for i := range dst.data {
		dst.data[i] = e.ExprAt(i)
	}
	return dst
}
