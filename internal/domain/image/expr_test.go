package image

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openpiv/openpiv-go/internal/domain/geom"
)

func TestExpr_FusedArithmetic(t *testing.T) {
	t.Parallel()

	a := NewFilled(geom.Sz(4, 4), 2.0)
	b := NewFilled(geom.Sz(4, 4), 3.0)

	// c = a*b + 0.5 in one pass
	var c GFImage
	EvalInto(&c, Add(Mul(Ref[float64](a), Ref[float64](b)), Const(0.5)))

	assert.Equal(t, geom.Sz(4, 4), c.Size())
	for i := 0; i < c.PixelCount(); i++ {
		assert.InDelta(t, 6.5, c.AtIndex(i), 1e-12)
	}
}

func TestExpr_BroadcastConstAdoptsSize(t *testing.T) {
	t.Parallel()

	a := NewFilled(geom.Sz(3, 2), 10.0)

	left := Sub(Const(1.0), Ref[float64](a))
	assert.Equal(t, geom.Sz(3, 2), left.ExprSize())

	right := Sub(Ref[float64](a), Const(1.0))
	assert.Equal(t, geom.Sz(3, 2), right.ExprSize())

	out := Eval(left)
	assert.InDelta(t, -9.0, out.At(0, 0), 1e-12)
}

func TestExpr_ComplexUnaries(t *testing.T) {
	t.Parallel()

	a := NewFilled(geom.Sz(2, 2), complex(3, 4))

	conj := Eval(Conj(Ref[complex128](a)))
	assert.Equal(t, complex(3, -4), conj.At(0, 0))

	abs := Eval(Abs(Ref[complex128](a)))
	assert.InDelta(t, 5.0, abs.At(0, 0), 1e-12)

	sqr := Eval(AbsSqr(Ref[complex128](a)))
	assert.InDelta(t, 25.0, sqr.At(0, 0), 1e-12)

	re := Eval(RealPart(Ref[complex128](a)))
	assert.InDelta(t, 3.0, re.At(0, 0), 1e-12)

	ip := Eval(ImagPart(Ref[complex128](a)))
	assert.InDelta(t, 4.0, ip.At(0, 0), 1e-12)
}

func TestExpr_CorrelationShape(t *testing.T) {
	t.Parallel()

	// the cross-correlation inner product: b * conj(a)
	a := NewFilled(geom.Sz(2, 2), complex(1, 2))
	b := NewFilled(geom.Sz(2, 2), complex(3, -1))

	var out CImage
	EvalInto(&out, Mul(Ref[complex128](b), Conj(Ref[complex128](a))))

	want := complex(3, -1) * complex(1, -2)
	assert.Equal(t, want, out.At(1, 1))
}

func TestExpr_ViewsAsLeaves(t *testing.T) {
	t.Parallel()

	im := New[float64](geom.Sz(4, 4))
	FillFunc[float64](im, func(x, y int) float64 { return float64(y*4 + x) })

	v, err := NewView(im, geom.RectAt(geom.Pt(1, 1), geom.Sz(2, 2)))
	require.NoError(t, err)

	out := Eval(Add(Ref[float64](v), Const(100.0)))
	assert.Equal(t, geom.Sz(2, 2), out.Size())
	assert.InDelta(t, 105.0, out.At(0, 0), 1e-12)
	assert.InDelta(t, 110.0, out.At(1, 1), 1e-12)
}

func TestEvalInto_ResizesDestination(t *testing.T) {
	t.Parallel()

	a := NewFilled(geom.Sz(5, 3), 1.0)
	dst := New[float64](geom.Sz(2, 2))
	EvalInto(dst, Ref[float64](a))
	assert.Equal(t, geom.Sz(5, 3), dst.Size())
}
