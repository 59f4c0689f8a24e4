package geom

import (
	"errors"
	"fmt"
)

// Size errors.
var (
	// ErrNegativeSize indicates an operation would produce a negative dimension.
	ErrNegativeSize = errors.New("geom: negative size")
)

// Size is a 2-D extent in pixels. Both components are non-negative;
// constructors and arithmetic enforce this.
type Size struct {
	W int
	H int
}

// NewSize returns a Size, validating that both components are non-negative.
func NewSize(w, h int) (Size, error) {
	if w < 0 || h < 0 {
		return Size{}, fmt.Errorf("%w: (%d, %d)", ErrNegativeSize, w, h)
	}
	return Size{W: w, H: h}, nil
}

// Sz is the unchecked constructor for sizes known to be valid at the
// call site (literals, widths of existing images). It panics on
// negative input.
func Sz(w, h int) Size {
	s, err := NewSize(w, h)
	if err != nil {
		panic(err)
	}
	return s
}

// Area returns W*H.
func (s Size) Area() int { return s.W * s.H }

// Add returns the component-wise sum.
func (s Size) Add(o Size) Size {
	return Size{W: s.W + o.W, H: s.H + o.H}
}

// Sub returns the component-wise difference, failing if either
// component would go negative.
func (s Size) Sub(o Size) (Size, error) {
	return NewSize(s.W-o.W, s.H-o.H)
}

// Transposed swaps width and height.
func (s Size) Transposed() Size { return Size{W: s.H, H: s.W} }

// Maximal returns a square size using the larger component.
func (s Size) Maximal() Size {
	if s.W >= s.H {
		return Size{W: s.W, H: s.W}
	}
	return Size{W: s.H, H: s.H}
}

// Minimal returns a square size using the smaller component.
func (s Size) Minimal() Size {
	if s.W <= s.H {
		return Size{W: s.W, H: s.W}
	}
	return Size{W: s.H, H: s.H}
}

func (s Size) String() string {
	return fmt.Sprintf("[%d,%d]", s.W, s.H)
}
