package tensor

import "fmt"

// Shape describes tensor dimensions in row-major order.
// An empty Shape denotes a scalar (one element).
type Shape []int

// NumElements returns the total number of elements.
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks that all dimensions are positive.
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim <= 0 {
			return fmt.Errorf("dimension %d must be positive, got %d", i, dim)
		}
	}
	return nil
}

// Equal reports whether two shapes are identical.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	return append(Shape(nil), s...)
}

// ComputeStrides returns row-major strides for the shape.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	stride := 1
	for i := len(s) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= s[i]
	}
	return strides
}

// BroadcastShapes computes the NumPy-style broadcast shape of a and b.
// Returns the output shape and whether any broadcasting is needed.
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	ndim := len(a)
	if len(b) > ndim {
		ndim = len(b)
	}

	out := make(Shape, ndim)
	needs := len(a) != len(b)

	for i := 0; i < ndim; i++ {
		da, db := 1, 1
		if i >= ndim-len(a) {
			da = a[i-(ndim-len(a))]
		}
		if i >= ndim-len(b) {
			db = b[i-(ndim-len(b))]
		}

		switch {
		case da == db:
			out[i] = da
		case da == 1:
			out[i] = db
			needs = true
		case db == 1:
			out[i] = da
			needs = true
		default:
			return nil, false, fmt.Errorf("cannot broadcast shapes %v and %v", a, b)
		}
	}

	return out, needs, nil
}

// normDim converts a possibly negative dimension index to a positive one.
// Panics if the index is out of range.
func normDim(dim, ndim int) int {
	if dim < 0 {
		dim += ndim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("dimension %d out of range for %dD tensor", dim, ndim))
	}
	return dim
}

// NormDim is the exported form of normDim, used by backends.
func NormDim(dim, ndim int) int {
	return normDim(dim, ndim)
}
