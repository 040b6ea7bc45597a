package tensor

import "fmt"

// Tensor is a generic tensor with element type T and backend B.
// It provides type-safe operations over multi-dimensional arrays.
//
// Type Parameters:
//   - T: element type (must satisfy DType)
//   - B: computation backend (must implement Backend)
//
// Example:
//
//	backend := cpu.New()
//	t := tensor.Zeros[float32](tensor.Shape{3, 4}, backend)
//	result := t.Add(t)
type Tensor[T DType, B Backend] struct {
	raw          *RawTensor
	backend      B
	grad         *Tensor[T, B]
	requiresGrad bool
}

// New creates a Tensor from a RawTensor and backend.
func New[T DType, B Backend](raw *RawTensor, b B) *Tensor[T, B] {
	return &Tensor[T, B]{
		raw:     raw,
		backend: b,
	}
}

// FromSlice creates a tensor from a Go slice.
// The slice is copied into the tensor's memory.
func FromSlice[T DType, B Backend](data []T, shape Shape, b B) (*Tensor[T, B], error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}

	var dummy T
	raw, err := NewRaw(shape, inferDataType(dummy), b.Device())
	if err != nil {
		return nil, err
	}

	t := New[T, B](raw, b)
	copy(t.Data(), data)

	return t, nil
}

// MustFromSlice is like FromSlice but panics on shape mismatch. Intended for
// call sites where the shape is computed from the data, so a mismatch is a
// programmer error.
func MustFromSlice[T DType, B Backend](data []T, shape Shape, b B) *Tensor[T, B] {
	t, err := FromSlice(data, shape, b)
	if err != nil {
		panic(fmt.Sprintf("tensor: %v", err))
	}
	return t
}

// Shape returns the tensor's shape.
func (t *Tensor[T, B]) Shape() Shape {
	return t.raw.Shape()
}

// DType returns the tensor's data type.
func (t *Tensor[T, B]) DType() DataType {
	return t.raw.DType()
}

// NumElements returns the total number of elements.
func (t *Tensor[T, B]) NumElements() int {
	return t.raw.NumElements()
}

// Raw returns the underlying RawTensor.
// Used by backend implementations for low-level operations.
func (t *Tensor[T, B]) Raw() *RawTensor {
	return t.raw
}

// Backend returns the computation backend.
func (t *Tensor[T, B]) Backend() B {
	return t.backend
}

// Grad returns the gradient tensor (if computed by autodiff).
func (t *Tensor[T, B]) Grad() *Tensor[T, B] {
	return t.grad
}

// SetGrad sets the gradient tensor.
func (t *Tensor[T, B]) SetGrad(grad *Tensor[T, B]) {
	t.grad = grad
}

// Detach returns a new tensor that shares the same data but is severed from
// the computation graph.
//
// The returned tensor is zero-copy: it reuses the data buffer, so shape,
// length and numeric values are untouched. What changes is graph identity.
// The result wraps a fresh RawTensor, and since the gradient tape keys
// gradients by RawTensor pointer, no gradient reaching the detached tensor
// can ever propagate into the operations that produced the original. Cached
// keys/values are detached before being handed back to the caller so that
// history behaves as a constant in later backward passes.
func (t *Tensor[T, B]) Detach() *Tensor[T, B] {
	return &Tensor[T, B]{
		raw:     AliasOf(t.raw),
		backend: t.backend,
	}
}

// Data returns a typed slice view of the tensor's data.
// The slice directly accesses the underlying memory (zero-copy).
//
// WARNING: modifications to the returned slice modify the tensor.
func (t *Tensor[T, B]) Data() []T {
	var dummy T
	switch any(dummy).(type) {
	case float32:
		return any(t.raw.AsFloat32()).([]T)
	case int32:
		return any(t.raw.AsInt32()).([]T)
	default:
		panic("unsupported type")
	}
}

// Item returns the scalar value of a 0-D tensor.
// Panics if the tensor is not a scalar.
func (t *Tensor[T, B]) Item() T {
	if len(t.Shape()) != 0 || t.NumElements() != 1 {
		panic(fmt.Sprintf("Item() only works for scalar tensors, got shape %v", t.Shape()))
	}
	return t.Data()[0]
}

// At returns the element at the given indices.
// Panics if indices are out of bounds.
func (t *Tensor[T, B]) At(indices ...int) T {
	return t.Data()[t.flatIndex(indices)]
}

// Set sets the element at the given indices.
// Panics if indices are out of bounds.
func (t *Tensor[T, B]) Set(value T, indices ...int) {
	t.Data()[t.flatIndex(indices)] = value
}

func (t *Tensor[T, B]) flatIndex(indices []int) int {
	if len(indices) != len(t.Shape()) {
		panic(fmt.Sprintf("expected %d indices, got %d", len(t.Shape()), len(indices)))
	}

	offset := 0
	strides := t.raw.Strides()
	for i, idx := range indices {
		if idx < 0 || idx >= t.Shape()[i] {
			panic(fmt.Sprintf("index %d out of bounds for dimension %d (size %d)", idx, i, t.Shape()[i]))
		}
		offset += idx * strides[i]
	}
	return offset
}

// Clone creates a deep copy of the tensor without gradient state.
func (t *Tensor[T, B]) Clone() *Tensor[T, B] {
	return &Tensor[T, B]{
		raw:     t.raw.Clone(),
		backend: t.backend,
	}
}

// RequireGrad marks this tensor for gradient computation and returns it for
// chaining.
func (t *Tensor[T, B]) RequireGrad() *Tensor[T, B] {
	t.requiresGrad = true
	return t
}

// RequiresGrad reports whether this tensor requires gradient computation.
func (t *Tensor[T, B]) RequiresGrad() bool {
	return t.requiresGrad
}

// String returns a human-readable representation of the tensor.
func (t *Tensor[T, B]) String() string {
	return fmt.Sprintf("Tensor[%s]%v on %s", t.raw.DType(), t.raw.Shape(), t.raw.Device())
}
