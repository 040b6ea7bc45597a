package tensor

// Method dispatch to the backend. Every method allocates a fresh result;
// inputs are never modified.

// Add performs element-wise addition with broadcasting.
func (t *Tensor[T, B]) Add(other *Tensor[T, B]) *Tensor[T, B] {
	return New[T, B](t.backend.Add(t.raw, other.raw), t.backend)
}

// Sub performs element-wise subtraction with broadcasting.
func (t *Tensor[T, B]) Sub(other *Tensor[T, B]) *Tensor[T, B] {
	return New[T, B](t.backend.Sub(t.raw, other.raw), t.backend)
}

// Mul performs element-wise multiplication with broadcasting.
func (t *Tensor[T, B]) Mul(other *Tensor[T, B]) *Tensor[T, B] {
	return New[T, B](t.backend.Mul(t.raw, other.raw), t.backend)
}

// MulScalar multiplies every element by a scalar.
func (t *Tensor[T, B]) MulScalar(scalar float32) *Tensor[T, B] {
	return New[T, B](t.backend.MulScalar(t.raw, scalar), t.backend)
}

// MatMul performs 2D matrix multiplication: (M, K) @ (K, N) -> (M, N).
func (t *Tensor[T, B]) MatMul(other *Tensor[T, B]) *Tensor[T, B] {
	return New[T, B](t.backend.MatMul(t.raw, other.raw), t.backend)
}

// BatchMatMul performs batched matrix multiplication over 4D tensors:
// (B, H, M, K) @ (B, H, K, N) -> (B, H, M, N).
func (t *Tensor[T, B]) BatchMatMul(other *Tensor[T, B]) *Tensor[T, B] {
	return New[T, B](t.backend.BatchMatMul(t.raw, other.raw), t.backend)
}

// Reshape returns a tensor with the same data and a new shape.
// The number of elements must be unchanged.
func (t *Tensor[T, B]) Reshape(newShape ...int) *Tensor[T, B] {
	return New[T, B](t.backend.Reshape(t.raw, Shape(newShape)), t.backend)
}

// Transpose permutes dimensions. With no axes given, all dimensions are
// reversed (matrix transpose for 2D).
func (t *Tensor[T, B]) Transpose(axes ...int) *Tensor[T, B] {
	return New[T, B](t.backend.Transpose(t.raw, axes...), t.backend)
}

// Unsqueeze inserts a dimension of size 1 at the given position.
func (t *Tensor[T, B]) Unsqueeze(dim int) *Tensor[T, B] {
	shape := t.Shape()
	dim = normDim(dim, len(shape)+1)
	newShape := make(Shape, 0, len(shape)+1)
	newShape = append(newShape, shape[:dim]...)
	newShape = append(newShape, 1)
	newShape = append(newShape, shape[dim:]...)
	return New[T, B](t.backend.Reshape(t.raw, newShape), t.backend)
}

// Narrow returns a slice of length elements starting at start along dim.
func (t *Tensor[T, B]) Narrow(dim, start, length int) *Tensor[T, B] {
	return New[T, B](t.backend.Narrow(t.raw, dim, start, length), t.backend)
}

// Softmax computes softmax along the given dimension.
// Supports negative dimension indexing (-1 = last dimension).
func (t *Tensor[T, B]) Softmax(dim int) *Tensor[T, B] {
	return New[T, B](t.backend.Softmax(t.raw, dim), t.backend)
}

// ReLU applies max(0, x) element-wise.
func (t *Tensor[T, B]) ReLU() *Tensor[T, B] {
	return New[T, B](t.backend.ReLU(t.raw), t.backend)
}

// Rsqrt computes the reciprocal square root element-wise.
func (t *Tensor[T, B]) Rsqrt() *Tensor[T, B] {
	return New[T, B](t.backend.Rsqrt(t.raw), t.backend)
}

// Clamp limits every element to the closed range [lo, hi].
// Values outside the range saturate; they are not rescaled.
func (t *Tensor[T, B]) Clamp(lo, hi float32) *Tensor[T, B] {
	return New[T, B](t.backend.Clamp(t.raw, lo, hi), t.backend)
}

// Sum computes the sum of all elements, returning a scalar tensor.
func (t *Tensor[T, B]) Sum() *Tensor[T, B] {
	return New[T, B](t.backend.Sum(t.raw), t.backend)
}

// SumDim sums along a dimension. With keepDim the reduced dimension is kept
// with size 1.
func (t *Tensor[T, B]) SumDim(dim int, keepDim bool) *Tensor[T, B] {
	return New[T, B](t.backend.SumDim(t.raw, dim, keepDim), t.backend)
}

// MeanDim averages along a dimension. With keepDim the reduced dimension is
// kept with size 1.
func (t *Tensor[T, B]) MeanDim(dim int, keepDim bool) *Tensor[T, B] {
	return New[T, B](t.backend.MeanDim(t.raw, dim, keepDim), t.backend)
}

// Argmax returns the index of the maximum value along dim as an int32 tensor
// with that dimension removed. Ties resolve to the lowest index.
func (t *Tensor[T, B]) Argmax(dim int) *Tensor[int32, B] {
	return New[int32, B](t.backend.Argmax(t.raw, dim), t.backend)
}

// Embedding performs a differentiable row lookup: for a weight tensor of
// shape [num, dim], maps indices of any shape [...] to vectors [..., dim].
func (t *Tensor[T, B]) Embedding(indices *Tensor[int32, B]) *Tensor[T, B] {
	return New[T, B](t.backend.Embedding(t.raw, indices.raw), t.backend)
}
