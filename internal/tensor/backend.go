package tensor

// Backend defines the interface that all compute backends must implement.
// Backends handle the actual computation for tensor operations.
//
// Contract: backends never mutate their inputs. Every operation allocates a
// fresh output (the autodiff tape and zero-copy detached views both rely on
// input buffers staying intact).
//
// Implementations:
//   - CPU: pure Go element-wise kernels with gonum BLAS matrix kernels
//   - Autodiff: decorator over any backend that records operations on a tape
type Backend interface {
	// Element-wise binary operations (NumPy-style broadcasting).
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor

	// Scalar operations.
	MulScalar(x *RawTensor, scalar float32) *RawTensor

	// Matrix operations.
	// MatMul: (M, K) @ (K, N) -> (M, N).
	// BatchMatMul: (B, H, M, K) @ (B, H, K, N) -> (B, H, M, N).
	MatMul(a, b *RawTensor) *RawTensor
	BatchMatMul(a, b *RawTensor) *RawTensor

	// Shape operations.
	Reshape(t *RawTensor, newShape Shape) *RawTensor
	Transpose(t *RawTensor, axes ...int) *RawTensor
	Cat(tensors []*RawTensor, dim int) *RawTensor
	Narrow(t *RawTensor, dim, start, length int) *RawTensor

	// Math and activation operations.
	Softmax(x *RawTensor, dim int) *RawTensor
	ReLU(x *RawTensor) *RawTensor
	Rsqrt(x *RawTensor) *RawTensor
	Clamp(x *RawTensor, lo, hi float32) *RawTensor

	// Reductions.
	Sum(x *RawTensor) *RawTensor
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor
	MeanDim(x *RawTensor, dim int, keepDim bool) *RawTensor
	Argmax(x *RawTensor, dim int) *RawTensor

	// Indexing operations.
	Embedding(weight, indices *RawTensor) *RawTensor

	// Metadata.
	Name() string
	Device() Device
}
