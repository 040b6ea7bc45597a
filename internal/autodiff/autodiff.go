// Package autodiff implements automatic differentiation using the decorator
// pattern.
//
// AutodiffBackend wraps any Backend implementation and adds gradient tracking
// through a GradientTape:
//   - Decorator pattern: AutodiffBackend[B] wraps any Backend implementation
//   - GradientTape: records operations during the forward pass
//   - Operation interface: each op implements its own backward pass
//   - Reverse-mode AD: gradients flow backwards through the chain rule
//
// Usage:
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//	x := tensor.FromSlice([]float32{2.0}, tensor.Shape{1}, backend)
//	y := x.Mul(x)
//	grads := autodiff.Backward(y, backend)
package autodiff

import (
	"github.com/ember-ml/ember/internal/autodiff/ops"
	"github.com/ember-ml/ember/internal/tensor"
)

// AutodiffBackend wraps a Backend and adds automatic differentiation.
// It implements the tensor.Backend interface, delegating every forward
// computation to the wrapped backend and recording differentiable operations
// on the tape.
//
// Operations that produce indices rather than values (Argmax) are not
// recorded; no gradient is defined for them.
type AutodiffBackend[B tensor.Backend] struct {
	inner B
	tape  *GradientTape
}

// New creates a new AutodiffBackend wrapping the given backend.
func New[B tensor.Backend](backend B) *AutodiffBackend[B] {
	return &AutodiffBackend[B]{
		inner: backend,
		tape:  NewGradientTape(),
	}
}

// Tape returns the gradient tape for manual control over recording and
// clearing.
func (b *AutodiffBackend[B]) Tape() *GradientTape {
	return b.tape
}

// Inner returns the wrapped backend for direct access.
func (b *AutodiffBackend[B]) Inner() B {
	return b.inner
}

// Name returns the backend name.
func (b *AutodiffBackend[B]) Name() string {
	return "Autodiff(" + b.inner.Name() + ")"
}

// Device returns the compute device.
func (b *AutodiffBackend[B]) Device() tensor.Device {
	return b.inner.Device()
}

// Add performs element-wise addition and records the operation.
func (b *AutodiffBackend[B]) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Add(x, y)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewAddOp(x, y, result))
	}
	return result
}

// Sub performs element-wise subtraction and records the operation.
func (b *AutodiffBackend[B]) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Sub(x, y)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewSubOp(x, y, result))
	}
	return result
}

// Mul performs element-wise multiplication and records the operation.
func (b *AutodiffBackend[B]) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Mul(x, y)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewMulOp(x, y, result))
	}
	return result
}

// MulScalar multiplies by a scalar and records the operation.
func (b *AutodiffBackend[B]) MulScalar(x *tensor.RawTensor, scalar float32) *tensor.RawTensor {
	result := b.inner.MulScalar(x, scalar)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewMulScalarOp(x, result, scalar))
	}
	return result
}

// MatMul performs matrix multiplication and records the operation.
func (b *AutodiffBackend[B]) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.MatMul(x, y)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewMatMulOp(x, y, result))
	}
	return result
}

// BatchMatMul performs batched matrix multiplication and records the
// operation.
func (b *AutodiffBackend[B]) BatchMatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.BatchMatMul(x, y)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewBatchMatMulOp(x, y, result))
	}
	return result
}

// Reshape reshapes a tensor and records the operation.
//
// Recording matters even for pure shape changes: the backend allocates a new
// tensor, and without a tape entry gradients would stop at the reshaped copy
// instead of flowing back to the original parameter.
func (b *AutodiffBackend[B]) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	result := b.inner.Reshape(t, newShape)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewReshapeOp(t, result))
	}
	return result
}

// Transpose permutes dimensions and records the operation.
func (b *AutodiffBackend[B]) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	ndim := len(t.Shape())
	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}

	result := b.inner.Transpose(t, axes...)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewTransposeOp(t, result, axes))
	}
	return result
}

// Cat concatenates tensors along dim and records the operation.
func (b *AutodiffBackend[B]) Cat(tensors []*tensor.RawTensor, dim int) *tensor.RawTensor {
	result := b.inner.Cat(tensors, dim)
	if b.tape.IsRecording() {
		resolved := tensor.NormDim(dim, len(result.Shape()))
		b.tape.Record(ops.NewCatOp(tensors, result, resolved))
	}
	return result
}

// Narrow slices along dim and records the operation.
func (b *AutodiffBackend[B]) Narrow(t *tensor.RawTensor, dim, start, length int) *tensor.RawTensor {
	result := b.inner.Narrow(t, dim, start, length)
	if b.tape.IsRecording() {
		resolved := tensor.NormDim(dim, len(t.Shape()))
		b.tape.Record(ops.NewNarrowOp(t, result, resolved, start, length))
	}
	return result
}

// Softmax applies softmax along dim and records the operation.
func (b *AutodiffBackend[B]) Softmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	result := b.inner.Softmax(x, dim)
	if b.tape.IsRecording() {
		resolved := tensor.NormDim(dim, len(x.Shape()))
		b.tape.Record(ops.NewSoftmaxOp(x, result, resolved))
	}
	return result
}

// ReLU applies the rectified linear unit and records the operation.
func (b *AutodiffBackend[B]) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.ReLU(x)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewReLUOp(x, result))
	}
	return result
}

// Rsqrt computes the inverse square root and records the operation.
func (b *AutodiffBackend[B]) Rsqrt(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Rsqrt(x)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewRsqrtOp(x, result))
	}
	return result
}

// Clamp limits values to [lo, hi] and records the operation.
func (b *AutodiffBackend[B]) Clamp(x *tensor.RawTensor, lo, hi float32) *tensor.RawTensor {
	result := b.inner.Clamp(x, lo, hi)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewClampOp(x, result, lo, hi))
	}
	return result
}

// Sum reduces to a scalar and records the operation.
func (b *AutodiffBackend[B]) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Sum(x)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewSumOp(x, result))
	}
	return result
}

// SumDim sums along dim and records the operation.
func (b *AutodiffBackend[B]) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	result := b.inner.SumDim(x, dim, keepDim)
	if b.tape.IsRecording() {
		resolved := tensor.NormDim(dim, len(x.Shape()))
		b.tape.Record(ops.NewSumDimOp(x, result, resolved))
	}
	return result
}

// MeanDim averages along dim and records the operation.
func (b *AutodiffBackend[B]) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	result := b.inner.MeanDim(x, dim, keepDim)
	if b.tape.IsRecording() {
		resolved := tensor.NormDim(dim, len(x.Shape()))
		b.tape.Record(ops.NewMeanDimOp(x, result, resolved))
	}
	return result
}

// Argmax returns maximum indices along dim. Not differentiable, never
// recorded.
func (b *AutodiffBackend[B]) Argmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	return b.inner.Argmax(x, dim)
}

// Embedding gathers weight rows by index and records the operation.
func (b *AutodiffBackend[B]) Embedding(weight, indices *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Embedding(weight, indices)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewEmbeddingOp(weight, indices, result))
	}
	return result
}
