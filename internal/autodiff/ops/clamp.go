package ops

import "github.com/ember-ml/ember/internal/tensor"

// ClampOp represents range limiting: output = min(max(x, lo), hi).
//
// Backward pass passes the gradient through where the input stayed inside
// [lo, hi] and zeros it where the output saturated.
type ClampOp struct {
	inputs []*tensor.RawTensor // [x]
	output *tensor.RawTensor
	lo, hi float32
}

// NewClampOp creates a new ClampOp.
func NewClampOp(x, output *tensor.RawTensor, lo, hi float32) *ClampOp {
	return &ClampOp{
		inputs: []*tensor.RawTensor{x},
		output: output,
		lo:     lo,
		hi:     hi,
	}
}

// Backward masks the output gradient by the non-saturated positions.
func (op *ClampOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	x := op.inputs[0]
	grad := zerosLike(x)

	xData := x.AsFloat32()
	gData := outputGrad.AsFloat32()
	out := grad.AsFloat32()
	for i, v := range xData {
		if v >= op.lo && v <= op.hi {
			out[i] = gData[i]
		}
	}
	return []*tensor.RawTensor{grad}
}

// Inputs returns the input tensor [x].
func (op *ClampOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the clamped tensor.
func (op *ClampOp) Output() *tensor.RawTensor {
	return op.output
}
