package ops

import "github.com/ember-ml/ember/internal/tensor"

// NarrowOp represents a contiguous slice along a dimension:
// output = x[..., start:start+length, ...].
//
// Backward pass scatters the output gradient into a zero tensor of the input
// shape at the sliced range.
type NarrowOp struct {
	inputs        []*tensor.RawTensor // [x]
	output        *tensor.RawTensor
	dim           int
	start, length int
}

// NewNarrowOp creates a new NarrowOp. dim must be the resolved
// (non-negative) dimension used in the forward pass.
func NewNarrowOp(x, output *tensor.RawTensor, dim, start, length int) *NarrowOp {
	return &NarrowOp{
		inputs: []*tensor.RawTensor{x},
		output: output,
		dim:    dim,
		start:  start,
		length: length,
	}
}

// Backward zero-pads the output gradient back to the input shape.
func (op *NarrowOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	x := op.inputs[0]
	shape := x.Shape()
	grad := zerosLike(x)

	outer, inner := 1, 1
	for d := 0; d < op.dim; d++ {
		outer *= shape[d]
	}
	for d := op.dim + 1; d < len(shape); d++ {
		inner *= shape[d]
	}

	srcRow := op.length * inner
	dstRow := shape[op.dim] * inner
	gData := outputGrad.AsFloat32()
	data := grad.AsFloat32()
	for o := 0; o < outer; o++ {
		copy(data[o*dstRow+op.start*inner:o*dstRow+op.start*inner+srcRow],
			gData[o*srcRow:(o+1)*srcRow])
	}
	return []*tensor.RawTensor{grad}
}

// Inputs returns the input tensor [x].
func (op *NarrowOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the sliced tensor.
func (op *NarrowOp) Output() *tensor.RawTensor {
	return op.output
}
