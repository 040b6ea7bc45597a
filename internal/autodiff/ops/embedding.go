package ops

import "github.com/ember-ml/ember/internal/tensor"

// EmbeddingOp represents a row lookup: output[i] = weight[indices[i]].
//
// Backward pass scatter-adds each output row gradient into the selected
// weight row. Repeated indices accumulate. The indices carry no gradient.
type EmbeddingOp struct {
	inputs []*tensor.RawTensor // [weight, indices]
	output *tensor.RawTensor
}

// NewEmbeddingOp creates a new EmbeddingOp.
func NewEmbeddingOp(weight, indices, output *tensor.RawTensor) *EmbeddingOp {
	return &EmbeddingOp{
		inputs: []*tensor.RawTensor{weight, indices},
		output: output,
	}
}

// Backward scatter-adds output row gradients into the weight gradient.
func (op *EmbeddingOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	weight, indices := op.inputs[0], op.inputs[1]
	dim := weight.Shape()[1]

	gradW := zerosLike(weight)
	wData := gradW.AsFloat32()
	gData := outputGrad.AsFloat32()

	for i, idx := range indices.AsInt32() {
		row := wData[int(idx)*dim : (int(idx)+1)*dim]
		src := gData[i*dim : (i+1)*dim]
		for j, v := range src {
			row[j] += v
		}
	}
	return []*tensor.RawTensor{gradW, nil}
}

// Inputs returns the input tensors [weight, indices].
func (op *EmbeddingOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the gathered rows.
func (op *EmbeddingOp) Output() *tensor.RawTensor {
	return op.output
}
