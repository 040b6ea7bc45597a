package nn

import (
	"fmt"

	"github.com/ember-ml/ember/internal/tensor"
)

// TiedEmbedding maps token ids to dense vectors and projects hidden states
// back to vocabulary scores with the same weight matrix.
//
// The single weight has shape [num_embeddings, dim]; the projection computes
// hidden @ W.T with no bias, so the input and output vocabularies share one
// representation and one gradient.
type TiedEmbedding[B tensor.Backend] struct {
	numEmbeddings int
	dim           int
	weight        *Parameter[B] // [num_embeddings, dim]
	backend       B
}

// NewTiedEmbedding creates a TiedEmbedding with weights drawn from the
// initializer.
func NewTiedEmbedding[B tensor.Backend](numEmbeddings, dim int, init *Initializer, backend B) *TiedEmbedding[B] {
	weight := tensor.MustFromSlice(
		init.EmbeddingWeight(numEmbeddings, dim),
		tensor.Shape{numEmbeddings, dim},
		backend,
	)
	return &TiedEmbedding[B]{
		numEmbeddings: numEmbeddings,
		dim:           dim,
		weight:        NewParameter("weight", weight),
		backend:       backend,
	}
}

// Forward looks up embedding rows: ids of shape [...] produce vectors of
// shape [..., dim].
func (e *TiedEmbedding[B]) Forward(ids *tensor.Tensor[int32, B]) *tensor.Tensor[float32, B] {
	return e.weight.Tensor().Embedding(ids)
}

// Project maps hidden states [n, dim] to vocabulary scores
// [n, num_embeddings] using the transposed embedding weight.
func (e *TiedEmbedding[B]) Project(hidden *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := hidden.Shape()
	if len(shape) != 2 || shape[1] != e.dim {
		panic(fmt.Sprintf("TiedEmbedding.Project: expected input [n, %d], got shape %v", e.dim, shape))
	}
	return hidden.MatMul(e.weight.Tensor().Transpose())
}

// Parameters returns the single shared weight.
func (e *TiedEmbedding[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{e.weight}
}

// Weight returns the shared weight parameter.
func (e *TiedEmbedding[B]) Weight() *Parameter[B] {
	return e.weight
}

// NumEmbeddings returns the vocabulary size.
func (e *TiedEmbedding[B]) NumEmbeddings() int {
	return e.numEmbeddings
}
