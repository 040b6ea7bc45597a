package nn

import (
	"fmt"
	"math"

	"github.com/ember-ml/ember/internal/tensor"
)

// maskValue is added to attention scores at disallowed positions. Large
// enough that the corresponding softmax weight underflows to zero.
const maskValue = float32(-1e9)

// RelMultiHeadAttention is causal multi-head self-attention with a learned
// relative position bias and segment-level key/value memory.
//
// Queries come from the current segment only; keys and values are the
// concatenation of the incoming memory and the current segment, so each
// token attends to the cached context and to earlier tokens of its own
// segment. The position bias is looked up from a [n_positional, n_head]
// table by bucketed query-key distance, with distances past the table edge
// sharing the last bucket.
type RelMultiHeadAttention[B tensor.Backend] struct {
	nHead    int
	headDim  int
	modelDim int
	nBuckets int
	query    *Linear[B]
	key      *Linear[B]
	value    *Linear[B]
	out      *Linear[B]
	relBias  *Parameter[B] // [n_buckets, n_head]
	attnDrop *Dropout[B]
	scale    float32
	backend  B
}

// NewRelMultiHeadAttention creates the attention block. modelDim must be
// divisible by nHead.
func NewRelMultiHeadAttention[B tensor.Backend](
	modelDim, nHead, nBuckets int,
	attnDrop *Dropout[B],
	init *Initializer,
	backend B,
) *RelMultiHeadAttention[B] {
	if modelDim%nHead != 0 {
		panic(fmt.Sprintf("RelMultiHeadAttention: model dim %d not divisible by %d heads", modelDim, nHead))
	}
	headDim := modelDim / nHead

	relBias := tensor.MustFromSlice(
		init.EmbeddingWeight(nBuckets, nHead),
		tensor.Shape{nBuckets, nHead},
		backend,
	)

	return &RelMultiHeadAttention[B]{
		nHead:    nHead,
		headDim:  headDim,
		modelDim: modelDim,
		nBuckets: nBuckets,
		query:    NewLinear(modelDim, modelDim, false, init, backend),
		key:      NewLinear(modelDim, modelDim, false, init, backend),
		value:    NewLinear(modelDim, modelDim, false, init, backend),
		out:      NewLinear(modelDim, modelDim, false, init, backend),
		relBias:  NewParameter("rel_bias", relBias),
		attnDrop: attnDrop,
		scale:    float32(1 / math.Sqrt(float64(headDim))),
		backend:  backend,
	}
}

// Forward attends the segment x [batch, seq, dim] over mem plus itself.
// Returns the attended output [batch, seq, dim] and the full keys and values
// [batch, n_head, mem+seq, head_dim] covering both memory and segment.
func (a *RelMultiHeadAttention[B]) Forward(
	x *tensor.Tensor[float32, B],
	mem LayerKV[B],
	training bool,
) (out *tensor.Tensor[float32, B], keys, values *tensor.Tensor[float32, B]) {
	shape := x.Shape()
	batch, seq := shape[0], shape[1]

	flat := x.Reshape(batch*seq, a.modelDim)
	q := a.splitHeads(a.query.Forward(flat), batch, seq)
	k := a.splitHeads(a.key.Forward(flat), batch, seq)
	v := a.splitHeads(a.value.Forward(flat), batch, seq)

	memLen := mem.Len()
	if memLen > 0 {
		k = tensor.Cat([]*tensor.Tensor[float32, B]{mem.Keys, k}, 2)
		v = tensor.Cat([]*tensor.Tensor[float32, B]{mem.Values, v}, 2)
	}
	keyLen := memLen + seq

	// [batch, head, seq, keyLen]
	scores := q.BatchMatMul(k.Transpose(0, 1, 3, 2)).MulScalar(a.scale)
	scores = scores.Add(a.positionBias(seq, keyLen, memLen))
	scores = scores.Add(a.causalMask(seq, keyLen, memLen))

	weights := a.attnDrop.Forward(scores.Softmax(-1), training)

	ctx := weights.BatchMatMul(v) // [batch, head, seq, headDim]
	ctx = ctx.Transpose(0, 2, 1, 3).Reshape(batch*seq, a.modelDim)
	out = a.out.Forward(ctx).Reshape(batch, seq, a.modelDim)

	return out, k, v
}

// splitHeads reshapes [batch*seq, dim] to [batch, head, seq, headDim].
func (a *RelMultiHeadAttention[B]) splitHeads(t *tensor.Tensor[float32, B], batch, seq int) *tensor.Tensor[float32, B] {
	return t.Reshape(batch, seq, a.nHead, a.headDim).Transpose(0, 2, 1, 3)
}

// positionBias builds the [1, head, seq, keyLen] relative bias added to the
// attention scores. Query i sits at absolute position memLen+i; its distance
// to key j is bucketed into the bias table, clamped to the last bucket.
func (a *RelMultiHeadAttention[B]) positionBias(seq, keyLen, memLen int) *tensor.Tensor[float32, B] {
	idx := make([]int32, seq*keyLen)
	for i := 0; i < seq; i++ {
		pos := memLen + i
		for j := 0; j < keyLen; j++ {
			d := pos - j
			if d < 0 {
				d = 0 // future positions, masked anyway
			}
			if d >= a.nBuckets {
				d = a.nBuckets - 1
			}
			idx[i*keyLen+j] = int32(d)
		}
	}
	idxTensor := tensor.MustFromSlice(idx, tensor.Shape{seq, keyLen}, a.backend)

	bias := a.relBias.Tensor().Embedding(idxTensor) // [seq, keyLen, head]
	return bias.Transpose(2, 0, 1).Reshape(1, a.nHead, seq, keyLen)
}

// causalMask builds the [1, 1, seq, keyLen] additive mask that blocks
// attention to keys after the query's absolute position. Memory positions
// are always visible.
func (a *RelMultiHeadAttention[B]) causalMask(seq, keyLen, memLen int) *tensor.Tensor[float32, B] {
	mask := make([]float32, seq*keyLen)
	for i := 0; i < seq; i++ {
		for j := memLen + i + 1; j < keyLen; j++ {
			mask[i*keyLen+j] = maskValue
		}
	}
	return tensor.MustFromSlice(mask, tensor.Shape{1, 1, seq, keyLen}, a.backend)
}

// Parameters returns the projection weights and the relative bias table.
func (a *RelMultiHeadAttention[B]) Parameters() []*Parameter[B] {
	params := a.query.Parameters()
	params = append(params, a.key.Parameters()...)
	params = append(params, a.value.Parameters()...)
	params = append(params, a.out.Parameters()...)
	return append(params, a.relBias)
}
