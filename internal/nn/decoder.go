package nn

import (
	"fmt"

	"github.com/ember-ml/ember/internal/tensor"
)

// DecoderLayer is one pre-norm decoder block: attention and feed-forward
// sublayers, each normalized on entry and added back through a residual
// connection with dropout.
type DecoderLayer[B tensor.Backend] struct {
	attnNorm  *LayerNorm[B]
	attn      *RelMultiHeadAttention[B]
	ffnNorm   *LayerNorm[B]
	ffn       *FFN[B]
	residDrop *Dropout[B]
	dim       int
}

// NewDecoderLayer creates a decoder layer.
func NewDecoderLayer[B tensor.Backend](
	dim, stateDim, nHead, nBuckets int,
	eps float32,
	attnDrop, residDrop *Dropout[B],
	init *Initializer,
	backend B,
) *DecoderLayer[B] {
	return &DecoderLayer[B]{
		attnNorm:  NewLayerNorm(dim, eps, init, backend),
		attn:      NewRelMultiHeadAttention(dim, nHead, nBuckets, attnDrop, init, backend),
		ffnNorm:   NewLayerNorm(dim, eps, init, backend),
		ffn:       NewFFN(dim, stateDim, init, backend),
		residDrop: residDrop,
		dim:       dim,
	}
}

// Forward runs one block over x [batch, seq, dim] with the layer's incoming
// memory. Returns the transformed hidden states and the full keys and values
// for this layer (memory plus current segment, untruncated).
func (l *DecoderLayer[B]) Forward(
	x *tensor.Tensor[float32, B],
	mem LayerKV[B],
	training bool,
) (h, keys, values *tensor.Tensor[float32, B]) {
	attnOut, k, v := l.attn.Forward(l.attnNorm.Forward(x), mem, training)
	x = x.Add(l.residDrop.Forward(attnOut, training))

	shape := x.Shape()
	batch, seq := shape[0], shape[1]
	ffnIn := l.ffnNorm.Forward(x).Reshape(batch*seq, l.dim)
	ffnOut := l.ffn.Forward(ffnIn).Reshape(batch, seq, l.dim)
	x = x.Add(l.residDrop.Forward(ffnOut, training))

	return x, k, v
}

// Parameters returns all parameters of the block.
func (l *DecoderLayer[B]) Parameters() []*Parameter[B] {
	params := l.attnNorm.Parameters()
	params = append(params, l.attn.Parameters()...)
	params = append(params, l.ffnNorm.Parameters()...)
	return append(params, l.ffn.Parameters()...)
}

// Decoder is the stack of decoder layers with segment-level recurrence.
type Decoder[B tensor.Backend] struct {
	layers []*DecoderLayer[B]
	norm   *LayerNorm[B]
}

// NewDecoder creates a decoder stack of nLayer blocks with a final
// normalization over the output.
func NewDecoder[B tensor.Backend](
	nLayer, dim, stateDim, nHead, nBuckets int,
	eps float32,
	attnDrop, residDrop *Dropout[B],
	init *Initializer,
	backend B,
) *Decoder[B] {
	layers := make([]*DecoderLayer[B], nLayer)
	for i := range layers {
		layers[i] = NewDecoderLayer(dim, stateDim, nHead, nBuckets, eps, attnDrop, residDrop, init, backend)
	}
	return &Decoder[B]{
		layers: layers,
		norm:   NewLayerNorm(dim, eps, init, backend),
	}
}

// NumLayers returns the number of decoder layers.
func (d *Decoder[B]) NumLayers() int {
	return len(d.layers)
}

// Forward runs the stack over h [batch, seq, dim]. mems must be nil (no
// memory) or hold one entry per layer. Each layer's updated cache is the
// concatenation of its incoming memory and the current segment, truncated
// from the front to at most maxCacheLen positions, so every layer's cache
// has equal length min(mem+seq, maxCacheLen).
func (d *Decoder[B]) Forward(
	h *tensor.Tensor[float32, B],
	mems []LayerKV[B],
	maxCacheLen int,
	training bool,
) (*tensor.Tensor[float32, B], []LayerKV[B]) {
	if mems != nil && len(mems) != len(d.layers) {
		panic(fmt.Sprintf("Decoder.Forward: expected %d cached layers, got %d", len(d.layers), len(mems)))
	}

	updated := make([]LayerKV[B], len(d.layers))
	for i, layer := range d.layers {
		var mem LayerKV[B]
		if mems != nil {
			mem = mems[i]
		}

		var k, v *tensor.Tensor[float32, B]
		h, k, v = layer.Forward(h, mem, training)

		if full := k.Shape()[2]; full > maxCacheLen {
			k = k.Narrow(2, full-maxCacheLen, maxCacheLen)
			v = v.Narrow(2, full-maxCacheLen, maxCacheLen)
		}
		updated[i] = LayerKV[B]{Keys: k, Values: v}
	}

	return d.norm.Forward(h), updated
}

// Parameters returns the parameters of every layer and the final norm.
func (d *Decoder[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	for _, layer := range d.layers {
		params = append(params, layer.Parameters()...)
	}
	return append(params, d.norm.Parameters()...)
}
