package nn

import (
	"github.com/ember-ml/ember/internal/tensor"
)

// LayerKV holds one decoder layer's cached attention keys and values, each
// shaped [batch, n_head, cached_len, head_dim]. The zero value is an empty
// cache.
//
// Callers own the cache: the decoder reads whatever is passed in and returns
// a fresh LayerKV per layer, never mutating the input.
type LayerKV[B tensor.Backend] struct {
	Keys   *tensor.Tensor[float32, B]
	Values *tensor.Tensor[float32, B]
}

// Len returns the cached sequence length.
func (kv LayerKV[B]) Len() int {
	if kv.Keys == nil {
		return 0
	}
	return kv.Keys.Shape()[2]
}

// Batch returns the cached batch size, or 0 for an empty cache.
func (kv LayerKV[B]) Batch() int {
	if kv.Keys == nil {
		return 0
	}
	return kv.Keys.Shape()[0]
}

// Detach returns a view of the cache cut loose from the computation graph.
// The data buffers are shared; only the graph identity is new, so a later
// backward pass cannot reach anything behind the cached tensors.
func (kv LayerKV[B]) Detach() LayerKV[B] {
	if kv.Keys == nil {
		return kv
	}
	return LayerKV[B]{
		Keys:   kv.Keys.Detach(),
		Values: kv.Values.Detach(),
	}
}

// DetachKV detaches every layer's cache. Always applied to the cache a
// forward pass returns, so gradients from later segments stop at the segment
// boundary.
func DetachKV[B tensor.Backend](mems []LayerKV[B]) []LayerKV[B] {
	out := make([]LayerKV[B], len(mems))
	for i, kv := range mems {
		out[i] = kv.Detach()
	}
	return out
}
