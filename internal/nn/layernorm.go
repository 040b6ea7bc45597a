package nn

import (
	"fmt"

	"github.com/ember-ml/ember/internal/tensor"
)

// LayerNorm normalizes activations over the last dimension:
//
//	y = (x - mean) / sqrt(var + eps) * gain + shift
//
// gain and shift are learned per-feature parameters of shape [dim].
type LayerNorm[B tensor.Backend] struct {
	dim     int
	eps     float32
	gain    *Parameter[B] // [dim]
	shift   *Parameter[B] // [dim]
	backend B
}

// NewLayerNorm creates a LayerNorm over the trailing dimension of size dim.
func NewLayerNorm[B tensor.Backend](dim int, eps float32, init *Initializer, backend B) *LayerNorm[B] {
	gain := tensor.MustFromSlice(init.NormGain(dim), tensor.Shape{dim}, backend)
	shift := tensor.MustFromSlice(init.NormShift(dim), tensor.Shape{dim}, backend)

	return &LayerNorm[B]{
		dim:     dim,
		eps:     eps,
		gain:    NewParameter("gain", gain),
		shift:   NewParameter("shift", shift),
		backend: backend,
	}
}

// Forward normalizes the trailing dimension of an input of any rank.
func (ln *LayerNorm[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	if shape[len(shape)-1] != ln.dim {
		panic(fmt.Sprintf("LayerNorm.Forward: expected trailing dimension %d, got shape %v", ln.dim, shape))
	}

	mean := input.MeanDim(-1, true)
	centered := input.Sub(mean)
	variance := centered.Mul(centered).MeanDim(-1, true)

	eps := tensor.Full(tensor.Shape{1}, ln.eps, ln.backend)
	invStd := variance.Add(eps).Rsqrt()

	normalized := centered.Mul(invStd)
	return normalized.Mul(ln.gain.Tensor()).Add(ln.shift.Tensor())
}

// Parameters returns [gain, shift].
func (ln *LayerNorm[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{ln.gain, ln.shift}
}
