package nn

import (
	"fmt"

	"github.com/ember-ml/ember/internal/tensor"
)

// Linear implements a fully connected layer: y = x @ W.T + b.
//
// The weight matrix has shape [out_features, in_features]; the optional bias
// has shape [out_features].
type Linear[B tensor.Backend] struct {
	inFeatures  int
	outFeatures int
	weight      *Parameter[B] // [out_features, in_features]
	bias        *Parameter[B] // [out_features], nil when disabled
	backend     B
}

// NewLinear creates a Linear layer with weights drawn from the initializer.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, withBias bool, init *Initializer, backend B) *Linear[B] {
	weightShape := tensor.Shape{outFeatures, inFeatures}
	weight := tensor.MustFromSlice(init.LinearWeight(outFeatures, inFeatures), weightShape, backend)

	l := &Linear[B]{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      NewParameter("weight", weight),
		backend:     backend,
	}
	if withBias {
		bias := tensor.MustFromSlice(init.Bias(outFeatures), tensor.Shape{outFeatures}, backend)
		l.bias = NewParameter("bias", bias)
	}
	return l
}

// Forward computes y = x @ W.T + b for a 2D input [batch, in_features].
func (l *Linear[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	inputShape := input.Shape()
	if len(inputShape) != 2 {
		panic(fmt.Sprintf("Linear.Forward: expected 2D input [batch, features], got shape %v", inputShape))
	}
	if inputShape[1] != l.inFeatures {
		panic(fmt.Sprintf("Linear.Forward: expected input with %d features, got %d", l.inFeatures, inputShape[1]))
	}

	wT := l.weight.Tensor().Transpose() // [in_features, out_features]
	output := input.MatMul(wT)

	if l.bias != nil {
		b := l.bias.Tensor().Reshape(1, l.outFeatures)
		output = output.Add(b)
	}
	return output
}

// Parameters returns [weight, bias] if bias is present, otherwise [weight].
func (l *Linear[B]) Parameters() []*Parameter[B] {
	if l.bias != nil {
		return []*Parameter[B]{l.weight, l.bias}
	}
	return []*Parameter[B]{l.weight}
}

// Weight returns the weight parameter.
func (l *Linear[B]) Weight() *Parameter[B] {
	return l.weight
}

// Bias returns the bias parameter, or nil when disabled.
func (l *Linear[B]) Bias() *Parameter[B] {
	return l.bias
}
