// Copyright 2026 Ember ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides reverse-mode automatic differentiation.
//
// It wraps any backend with a gradient tape that records operations during
// the forward pass and replays them backwards to accumulate gradients.
//
// Example:
//
//	base := cpu.New()
//	backend := autodiff.New(base)
//	backend.Tape().StartRecording()
//	x := tensor.Ones[float32](tensor.Shape{2}, backend)
//	y := x.Mul(x)
//	grads := autodiff.Backward(y, backend)
package autodiff

import (
	"github.com/ember-ml/ember/internal/autodiff"
	"github.com/ember-ml/ember/internal/tensor"
)

// Backend is the autodiff-enabled backend decorator.
type Backend[B tensor.Backend] = autodiff.AutodiffBackend[B]

// New creates an autodiff backend wrapping the given backend.
func New[B tensor.Backend](backend B) *Backend[B] {
	return autodiff.New(backend)
}

// GradientTape records operations for automatic differentiation.
type GradientTape = autodiff.GradientTape

// NewGradientTape creates a new gradient tape.
func NewGradientTape() *GradientTape {
	return autodiff.NewGradientTape()
}

// BackwardCapable is the interface for backends that support backpropagation.
type BackwardCapable = autodiff.BackwardCapable

// Backward computes gradients of t with respect to every recorded tensor.
func Backward[T tensor.DType, B BackwardCapable](t *tensor.Tensor[T, B], backend B) map[*tensor.RawTensor]*tensor.RawTensor {
	return autodiff.Backward(t, backend)
}
