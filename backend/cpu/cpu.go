// Copyright 2026 Ember ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the public API for the CPU compute backend.
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
package cpu

import (
	"github.com/ember-ml/ember/internal/backend/cpu"
)

// Backend implements tensor operations on CPU, with gonum BLAS matrix
// kernels and parallel element-wise loops.
type Backend = cpu.CPUBackend

// New creates a new CPU backend.
func New() *Backend {
	return cpu.New()
}
