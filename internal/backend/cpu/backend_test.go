package cpu

import (
	"math"
	"testing"

	"github.com/ember-ml/ember/internal/tensor"
)

func almostEqual(a, b, tol float32) bool {
	return float32(math.Abs(float64(a-b))) <= tol
}

func TestMatMul(t *testing.T) {
	backend := New()

	a := tensor.MustFromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
	b := tensor.MustFromSlice([]float32{7, 8, 9, 10, 11, 12}, tensor.Shape{3, 2}, backend)

	c := a.MatMul(b)
	want := []float32{58, 64, 139, 154}

	if !c.Shape().Equal(tensor.Shape{2, 2}) {
		t.Fatalf("MatMul shape = %v, want [2 2]", c.Shape())
	}
	for i, w := range want {
		if got := c.Data()[i]; !almostEqual(got, w, 1e-5) {
			t.Errorf("MatMul[%d] = %v, want %v", i, got, w)
		}
	}
}

func TestBatchMatMul(t *testing.T) {
	backend := New()

	// Two independent 2x2 matrices in a [1, 2, 2, 2] layout.
	a := tensor.MustFromSlice([]float32{
		1, 0, 0, 1, // identity
		2, 0, 0, 2, // 2*identity
	}, tensor.Shape{1, 2, 2, 2}, backend)
	b := tensor.MustFromSlice([]float32{
		1, 2, 3, 4,
		5, 6, 7, 8,
	}, tensor.Shape{1, 2, 2, 2}, backend)

	c := a.BatchMatMul(b)
	want := []float32{1, 2, 3, 4, 10, 12, 14, 16}
	for i, w := range want {
		if got := c.Data()[i]; !almostEqual(got, w, 1e-5) {
			t.Errorf("BatchMatMul[%d] = %v, want %v", i, got, w)
		}
	}
}

func TestAdd_Broadcast(t *testing.T) {
	backend := New()

	a := tensor.MustFromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
	b := tensor.MustFromSlice([]float32{10, 20, 30}, tensor.Shape{3}, backend)

	c := a.Add(b)
	want := []float32{11, 22, 33, 14, 25, 36}
	for i, w := range want {
		if got := c.Data()[i]; got != w {
			t.Errorf("Add[%d] = %v, want %v", i, got, w)
		}
	}

	// Inputs untouched.
	if a.Data()[0] != 1 || b.Data()[0] != 10 {
		t.Error("Add modified its inputs")
	}
}

func TestTranspose2D(t *testing.T) {
	backend := New()

	a := tensor.MustFromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
	at := a.Transpose()

	if !at.Shape().Equal(tensor.Shape{3, 2}) {
		t.Fatalf("Transpose shape = %v, want [3 2]", at.Shape())
	}
	want := []float32{1, 4, 2, 5, 3, 6}
	for i, w := range want {
		if got := at.Data()[i]; got != w {
			t.Errorf("Transpose[%d] = %v, want %v", i, got, w)
		}
	}
}

func TestTranspose4D(t *testing.T) {
	backend := New()

	// [1, 2, 2, 2] -> swap trailing dims.
	a := tensor.MustFromSlice([]float32{1, 2, 3, 4, 5, 6, 7, 8}, tensor.Shape{1, 2, 2, 2}, backend)
	at := a.Transpose(0, 1, 3, 2)

	want := []float32{1, 3, 2, 4, 5, 7, 6, 8}
	for i, w := range want {
		if got := at.Data()[i]; got != w {
			t.Errorf("Transpose(0,1,3,2)[%d] = %v, want %v", i, got, w)
		}
	}
}

func TestSoftmax(t *testing.T) {
	backend := New()

	x := tensor.MustFromSlice([]float32{1, 2, 3, 1000, 1000, 1000}, tensor.Shape{2, 3}, backend)
	p := x.Softmax(-1)

	for row := 0; row < 2; row++ {
		sum := float32(0)
		for col := 0; col < 3; col++ {
			v := p.At(row, col)
			if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
				t.Fatalf("Softmax produced non-finite value at (%d,%d)", row, col)
			}
			sum += v
		}
		if !almostEqual(sum, 1, 1e-5) {
			t.Errorf("Softmax row %d sums to %v, want 1", row, sum)
		}
	}

	// Uniform row stays uniform.
	if got := p.At(1, 0); !almostEqual(got, 1.0/3.0, 1e-5) {
		t.Errorf("uniform softmax = %v, want 1/3", got)
	}
}

func TestClamp_Boundary(t *testing.T) {
	backend := New()

	x := tensor.MustFromSlice([]float32{-100, -15, -14.9, 0, 14.9, 15, 100}, tensor.Shape{7}, backend)
	c := x.Clamp(-15, 15)

	want := []float32{-15, -15, -14.9, 0, 14.9, 15, 15}
	for i, w := range want {
		if got := c.Data()[i]; got != w {
			t.Errorf("Clamp[%d] = %v, want exactly %v", i, got, w)
		}
	}
}

func TestArgmax_TiesToLowestIndex(t *testing.T) {
	backend := New()

	x := tensor.MustFromSlice([]float32{1, 5, 5, 2, 0, 0, 0, 0}, tensor.Shape{2, 4}, backend)
	idx := x.Argmax(-1)

	if !idx.Shape().Equal(tensor.Shape{2}) {
		t.Fatalf("Argmax shape = %v, want [2]", idx.Shape())
	}
	if got := idx.Data()[0]; got != 1 {
		t.Errorf("Argmax row 0 = %d, want 1 (lowest tied index)", got)
	}
	if got := idx.Data()[1]; got != 0 {
		t.Errorf("Argmax row 1 = %d, want 0", got)
	}
}

func TestSumDimMeanDim(t *testing.T) {
	backend := New()

	x := tensor.MustFromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)

	s := x.SumDim(1, true)
	if !s.Shape().Equal(tensor.Shape{2, 1}) {
		t.Fatalf("SumDim keepDim shape = %v, want [2 1]", s.Shape())
	}
	if s.Data()[0] != 6 || s.Data()[1] != 15 {
		t.Errorf("SumDim = %v, want [6 15]", s.Data())
	}

	m := x.MeanDim(0, false)
	if !m.Shape().Equal(tensor.Shape{3}) {
		t.Fatalf("MeanDim shape = %v, want [3]", m.Shape())
	}
	want := []float32{2.5, 3.5, 4.5}
	for i, w := range want {
		if got := m.Data()[i]; !almostEqual(got, w, 1e-6) {
			t.Errorf("MeanDim[%d] = %v, want %v", i, got, w)
		}
	}
}

func TestEmbedding(t *testing.T) {
	backend := New()

	weight := tensor.MustFromSlice([]float32{
		0, 0,
		1, 10,
		2, 20,
	}, tensor.Shape{3, 2}, backend)
	indices := tensor.MustFromSlice([]int32{2, 0, 1, 1}, tensor.Shape{2, 2}, backend)

	out := weight.Embedding(indices)
	if !out.Shape().Equal(tensor.Shape{2, 2, 2}) {
		t.Fatalf("Embedding shape = %v, want [2 2 2]", out.Shape())
	}
	want := []float32{2, 20, 0, 0, 1, 10, 1, 10}
	for i, w := range want {
		if got := out.Data()[i]; got != w {
			t.Errorf("Embedding[%d] = %v, want %v", i, got, w)
		}
	}
}

func TestEmbedding_OutOfRangePanics(t *testing.T) {
	backend := New()

	weight := tensor.Zeros[float32](tensor.Shape{3, 2}, backend)
	indices := tensor.MustFromSlice([]int32{3}, tensor.Shape{1}, backend)

	defer func() {
		if recover() == nil {
			t.Error("expected panic for out-of-range embedding index")
		}
	}()
	weight.Embedding(indices)
}

func TestCatNarrowRoundTrip(t *testing.T) {
	backend := New()

	a := tensor.MustFromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, backend)
	b := tensor.MustFromSlice([]float32{5, 6, 7, 8, 9, 10}, tensor.Shape{2, 3}, backend)

	c := tensor.Cat([]*tensor.Tensor[float32, *CPUBackend]{a, b}, 1)
	if !c.Shape().Equal(tensor.Shape{2, 5}) {
		t.Fatalf("Cat shape = %v, want [2 5]", c.Shape())
	}
	wantCat := []float32{1, 2, 5, 6, 7, 3, 4, 8, 9, 10}
	for i, w := range wantCat {
		if got := c.Data()[i]; got != w {
			t.Errorf("Cat[%d] = %v, want %v", i, got, w)
		}
	}

	back := c.Narrow(1, 0, 2)
	for i, w := range []float32{1, 2, 3, 4} {
		if got := back.Data()[i]; got != w {
			t.Errorf("Narrow[%d] = %v, want %v", i, got, w)
		}
	}

	tail := c.Narrow(1, 2, 3)
	for i, w := range []float32{5, 6, 7, 8, 9, 10} {
		if got := tail.Data()[i]; got != w {
			t.Errorf("Narrow tail[%d] = %v, want %v", i, got, w)
		}
	}
}

func TestReLURsqrt(t *testing.T) {
	backend := New()

	x := tensor.MustFromSlice([]float32{-2, 0, 3}, tensor.Shape{3}, backend)
	r := x.ReLU()
	for i, w := range []float32{0, 0, 3} {
		if got := r.Data()[i]; got != w {
			t.Errorf("ReLU[%d] = %v, want %v", i, got, w)
		}
	}

	y := tensor.MustFromSlice([]float32{4, 0.25}, tensor.Shape{2}, backend)
	rs := y.Rsqrt()
	for i, w := range []float32{0.5, 2} {
		if got := rs.Data()[i]; !almostEqual(got, w, 1e-6) {
			t.Errorf("Rsqrt[%d] = %v, want %v", i, got, w)
		}
	}
}
