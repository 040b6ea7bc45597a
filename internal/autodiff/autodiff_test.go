package autodiff

import (
	"math"
	"testing"

	"github.com/ember-ml/ember/internal/backend/cpu"
	"github.com/ember-ml/ember/internal/tensor"
)

type testBackend = *AutodiffBackend[*cpu.CPUBackend]

func newTestBackend() testBackend {
	return New(cpu.New())
}

func almostEqual(a, b, tol float32) bool {
	return float32(math.Abs(float64(a-b))) <= tol
}

func TestBackward_MulGrad(t *testing.T) {
	backend := newTestBackend()
	backend.Tape().StartRecording()

	x := tensor.MustFromSlice([]float32{2, 3}, tensor.Shape{2}, backend)
	y := x.Mul(x) // y = x², dy/dx = 2x

	grads := Backward(y, backend)
	grad := grads[x.Raw()]
	if grad == nil {
		t.Fatal("no gradient for x")
	}
	for i, w := range []float32{4, 6} {
		if got := grad.AsFloat32()[i]; !almostEqual(got, w, 1e-6) {
			t.Errorf("grad[%d] = %v, want %v", i, got, w)
		}
	}
}

func TestBackward_AddBroadcastReducesGrad(t *testing.T) {
	backend := newTestBackend()
	backend.Tape().StartRecording()

	a := tensor.MustFromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
	b := tensor.MustFromSlice([]float32{10, 20, 30}, tensor.Shape{3}, backend)
	c := a.Add(b)

	grads := Backward(c, backend)

	gradB := grads[b.Raw()]
	if gradB == nil {
		t.Fatal("no gradient for broadcast input")
	}
	if !gradB.Shape().Equal(tensor.Shape{3}) {
		t.Fatalf("broadcast grad shape = %v, want [3]", gradB.Shape())
	}
	// b participated in both rows, so each position accumulates 2.
	for i := 0; i < 3; i++ {
		if got := gradB.AsFloat32()[i]; got != 2 {
			t.Errorf("gradB[%d] = %v, want 2", i, got)
		}
	}
}

func TestBackward_MatMulGrad(t *testing.T) {
	backend := newTestBackend()
	backend.Tape().StartRecording()

	a := tensor.MustFromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, backend)
	b := tensor.MustFromSlice([]float32{5, 6, 7, 8}, tensor.Shape{2, 2}, backend)
	c := a.MatMul(b)

	grads := Backward(c, backend)

	// With upstream grad of ones: dA = ones @ B^T, dB = A^T @ ones.
	wantA := []float32{11, 15, 11, 15}
	wantB := []float32{4, 4, 6, 6}
	gradA := grads[a.Raw()].AsFloat32()
	gradB := grads[b.Raw()].AsFloat32()
	for i := range wantA {
		if !almostEqual(gradA[i], wantA[i], 1e-5) {
			t.Errorf("gradA[%d] = %v, want %v", i, gradA[i], wantA[i])
		}
		if !almostEqual(gradB[i], wantB[i], 1e-5) {
			t.Errorf("gradB[%d] = %v, want %v", i, gradB[i], wantB[i])
		}
	}
}

func TestBackward_ClampBlocksSaturatedGrad(t *testing.T) {
	backend := newTestBackend()
	backend.Tape().StartRecording()

	x := tensor.MustFromSlice([]float32{-20, -15, 0, 15, 20}, tensor.Shape{5}, backend)
	y := x.Clamp(-15, 15)

	grads := Backward(y, backend)
	grad := grads[x.Raw()].AsFloat32()

	want := []float32{0, 1, 1, 1, 0}
	for i, w := range want {
		if grad[i] != w {
			t.Errorf("clamp grad[%d] = %v, want %v", i, grad[i], w)
		}
	}
}

func TestBackward_EmbeddingAccumulatesRepeatedIndices(t *testing.T) {
	backend := newTestBackend()
	backend.Tape().StartRecording()

	weight := tensor.MustFromSlice([]float32{1, 1, 2, 2, 3, 3}, tensor.Shape{3, 2}, backend)
	indices := tensor.MustFromSlice([]int32{1, 1, 0}, tensor.Shape{3}, backend)
	out := weight.Embedding(indices)

	grads := Backward(out, backend)
	grad := grads[weight.Raw()].AsFloat32()

	// Row 1 was looked up twice, row 0 once, row 2 never.
	want := []float32{1, 1, 2, 2, 0, 0}
	for i, w := range want {
		if grad[i] != w {
			t.Errorf("embedding grad[%d] = %v, want %v", i, grad[i], w)
		}
	}

	if grads[indices.Raw()] != nil {
		t.Error("indices must not receive a gradient")
	}
}

func TestBackward_CatRoutesGradToInputs(t *testing.T) {
	backend := newTestBackend()
	backend.Tape().StartRecording()

	a := tensor.MustFromSlice([]float32{1, 2}, tensor.Shape{1, 2}, backend)
	b := tensor.MustFromSlice([]float32{3, 4, 5}, tensor.Shape{1, 3}, backend)
	c := tensor.Cat([]*tensor.Tensor[float32, testBackend]{a, b}, 1)
	d := c.MulScalar(3)

	grads := Backward(d, backend)

	gradA := grads[a.Raw()]
	gradB := grads[b.Raw()]
	if gradA == nil || gradB == nil {
		t.Fatal("missing gradients for cat inputs")
	}
	if !gradA.Shape().Equal(tensor.Shape{1, 2}) || !gradB.Shape().Equal(tensor.Shape{1, 3}) {
		t.Fatalf("cat grad shapes = %v, %v", gradA.Shape(), gradB.Shape())
	}
	for _, g := range append(gradA.AsFloat32(), gradB.AsFloat32()...) {
		if g != 3 {
			t.Errorf("cat grad = %v, want 3", g)
		}
	}
}

func TestBackward_NarrowZeroPadsGrad(t *testing.T) {
	backend := newTestBackend()
	backend.Tape().StartRecording()

	x := tensor.MustFromSlice([]float32{1, 2, 3, 4, 5}, tensor.Shape{5}, backend)
	y := x.Narrow(0, 1, 2)

	grads := Backward(y, backend)
	grad := grads[x.Raw()].AsFloat32()

	want := []float32{0, 1, 1, 0, 0}
	for i, w := range want {
		if grad[i] != w {
			t.Errorf("narrow grad[%d] = %v, want %v", i, grad[i], w)
		}
	}
}

func TestBackward_SoftmaxUniformUpstreamGivesZeroGrad(t *testing.T) {
	backend := newTestBackend()
	backend.Tape().StartRecording()

	x := tensor.MustFromSlice([]float32{1, 2, 3}, tensor.Shape{1, 3}, backend)
	y := x.Softmax(-1)

	// Softmax output sums to 1 per row, so a constant upstream gradient
	// cancels exactly.
	grads := Backward(y, backend)
	grad := grads[x.Raw()].AsFloat32()
	for i, g := range grad {
		if !almostEqual(g, 0, 1e-6) {
			t.Errorf("softmax grad[%d] = %v, want 0", i, g)
		}
	}
}

func TestBackward_SeedsAtRequestedTensor(t *testing.T) {
	backend := newTestBackend()
	backend.Tape().StartRecording()

	x := tensor.MustFromSlice([]float32{1, 2}, tensor.Shape{2}, backend)
	y := x.MulScalar(2)
	z := x.MulScalar(5) // recorded later, not on the path to y

	grads := Backward(y, backend)

	// The seed belongs to y even though z is the tape's newest output.
	grad := grads[x.Raw()]
	if grad == nil {
		t.Fatal("no gradient for x")
	}
	for i, g := range grad.AsFloat32() {
		if g != 2 {
			t.Errorf("grad[%d] = %v, want 2 (seed misplaced on a later op)", i, g)
		}
	}
	if grads[z.Raw()] != nil {
		t.Error("tensor outside y's history must not receive a gradient")
	}
}

func TestBackward_MixedDtypeTail(t *testing.T) {
	backend := newTestBackend()
	backend.Tape().StartRecording()

	x := tensor.MustFromSlice([]float32{1, 3, 2, 6, 5, 4}, tensor.Shape{2, 3}, backend)
	y := x.MulScalar(2)
	// An integer branch recorded after y; its reshape must not capture the
	// seed meant for y.
	y.Argmax(-1).Reshape(2, 1)

	grads := Backward(y, backend)
	grad := grads[x.Raw()]
	if grad == nil {
		t.Fatal("no gradient for x")
	}
	for i, g := range grad.AsFloat32() {
		if g != 2 {
			t.Errorf("grad[%d] = %v, want 2", i, g)
		}
	}
}

func TestDetach_StopsGradientFlow(t *testing.T) {
	backend := newTestBackend()
	backend.Tape().StartRecording()

	x := tensor.MustFromSlice([]float32{2, 4}, tensor.Shape{2}, backend)
	doubled := x.MulScalar(2)
	frozen := doubled.Detach()
	z := frozen.Mul(x)

	grads := Backward(z, backend)

	// dz/dx flows only through the Mul: grad = frozen's values, without the
	// extra 2x that the MulScalar path would add if detach leaked.
	grad := grads[x.Raw()].AsFloat32()
	for i, w := range []float32{4, 8} {
		if !almostEqual(grad[i], w, 1e-6) {
			t.Errorf("grad[%d] = %v, want %v (detach leaked history)", i, grad[i], w)
		}
	}

	if grads[doubled.Raw()] != nil {
		t.Error("pre-detach tensor must be unreachable from the backward walk")
	}
}

func TestTape_RecordingControl(t *testing.T) {
	backend := newTestBackend()

	x := tensor.MustFromSlice([]float32{1}, tensor.Shape{1}, backend)
	x.MulScalar(2)
	if got := backend.Tape().NumOps(); got != 0 {
		t.Fatalf("tape recorded %d ops while stopped", got)
	}

	backend.Tape().StartRecording()
	x.MulScalar(2)
	if got := backend.Tape().NumOps(); got != 1 {
		t.Fatalf("tape has %d ops, want 1", got)
	}

	backend.Tape().Clear()
	if got := backend.Tape().NumOps(); got != 0 {
		t.Fatalf("tape has %d ops after Clear", got)
	}
	if !backend.Tape().IsRecording() {
		t.Error("Clear must preserve recording state")
	}
}
