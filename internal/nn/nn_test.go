package nn

import (
	"math"
	"math/rand"
	"testing"

	"github.com/ember-ml/ember/internal/autodiff"
	"github.com/ember-ml/ember/internal/backend/cpu"
	"github.com/ember-ml/ember/internal/tensor"
)

type testBackend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

func newTestBackend() testBackend {
	return autodiff.New(cpu.New())
}

func almostEqual(a, b, tol float32) bool {
	return float32(math.Abs(float64(a-b))) <= tol
}

func TestLinear_Forward(t *testing.T) {
	backend := newTestBackend()
	init := NewInitializer(0.02, 1)

	layer := NewLinear(3, 2, true, init, backend)

	// Overwrite weights with known values: W = [[1,0,0],[0,1,0]], b = [10, 20].
	copy(layer.Weight().Tensor().Data(), []float32{1, 0, 0, 0, 1, 0})
	copy(layer.Bias().Tensor().Data(), []float32{10, 20})

	x := tensor.MustFromSlice([]float32{1, 2, 3}, tensor.Shape{1, 3}, backend)
	y := layer.Forward(x)

	if !y.Shape().Equal(tensor.Shape{1, 2}) {
		t.Fatalf("Linear output shape = %v, want [1 2]", y.Shape())
	}
	if y.Data()[0] != 11 || y.Data()[1] != 22 {
		t.Errorf("Linear output = %v, want [11 22]", y.Data())
	}
}

func TestLayerNorm_NormalizesLastDim(t *testing.T) {
	backend := newTestBackend()
	init := NewInitializer(0.02, 1)

	ln := NewLayerNorm(3, 1e-5, init, backend)
	x := tensor.MustFromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)

	out := ln.Forward(x)

	// mean 2, var 2/3: normalized row is [-1.2247, 0, 1.2247].
	want := []float32{-1.2247, 0, 1.2247}
	for i, w := range want {
		if got := out.Data()[i]; !almostEqual(got, w, 1e-3) {
			t.Errorf("LayerNorm[%d] = %v, want %v", i, got, w)
		}
	}
	// Second row normalizes to the same values.
	for i, w := range want {
		if got := out.Data()[3+i]; !almostEqual(got, w, 1e-3) {
			t.Errorf("LayerNorm row 2 [%d] = %v, want %v", i, got, w)
		}
	}
}

func TestTiedEmbedding_SharedStorage(t *testing.T) {
	backend := newTestBackend()
	init := NewInitializer(0.02, 1)

	embed := NewTiedEmbedding(4, 2, init, backend)
	weight := embed.Weight().Tensor()
	copy(weight.Data(), []float32{1, 0, 0, 1, 2, 0, 0, 2})

	ids := tensor.MustFromSlice([]int32{2}, tensor.Shape{1}, backend)
	vec := embed.Forward(ids)
	if vec.Data()[0] != 2 || vec.Data()[1] != 0 {
		t.Fatalf("embedding lookup = %v, want [2 0]", vec.Data())
	}

	scores := embed.Project(vec)
	if !scores.Shape().Equal(tensor.Shape{1, 4}) {
		t.Fatalf("projection shape = %v, want [1 4]", scores.Shape())
	}
	// [2,0] @ W^T = [2, 0, 4, 0].
	want := []float32{2, 0, 4, 0}
	for i, w := range want {
		if got := scores.Data()[i]; got != w {
			t.Errorf("projection[%d] = %v, want %v", i, got, w)
		}
	}

	// Mutating the shared storage must change both directions.
	weight.Data()[4] = 5
	vec2 := embed.Forward(ids)
	if vec2.Data()[0] != 5 {
		t.Error("embedding lookup did not observe weight mutation")
	}
	scores2 := embed.Project(vec)
	if scores2.Data()[2] != 10 {
		t.Error("projection did not observe weight mutation")
	}
}

func TestDropout_EvalIsIdentity(t *testing.T) {
	backend := newTestBackend()
	drop := NewDropout(0.5, rand.New(rand.NewSource(7)), backend)

	x := tensor.MustFromSlice([]float32{1, 2, 3}, tensor.Shape{3}, backend)
	if got := drop.Forward(x, false); got != x {
		t.Error("eval-mode dropout must return its input unchanged")
	}

	zero := NewDropout(0, rand.New(rand.NewSource(7)), backend)
	if got := zero.Forward(x, true); got != x {
		t.Error("p=0 dropout must return its input unchanged")
	}
}

func TestDropout_TrainScalesSurvivors(t *testing.T) {
	backend := newTestBackend()
	drop := NewDropout(0.5, rand.New(rand.NewSource(7)), backend)

	x := tensor.MustFromSlice(make([]float32, 1000), tensor.Shape{1000}, backend)
	for i := range x.Data() {
		x.Data()[i] = 1
	}

	out := drop.Forward(x, true)
	zeros, scaled := 0, 0
	for _, v := range out.Data() {
		switch v {
		case 0:
			zeros++
		case 2:
			scaled++
		default:
			t.Fatalf("dropout produced %v, want 0 or 2", v)
		}
	}
	if zeros == 0 || scaled == 0 {
		t.Errorf("dropout mask degenerate: %d zeros, %d survivors", zeros, scaled)
	}
}

func TestLayerKV_DetachSharesDataFreshIdentity(t *testing.T) {
	backend := newTestBackend()

	k := tensor.MustFromSlice([]float32{1, 2}, tensor.Shape{1, 1, 2, 1}, backend)
	v := tensor.MustFromSlice([]float32{3, 4}, tensor.Shape{1, 1, 2, 1}, backend)
	kv := LayerKV[testBackend]{Keys: k, Values: v}

	detached := kv.Detach()
	if detached.Keys.Raw() == k.Raw() || detached.Values.Raw() == v.Raw() {
		t.Fatal("Detach must produce fresh raw identities")
	}
	k.Data()[0] = 9
	if detached.Keys.Data()[0] != 9 {
		t.Error("detached cache must share storage with the original")
	}
	if detached.Len() != 2 {
		t.Errorf("detached Len = %d, want 2", detached.Len())
	}

	var empty LayerKV[testBackend]
	if empty.Len() != 0 {
		t.Errorf("empty cache Len = %d, want 0", empty.Len())
	}
	if got := empty.Detach(); got.Keys != nil {
		t.Error("detaching an empty cache must stay empty")
	}
}

func TestAttention_CausalMasking(t *testing.T) {
	backend := newTestBackend()
	init := NewInitializer(0.02, 3)
	drop := NewDropout(0, rand.New(rand.NewSource(1)), backend)

	attn := NewRelMultiHeadAttention(8, 2, 4, drop, init, backend)

	rng := rand.New(rand.NewSource(5))
	base := tensor.Randn(tensor.Shape{1, 3, 8}, rng, backend)

	// Same input except at the last position.
	altered := base.Clone()
	for i := 16; i < 24; i++ {
		altered.Data()[i] += 1
	}

	out1, _, _ := attn.Forward(base, LayerKV[testBackend]{}, false)
	out2, _, _ := attn.Forward(altered, LayerKV[testBackend]{}, false)

	// Positions 0 and 1 cannot see position 2.
	for i := 0; i < 16; i++ {
		if !almostEqual(out1.Data()[i], out2.Data()[i], 1e-6) {
			t.Fatalf("position %d leaked future information: %v vs %v", i/8, out1.Data()[i], out2.Data()[i])
		}
	}
	// Position 2 must differ.
	same := true
	for i := 16; i < 24; i++ {
		if out1.Data()[i] != out2.Data()[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("last position output ignored its own input change")
	}
}

func TestDecoder_CacheGrowthAndTruncation(t *testing.T) {
	backend := newTestBackend()
	init := NewInitializer(0.02, 11)
	drop := NewDropout(0, rand.New(rand.NewSource(1)), backend)

	const (
		nLayer = 2
		seq    = 4
		maxLen = 6
	)
	dec := NewDecoder(nLayer, 8, 16, 2, 5, 1e-5, drop, drop, init, backend)

	rng := rand.New(rand.NewSource(2))
	var mems []LayerKV[testBackend]

	wantLens := []int{4, 6, 6} // min(k*seq, maxLen)
	for call, want := range wantLens {
		h := tensor.Randn(tensor.Shape{2, seq, 8}, rng, backend)
		var out *tensor.Tensor[float32, testBackend]
		out, mems = dec.Forward(h, mems, maxLen, false)

		if !out.Shape().Equal(tensor.Shape{2, seq, 8}) {
			t.Fatalf("call %d: output shape %v", call, out.Shape())
		}
		if len(mems) != nLayer {
			t.Fatalf("call %d: %d cache layers, want %d", call, len(mems), nLayer)
		}
		for layer, kv := range mems {
			if kv.Len() != want {
				t.Errorf("call %d layer %d: cache length %d, want %d", call, layer, kv.Len(), want)
			}
			wantShape := tensor.Shape{2, 2, want, 4}
			if !kv.Keys.Shape().Equal(wantShape) || !kv.Values.Shape().Equal(wantShape) {
				t.Errorf("call %d layer %d: cache shapes %v/%v, want %v",
					call, layer, kv.Keys.Shape(), kv.Values.Shape(), wantShape)
			}
		}
	}
}

func TestDecoder_TruncationDropsOldestEntries(t *testing.T) {
	backend := newTestBackend()
	init := NewInitializer(0.02, 11)
	drop := NewDropout(0, rand.New(rand.NewSource(1)), backend)

	dec := NewDecoder(1, 4, 8, 1, 4, 1e-5, drop, drop, init, backend)

	rng := rand.New(rand.NewSource(9))
	h1 := tensor.Randn(tensor.Shape{1, 3, 4}, rng, backend)
	_, mems := dec.Forward(h1, nil, 10, false)

	full := mems[0].Keys

	h2 := tensor.Randn(tensor.Shape{1, 2, 4}, rng, backend)
	_, mems2 := dec.Forward(h2, mems, 4, false)

	// The truncated cache keeps the newest 4 of 5 positions; its first two
	// positions are the last two of the previous cache.
	got := mems2[0].Keys
	if got.Shape()[2] != 4 {
		t.Fatalf("truncated cache length = %d, want 4", got.Shape()[2])
	}
	for p := 0; p < 2; p++ {
		for d := 0; d < 4; d++ {
			want := full.At(0, 0, 1+p, d)
			if g := got.At(0, 0, p, d); g != want {
				t.Fatalf("truncation dropped wrong end: pos %d dim %d got %v want %v", p, d, g, want)
			}
		}
	}
}

func TestFFN_Shape(t *testing.T) {
	backend := newTestBackend()
	init := NewInitializer(0.02, 1)

	ffn := NewFFN(4, 8, init, backend)
	x := tensor.MustFromSlice(make([]float32, 12), tensor.Shape{3, 4}, backend)
	y := ffn.Forward(x)
	if !y.Shape().Equal(tensor.Shape{3, 4}) {
		t.Errorf("FFN output shape = %v, want [3 4]", y.Shape())
	}
}
