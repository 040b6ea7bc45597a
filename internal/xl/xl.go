// Package xl implements a Transformer-XL style autoregressive language
// model: tied token embedding, a decoder stack with segment-level key/value
// recurrence, and an output head producing clamped vocabulary scores,
// probabilities and greedy predictions.
//
// The memory cache is owned by the caller. Each Forward call consumes the
// cache from the previous segment (or nil for a fresh context), and returns
// an updated cache that has been detached from the computation graph, so
// training on the current segment never backpropagates into earlier ones.
package xl

import (
	"fmt"
	"math/rand"

	"github.com/ember-ml/ember/internal/nn"
	"github.com/ember-ml/ember/internal/tensor"
)

const (
	// epsilon for layer normalization variance.
	normEps = 1e-5
	// clampExp bounds vocabulary scores before exponentiation.
	clampExp = 15
)

// Config holds the model hyperparameters, validated once at construction.
type Config struct {
	NLayer               int // decoder layers
	NEmbedding           int // embedding and hidden dimension
	NStateFFN            int // feed-forward intermediate dimension
	NHead                int // attention heads
	NContext             int // context length, default cache bound
	VocabSize            int
	NPositionalEmbedding int // relative position buckets

	DropoutResidual  float32
	DropoutAttention float32
	DropoutEmbedding float32

	InitializerRange float64 // stddev for weight initialization
	Seed             int64   // seeds initialization and dropout
}

// Validate checks the configuration.
func (c Config) Validate() error {
	for _, p := range []struct {
		name  string
		value int
	}{
		{"n_layer", c.NLayer},
		{"n_embedding", c.NEmbedding},
		{"n_state_ffn", c.NStateFFN},
		{"n_head", c.NHead},
		{"n_context", c.NContext},
		{"vocab_size", c.VocabSize},
		{"n_positional_embedding", c.NPositionalEmbedding},
	} {
		if p.value <= 0 {
			return fmt.Errorf("config: %s must be positive, got %d", p.name, p.value)
		}
	}
	if c.NEmbedding%c.NHead != 0 {
		return fmt.Errorf("config: n_embedding %d not divisible by n_head %d", c.NEmbedding, c.NHead)
	}
	for _, p := range []struct {
		name  string
		value float32
	}{
		{"dropout_residual", c.DropoutResidual},
		{"dropout_attention", c.DropoutAttention},
		{"dropout_embedding", c.DropoutEmbedding},
	} {
		if p.value < 0 || p.value >= 1 {
			return fmt.Errorf("config: %s must be in [0, 1), got %v", p.name, p.value)
		}
	}
	if c.InitializerRange <= 0 {
		return fmt.Errorf("config: initializer_range must be positive, got %v", c.InitializerRange)
	}
	return nil
}

// Output bundles the per-call results of a forward pass.
type Output[B tensor.Backend] struct {
	// Logits are the clamped vocabulary scores [batch, seq, vocab].
	Logits *tensor.Tensor[float32, B]
	// Probs is softmax over the clamped scores [batch, seq, vocab].
	Probs *tensor.Tensor[float32, B]
	// Preds is argmax over the clamped scores [batch, seq].
	Preds *tensor.Tensor[int32, B]
}

// TransformerXL is the model. It holds parameters and a training-mode flag,
// but no cache: memory is explicit input and output of Forward.
type TransformerXL[B tensor.Backend] struct {
	cfg      Config
	embed    *nn.TiedEmbedding[B]
	embDrop  *nn.Dropout[B]
	decoder  *nn.Decoder[B]
	training bool
	backend  B
}

// New builds a model from the configuration. All weights are drawn
// deterministically from cfg.Seed, so equal configurations produce equal
// models.
func New[B tensor.Backend](cfg Config, backend B) (*TransformerXL[B], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	init := nn.NewInitializer(cfg.InitializerRange, cfg.Seed)
	dropRng := rand.New(rand.NewSource(cfg.Seed + 1))

	attnDrop := nn.NewDropout(cfg.DropoutAttention, dropRng, backend)
	residDrop := nn.NewDropout(cfg.DropoutResidual, dropRng, backend)
	embDrop := nn.NewDropout(cfg.DropoutEmbedding, dropRng, backend)

	embed := nn.NewTiedEmbedding(cfg.VocabSize, cfg.NEmbedding, init, backend)
	decoder := nn.NewDecoder(
		cfg.NLayer, cfg.NEmbedding, cfg.NStateFFN, cfg.NHead, cfg.NPositionalEmbedding,
		normEps, attnDrop, residDrop, init, backend,
	)

	return &TransformerXL[B]{
		cfg:     cfg,
		embed:   embed,
		embDrop: embDrop,
		decoder: decoder,
		backend: backend,
	}, nil
}

// Config returns the model configuration.
func (m *TransformerXL[B]) Config() Config {
	return m.cfg
}

// Train switches the model to training mode (dropout active).
func (m *TransformerXL[B]) Train() {
	m.training = true
}

// Eval switches the model to evaluation mode (dropout inactive). New models
// start in evaluation mode.
func (m *TransformerXL[B]) Eval() {
	m.training = false
}

// Embedding returns the tied embedding module.
func (m *TransformerXL[B]) Embedding() *nn.TiedEmbedding[B] {
	return m.embed
}

// Parameters returns every trainable parameter of the model.
func (m *TransformerXL[B]) Parameters() []*nn.Parameter[B] {
	return append(m.embed.Parameters(), m.decoder.Parameters()...)
}

// Forward runs one segment through the model.
//
// ids is a [batch, seq] token batch with values in [0, VocabSize). mems is
// the cache returned by the previous call, or nil to start a fresh context.
// maxCacheLen bounds the returned cache length for this call; values <= 0
// fall back to NContext.
//
// The returned cache holds one entry per layer, every entry of equal length
// min(previous+seq, maxCacheLen), truncated from the front and detached from
// the computation graph.
func (m *TransformerXL[B]) Forward(
	ids *tensor.Tensor[int32, B],
	mems []nn.LayerKV[B],
	maxCacheLen int,
) (Output[B], []nn.LayerKV[B], error) {
	shape := ids.Shape()
	if len(shape) != 2 {
		return Output[B]{}, nil, fmt.Errorf("forward: ids must be 2D [batch, seq], got shape %v", shape)
	}
	batch, seq := shape[0], shape[1]

	for _, id := range ids.Data() {
		if id < 0 || int(id) >= m.cfg.VocabSize {
			return Output[B]{}, nil, fmt.Errorf("forward: token id %d out of range [0, %d)", id, m.cfg.VocabSize)
		}
	}
	if mems != nil {
		if len(mems) != m.cfg.NLayer {
			return Output[B]{}, nil, fmt.Errorf("forward: cache has %d layers, model has %d", len(mems), m.cfg.NLayer)
		}
		for i, kv := range mems {
			if kv.Len() > 0 && kv.Batch() != batch {
				return Output[B]{}, nil, fmt.Errorf("forward: cache layer %d batch %d does not match input batch %d",
					i, kv.Batch(), batch)
			}
		}
	}
	if maxCacheLen <= 0 {
		maxCacheLen = m.cfg.NContext
	}

	h := m.embDrop.Forward(m.embed.Forward(ids), m.training)
	h, updated := m.decoder.Forward(h, mems, maxCacheLen, m.training)
	updated = nn.DetachKV(updated)

	flat := h.Reshape(batch*seq, m.cfg.NEmbedding)
	scores := m.embed.Project(flat).Clamp(-clampExp, clampExp)

	out := Output[B]{
		Logits: scores.Reshape(batch, seq, m.cfg.VocabSize),
		Probs:  scores.Softmax(-1).Reshape(batch, seq, m.cfg.VocabSize),
		Preds:  scores.Argmax(-1).Reshape(batch, seq),
	}
	return out, updated, nil
}
