package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ember-ml/ember/internal/backend/cpu"
)

// loadTokenizer fetches the cl100k_base encoding, skipping the test when the
// vocabulary is unavailable (first use downloads it).
func loadTokenizer(t *testing.T) *TikToken {
	t.Helper()
	tok, err := NewTikToken("cl100k_base")
	if err != nil {
		t.Skipf("cl100k_base encoding unavailable: %v", err)
	}
	return tok
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tok := loadTokenizer(t)

	text := "Hello, world! This is a tokenizer test."
	ids, err := tok.Encode(text)
	require.NoError(t, err)
	require.NotEmpty(t, ids)

	decoded, err := tok.Decode(ids)
	require.NoError(t, err)
	assert.Equal(t, text, decoded)
}

func TestName(t *testing.T) {
	tok := loadTokenizer(t)
	assert.Equal(t, "cl100k_base", tok.Name())
}

func TestEncodeBatch_PadsToLongest(t *testing.T) {
	tok := loadTokenizer(t)
	backend := cpu.New()

	const padID int32 = 0
	batch, err := EncodeBatch(tok, []string{
		"a short text",
		"a somewhat longer text with more tokens in it",
	}, padID, backend)
	require.NoError(t, err)

	shape := batch.Shape()
	require.Len(t, shape, 2)
	assert.Equal(t, 2, shape[0])

	// Row 0 is shorter, so its tail must be padding.
	shortIDs, err := tok.Encode("a short text")
	require.NoError(t, err)
	require.Less(t, len(shortIDs), shape[1])

	for j := len(shortIDs); j < shape[1]; j++ {
		assert.Equal(t, padID, batch.At(0, j), "position %d should be padding", j)
	}
	for j, id := range shortIDs {
		assert.Equal(t, id, batch.At(0, j))
	}
}

func TestEncodeBatch_EmptyInput(t *testing.T) {
	tok := loadTokenizer(t)
	backend := cpu.New()

	_, err := EncodeBatch(tok, nil, 0, backend)
	assert.Error(t, err)

	_, err = EncodeBatch(tok, []string{""}, 0, backend)
	assert.Error(t, err)
}
