package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash_Deterministic(t *testing.T) {
	payload := map[string]any{
		"name":  "Taqueria Los Amigos",
		"items": []string{"taco", "burrito"},
		"count": 2,
	}

	h1, err := Hash(payload)
	require.NoError(t, err)
	h2, err := Hash(payload)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestHash_KeyOrderIndependent(t *testing.T) {
	a := map[string]any{"x": 1, "y": 2, "z": 3}
	b := map[string]any{"z": 3, "x": 1, "y": 2}

	ha, err := Hash(a)
	require.NoError(t, err)
	hb, err := Hash(b)
	require.NoError(t, err)

	assert.Equal(t, ha, hb)
}

func TestHash_DistinctPayloads(t *testing.T) {
	h1, err := Hash(map[string]any{"name": "A"})
	require.NoError(t, err)
	h2, err := Hash(map[string]any{"name": "B"})
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestHash_UnserializablePayload(t *testing.T) {
	_, err := Hash(make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "marshal payload")
}

func TestHashBytes_KnownVector(t *testing.T) {
	// sha256("") is a fixed constant.
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		HashBytes(nil),
	)
}

func TestHashString_MatchesHashBytes(t *testing.T) {
	assert.Equal(t, HashBytes([]byte("ABCD-EFGH")), HashString("ABCD-EFGH"))
}
