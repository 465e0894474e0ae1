package blob

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSStore_PutGetRoundTrip(t *testing.T) {
	s, err := NewFS(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	data := []byte(`{"hello":"world"}`)
	require.NoError(t, s.Put(ctx, "tenant-a/cafe__lunch/live.json", data, "application/json", map[string]string{
		"job_id": "job-1",
	}))

	got, err := s.Get(ctx, "tenant-a/cafe__lunch/live.json")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	meta, err := s.Metadata("tenant-a/cafe__lunch/live.json")
	require.NoError(t, err)
	assert.Equal(t, "job-1", meta["job_id"])
}

func TestFSStore_GetMissing(t *testing.T) {
	s, err := NewFS(t.TempDir())
	require.NoError(t, err)

	_, err = s.Get(context.Background(), "nope/missing.json")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestFSStore_Overwrite(t *testing.T) {
	s, err := NewFS(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k.json", []byte("v1"), "", nil))
	require.NoError(t, s.Put(ctx, "k.json", []byte("v2"), "", nil))

	got, err := s.Get(ctx, "k.json")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)
}

func TestFSStore_RejectsEscapingKeys(t *testing.T) {
	s, err := NewFS(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	err = s.Put(ctx, "../outside.json", []byte("x"), "", nil)
	require.Error(t, err)

	_, err = s.Get(ctx, "/etc/passwd")
	require.Error(t, err)
}

func TestMemStore_RoundTrip(t *testing.T) {
	s := NewMem()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "raw/gmaps/job-1.json.gz", []byte{0x1f, 0x8b}, "application/gzip", map[string]string{"hash": "abc"}))

	got, err := s.Get(ctx, "raw/gmaps/job-1.json.gz")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x1f, 0x8b}, got)
	assert.Equal(t, "abc", s.Metadata("raw/gmaps/job-1.json.gz")["hash"])

	_, err = s.Get(ctx, "raw/gmaps/other.json.gz")
	assert.True(t, eris.Is(err, ErrNotFound))
}
