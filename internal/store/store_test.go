package store

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "artifacts.json")
	s := New(path)

	require.NoError(t, s.Put(Record{
		ID:      "bp_1",
		Kind:    "blueprint",
		OwnerID: "user-a",
		Payload: json.RawMessage(`{"sections":{}}`),
	}))

	got, ok := s.Get("bp_1")
	require.True(t, ok)
	assert.Equal(t, "blueprint", got.Kind)
	assert.False(t, got.CreatedAt.IsZero())
	assert.JSONEq(t, `{"sections":{}}`, string(got.Payload))

	// A fresh store instance reads the same file back.
	reopened := New(path)
	got, ok = reopened.Get("bp_1")
	require.True(t, ok)
	assert.Equal(t, "user-a", got.OwnerID)
}

func TestFileStoreListByOwner(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "artifacts.json"))
	require.NoError(t, s.Put(Record{ID: "a", Kind: "blueprint", OwnerID: "u1", Payload: json.RawMessage(`{}`)}))
	require.NoError(t, s.Put(Record{ID: "b", Kind: "mediaplan", OwnerID: "u2", Payload: json.RawMessage(`{}`)}))
	require.NoError(t, s.Put(Record{ID: "c", Kind: "blueprint", OwnerID: "u1", Payload: json.RawMessage(`{}`)}))

	mine, err := s.ListByOwner("u1")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	all, err := s.ListByOwner("")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestFileStoreDelete(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "artifacts.json"))
	require.NoError(t, s.Put(Record{ID: "a", Payload: json.RawMessage(`{}`)}))
	require.NoError(t, s.Delete("a"))

	_, ok := s.Get("a")
	assert.False(t, ok)
}

func TestFileStoreUpdateKeepsCreatedAt(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "artifacts.json"))
	require.NoError(t, s.Put(Record{ID: "a", Payload: json.RawMessage(`{"v":1}`)}))
	first, _ := s.Get("a")

	require.NoError(t, s.Put(Record{ID: "a", Payload: json.RawMessage(`{"v":2}`), CreatedAt: first.CreatedAt}))
	second, _ := s.Get("a")

	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.JSONEq(t, `{"v":2}`, string(second.Payload))
	assert.False(t, second.UpdatedAt.Before(first.UpdatedAt))
}

func TestStoreNilSafety(t *testing.T) {
	var s *Store
	_, ok := s.Get("x")
	assert.False(t, ok)
	assert.NoError(t, s.Put(Record{ID: "x"}))
	assert.NoError(t, s.Delete("x"))
	assert.NoError(t, s.Close())
}

func TestPutIgnoresEmptyID(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "artifacts.json"))
	require.NoError(t, s.Put(Record{}))
	recs, err := s.ListByOwner("")
	require.NoError(t, err)
	assert.Empty(t, recs)
}
