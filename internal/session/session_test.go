package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateGetPut(t *testing.T) {
	s := openStore(t)

	m, err := s.Create("analysis chat")
	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)

	require.NoError(t, s.Put(m.ID, []byte(`{"messages": []}`)))

	got, payload, err := s.Get(m.ID)
	require.NoError(t, err)
	assert.Equal(t, "analysis chat", got.Name)
	assert.JSONEq(t, `{"messages": []}`, string(payload))
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
}

func TestGetUnknownID(t *testing.T) {
	s := openStore(t)
	_, _, err := s.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPutUnknownID(t *testing.T) {
	s := openStore(t)
	assert.ErrorIs(t, s.Put("nope", []byte("{}")), ErrNotFound)
}

func TestListOrdersByRecency(t *testing.T) {
	s := openStore(t)
	a, err := s.Create("a")
	require.NoError(t, err)
	_, err = s.Create("b")
	require.NoError(t, err)

	// Touch the older session so it sorts first.
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, s.Put(a.ID, []byte("{}")))

	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
}

func TestDelete(t *testing.T) {
	s := openStore(t)
	m, err := s.Create("gone")
	require.NoError(t, err)
	require.NoError(t, s.Delete(m.ID))
	_, _, err = s.Get(m.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
