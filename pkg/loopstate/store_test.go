package loopstate_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/randalmurphal/loopstate/pkg/loopstate"
	"github.com/randalmurphal/loopstate/pkg/loopstate/backend"
	"github.com/randalmurphal/loopstate/pkg/loopstate/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveReload(t *testing.T) {
	s := loopstate.OpenJSON(filepath.Join(t.TempDir(), "jcache"))
	defer s.Close()

	st, err := s.Load()
	require.NoError(t, err)
	_, err = st.Get("foo")
	assert.ErrorIs(t, err, state.ErrNotFound)

	st.Set("foo", "bar")
	require.NoError(t, s.Save(st))

	reloaded, err := s.Load()
	require.NoError(t, err)
	v, err := reloaded.Get("foo")
	require.NoError(t, err)
	assert.Equal(t, "bar", v)
}

func TestStore_LoadOrEmpty(t *testing.T) {
	s := loopstate.OpenJSON(filepath.Join(t.TempDir(), "missing"))
	defer s.Close()

	st, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, 0, st.Len())
	assert.False(t, s.Exists())
}

func TestStore_Erase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jcache")
	s := loopstate.OpenJSON(path)
	defer s.Close()

	st := state.New()
	st.Set("k", "v")
	require.NoError(t, s.Save(st))
	assert.True(t, s.Exists())

	require.NoError(t, s.Erase())
	assert.False(t, s.Exists())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Erasing again is a no-op.
	assert.NoError(t, s.Erase())
}

func TestStore_YAML(t *testing.T) {
	s := loopstate.OpenYAML(filepath.Join(t.TempDir(), "ycache"))
	defer s.Close()

	st := state.New()
	st.Set("foo", "bar")
	require.NoError(t, s.Save(st))

	reloaded, err := s.Load()
	require.NoError(t, err)
	v, err := reloaded.Get("foo")
	require.NoError(t, err)
	assert.Equal(t, "bar", v)
}

func TestStore_CorruptPropagates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jcache")
	require.NoError(t, os.WriteFile(path, []byte("{{nope"), 0o644))

	s := loopstate.OpenJSON(path)
	defer s.Close()

	_, err := s.Load()
	assert.ErrorIs(t, err, loopstate.ErrCorruptCheckpoint)
}

func TestStore_SQLiteBackend(t *testing.T) {
	b, err := backend.NewSQLite(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	s := loopstate.NewStore(b)
	defer s.Close()

	st := state.New()
	st.Set("foo", "bar")
	require.NoError(t, s.Save(st))

	reloaded, err := s.Load()
	require.NoError(t, err)
	v, err := reloaded.Get("foo")
	require.NoError(t, err)
	assert.Equal(t, "bar", v)
}
