package backend_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/randalmurphal/loopstate/pkg/loopstate/backend"
	"github.com/randalmurphal/loopstate/pkg/loopstate/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backendFactory creates a backend instance for testing.
type backendFactory func(t *testing.T) backend.Backend

// backendContractTest runs contract tests against any Backend implementation.
func backendContractTest(t *testing.T, name string, factory backendFactory) {
	t.Run(name+"/Load_Empty", func(t *testing.T) {
		b := factory(t)
		defer b.Close()

		st, err := b.Load()
		require.NoError(t, err)
		assert.Equal(t, 0, st.Len())
		assert.False(t, b.Exists())
	})

	t.Run(name+"/Save_and_Load", func(t *testing.T) {
		b := factory(t)
		defer b.Close()

		st := state.New()
		st.Set("foo", "bar")
		require.NoError(t, b.Save(st))
		assert.True(t, b.Exists())

		loaded, err := b.Load()
		require.NoError(t, err)
		v, err := loaded.Get("foo")
		require.NoError(t, err)
		assert.Equal(t, "bar", v)

		_, err = loaded.Get("absent")
		assert.ErrorIs(t, err, state.ErrNotFound)
	})

	t.Run(name+"/Save_Numeric", func(t *testing.T) {
		b := factory(t)
		defer b.Close()

		st := state.New()
		st.Set("pos", 42)
		require.NoError(t, b.Save(st))

		loaded, err := b.Load()
		require.NoError(t, err)
		v, err := loaded.Get("pos")
		require.NoError(t, err)
		assert.EqualValues(t, 42, v)
	})

	t.Run(name+"/Save_Overwrite", func(t *testing.T) {
		b := factory(t)
		defer b.Close()

		first := state.New()
		first.Set("k", "first")
		first.Set("gone", "yes")
		require.NoError(t, b.Save(first))

		second := state.New()
		second.Set("k", "second")
		require.NoError(t, b.Save(second))

		loaded, err := b.Load()
		require.NoError(t, err)
		assert.Equal(t, 1, loaded.Len())
		v, err := loaded.Get("k")
		require.NoError(t, err)
		assert.Equal(t, "second", v)
	})

	t.Run(name+"/Erase", func(t *testing.T) {
		b := factory(t)
		defer b.Close()

		st := state.New()
		st.Set("k", "v")
		require.NoError(t, b.Save(st))
		require.NoError(t, b.Erase())
		assert.False(t, b.Exists())

		loaded, err := b.Load()
		require.NoError(t, err)
		assert.Equal(t, 0, loaded.Len())
	})

	t.Run(name+"/Erase_NoOp", func(t *testing.T) {
		b := factory(t)
		defer b.Close()

		assert.NoError(t, b.Erase())
	})

	t.Run(name+"/UnsupportedValue", func(t *testing.T) {
		b := factory(t)
		defer b.Close()

		st := state.New()
		st.Set("bad", make(chan int))
		assert.ErrorIs(t, b.Save(st), state.ErrUnsupportedValue)
	})
}

func TestJSONFileBackend(t *testing.T) {
	backendContractTest(t, "json", func(t *testing.T) backend.Backend {
		return backend.NewJSONFile(filepath.Join(t.TempDir(), "state.json"))
	})
}

func TestYAMLFileBackend(t *testing.T) {
	backendContractTest(t, "yaml", func(t *testing.T) backend.Backend {
		return backend.NewYAMLFile(filepath.Join(t.TempDir(), "state.yaml"))
	})
}

func TestSQLiteBackend(t *testing.T) {
	backendContractTest(t, "sqlite", func(t *testing.T) backend.Backend {
		b, err := backend.NewSQLite(filepath.Join(t.TempDir(), "state.db"))
		require.NoError(t, err)
		return b
	})
}

func TestFileBackend_Load_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"half`), 0o644))

	_, err := backend.NewJSONFile(path).Load()
	assert.ErrorIs(t, err, backend.ErrCorrupt)
}

func TestFileBackend_FailedSave_KeepsPrevious(t *testing.T) {
	b := backend.NewJSONFile(filepath.Join(t.TempDir(), "state.json"))

	good := state.New()
	good.Set("k", "v")
	require.NoError(t, b.Save(good))

	bad := state.New()
	bad.Set("bad", make(chan int))
	require.Error(t, b.Save(bad))

	loaded, err := b.Load()
	require.NoError(t, err)
	v, err := loaded.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestWriteFileAtomic_FailureLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	writeErr := errors.New("boom")
	err := backend.WriteFileAtomic(path, func(io.Writer) error { return writeErr })
	assert.ErrorIs(t, err, writeErr)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "failed write must not leave files behind")
}

func TestSQLite_Closed(t *testing.T) {
	b, err := backend.NewSQLite(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	require.NoError(t, b.Close())

	_, err = b.Load()
	assert.ErrorIs(t, err, backend.ErrClosed)
	assert.ErrorIs(t, b.Save(state.New()), backend.ErrClosed)
	assert.ErrorIs(t, b.Erase(), backend.ErrClosed)
	assert.False(t, b.Exists())
	assert.NoError(t, b.Close(), "double close is a no-op")
}

func TestSQLite_KeyOrderSurvivesRoundTrip(t *testing.T) {
	b, err := backend.NewSQLite(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer b.Close()

	st := state.New()
	st.Set("c", 1)
	st.Set("a", 2)
	st.Set("b", 3)
	require.NoError(t, b.Save(st))

	loaded, err := b.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, loaded.Keys())
}
