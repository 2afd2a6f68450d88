package loopstate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/randalmurphal/loopstate/pkg/loopstate"
	"github.com/randalmurphal/loopstate/pkg/loopstate/config"
	"github.com/randalmurphal/loopstate/pkg/loopstate/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromConfig_Unsafe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loopy")
	cfg := config.New(map[string]any{"safe": false})

	it, err := loopstate.FromSlice(path, ints(4), loopstate.FromConfig(cfg)...)
	require.NoError(t, err)
	consume[int](t, it, 1)
	require.NoError(t, it.Close(loopstate.Interrupted))

	// The checkpoint is a blob: a safe-mode open must reject it.
	_, err = loopstate.New[int](path, nil)
	assert.ErrorIs(t, err, loopstate.ErrCorruptCheckpoint)

	resumed, err := loopstate.New[int](path, nil, loopstate.WithUnsafe())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, drain[int](t, resumed))
	require.NoError(t, resumed.Close(loopstate.Completed))
}

func TestFromConfig_CacheFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loopy")

	it, err := loopstate.FromSlice(path, ints(4))
	require.NoError(t, err)
	consume[int](t, it, 2)
	require.NoError(t, it.Close(loopstate.Interrupted))

	cfg := config.New(map[string]any{"cache_first": false})
	fresh, err := loopstate.FromSlice(path, []int{7, 8}, loopstate.FromConfig(cfg)...)
	require.NoError(t, err)
	assert.Equal(t, []int{7, 8}, drain[int](t, fresh))
	require.NoError(t, fresh.Close(loopstate.Completed))
}

func TestFromConfig_MaterializeLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loopy")
	cfg := config.New(map[string]any{"safe": false, "materialize_limit": 2})

	it, err := loopstate.FromSlice(path, ints(10), loopstate.FromConfig(cfg)...)
	require.NoError(t, err)
	err = it.Close(loopstate.Interrupted)
	assert.ErrorIs(t, err, loopstate.ErrTooManyRemaining)
}

func TestFromConfig_FromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "loopstate.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("safe: true\ncache_first: true\n"), 0o644))

	cfg, err := config.FromFile(cfgPath)
	require.NoError(t, err)

	path := filepath.Join(dir, "loopy")
	it, err := loopstate.FromSlice(path, ints(3), loopstate.FromConfig(cfg)...)
	require.NoError(t, err)
	assert.Equal(t, ints(3), drain[int](t, it))
	require.NoError(t, it.Close(loopstate.Completed))
}

func TestWithCodec_YAMLPositionCheckpoint(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pos.yaml")

	tr, err := loopstate.NewFileTracker(path, strings.NewReader("a\nb\nc\n"),
		loopstate.WithCodec(state.YAMLCodec{}))
	require.NoError(t, err)
	require.True(t, tr.Next())
	require.NoError(t, tr.Close(loopstate.Interrupted))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "pos: 2")

	resumed, err := loopstate.NewFileTracker(path, strings.NewReader("a\nb\nc\n"),
		loopstate.WithCodec(state.YAMLCodec{}))
	require.NoError(t, err)
	require.True(t, resumed.Next())
	assert.Equal(t, "b", resumed.Text())
	require.NoError(t, resumed.Close(loopstate.Completed))
}
