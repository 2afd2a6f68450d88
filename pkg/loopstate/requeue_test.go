package loopstate_test

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/randalmurphal/loopstate/pkg/loopstate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequeue_InFlightItemIsRetried(t *testing.T) {
	const n = 10
	for k := 1; k <= n; k++ {
		t.Run(fmt.Sprintf("stop_at_%d", k), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "queue")

			it, err := loopstate.RequeueFromSlice(path, ints(n))
			require.NoError(t, err)
			assert.Equal(t, ints(n)[:k], consume[int](t, it, k))
			require.NoError(t, it.Close(loopstate.Interrupted))

			// The item in flight at interruption comes back first.
			resumed, err := loopstate.RequeueFromSlice(path, ints(n))
			require.NoError(t, err)
			assert.Equal(t, ints(n)[k-1:], drain[int](t, resumed))
			require.NoError(t, resumed.Close(loopstate.Completed))
		})
	}
}

func TestRequeue_BreakMidLoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue")

	it, err := loopstate.RequeueFromSlice(path, ints(10))
	require.NoError(t, err)
	for it.Next() {
		if it.Item() == 5 {
			break
		}
	}
	require.NoError(t, it.Err())
	require.NoError(t, it.Close(loopstate.Interrupted))

	resumed, err := loopstate.RequeueFromSlice(path, ints(10))
	require.NoError(t, err)
	assert.Equal(t, []int{5, 6, 7, 8, 9}, drain[int](t, resumed))
	require.NoError(t, resumed.Close(loopstate.Completed))

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestRequeue_CurrentNeverPersistedAsAux(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue")

	it, err := loopstate.RequeueFromSlice(path, ints(4))
	require.NoError(t, err)
	consume[int](t, it, 2)
	require.NoError(t, it.Close(loopstate.Interrupted))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	sc := bufio.NewScanner(f)
	require.True(t, sc.Scan())
	var header map[string]any
	require.NoError(t, json.Unmarshal(sc.Bytes(), &header))
	assert.NotContains(t, header, loopstate.CurrentKey)
}

func TestRequeue_Exhaustion_Erases(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue")

	it, err := loopstate.RequeueFromSlice(path, ints(3))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, drain[int](t, it))
	require.NoError(t, it.Close(loopstate.Interrupted))

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestRequeue_NothingConsumed_PersistsAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue")

	it, err := loopstate.RequeueFromSlice(path, ints(3))
	require.NoError(t, err)
	require.NoError(t, it.Close(loopstate.Interrupted))

	resumed, err := loopstate.RequeueFromSlice(path, ints(3))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, drain[int](t, resumed))
	require.NoError(t, resumed.Close(loopstate.Completed))
}

func TestRequeue_Unsafe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue")

	it, err := loopstate.RequeueFromSlice(path, ints(6), loopstate.WithUnsafe())
	require.NoError(t, err)
	consume[int](t, it, 3)
	require.NoError(t, it.Close(loopstate.Interrupted))

	resumed, err := loopstate.RequeueFromSlice(path, ints(6), loopstate.WithUnsafe())
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4, 5}, drain[int](t, resumed))
	require.NoError(t, resumed.Close(loopstate.Completed))
}
