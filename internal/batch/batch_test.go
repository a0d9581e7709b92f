package batch

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap_PreservesOrder(t *testing.T) {
	items := []string{"c", "a", "d", "b", "e"}

	out, err := Map(context.Background(), items, 3, func(_ context.Context, s string) (string, error) {
		// Later items finish first.
		time.Sleep(time.Duration(len(items)-strings.Index("cadbe", s)) * time.Millisecond)
		return strings.ToUpper(s), nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A", "D", "B", "E"}, out)
}

func TestMap_LimitsWorkers(t *testing.T) {
	var running, peak atomic.Int32
	items := make([]int, 20)

	_, err := Map(context.Background(), items, 2, func(_ context.Context, _ int) (int, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		running.Add(-1)
		return 0, nil
	})

	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestMap_Error(t *testing.T) {
	boom := errors.New("boom")

	_, err := Map(context.Background(), []int{1, 2, 3}, 1, func(_ context.Context, n int) (int, error) {
		if n == 2 {
			return 0, boom
		}
		return n, nil
	})

	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "item 1")
}

func TestMap_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Map(ctx, []int{1, 2, 3}, 0, func(_ context.Context, n int) (int, error) {
		return n, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMap_Empty(t *testing.T) {
	out, err := Map(context.Background(), []int(nil), 4, func(_ context.Context, n int) (int, error) {
		return n, nil
	})
	require.NoError(t, err)
	assert.Empty(t, out)
}
