package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunPreservesOrder(t *testing.T) {
	items := []int{0, 1, 2, 3, 4, 5, 6}

	results := Run(context.Background(), items, Options{Width: 3}, func(_ context.Context, n int) (string, error) {
		return fmt.Sprintf("item-%d", n), nil
	})

	require.Len(t, results, 7)
	for i, r := range results {
		require.NotNil(t, r, "result %d", i)
		assert.Equal(t, fmt.Sprintf("item-%d", i), *r)
	}
}

func TestRunBatchShape(t *testing.T) {
	items := make([]int, 7)
	for i := range items {
		items[i] = i
	}

	var (
		mu      sync.Mutex
		current int
		peak    int
		batches [][]int
		active  []int
	)

	Run(context.Background(), items, Options{Width: 3}, func(_ context.Context, n int) (int, error) {
		mu.Lock()
		current++
		if current > peak {
			peak = current
		}
		active = append(active, n)
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		current--
		if current == 0 {
			batch := make([]int, len(active))
			copy(batch, active)
			batches = append(batches, batch)
			active = nil
		}
		mu.Unlock()
		return n, nil
	})

	assert.LessOrEqual(t, peak, 3, "concurrency must stay within width")

	// 7 items at width 3 -> batches of sizes [3,3,1].
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 3)
	assert.Len(t, batches[1], 3)
	assert.Len(t, batches[2], 1)
}

func TestRunItemFailureDoesNotAbortSiblings(t *testing.T) {
	items := []int{0, 1, 2, 3, 4, 5, 6}

	results := Run(context.Background(), items, Options{Width: 3}, func(_ context.Context, n int) (int, error) {
		if n == 4 {
			return 0, errors.New("boom")
		}
		return n * 10, nil
	})

	require.Len(t, results, 7)
	assert.Nil(t, results[4])
	for _, i := range []int{0, 1, 2, 3, 5, 6} {
		require.NotNil(t, results[i], "result %d", i)
		assert.Equal(t, i*10, *results[i])
	}
}

func TestRunPanicAbortsRun(t *testing.T) {
	items := []int{0, 1, 2, 3, 4, 5}

	var calls atomic.Int32
	require.Panics(t, func() {
		Run(context.Background(), items, Options{Width: 2}, func(_ context.Context, n int) (int, error) {
			calls.Add(1)
			if n == 1 {
				panic("programming error")
			}
			return n, nil
		})
	})

	// The panic surfaces at the end of its batch; later batches never start.
	assert.LessOrEqual(t, calls.Load(), int32(2))
}

func TestRunContextCancelStopsBetweenBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	items := []int{0, 1, 2, 3}

	results := Run(ctx, items, Options{Width: 2, Delay: time.Millisecond}, func(_ context.Context, n int) (int, error) {
		if n == 1 {
			cancel()
		}
		return n, nil
	})

	require.Len(t, results, 4)
	require.NotNil(t, results[0])
	require.NotNil(t, results[1])
	assert.Nil(t, results[2])
	assert.Nil(t, results[3])
}

func TestRunEmptyInput(t *testing.T) {
	results := Run(context.Background(), nil, Options{}, func(_ context.Context, n int) (int, error) {
		t.Fatal("op must not be called")
		return 0, nil
	})
	assert.Empty(t, results)
}
