package readiness

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignal_ReleaseOverwrites(t *testing.T) {
	s := New()
	assert.False(t, s.Pending())

	s.Release()
	s.Release()
	assert.True(t, s.Pending())
	assert.Equal(t, uint64(2), s.Releases())

	assert.True(t, s.TryTake())
	assert.False(t, s.TryTake(), "second release must not queue")
	assert.False(t, s.Pending())
}

func TestSignal_WaitConsumes(t *testing.T) {
	s := New()
	s.Release()

	require.NoError(t, s.Wait(context.Background()))
	assert.False(t, s.Pending())
}

func TestSignal_WaitTimesOut(t *testing.T) {
	s := New()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := s.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSignal_OneWaiterPerRelease(t *testing.T) {
	s := New()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		woken int
	)
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Wait(ctx) == nil {
				mu.Lock()
				woken++
				mu.Unlock()
			}
		}()
	}

	s.Release()
	wg.Wait()
	assert.Equal(t, 1, woken)
}
