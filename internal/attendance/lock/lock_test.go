package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	m := NewKeyedMutex()
	ctx := context.Background()

	const goroutines = 20
	var wg sync.WaitGroup
	var inCritical, maxInCritical int
	var mu sync.Mutex

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := m.Lock(ctx, "emp-1|2025-03-10")
			require.NoError(t, err)
			defer release()

			mu.Lock()
			inCritical++
			if inCritical > maxInCritical {
				maxInCritical = inCritical
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inCritical--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInCritical, "holders of the same key must never overlap")
}

func TestKeyedMutex_DistinctKeysDoNotBlock(t *testing.T) {
	m := NewKeyedMutex()
	ctx := context.Background()

	releaseA, err := m.Lock(ctx, "emp-1|2025-03-10")
	require.NoError(t, err)
	defer releaseA()

	done := make(chan struct{})
	go func() {
		releaseB, err := m.Lock(ctx, "emp-2|2025-03-10")
		assert.NoError(t, err)
		releaseB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a distinct key blocked")
	}
}

func TestKeyedMutex_RespectsContextCancellation(t *testing.T) {
	m := NewKeyedMutex()

	release, err := m.Lock(context.Background(), "emp-1|2025-03-10")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = m.Lock(ctx, "emp-1|2025-03-10")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestKeyedMutex_CleansUpReleasedKeys(t *testing.T) {
	m := NewKeyedMutex()
	ctx := context.Background()

	release, err := m.Lock(ctx, "emp-1|2025-03-10")
	require.NoError(t, err)
	release()

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Empty(t, m.entries, "released keys must not accumulate")
}
