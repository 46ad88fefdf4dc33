package assessment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserverStopsWhenRunEnds(t *testing.T) {
	var mu sync.Mutex
	snap := Snapshot{Running: true, Progress: 0.5, VulnerabilitiesFound: 2}

	var rendered []Snapshot
	obs := NewObserver(5*time.Millisecond, func(s Snapshot) {
		rendered = append(rendered, s)
	})

	go func() {
		time.Sleep(30 * time.Millisecond)
		mu.Lock()
		snap = Snapshot{Running: false, Progress: 1, VulnerabilitiesFound: 3}
		mu.Unlock()
	}()

	start := time.Now()
	obs.Watch(context.Background(), func() Snapshot {
		mu.Lock()
		defer mu.Unlock()
		return snap
	})
	elapsed := time.Since(start)

	require.NotEmpty(t, rendered)
	final := rendered[len(rendered)-1]
	assert.False(t, final.Running, "the final non-running snapshot must be rendered")
	assert.Equal(t, 3, final.VulnerabilitiesFound)

	// Must terminate within roughly one polling interval of the run ending.
	assert.Less(t, elapsed, 100*time.Millisecond)
}

func TestObserverHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	obs := NewObserver(5*time.Millisecond, func(Snapshot) {})

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	done := make(chan struct{})
	go func() {
		obs.Watch(ctx, func() Snapshot { return Snapshot{Running: true} })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("observer did not stop on context cancellation")
	}
}
