package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedClock_DefaultsToEpoch(t *testing.T) {
	clock := NewFixedClock(time.Time{})
	assert.Equal(t, Epoch, clock.Now())
}

func TestFixedClock_DoesNotMoveByItself(t *testing.T) {
	clock := NewFixedClock(time.Time{})
	first := clock.Now()
	time.Sleep(time.Millisecond)
	assert.Equal(t, first, clock.Now())
}

func TestFixedClock_Advance(t *testing.T) {
	clock := NewFixedClock(time.Time{})

	got := clock.Advance(90 * time.Second)
	assert.Equal(t, Epoch.Add(90*time.Second), got)
	assert.Equal(t, got, clock.Now())
}

func TestFixedClock_Set(t *testing.T) {
	at := time.Date(2030, time.June, 5, 12, 0, 0, 0, time.UTC)
	clock := NewFixedClock(time.Time{})
	clock.Set(at)
	assert.Equal(t, at, clock.Now())
}

func TestFixedClock_ConcurrentAdvance(t *testing.T) {
	clock := NewFixedClock(time.Time{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clock.Advance(time.Second)
		}()
	}
	wg.Wait()

	assert.Equal(t, Epoch.Add(50*time.Second), clock.Now())
}
