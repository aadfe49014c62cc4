package relay

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTryAdmitCooldown(t *testing.T) {
	t.Parallel()
	base := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		offset    time.Duration
		admitted  bool
		retryWant int
	}{
		{name: "immediately after", offset: 0, admitted: false, retryWant: 3},
		{name: "half a second later", offset: 500 * time.Millisecond, admitted: false, retryWant: 2},
		{name: "just before cooldown", offset: 2499 * time.Millisecond, admitted: false, retryWant: 1},
		{name: "exactly at cooldown", offset: 2500 * time.Millisecond, admitted: true},
		{name: "well after", offset: time.Minute, admitted: true},
		{name: "clock stepped back", offset: -time.Hour, admitted: false, retryWant: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a := NewAdmitter(2500 * time.Millisecond)
			assert.True(t, a.TryAdmit(1, base).Admitted)

			got := a.TryAdmit(1, base.Add(tt.offset))
			assert.Equal(t, tt.admitted, got.Admitted)
			if !tt.admitted {
				assert.Equal(t, tt.retryWant, got.RetryAfter)
			}
		})
	}
}

func TestTryAdmitIsPerUser(t *testing.T) {
	t.Parallel()
	now := time.Now()
	a := NewAdmitter(time.Second)

	assert.True(t, a.TryAdmit(1, now).Admitted)
	assert.True(t, a.TryAdmit(2, now).Admitted)
	assert.False(t, a.TryAdmit(1, now).Admitted)
}

func TestRejectedAttemptDoesNotExtendCooldown(t *testing.T) {
	t.Parallel()
	base := time.Now()
	a := NewAdmitter(2 * time.Second)

	assert.True(t, a.TryAdmit(1, base).Admitted)
	assert.False(t, a.TryAdmit(1, base.Add(1500*time.Millisecond)).Admitted)
	assert.True(t, a.TryAdmit(1, base.Add(2*time.Second)).Admitted)
}

func TestClockGoingBackwards(t *testing.T) {
	t.Parallel()
	base := time.Now()
	a := NewAdmitter(time.Second)

	assert.True(t, a.TryAdmit(1, base).Admitted)
	got := a.TryAdmit(1, base.Add(-time.Minute))
	assert.False(t, got.Admitted)
	assert.Equal(t, 1, got.RetryAfter, "wait is bounded by the cooldown")
	assert.True(t, a.TryAdmit(1, base.Add(time.Second)).Admitted, "last admission stays at base")
}

func TestConcurrentAdmissionAdmitsOnce(t *testing.T) {
	t.Parallel()
	now := time.Now()
	a := NewAdmitter(time.Minute)

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if a.TryAdmit(7, now).Admitted {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), admitted.Load())
}

func TestForget(t *testing.T) {
	t.Parallel()
	base := time.Now()
	a := NewAdmitter(time.Second)

	a.TryAdmit(1, base)
	a.TryAdmit(2, base.Add(900*time.Millisecond))

	assert.Equal(t, 1, a.Forget(base.Add(time.Second)))
	assert.False(t, a.TryAdmit(2, base.Add(time.Second)).Admitted)
	assert.True(t, a.TryAdmit(1, base.Add(time.Second)).Admitted)
}
