package relay

import (
	"sync"
	"time"
)

// Admission is the result of TryAdmit. RetryAfter is in whole seconds, rounded up.
type Admission struct {
	Admitted   bool
	RetryAfter int
}

// Admitter enforces a per-user cooldown between admitted requests.
type Admitter struct {
	cooldown time.Duration

	mu   sync.Mutex
	last map[int64]time.Time
}

// NewAdmitter creates an Admitter with the given cooldown.
func NewAdmitter(cooldown time.Duration) *Admitter {
	return &Admitter{cooldown: cooldown, last: make(map[int64]time.Time)}
}

// TryAdmit admits the user when at least the cooldown has passed since their
// last admitted request, and records now as the new last admission.
// A now earlier than the recorded time never moves it backwards.
func (a *Admitter) TryAdmit(userID int64, now time.Time) Admission {
	a.mu.Lock()
	defer a.mu.Unlock()

	last, seen := a.last[userID]
	if seen {
		elapsed := now.Sub(last)
		if elapsed < a.cooldown {
			// a clock that stepped backwards never asks for more than one cooldown
			remaining := min(a.cooldown-elapsed, a.cooldown)
			return Admission{RetryAfter: int((remaining + time.Second - 1) / time.Second)}
		}
	}
	a.last[userID] = now
	return Admission{Admitted: true}
}

// Forget drops entries older than the cooldown. It keeps the map from growing
// with users who stopped talking.
func (a *Admitter) Forget(now time.Time) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	removed := 0
	for id, last := range a.last {
		if now.Sub(last) >= a.cooldown {
			delete(a.last, id)
			removed++
		}
	}
	return removed
}
