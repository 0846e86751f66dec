package session

import (
	"context"
	"sync"
	"time"
)

// Activity records the wall-clock instant of the last user interaction.
// NewActivity sets the baseline to construction time, so a user idle from
// the very start is measured from monitor start, not from any earlier real
// action.
type Activity struct {
	mu   sync.Mutex
	last time.Time
}

func NewActivity() *Activity {
	return &Activity{last: time.Now()}
}

// Touch marks now as the last interaction.
func (a *Activity) Touch() {
	a.mu.Lock()
	a.last = time.Now()
	a.mu.Unlock()
}

// Last returns the last recorded interaction time.
func (a *Activity) Last() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

// RunInactivityMonitor forces a logout once no interaction has been recorded
// for threshold or longer, then returns. The comparison uses wall-clock
// time, so delayed or throttled ticks still measure true elapsed inactivity.
// Also returns when ctx is cancelled.
func (c *Controller) RunInactivityMonitor(ctx context.Context, activity *Activity, checkInterval, threshold time.Duration) {
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if time.Since(activity.Last()) >= threshold {
				c.ForceLogout(ctx, "inactivity timeout")
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
