package assessment

import (
	"context"
	"time"
)

// Snapshot is a point-in-time view of a session's run-control fields.
type Snapshot struct {
	Running              bool    `json:"running"`
	Progress             float64 `json:"progress"`
	VulnerabilitiesFound int     `json:"vulnerabilities_found"`
}

// Observer renders run progress by polling at a fixed interval. It only ever
// reads snapshots, so it cannot slow the runner down.
type Observer struct {
	interval time.Duration
	render   func(Snapshot)
}

// NewObserver creates an observer that calls render once per interval.
func NewObserver(interval time.Duration, render func(Snapshot)) *Observer {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Observer{interval: interval, render: render}
}

// Watch polls until the snapshot reports the run stopped or the context is
// cancelled. The final non-running snapshot is rendered before returning, and
// the loop exits within one interval of the run ending.
func (o *Observer) Watch(ctx context.Context, poll func() Snapshot) {
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := poll()
			o.render(snap)
			if !snap.Running {
				return
			}
		}
	}
}
