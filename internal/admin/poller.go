package admin

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const DefaultInterval = 15 * time.Second

// Poller refreshes a panel on a fixed interval
type Poller struct {
	Panel    *Panel
	Interval time.Duration
}

func NewPoller(panel *Panel, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{Panel: panel, Interval: interval}
}

// Run refreshes right away and then on every tick until ctx is cancelled.
// Ticks do not wait for earlier refreshes, the panel sorts out which result
// is the newest. Run returns once the refreshes in flight have finished.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	var wg sync.WaitGroup
	fire := func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Panel.Refresh(ctx); err != nil && !errors.Is(err, ErrStale) {
				slog.Debug("admin refresh failed", "err", err)
			}
		}()
	}

	fire()
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		case <-ticker.C:
			fire()
		}
	}
}
