package admin

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/daiverp/daiverp/pkg/chart"
	"github.com/daiverp/daiverp/pkg/dashapi"
	"github.com/daiverp/daiverp/pkg/seed"
	"github.com/daiverp/daiverp/pkg/series"
	"github.com/pkg/errors"
)

// DayLabelLayout formats the calendar buckets of the weekly and monthly charts
const DayLabelLayout = "Jan 02"

// ErrStale is returned by Refresh when a newer refresh or a range change was
// applied while it was in flight. Its result is dropped.
var ErrStale = errors.New("refresh superseded by a newer one")

// Source is the part of the backend the panel reads
type Source interface {
	Metrics(ctx context.Context) (dashapi.Metrics, error)
	HourlyPredictions(ctx context.Context, hours int) (series.Pair, error)
	WeeklyPredictions(ctx context.Context, r dashapi.Range) (series.Pair, error)
}

// Snapshot is everything the admin panel shows at one point in time
type Snapshot struct {
	Range      dashapi.Range   `json:"range" yaml:"range"`
	Metrics    dashapi.Metrics `json:"metrics" yaml:"metrics"`
	Series     series.Pair     `json:"series" yaml:"series"`
	Stacked    chart.Data      `json:"stacked" yaml:"stacked"`
	Pie        chart.Data      `json:"pie" yaml:"pie"`
	HourTotals chart.Data      `json:"hourTotals" yaml:"hourTotals"`
	Seq        uint64          `json:"seq" yaml:"seq"`
	Status     string          `json:"status,omitempty" yaml:"status,omitempty"`
	UpdatedAt  time.Time       `json:"updatedAt" yaml:"updatedAt"`
}

// Panel merges the demo seed with live backend data. Every refresh and
// every range change takes a ticket; a result is applied only when its
// ticket is newer than the last applied one.
type Panel struct {
	src      Source
	demo     seed.Demo
	now      func() time.Time
	metrics  *Metrics
	onUpdate func(Snapshot)

	mu      sync.Mutex
	issued  uint64
	applied uint64
	snap    Snapshot

	// hook calls run one at a time and never go back in Seq
	notifyMu  sync.Mutex
	delivered uint64
}

type Option func(*Panel)

func WithClock(now func() time.Time) Option {
	return func(p *Panel) {
		p.now = now
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Panel) {
		p.metrics = m
	}
}

// WithUpdateHook calls fn with applied snapshots in increasing Seq order. A
// snapshot overtaken by a newer one before its turn is skipped.
func WithUpdateHook(fn func(Snapshot)) Option {
	return func(p *Panel) {
		p.onUpdate = fn
	}
}

func NewPanel(src Source, demo seed.Demo, r dashapi.Range, opts ...Option) *Panel {
	p := &Panel{
		src:  src,
		demo: demo,
		now:  time.Now,
		snap: Snapshot{Metrics: dashapi.EmptyMetrics()},
	}
	for _, opt := range opts {
		opt(p)
	}

	p.SetRange(r)
	return p
}

func (p *Panel) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap
}

// SetRange switches the charts to r and shows its demo data until the next
// refresh. Refreshes still in flight are discarded.
func (p *Panel) SetRange(r dashapi.Range) Snapshot {
	now := p.now()

	p.mu.Lock()
	p.issued++
	snap := p.snap
	snap.Range = r
	snap.Status = ""
	snap.Seq = p.issued
	snap.UpdatedAt = now
	shape(&snap, p.initial(r, now))

	p.applied = snap.Seq
	p.snap = snap
	p.mu.Unlock()

	p.notify(snap)
	return snap
}

// Refresh fetches metrics and the chart series of the current range. Parts
// that fail keep their previous value and the error is recorded in the
// status. ErrStale is returned when the result arrived too late to be used.
func (p *Panel) Refresh(ctx context.Context) error {
	p.mu.Lock()
	p.issued++
	ticket := p.issued
	r := p.snap.Range
	p.mu.Unlock()

	p.metrics.tick()

	m, mErr := p.src.Metrics(ctx)
	pair, sErr := p.fetch(ctx, r)
	now := p.now()

	err := sErr
	if err == nil {
		err = mErr
	}

	p.mu.Lock()
	if ticket <= p.applied {
		p.mu.Unlock()
		p.metrics.stale()
		slog.Debug("discarding stale refresh", "ticket", ticket, "range", r)
		return ErrStale
	}

	snap := p.snap
	if err != nil {
		snap.Status = "refresh failed: " + err.Error()
	} else {
		snap.Status = ""
	}

	if mErr != nil && sErr != nil {
		// nothing to show, the ticket stays open for older refreshes
		p.snap = snap
		p.mu.Unlock()
		p.metrics.failed()
		return err
	}

	if mErr == nil {
		snap.Metrics = m
	}
	if sErr == nil {
		shape(&snap, pair)
	}
	snap.Seq = ticket
	snap.UpdatedAt = now

	p.applied = ticket
	p.snap = snap
	p.mu.Unlock()

	p.metrics.applied()
	if err != nil {
		p.metrics.failed()
	}
	p.notify(snap)
	return err
}

// notify hands s to the update hook unless a newer snapshot was already
// delivered.
func (p *Panel) notify(s Snapshot) {
	if p.onUpdate == nil {
		return
	}

	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()

	if s.Seq <= p.delivered {
		slog.Debug("skipping outdated snapshot", "seq", s.Seq, "delivered", p.delivered)
		return
	}
	p.delivered = s.Seq
	p.onUpdate(s)
}

// initial is what a range shows before the backend answered
func (p *Panel) initial(r dashapi.Range, now time.Time) series.Pair {
	switch {
	case r == dashapi.RangeDaily:
		return p.demo.Pair(now.UTC().Hour() + 1)
	case r.Days() > 0:
		return seed.Daily(DayLabels(now, r.Days()))
	}
	return series.Pair{}
}

func (p *Panel) fetch(ctx context.Context, r dashapi.Range) (series.Pair, error) {
	now := p.now()

	if r == dashapi.RangeDaily {
		live, err := p.src.HourlyPredictions(ctx, series.HoursPerDay)
		if err != nil {
			return series.Pair{}, err
		}
		return p.hourly(live, now), nil
	}

	api, err := p.src.WeeklyPredictions(ctx, r)
	if err != nil {
		return series.Pair{}, err
	}
	if r.Days() == 0 {
		return api, nil
	}

	labels := DayLabels(now, r.Days())
	return seed.Daily(labels).Add(api.Align(labels)), nil
}

// hourly adds the live counts onto the demo window 00:00 up to the current
// UTC hour. The current hour is taken from the last label the server sent,
// the clock is only used when that label is not an hour.
func (p *Panel) hourly(live series.Pair, now time.Time) series.Pair {
	cur := now.UTC().Hour()
	if labels := live.Labels(); len(labels) > 0 {
		if h, ok := series.ParseHour(labels[len(labels)-1]); ok {
			cur = h
		}
	}

	window := series.HourLabels()[:cur+1]
	return p.demo.Pair(cur + 1).Add(live.Align(window))
}

func shape(s *Snapshot, pair series.Pair) {
	s.Series = pair
	s.Stacked, s.Pie = chart.ModelUsage(pair)
	s.HourTotals = chart.Data{}
	if s.Range == dashapi.RangeDaily {
		s.HourTotals = chart.HourlyTotals(pair)
	}
}

// DayLabels returns the last n calendar days ending with now, oldest first
func DayLabels(now time.Time, n int) []string {
	labels := make([]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		labels = append(labels, now.AddDate(0, 0, -i).Format(DayLabelLayout))
	}
	return labels
}
