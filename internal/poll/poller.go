// Package poll runs the checkpointed polling cycle for one configured
// input: ensure a valid token, fetch one page of recent events, emit
// everything newer than the watermark, advance and persist the watermark,
// sleep, repeat. Cycles are strictly sequential per input; a slow fetch
// delays the next cycle instead of overlapping it.
package poll

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gyaneshwarpardhi/auditflow/internal/event"
	"github.com/gyaneshwarpardhi/auditflow/internal/filter"
	"github.com/gyaneshwarpardhi/auditflow/internal/metrics"
	"github.com/gyaneshwarpardhi/auditflow/internal/sink"
)

// TokenSource yields a bearer token that is valid right now.
type TokenSource interface {
	EnsureValid(ctx context.Context) (string, error)
}

// EventFetcher fetches one page of recent events, newest first.
type EventFetcher interface {
	Fetch(ctx context.Context, bearer string, since time.Time) ([]event.Raw, error)
}

// CheckpointStore persists the watermark across restarts.
type CheckpointStore interface {
	Load(tenant, endpoint string) (time.Time, bool)
	Save(tenant, endpoint string, wm time.Time) error
}

// NamedSink pairs a sink with its configured type for logs and metrics.
type NamedSink struct {
	Type string
	Sink sink.Sink
}

// Options bundles everything a Poller needs. All fields are required
// except Filter.
type Options struct {
	Name     string
	Tenant   string
	Endpoint string
	Interval time.Duration
	Filter   *filter.Filter
	Tokens   TokenSource
	Fetcher  EventFetcher
	Store    CheckpointStore
	Sinks    []NamedSink
	Log      *slog.Logger
}

// Status is a point-in-time snapshot of one poller, served by the status
// API.
type Status struct {
	Name          string    `json:"name"`
	Watermark     time.Time `json:"watermark,omitempty"`
	LastCycleAt   time.Time `json:"last_cycle_at,omitempty"`
	LastOutcome   string    `json:"last_outcome,omitempty"`
	CyclesRun     int64     `json:"cycles_run"`
	EventsEmitted int64     `json:"events_emitted"`
}

// Poller drives the cycle for one input. The watermark and cycle state are
// mutated only by the single Run goroutine; the mutex exists for Status
// readers and hot-reloaded settings.
type Poller struct {
	name     string
	tenant   string
	endpoint string
	tokens   TokenSource
	fetcher  EventFetcher
	store    CheckpointStore
	sinks    []NamedSink
	log      *slog.Logger

	mu        sync.Mutex
	interval  time.Duration
	flt       *filter.Filter
	watermark time.Time
	status    Status
}

// New creates a Poller. The watermark is loaded once here; an absent or
// unreadable checkpoint means the whole first page will be accepted.
func New(opts Options) *Poller {
	p := &Poller{
		name:     opts.Name,
		tenant:   opts.Tenant,
		endpoint: opts.Endpoint,
		tokens:   opts.Tokens,
		fetcher:  opts.Fetcher,
		store:    opts.Store,
		sinks:    opts.Sinks,
		log:      opts.Log.With("component", "poller", "input", opts.Name),
		interval: opts.Interval,
		flt:      opts.Filter,
		status:   Status{Name: opts.Name},
	}
	if wm, ok := p.store.Load(p.tenant, p.endpoint); ok {
		p.watermark = wm
		p.log.Info("checkpoint loaded", "watermark", wm)
	} else {
		p.log.Info("no checkpoint found, first page will be accepted in full")
	}
	return p
}

// Name returns the input's logical name.
func (p *Poller) Name() string { return p.name }

// Status returns a snapshot of the poller's state.
func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.status
	s.Watermark = p.watermark
	return s
}

// Reconfigure applies hot-reloadable settings. Identity fields (tenant,
// endpoint, credentials, sinks) are fixed for the poller's lifetime.
func (p *Poller) Reconfigure(interval time.Duration, flt *filter.Filter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.interval = interval
	p.flt = flt
}

// Run executes cycles until ctx is cancelled. Every failure mode is
// recovered in place; the loop never terminates on its own.
func (p *Poller) Run(ctx context.Context) {
	for {
		outcome := p.cycle(ctx)
		metrics.Cycles.WithLabelValues(p.name, outcome).Inc()

		p.mu.Lock()
		p.status.LastCycleAt = time.Now()
		p.status.LastOutcome = outcome
		p.status.CyclesRun++
		wait := p.interval
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// cycle runs one poll iteration and reports its outcome for metrics.
func (p *Poller) cycle(ctx context.Context) string {
	bearer, err := p.tokens.EnsureValid(ctx)
	if err != nil {
		p.log.Error("token refresh failed, skipping cycle", "err", err)
		return "auth_error"
	}

	p.mu.Lock()
	wm := p.watermark
	flt := p.flt
	p.mu.Unlock()

	start := time.Now()
	events, err := p.fetcher.Fetch(ctx, bearer, wm)
	metrics.FetchDuration.WithLabelValues(p.name).Observe(time.Since(start).Seconds())
	if err != nil {
		p.log.Error("fetch failed, skipping cycle", "err", err)
		return "fetch_error"
	}
	metrics.EventsFetched.WithLabelValues(p.name).Add(float64(len(events)))

	// An empty page must not touch the watermark. Advancing it to "now"
	// here would skip any event that occurs between this cycle and the
	// next fetch.
	if len(events) == 0 {
		return "empty"
	}

	// The page is newest-first, so the candidate watermark is the first
	// entry's timestamp, independent of how many events pass the filter
	// below.
	newest := events[0].Timestamp

	emitted := int64(0)
	for i := range events {
		ev := &events[i]
		// The zero watermark (first-ever run) compares below any real
		// timestamp, so the whole first page is accepted.
		if !ev.Timestamp.After(wm) {
			metrics.EventsSkipped.WithLabelValues(p.name).Inc()
			continue
		}
		rec := event.Normalize(ev)
		rec["input"] = p.name
		if flt != nil && !flt.Match(rec) {
			metrics.EventsFiltered.WithLabelValues(p.name).Inc()
			continue
		}
		for _, ns := range p.sinks {
			if err := ns.Sink.Emit(rec); err != nil {
				// One bad delivery must not abort the cycle; there is no
				// retry bookkeeping, so the event is simply lost to this
				// sink.
				metrics.SinkErrors.WithLabelValues(p.name, ns.Type).Inc()
				p.log.Error("sink emit failed", "sink", ns.Type, "event_id", ev.ID, "err", err)
			}
		}
		emitted++
	}
	metrics.EventsEmitted.WithLabelValues(p.name).Add(float64(emitted))

	// The server-side after_time filter is advisory, so a stale page whose
	// newest timestamp is at or before the current watermark is possible.
	// The watermark never rewinds; persisting the older value would re-open
	// already-delivered events for duplicate delivery.
	if !newest.After(wm) {
		return "stale"
	}

	p.mu.Lock()
	p.watermark = newest
	p.status.EventsEmitted += emitted
	p.mu.Unlock()
	metrics.Watermark.WithLabelValues(p.name).Set(float64(newest.Unix()))

	if err := p.store.Save(p.tenant, p.endpoint, newest); err != nil {
		// The in-memory watermark stays advanced for this process's
		// lifetime; a crash before a later successful save may replay
		// this page on restart.
		metrics.CheckpointSaveErrors.WithLabelValues(p.name).Inc()
		p.log.Error("checkpoint save failed, duplicate delivery possible after restart",
			"watermark", newest, "err", err)
		return "persist_error"
	}
	return "ok"
}
