// Package tracker turns periodic focus/idle samples into closed activity entries.
package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/focustrack/focustrack/internal/config"
	"github.com/focustrack/focustrack/internal/history"
	"github.com/focustrack/focustrack/internal/metrics"
	"github.com/focustrack/focustrack/internal/models"
	"github.com/focustrack/focustrack/internal/sprint"
	"github.com/focustrack/focustrack/pkg/window"
)

// Options controls the sampling loop.
type Options struct {
	PollInterval  time.Duration
	IdleTimeout   time.Duration // 0 disables the idle check
	SampleTimeout time.Duration
	CloseOnStop   bool
	Clock         func() time.Time
}

// OptionsFromConfig maps the tracker section of cfg to Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		PollInterval:  cfg.Tracker.PollInterval,
		IdleTimeout:   cfg.Tracker.IdleTimeout,
		SampleTimeout: cfg.Tracker.SampleTimeout,
		CloseOnStop:   cfg.Tracker.CloseOnStop,
	}
}

// SprintState describes the sprint currently in progress.
type SprintState struct {
	Start      int64 `json:"start"`
	Activities int   `json:"activities"`
}

// Snapshot is a consistent copy of the tracker state.
type Snapshot struct {
	Running         bool                  `json:"running"`
	Current         *models.ActivityEntry `json:"current"`
	HistoryLength   int                   `json:"history_length"`
	LastInputIdleMs uint64                `json:"last_input_idle_ms"`
	LastTick        *time.Time            `json:"last_tick,omitempty"`
	Sprint          *SprintState          `json:"sprint,omitempty"`
}

type openSprint struct {
	start int64
	from  int // history length when the sprint began
}

type request struct {
	fn    func(now time.Time) error
	reply chan error
}

// Tracker owns the history, the open entry and the sprint boundary.
// State is only mutated by Tick and by requests executed on the loop goroutine,
// or directly under the state lock while the loop is not running.
type Tracker struct {
	opts    Options
	sampler window.Sampler
	history *history.Store
	sprints *sprint.Recorder
	metrics *metrics.Metrics
	logger  zerolog.Logger

	mu              sync.RWMutex
	hist            []models.ActivityEntry
	current         *models.ActivityEntry
	lastInputIdleMs uint64
	lastTick        time.Time
	sprint          *openSprint

	// tickMu spans one whole sample-then-apply sequence
	tickMu sync.Mutex

	runMu    sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	requests chan request
}

// New creates a Tracker with empty state. Call Load to restore persisted state.
func New(opts Options, sampler window.Sampler, hs *history.Store, sr *sprint.Recorder, m *metrics.Metrics, logger zerolog.Logger) *Tracker {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if m == nil {
		m = metrics.New()
	}
	return &Tracker{
		opts:    opts,
		sampler: sampler,
		history: hs,
		sprints: sr,
		metrics: m,
		logger:  logger,
		hist:    []models.ActivityEntry{},
	}
}

// Load replaces history and sprints with their persisted copies.
func (t *Tracker) Load(ctx context.Context) {
	entries := t.history.Load(ctx)
	t.sprints.Load(ctx)

	t.mu.Lock()
	t.hist = entries
	t.current = nil
	t.sprint = nil
	t.mu.Unlock()

	t.logger.Info().Int("history", len(entries)).Int("sprints", len(t.sprints.Sprints())).Msg("tracker state loaded")
}

// Start launches the sampling loop. Calling Start while the loop runs is a no-op.
func (t *Tracker) Start(ctx context.Context) error {
	if t.opts.PollInterval <= 0 {
		return errors.Errorf("poll interval must be positive, got %v", t.opts.PollInterval)
	}

	t.runMu.Lock()
	defer t.runMu.Unlock()

	if t.done != nil {
		select {
		case <-t.done:
			// The loop ended with its parent context; start a fresh one.
		default:
			return nil
		}
	}

	loopCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})
	t.requests = make(chan request)

	go t.run(loopCtx, t.done, t.requests)
	return nil
}

// Stop cancels the loop and waits for it to exit. Stopping a stopped tracker is a no-op.
// The open entry stays open unless CloseOnStop is set.
func (t *Tracker) Stop() {
	t.runMu.Lock()
	if t.done == nil {
		t.runMu.Unlock()
		return
	}
	cancel, done := t.cancel, t.done
	t.cancel, t.done, t.requests = nil, nil, nil
	t.runMu.Unlock()

	cancel()
	<-done

	if t.opts.CloseOnStop {
		t.mu.Lock()
		t.endActivity(t.opts.Clock(), "stop")
		t.mu.Unlock()
	}
}

// IsRunning reports whether the sampling loop is active.
func (t *Tracker) IsRunning() bool {
	t.runMu.Lock()
	defer t.runMu.Unlock()
	if t.done == nil {
		return false
	}
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}

func (t *Tracker) run(ctx context.Context, done chan struct{}, requests chan request) {
	defer close(done)

	ticker := time.NewTicker(t.opts.PollInterval)
	defer ticker.Stop()

	t.logger.Info().Dur("poll_interval", t.opts.PollInterval).Dur("idle_timeout", t.opts.IdleTimeout).
		Str("sampler", t.sampler.Name()).Msg("tracker started")

	_ = t.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			t.logger.Info().Msg("tracker stopped")
			return

		case <-ticker.C:
			// Ticks run inline, so a slow tick delays (and the ticker drops) the next ones.
			_ = t.Tick(ctx)

		case req := <-requests:
			t.mu.Lock()
			err := req.fn(t.opts.Clock())
			t.mu.Unlock()
			req.reply <- err
		}
	}
}

// Tick samples the sampler once and applies the resulting transition.
// A sampler failure leaves the state untouched and is returned as *SampleError.
// Ticks are serialized: a call made while the loop is ticking waits for it.
func (t *Tracker) Tick(ctx context.Context) error {
	t.tickMu.Lock()
	defer t.tickMu.Unlock()

	t.metrics.TicksTotal.Inc()

	sampleCtx, cancel := context.WithTimeout(ctx, t.opts.SampleTimeout)
	defer cancel()

	win, err := t.sampler.FocusedWindow(sampleCtx)
	if err != nil {
		return t.sampleFailed(ctx, "focused_window", err)
	}

	idleMs, err := t.sampler.IdleMs(sampleCtx)
	if err != nil {
		return t.sampleFailed(ctx, "idle", err)
	}

	now := t.opts.Clock()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastInputIdleMs = idleMs
	t.lastTick = now

	switch {
	case !win.Focused():
		t.endActivity(now, "no_focus")

	case t.idleExceeded(idleMs):
		t.endActivity(now, "idle")

	case t.current == nil:
		t.open(*win, now)

	case t.current.Matches(*win):
		// Same window: nothing to record or persist.

	default:
		t.endActivity(now, "focus_change")
		t.open(*win, now)
	}

	t.metrics.SetTracking(t.current != nil)
	return nil
}

func (t *Tracker) sampleFailed(ctx context.Context, query string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	t.metrics.RecordSamplerError(query)
	t.logger.Warn().Err(err).Str("query", query).Msg("sampling failed, skipping tick")
	return &SampleError{Query: query, Err: err}
}

func (t *Tracker) idleExceeded(idleMs uint64) bool {
	if t.opts.IdleTimeout <= 0 {
		return false
	}
	return idleMs >= uint64(t.opts.IdleTimeout.Milliseconds())
}

// open must be called with t.mu held and t.current == nil.
func (t *Tracker) open(win models.Window, now time.Time) {
	t.current = models.NewActivityEntry(win, models.Millis(now))
	t.metrics.RecordTransition("open")
	t.logger.Debug().Str("name", win.Name).Str("title", win.Title).Msg("activity opened")
}

// endActivity closes the open entry, appends it to history and persists history.
// It is a no-op without an open entry. Must be called with t.mu held.
func (t *Tracker) endActivity(now time.Time, reason string) bool {
	if t.current == nil {
		return false
	}

	t.current.Close(models.Millis(now))
	closed := t.current.Clone()
	t.hist = append(t.hist, closed)
	t.current = nil

	t.metrics.RecordTransition(reason)
	t.metrics.ActivitiesRecorded.Inc()
	t.logger.Debug().Str("name", closed.Name).Str("reason", reason).Int64("duration_ms", closed.Duration()).Msg("activity closed")

	if err := t.history.Save(t.hist); err != nil {
		t.logger.Error().Err(err).Msg("failed to save history")
	}
	return true
}

// do runs fn on the loop goroutine, or directly under the state lock when the loop is not running.
func (t *Tracker) do(ctx context.Context, fn func(now time.Time) error) error {
	t.runMu.Lock()
	requests, done := t.requests, t.done
	t.runMu.Unlock()

	if requests != nil {
		req := request{fn: fn, reply: make(chan error, 1)}
		select {
		case requests <- req:
			select {
			case err := <-req.reply:
				return err
			case <-ctx.Done():
				return ctx.Err()
			}
		case <-done:
			// Loop exited on its own; fall through.
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(t.opts.Clock())
}

// EndActivity closes the open entry now. Without an open entry it does nothing.
func (t *Tracker) EndActivity(ctx context.Context) error {
	return t.do(ctx, func(now time.Time) error {
		t.endActivity(now, "manual")
		t.metrics.SetTracking(false)
		return nil
	})
}

// BeginSprint closes the open entry and marks the start of a sprint.
func (t *Tracker) BeginSprint(ctx context.Context) (SprintState, error) {
	var state SprintState
	err := t.do(ctx, func(now time.Time) error {
		if t.sprint != nil {
			return ErrSprintActive
		}
		t.endActivity(now, "sprint_start")
		t.metrics.SetTracking(false)
		t.sprint = &openSprint{start: models.Millis(now), from: len(t.hist)}
		state = SprintState{Start: t.sprint.start}
		t.logger.Info().Int64("start", state.Start).Msg("sprint started")
		return nil
	})
	return state, err
}

// EndSprint closes the open entry, builds a sprint from the entries recorded
// since BeginSprint and appends it to the sprint log.
func (t *Tracker) EndSprint(ctx context.Context) (models.SprintEntry, error) {
	var entry models.SprintEntry
	err := t.do(ctx, func(now time.Time) error {
		if t.sprint == nil {
			return ErrNoSprint
		}
		t.endActivity(now, "sprint_end")
		t.metrics.SetTracking(false)

		end := models.Millis(now)
		entry = models.NewSprintEntry(t.sprint.start, t.sprint.start, end, t.hist[t.sprint.from:])
		if err := t.sprints.Record(entry); err != nil {
			return errors.Wrap(err, "failed to record sprint")
		}
		t.sprint = nil

		t.metrics.SprintsRecorded.Inc()
		t.logger.Info().Int("activities", entry.Summary.ActivitiesCount).
			Int64("total_ms", entry.Summary.TotalDuration).Msg("sprint recorded")
		return nil
	})
	return entry, err
}

// Reset discards history, sprints and the open entry, in memory and in storage.
func (t *Tracker) Reset(ctx context.Context) error {
	return t.do(ctx, func(time.Time) error {
		t.hist = []models.ActivityEntry{}
		t.current = nil
		t.sprint = nil
		t.metrics.SetTracking(false)
		if err := t.history.Reset(ctx); err != nil {
			return err
		}
		return t.sprints.Reset(ctx)
	})
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() Snapshot {
	running := t.IsRunning()

	t.mu.RLock()
	defer t.mu.RUnlock()

	snap := Snapshot{
		Running:         running,
		HistoryLength:   len(t.hist),
		LastInputIdleMs: t.lastInputIdleMs,
	}
	if t.current != nil {
		c := t.current.Clone()
		snap.Current = &c
	}
	if !t.lastTick.IsZero() {
		lt := t.lastTick
		snap.LastTick = &lt
	}
	if t.sprint != nil {
		snap.Sprint = &SprintState{Start: t.sprint.start, Activities: len(t.hist) - t.sprint.from}
	}
	return snap
}

// History returns a copy of the closed entries.
func (t *Tracker) History() []models.ActivityEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return models.CloneEntries(t.hist)
}

// Sprints returns a copy of the recorded sprints.
func (t *Tracker) Sprints() []models.SprintEntry {
	return t.sprints.Sprints()
}

// SamplerName names the sampler in use.
func (t *Tracker) SamplerName() string {
	return t.sampler.Name()
}
