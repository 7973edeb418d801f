// Package autosave periodically persists the open note while it changes.
package autosave

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/starford/quire/internal/content"
)

// MinIntervalSeconds is the floor applied to every configured interval.
const MinIntervalSeconds = 5

// Interval returns the effective tick period for a configured number of
// seconds.
func Interval(seconds int) time.Duration {
	return time.Duration(max(MinIntervalSeconds, seconds)) * time.Second
}

// Saver persists content.
type Saver interface {
	Save(ctx context.Context, path string, c content.Content, token string) error
}

// Source yields the content currently being edited.
type Source interface {
	Pull() (content.Content, error)
}

// Settings are the user's autosave preferences.
type Settings struct {
	Enabled         bool
	IntervalSeconds int
}

// Target identifies what to save. Baseline is the content already persisted;
// when nil the first tick always saves.
type Target struct {
	Path     string
	Token    string
	Baseline *content.Content
}

// Result describes one completed autosave.
type Result struct {
	Path string
	At   time.Time
	Err  error
}

// TickerFunc starts a ticker and returns its channel and stop function.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

func stdTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Scheduler runs at most one autosave loop at a time.
type Scheduler struct {
	saver     Saver
	source    Source
	logger    *slog.Logger
	newTicker TickerFunc

	mu       sync.Mutex
	cur      *run
	onResult func(Result)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler logger.
func WithLogger(l *slog.Logger) Option { return func(s *Scheduler) { s.logger = l } }

// WithTicker replaces the ticker, for tests.
func WithTicker(fn TickerFunc) Option { return func(s *Scheduler) { s.newTicker = fn } }

// New creates an idle scheduler.
func New(saver Saver, source Source, opts ...Option) *Scheduler {
	s := &Scheduler{
		saver:     saver,
		source:    source,
		logger:    slog.Default(),
		newTicker: stdTicker,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnResult registers a callback for completed saves. Results of saves that
// finish after their loop was cancelled are dropped.
func (s *Scheduler) OnResult(fn func(Result)) {
	s.mu.Lock()
	s.onResult = fn
	s.mu.Unlock()
}

type run struct {
	ctx      context.Context
	cancel   context.CancelFunc
	target   Target
	interval time.Duration

	inflight atomic.Bool
	saves    sync.WaitGroup
	mu       sync.Mutex
	snapshot *content.Content
}

// Arm cancels any running loop and starts a new one for target. Nothing is
// started when autosave is disabled or the path or token is empty.
func (s *Scheduler) Arm(ctx context.Context, target Target, settings Settings) {
	s.Stop()
	if !settings.Enabled || target.Path == "" || target.Token == "" {
		return
	}

	rctx, cancel := context.WithCancel(ctx)
	r := &run{
		ctx:      rctx,
		cancel:   cancel,
		target:   target,
		interval: Interval(settings.IntervalSeconds),
		snapshot: target.Baseline,
	}
	ch, stop := s.newTicker(r.interval)

	s.mu.Lock()
	s.cur = r
	s.mu.Unlock()

	s.logger.Debug("autosave armed", slog.String("path", target.Path), slog.Duration("interval", r.interval))
	go s.loop(r, ch, stop)
}

func (s *Scheduler) loop(r *run, ticks <-chan time.Time, stop func()) {
	defer stop()
	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticks:
			s.tick(r)
		}
	}
}

// tick pulls the editor content and starts a save when it changed since the
// last successful save.
func (s *Scheduler) tick(r *run) {
	if r.ctx.Err() != nil {
		return
	}
	if !r.inflight.CompareAndSwap(false, true) {
		return
	}
	cur, err := s.source.Pull()
	if err != nil {
		r.inflight.Store(false)
		s.logger.Debug("autosave pull failed", slog.String("error", err.Error()))
		return
	}
	// The cancellation check and saves.Add share r.mu so Halt never misses
	// a save that is about to start.
	r.mu.Lock()
	if r.ctx.Err() != nil || (r.snapshot != nil && r.snapshot.Equal(cur)) {
		r.mu.Unlock()
		r.inflight.Store(false)
		return
	}
	r.saves.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.saves.Done()
		defer r.inflight.Store(false)
		err := s.saver.Save(context.WithoutCancel(r.ctx), r.target.Path, cur, r.target.Token)
		if r.ctx.Err() != nil {
			return
		}
		if err == nil {
			saved := cur
			r.mu.Lock()
			r.snapshot = &saved
			r.mu.Unlock()
		} else {
			s.logger.Warn("autosave failed", slog.String("path", r.target.Path), slog.String("error", err.Error()))
		}
		s.mu.Lock()
		fn := s.onResult
		s.mu.Unlock()
		if fn != nil {
			fn(Result{Path: r.target.Path, At: time.Now(), Err: err})
		}
	}()
}

// Stop cancels the running loop, if any. An in-flight save is allowed to
// finish but its result is discarded.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	r := s.cur
	s.cur = nil
	s.mu.Unlock()
	if r != nil {
		r.cancel()
	}
}

// Halt is Stop followed by a wait for the stopped loop's in-flight save.
// After Halt returns no save for the previous target can reach the saver.
func (s *Scheduler) Halt() {
	s.mu.Lock()
	r := s.cur
	s.cur = nil
	s.mu.Unlock()
	if r == nil {
		return
	}
	r.mu.Lock()
	r.cancel()
	r.mu.Unlock()
	r.saves.Wait()
}

// Running reports whether a loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur != nil
}

// Current returns the armed path and its effective interval.
func (s *Scheduler) Current() (path string, interval time.Duration, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return "", 0, false
	}
	return s.cur.target.Path, s.cur.interval, true
}

// LastSaved returns the snapshot of the running loop, or nil.
func (s *Scheduler) LastSaved() *content.Content {
	s.mu.Lock()
	r := s.cur
	s.mu.Unlock()
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot
}
