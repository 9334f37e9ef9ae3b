package form

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360studio/semform/loader"
	"github.com/c360studio/semform/metrics"
)

// Purger is implemented by instance providers that cache across passes.
type Purger interface {
	Purge()
}

// Session owns the current pass. Reload replaces it; a reload started
// earlier than the latest one is cancelled and never installed.
type Session struct {
	opts   Options
	load   loader.Options
	logger *slog.Logger

	generation atomic.Uint64

	mu      sync.Mutex
	cancel  context.CancelFunc
	current *Pass
	closed  bool
}

// NewSession creates a session. load configures how sources are read.
func NewSession(opts Options, load loader.Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if load.Logger == nil {
		load.Logger = logger
	}
	return &Session{opts: opts, load: load, logger: logger}
}

// Current returns the installed pass, or nil before the first reload.
func (s *Session) Current() *Pass {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Reload loads src into a new pass and installs it. Any reload still in
// flight is cancelled and returns ErrSuperseded.
func (s *Session) Reload(ctx context.Context, src loader.Sources) (*Pass, error) {
	start := time.Now()
	ctx, cancel := context.WithCancel(ctx)

	// The generation and the cancel func change together so that the
	// newest reload is never cancelled by an older one.
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		return nil, ErrClosed
	}
	gen := s.generation.Add(1)
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	s.mu.Unlock()

	pass, err := s.build(ctx, gen, src)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation.Load() != gen || s.closed {
		s.opts.Metrics.PassFinished(metrics.OutcomeSuperseded, time.Since(start))
		s.logger.Debug("Discarding superseded pass", slog.Uint64("generation", gen))
		return nil, ErrSuperseded
	}
	if err != nil {
		s.opts.Metrics.PassFinished(metrics.OutcomeFailed, time.Since(start))
		return nil, err
	}
	s.current = pass
	s.opts.Metrics.PassFinished(metrics.OutcomeOK, time.Since(start))
	s.opts.Metrics.PassInstalled(gen, pass.Store.Len())
	s.logger.Info("Installed pass",
		slog.Uint64("generation", gen),
		slog.Int("quads", pass.Store.Len()),
		slog.Int("diagnostics", pass.Diagnostics.Len()))
	return pass, nil
}

func (s *Session) build(ctx context.Context, gen uint64, src loader.Sources) (*Pass, error) {
	ds, err := loader.New(s.load).Load(ctx, src)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return NewPass(ctx, ds, gen, s.opts)
}

// Close cancels any reload in flight and drops cached class instances.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	if p, ok := s.opts.Provider.(Purger); ok {
		p.Purge()
	}
}
