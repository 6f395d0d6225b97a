// Package scheduler runs the periodic full reprice so prices drift with
// engagement even when nobody trades.
package scheduler

import (
	"context"
	"sync"
	"time"

	"creatorx/internal/logger"
	"creatorx/internal/services"

	"go.uber.org/zap"
)

// Repricer is the slice of the pricing engine the scheduler drives.
type Repricer interface {
	RecomputeAll(ctx context.Context) (*services.RepriceResult, error)
}

// Scheduler calls RecomputeAll every interval until stopped.
type Scheduler struct {
	repricer Repricer
	interval time.Duration
	log      *zap.SugaredLogger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a Scheduler. A non-positive interval disables it.
func New(repricer Repricer, interval time.Duration) *Scheduler {
	return &Scheduler{
		repricer: repricer,
		interval: interval,
		log:      logger.Named("scheduler"),
	}
}

// Start launches the loop. Calling Start twice is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || s.interval <= 0 {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.running = true
	go s.loop(ctx, s.done)
	s.log.Infow("reprice scheduler started", "interval", s.interval)
}

// Stop cancels the loop and waits for an in-progress run to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single full reprice and logs the outcome.
func (s *Scheduler) RunOnce(ctx context.Context) {
	res, err := s.repricer.RecomputeAll(ctx)
	if err != nil {
		s.log.Errorw("scheduled reprice failed", "error", err)
		return
	}
	if len(res.Errors) > 0 {
		s.log.Warnw("scheduled reprice finished with errors",
			"stocks", res.Stocks, "changed", res.Changed, "errors", res.Errors)
		return
	}
	s.log.Infow("scheduled reprice finished",
		"stocks", res.Stocks, "changed", res.Changed, "duration", res.Duration)
}
