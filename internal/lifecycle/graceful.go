// Package lifecycle manages graceful teardown of long-running components
// (the recording worker, archive writers, orchestrator master) with a
// bounded timeout.
package lifecycle

import (
	"context"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/nmxmxh/fossilize/internal/errutil"
	"github.com/nmxmxh/fossilize/internal/logging"
)

// Shutdown runs registered teardown functions in reverse (LIFO) order and
// combines every failure instead of reporting only the first.
type Shutdown struct {
	mu      sync.Mutex
	fns     []func() error
	timeout time.Duration
	log     *logging.Logger
}

// New creates a Shutdown manager with the given teardown timeout.
func New(timeout time.Duration, log *logging.Logger) *Shutdown {
	if log == nil {
		log = logging.Default("shutdown")
	}
	return &Shutdown{timeout: timeout, log: log}
}

// Register adds a teardown function, run in reverse registration order.
func (s *Shutdown) Register(fn func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fns = append(s.fns, fn)
}

// Run executes every registered teardown function, within the configured
// timeout, and returns their combined error (nil if none failed).
func (s *Shutdown) Run(ctx context.Context) error {
	s.mu.Lock()
	fns := append([]func() error(nil), s.fns...)
	s.mu.Unlock()

	s.log.Info("starting graceful shutdown", logging.Int("components", len(fns)))

	shutdownCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var mu sync.Mutex
	var combined error

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := len(fns) - 1; i >= 0; i-- {
			if err := fns[i](); err != nil {
				mu.Lock()
				combined = multierr.Append(combined, err)
				mu.Unlock()
			}
		}
	}()

	select {
	case <-done:
		if combined != nil {
			s.log.Error("graceful shutdown completed with errors", logging.Err(combined))
		} else {
			s.log.Info("graceful shutdown complete")
		}
		return combined
	case <-shutdownCtx.Done():
		s.log.Warn("graceful shutdown timed out")
		return multierr.Append(combined, errutil.Timeout("graceful shutdown"))
	}
}
