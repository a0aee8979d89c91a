package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const DefaultShutdownTimeout = 5 * time.Second

type job struct {
	name string
	fn   func(context.Context) error
}

// Manager runs long-lived jobs until the first failure or stop signal, then
// runs shutdown jobs in reverse registration order.
type Manager struct {
	mu              sync.Mutex
	runs            []job
	shutdowns       []job
	logger          *slog.Logger
	shutdownTimeout time.Duration
}

func NewManager() *Manager {
	return &Manager{
		logger:          slog.New(slog.DiscardHandler),
		shutdownTimeout: DefaultShutdownTimeout,
	}
}

func (m *Manager) SetLogger(logger *slog.Logger) {
	if logger != nil {
		m.logger = logger
	}
}

func (m *Manager) SetShutdownTimeout(d time.Duration) {
	if d > 0 {
		m.shutdownTimeout = d
	}
}

func (m *Manager) AddRun(name string, fn func(context.Context) error) {
	m.add(&m.runs, name, fn)
}

// AddShutdown registers cleanup that runs after every run job has returned.
func (m *Manager) AddShutdown(name string, fn func(context.Context) error) {
	m.add(&m.shutdowns, name, fn)
}

func (m *Manager) add(list *[]job, name string, fn func(context.Context) error) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	*list = append(*list, job{name: name, fn: fn})
	m.mu.Unlock()
}

// StartAndWait blocks until every run job has returned. Context
// cancellation is not reported as an error.
func (m *Manager) StartAndWait(parent context.Context, sig ...os.Signal) error {
	ctx := parent
	if len(sig) > 0 {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(parent, sig...)
		defer stop()
	}

	runs, shutdowns := m.snapshot()
	group, runCtx := errgroup.WithContext(ctx)
	for _, j := range runs {
		group.Go(func() error {
			m.logger.Debug("job started", "job", j.name)
			err := j.fn(runCtx)
			if err != nil && !errors.Is(err, context.Canceled) {
				m.logger.Error("job failed", "job", j.name, "err", err)
				return fmt.Errorf("%s: %w", j.name, err)
			}
			m.logger.Debug("job stopped", "job", j.name)
			return nil
		})
	}
	runErr := group.Wait()
	return errors.Join(runErr, m.shutdown(shutdowns))
}

func (m *Manager) shutdown(jobs []job) error {
	ctx, cancel := context.WithTimeout(context.Background(), m.shutdownTimeout)
	defer cancel()
	var errs error
	for i := len(jobs) - 1; i >= 0; i-- {
		j := jobs[i]
		if err := j.fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Warn("shutdown job failed", "job", j.name, "err", err)
			errs = errors.Join(errs, fmt.Errorf("%s: %w", j.name, err))
		}
	}
	return errs
}

func (m *Manager) snapshot() ([]job, []job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]job(nil), m.runs...), append([]job(nil), m.shutdowns...)
}
