package main

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Corptech02/Multi-voice-bot-sub002/internal/historydb"
	"github.com/Corptech02/Multi-voice-bot-sub002/internal/watcher"
)

const defaultEventBuffer = 256

// eventFanout moves watcher events off the watcher goroutines. Publish never
// blocks; a full buffer drops the event.
type eventFanout struct {
	ch      chan watcher.Event
	logger  *slog.Logger
	dropped atomic.Int64

	mu    sync.Mutex
	sinks []func(watcher.Event)
}

func newEventFanout(buffer int, logger *slog.Logger) *eventFanout {
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &eventFanout{ch: make(chan watcher.Event, buffer), logger: logger}
}

func (f *eventFanout) Subscribe(fn func(watcher.Event)) {
	if fn == nil {
		return
	}
	f.mu.Lock()
	f.sinks = append(f.sinks, fn)
	f.mu.Unlock()
}

func (f *eventFanout) Publish(ev watcher.Event) {
	select {
	case f.ch <- ev:
	default:
		if n := f.dropped.Add(1); n == 1 || n%100 == 0 {
			f.logger.Warn("event buffer full, dropping events", "kind", ev.Kind, "target", ev.Target, "dropped", n)
		}
	}
}

func (f *eventFanout) Dropped() int64 {
	return f.dropped.Load()
}

// Run delivers events until ctx is cancelled, then flushes what is buffered.
func (f *eventFanout) Run(ctx context.Context) error {
	for {
		select {
		case ev := <-f.ch:
			f.deliver(ev)
		case <-ctx.Done():
			for {
				select {
				case ev := <-f.ch:
					f.deliver(ev)
				default:
					return nil
				}
			}
		}
	}
}

func (f *eventFanout) deliver(ev watcher.Event) {
	f.mu.Lock()
	sinks := append([]func(watcher.Event)(nil), f.sinks...)
	f.mu.Unlock()
	for _, sink := range sinks {
		sink(ev)
	}
}

type historyRecorder interface {
	RecordEvent(ev watcher.Event) (bool, error)
	Prune(keep int) (int64, error)
}

var _ historyRecorder = (*historydb.Store)(nil)

func recordHistory(store historyRecorder, logger *slog.Logger) func(watcher.Event) {
	return func(ev watcher.Event) {
		if _, err := store.RecordEvent(ev); err != nil {
			logger.Warn("record history failed", "kind", ev.Kind, "target", ev.Target, "err", err)
		}
	}
}

// runHistoryPrune trims the injection table to keep rows on every tick.
func runHistoryPrune(ctx context.Context, store historyRecorder, keep int, interval time.Duration, logger *slog.Logger) error {
	if keep <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := store.Prune(keep)
			if err != nil {
				logger.Warn("prune history failed", "err", err)
				continue
			}
			if n > 0 {
				logger.Debug("history pruned", "rows", n, "keep", keep)
			}
		}
	}
}
