// Package reload provides configuration hot-reload via file polling and
// signal handling.
package reload

import (
	"context"
	"crypto/sha256"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

const defaultPollInterval = 5 * time.Second

// WatcherConfig configures the file watcher.
type WatcherConfig struct {
	// ConfigPath is the path to the configuration file to watch.
	ConfigPath string

	// PollInterval is how often to check for file changes.
	// Defaults to 5 seconds if zero.
	PollInterval time.Duration
}

func (c WatcherConfig) pollIntervalOrDefault() time.Duration {
	if c.PollInterval > 0 {
		return c.PollInterval
	}
	return defaultPollInterval
}

// EventType describes the type of file change event.
type EventType string

const (
	// EventModified indicates the config file content changed.
	EventModified EventType = "modified"
	// EventSignal indicates a reload was requested explicitly (SIGHUP).
	EventSignal EventType = "signal"
)

// Event represents a reload request.
type Event struct {
	Type       EventType
	ConfigPath string
}

// Watcher polls a configuration file. An event fires when the modification
// time moves forward and the content digest differs from the last one seen,
// so touching the file without editing it is ignored.
type Watcher struct {
	cfg     WatcherConfig
	events  chan Event
	stop    chan struct{}
	stopped chan struct{}

	started   atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewWatcher creates a new file watcher.
func NewWatcher(cfg WatcherConfig) *Watcher {
	return &Watcher{
		cfg:     cfg,
		events:  make(chan Event, 1),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start begins polling. Only the first call starts the goroutine.
func (w *Watcher) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		w.started.Store(true)
		go w.poll(ctx)
	})
}

// Events returns the channel of reload events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Trigger queues an explicit reload request. It never blocks: a pending
// request already covers this one.
func (w *Watcher) Trigger() {
	w.send(Event{Type: EventSignal, ConfigPath: w.cfg.ConfigPath})
}

// Stop stops the watcher. Safe to call multiple times and before Start.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
	})
	if w.started.Load() {
		<-w.stopped
	}
}

func (w *Watcher) poll(ctx context.Context) {
	defer close(w.stopped)

	ticker := time.NewTicker(w.cfg.pollIntervalOrDefault())
	defer ticker.Stop()

	lastMod, lastSum, _ := w.snapshot()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-ticker.C:
			mod, sum, ok := w.snapshot()
			if !ok || !mod.After(lastMod) {
				continue
			}
			lastMod = mod
			if sum == lastSum {
				continue
			}
			lastSum = sum
			w.send(Event{Type: EventModified, ConfigPath: w.cfg.ConfigPath})
		}
	}
}

func (w *Watcher) send(e Event) {
	select {
	case w.events <- e:
	default:
	}
}

func (w *Watcher) snapshot() (time.Time, [sha256.Size]byte, bool) {
	info, err := os.Stat(w.cfg.ConfigPath)
	if err != nil {
		return time.Time{}, [sha256.Size]byte{}, false
	}
	data, err := os.ReadFile(w.cfg.ConfigPath)
	if err != nil {
		return time.Time{}, [sha256.Size]byte{}, false
	}
	return info.ModTime(), sha256.Sum256(data), true
}
