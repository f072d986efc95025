package watcher

import (
	"errors"
	"os"
	"strconv"
	"time"

	"inkwell/internal/logging"
	"inkwell/internal/metrics"

	"github.com/fsnotify/fsnotify"
)

const (
	DefaultDebounce    = 500 * time.Millisecond
	defaultBatchBuffer = 16
	errorBuffer        = 16
)

var ErrClosed = errors.New("watcher is closed")

// New creates a Watcher with default options.
func New() (*Watcher, error) {
	return NewWithOptions(Options{})
}

// NewWithOptions creates a Watcher with custom options. The watcher observes
// nothing until Add is called.
func NewWithOptions(options Options) (*Watcher, error) {
	source, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := options.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	registry := options.Registry
	if registry == nil {
		registry = metrics.Default
	}

	debounce := options.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	batchBuffer := options.BatchBuffer
	if batchBuffer <= 0 {
		batchBuffer = defaultBatchBuffer
	}

	tick := debounce / 4
	if tick <= 0 {
		tick = debounce
	}

	instance := &Watcher{
		watcher:   source,
		debouncer: newDebouncer(debounce),
		dirs:      make(map[string]struct{}),
		tick:      tick,
		batches:   make(chan []DebouncedEvent, batchBuffer),
		errors:    make(chan error, errorBuffer),
		done:      make(chan struct{}),
		logger:    logger,
		registry:  registry,
	}

	instance.wg.Add(1)
	go instance.run()
	return instance, nil
}

// Batches delivers debounced events. The channel is closed by Close.
func (watcher *Watcher) Batches() <-chan []DebouncedEvent {
	return watcher.batches
}

// Errors delivers watcher-level failures. The channel is closed by Close.
func (watcher *Watcher) Errors() <-chan error {
	return watcher.errors
}

// Close stops event processing and releases the OS watch. Pending events are
// discarded and no batch is sent after Close returns.
func (watcher *Watcher) Close() error {
	if watcher == nil {
		return nil
	}

	watcher.mutex.Lock()
	if watcher.closed {
		watcher.mutex.Unlock()
		return nil
	}
	watcher.closed = true
	watcher.debouncer.stop()
	watcher.mutex.Unlock()

	close(watcher.done)
	err := watcher.watcher.Close()
	watcher.wg.Wait()
	close(watcher.batches)
	close(watcher.errors)
	return err
}

func (watcher *Watcher) run() {
	defer watcher.wg.Done()

	ticker := time.NewTicker(watcher.tick)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-watcher.watcher.Events:
			if !ok {
				return
			}
			watcher.handleEvent(event)
		case err, ok := <-watcher.watcher.Errors:
			if !ok {
				return
			}
			watcher.handleError(err)
		case now := <-ticker.C:
			if !watcher.flush(now) {
				return
			}
		case <-watcher.done:
			return
		}
	}
}

func (watcher *Watcher) handleEvent(event fsnotify.Event) {
	if event.Name == "" {
		return
	}
	watcher.registry.IncRawEvent()

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			watcher.addCreatedTree(event.Name)
		}
	}
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		watcher.forgetTree(event.Name)
	}

	watcher.mutex.Lock()
	if !watcher.closed {
		watcher.debouncer.schedule(event.Name, time.Now())
	}
	watcher.mutex.Unlock()
}

func (watcher *Watcher) handleError(err error) {
	if err == nil {
		return
	}
	select {
	case watcher.errors <- err:
	default:
		watcher.logWarn("watcher error dropped", map[string]string{
			"error": err.Error(),
		})
	}
}

// flush sends the batch due at now. It reports false when the watcher closed
// while the send was blocked.
func (watcher *Watcher) flush(now time.Time) bool {
	watcher.mutex.Lock()
	if watcher.closed {
		watcher.mutex.Unlock()
		return false
	}
	batch := watcher.debouncer.due(now)
	watcher.mutex.Unlock()

	if len(batch) == 0 {
		return true
	}
	select {
	case watcher.batches <- batch:
		return true
	case <-watcher.done:
		return false
	}
}

// Pending reports the number of paths waiting for their debounce window.
func (watcher *Watcher) Pending() int {
	if watcher == nil {
		return 0
	}
	watcher.mutex.Lock()
	defer watcher.mutex.Unlock()
	return watcher.debouncer.pending()
}

func (watcher *Watcher) logWarn(message string, fields map[string]string) {
	if watcher == nil || watcher.logger == nil {
		return
	}
	watcher.logger.Warn(message, withWatcherFields(fields))
}

func (watcher *Watcher) logDebug(message, path string, activeCount int) {
	if watcher == nil || watcher.logger == nil {
		return
	}
	watcher.logger.Debug(message, withWatcherFields(map[string]string{
		"path":         path,
		"watched_dirs": strconv.Itoa(activeCount),
	}))
}

func withWatcherFields(fields map[string]string) map[string]string {
	merged := make(map[string]string, len(fields)+2)
	merged["inkwell.category"] = "watcher"
	merged["inkwell.source"] = "backend"
	for key, value := range fields {
		merged[key] = value
	}
	return merged
}
