package watchsession

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"inkwell/internal/event"
	"inkwell/internal/logging"
	"inkwell/internal/metrics"
	"inkwell/internal/watcher"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Sink receives change notifications from the active session. Publish is
// called from the forwarding goroutine and must not block for long.
type Sink interface {
	Publish(event.FileChange)
}

type Options struct {
	Logger   *logging.Logger
	Registry *metrics.Registry
	// Debounce overrides the watcher window. Zero keeps watcher.DefaultDebounce.
	Debounce time.Duration
	// ErrorLogInterval bounds how often watcher errors are logged.
	ErrorLogInterval time.Duration
}

// Status describes the session slot.
type Status struct {
	Watching  bool      `json:"watching"`
	Path      string    `json:"path,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
}

// Manager owns at most one watch session. Starting a new session always
// tears the previous one down first.
type Manager struct {
	mu       sync.Mutex
	current  *session
	closed   bool
	sink     Sink
	logger   *logging.Logger
	registry *metrics.Registry
	debounce time.Duration
	limiter  *rate.Limiter
	// openSource creates the change source for a new session.
	openSource func(watcher.Options) (changeSource, error)
}

// changeSource is the part of *watcher.Watcher a session consumes.
type changeSource interface {
	Add(root string) error
	Batches() <-chan []watcher.DebouncedEvent
	Errors() <-chan error
	WatchedDirs() int
	Close() error
}

func openWatcher(options watcher.Options) (changeSource, error) {
	return watcher.NewWithOptions(options)
}

type session struct {
	id        string
	path      string
	startedAt time.Time
	watcher   changeSource
	done      chan struct{}
	wg        sync.WaitGroup
}

func NewManager(sink Sink, options Options) *Manager {
	logger := options.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	registry := options.Registry
	if registry == nil {
		registry = metrics.Default
	}
	interval := options.ErrorLogInterval
	if interval <= 0 {
		interval = time.Second
	}
	return &Manager{
		sink:     sink,
		logger:   logger,
		registry: registry,
		debounce: options.Debounce,
		limiter:  rate.NewLimiter(rate.Every(interval), 5),

		openSource: openWatcher,
	}
}

// StartWatch replaces the current session with a recursive watch rooted at
// the absolute form of path. A rejected path leaves the current session
// running; a failure after teardown leaves the manager idle.
func (manager *Manager) StartWatch(path string) error {
	if manager == nil {
		return ErrClosed
	}
	root, err := validateRoot(path)
	if err != nil {
		return err
	}

	manager.mu.Lock()
	defer manager.mu.Unlock()
	if manager.closed {
		return ErrClosed
	}

	manager.stopLocked()

	source, err := manager.openSource(watcher.Options{
		Logger:   manager.logger,
		Registry: manager.registry,
		Debounce: manager.debounce,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWatcherInit, err)
	}
	if err := source.Add(root); err != nil {
		_ = source.Close()
		return fmt.Errorf("%w: %v", ErrWatcherInit, err)
	}

	current := &session{
		id:        uuid.NewString(),
		path:      root,
		startedAt: time.Now().UTC(),
		watcher:   source,
		done:      make(chan struct{}),
	}
	current.wg.Add(1)
	go manager.forward(current)
	manager.current = current
	manager.registry.IncSessionStarted()

	manager.logger.Info("watch started", map[string]string{
		"inkwell.category": "watch",
		"path":             root,
		"session_id":       current.id,
		"watched_dirs":     fmt.Sprintf("%d", source.WatchedDirs()),
	})
	return nil
}

// StopWatch tears down the current session. It is a no-op when idle.
func (manager *Manager) StopWatch() error {
	if manager == nil {
		return ErrClosed
	}
	manager.mu.Lock()
	defer manager.mu.Unlock()
	if manager.closed {
		return ErrClosed
	}
	manager.stopLocked()
	return nil
}

func (manager *Manager) Status() Status {
	if manager == nil {
		return Status{}
	}
	manager.mu.Lock()
	defer manager.mu.Unlock()
	if manager.current == nil {
		return Status{}
	}
	return Status{
		Watching:  true,
		Path:      manager.current.path,
		SessionID: manager.current.id,
		StartedAt: manager.current.startedAt,
	}
}

// Close stops the current session and rejects later calls.
func (manager *Manager) Close() error {
	if manager == nil {
		return nil
	}
	manager.mu.Lock()
	defer manager.mu.Unlock()
	if manager.closed {
		return nil
	}
	manager.stopLocked()
	manager.closed = true
	return nil
}

// stopLocked returns once the forwarder has exited, so nothing from the old
// session reaches the sink afterwards.
func (manager *Manager) stopLocked() {
	current := manager.current
	if current == nil {
		return
	}
	manager.current = nil

	close(current.done)
	if err := current.watcher.Close(); err != nil {
		manager.logger.Warn("watch close failed", map[string]string{
			"inkwell.category": "watch",
			"path":             current.path,
			"error":            err.Error(),
		})
	}
	current.wg.Wait()
	manager.registry.IncSessionStopped()

	manager.logger.Info("watch stopped", map[string]string{
		"inkwell.category": "watch",
		"path":             current.path,
		"session_id":       current.id,
	})
}

func (manager *Manager) forward(current *session) {
	defer current.wg.Done()

	batches := current.watcher.Batches()
	errs := current.watcher.Errors()
	for batches != nil || errs != nil {
		select {
		case <-current.done:
			return
		case batch, ok := <-batches:
			if !ok {
				batches = nil
				continue
			}
			for _, debounced := range batch {
				select {
				case <-current.done:
					return
				default:
				}
				if manager.sink != nil {
					manager.sink.Publish(event.NewFileChange(debounced.Path))
				}
				manager.registry.IncNotification()
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			manager.reportError(current, err)
		}
	}
}

func (manager *Manager) reportError(current *session, err error) {
	manager.registry.IncWatchError()
	if !manager.limiter.Allow() {
		return
	}
	manager.logger.Error("watch error", map[string]string{
		"inkwell.category": "watch",
		"path":             current.path,
		"session_id":       current.id,
		"error":            err.Error(),
	})
}

func validateRoot(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrInvalidPath
	}
	root, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, path)
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, path)
	}
	return root, nil
}
