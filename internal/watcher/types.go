package watcher

import (
	"sync"
	"time"

	"inkwell/internal/logging"
	"inkwell/internal/metrics"

	"github.com/fsnotify/fsnotify"
)

// Kind tells how a debounced event was produced.
type Kind int

const (
	// KindAny is emitted once a path has been quiet for a full window.
	KindAny Kind = iota
	// KindAnyContinuous is emitted for a path that kept changing for a full window.
	KindAnyContinuous
)

func (kind Kind) String() string {
	switch kind {
	case KindAny:
		return "any"
	case KindAnyContinuous:
		return "any_continuous"
	default:
		return "unknown"
	}
}

// DebouncedEvent is one coalesced change for a path.
type DebouncedEvent struct {
	Path string
	Kind Kind
}

// Options controls watcher behavior.
type Options struct {
	Logger      *logging.Logger
	Registry    *metrics.Registry
	Debounce    time.Duration
	BatchBuffer int
}

// Watcher is the concrete fsnotify-backed implementation.
type Watcher struct {
	watcher   *fsnotify.Watcher
	mutex     sync.Mutex
	debouncer *debouncer
	dirs      map[string]struct{}
	tick      time.Duration
	batches   chan []DebouncedEvent
	errors    chan error
	done      chan struct{}
	closed    bool
	wg        sync.WaitGroup
	logger    *logging.Logger
	registry  *metrics.Registry
}
