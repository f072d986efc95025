package watcher

import (
	"sort"
	"time"
)

type debounceEntry struct {
	seq         uint64
	lastEvent   time.Time
	windowStart time.Time
}

// debouncer coalesces raw events per path. It is not safe for concurrent use;
// the watcher serializes access under its mutex.
type debouncer struct {
	duration time.Duration
	entries  map[string]*debounceEntry
	nextSeq  uint64
}

func newDebouncer(duration time.Duration) *debouncer {
	return &debouncer{
		duration: duration,
		entries:  make(map[string]*debounceEntry),
	}
}

// schedule records a raw event for path and reports whether it was folded
// into an entry already pending.
func (debouncer *debouncer) schedule(path string, now time.Time) bool {
	if debouncer == nil || debouncer.entries == nil {
		return false
	}
	if entry, ok := debouncer.entries[path]; ok {
		entry.lastEvent = now
		return true
	}
	debouncer.nextSeq++
	debouncer.entries[path] = &debounceEntry{
		seq:         debouncer.nextSeq,
		lastEvent:   now,
		windowStart: now,
	}
	return false
}

// due returns the events ready at now in first-seen order. Quiet paths are
// emitted as KindAny and forgotten; paths still receiving events after a full
// window are emitted as KindAnyContinuous and start a new window.
func (debouncer *debouncer) due(now time.Time) []DebouncedEvent {
	if debouncer == nil || len(debouncer.entries) == 0 {
		return nil
	}

	type ready struct {
		seq   uint64
		event DebouncedEvent
	}
	var batch []ready
	for path, entry := range debouncer.entries {
		switch {
		case now.Sub(entry.lastEvent) >= debouncer.duration:
			batch = append(batch, ready{seq: entry.seq, event: DebouncedEvent{Path: path, Kind: KindAny}})
			delete(debouncer.entries, path)
		case now.Sub(entry.windowStart) >= debouncer.duration:
			batch = append(batch, ready{seq: entry.seq, event: DebouncedEvent{Path: path, Kind: KindAnyContinuous}})
			entry.windowStart = now
		}
	}
	if len(batch) == 0 {
		return nil
	}

	sort.Slice(batch, func(i, j int) bool {
		return batch[i].seq < batch[j].seq
	})
	events := make([]DebouncedEvent, len(batch))
	for i, item := range batch {
		events[i] = item.event
	}
	return events
}

func (debouncer *debouncer) pending() int {
	if debouncer == nil {
		return 0
	}
	return len(debouncer.entries)
}

// stop discards everything still pending.
func (debouncer *debouncer) stop() {
	if debouncer == nil {
		return
	}
	debouncer.entries = nil
}
