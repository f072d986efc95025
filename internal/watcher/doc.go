// Package watcher wraps fsnotify with recursive directory registration and a
// batching debouncer.
//
// Raw events are coalesced per path over a fixed window and delivered as
// batches on Batches(). Watcher-level failures arrive on Errors() and never
// stop the watcher. Close is synchronous: once it returns no further batch is
// sent and pending events are discarded.
package watcher
