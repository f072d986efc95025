package event

import "time"

// Event represents a typed event with an occurrence timestamp.
type Event interface {
	Type() string
	Timestamp() time.Time
}

const (
	// TypeFileChange names the stream that carries change notifications.
	TypeFileChange = "file-change"

	// KindChange is the only change kind reported; creation, modification
	// and removal are not distinguished.
	KindChange = "change"
)

// FileChange is one observed filesystem mutation pushed to the presentation layer.
type FileChange struct {
	Path       string    `json:"path"`
	Kind       string    `json:"kind"`
	OccurredAt time.Time `json:"-"`
}

func NewFileChange(path string) FileChange {
	return FileChange{
		Path:       path,
		Kind:       KindChange,
		OccurredAt: time.Now().UTC(),
	}
}

func (e FileChange) Type() string {
	return TypeFileChange
}

func (e FileChange) Timestamp() time.Time {
	return e.OccurredAt
}
