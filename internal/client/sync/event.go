package sync

import "time"

// EventKind classifies a raw filesystem event as delivered by a ChangeSource.
type EventKind uint8

const (
	EventAdded EventKind = iota
	EventModified
	EventDeleted
	EventMoved
)

var eventKindNames = []string{"added", "modified", "deleted", "moved"}

func (k EventKind) String() string {
	return eventKindNames[k]
}

// RawEvent is one observation from the change source. Ephemeral; it is
// consumed by the aggregator immediately.
type RawEvent struct {
	Kind       EventKind
	Path       string // absolute
	DestPath   string // absolute, set for EventMoved only
	IsDir      bool
	ObservedAt time.Time
}

// ActionKind is what remains of an event burst once debounced: either the
// path must be (re)pushed from disk, or it must be removed remotely.
type ActionKind uint8

const (
	ActionUpsert ActionKind = iota
	ActionDelete
)

var actionKindNames = []string{"upsert", "delete"}

func (k ActionKind) String() string {
	return actionKindNames[k]
}

// PendingAction is the single queued action for a path. At most one exists
// per relative path at any time; later events overwrite Kind and LastSeenAt.
type PendingAction struct {
	RelPath     string // slash-separated, relative to the watched root
	Kind        ActionKind
	FirstSeenAt time.Time
	LastSeenAt  time.Time
}
