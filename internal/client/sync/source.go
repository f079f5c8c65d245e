package sync

import "context"

// ChangeSource emits raw filesystem events for a watched root. The two
// adapters (native notifications and polling) are interchangeable; the
// aggregator tolerates duplicate, reordered or coalesced events either way.
type ChangeSource interface {
	Start(ctx context.Context) error
	Stop()
	Events() <-chan RawEvent
}
