package audit

import (
	"context"
	"sync"

	"github.com/mymonad/aura/pkg/aura"
)

// DefaultJournalSize is the number of events an in-memory journal keeps.
const DefaultJournalSize = 4096

// Lister returns recent events, newest last. A zero principal lists every
// event.
type Lister interface {
	List(ctx context.Context, principal aura.Principal, limit int) ([]aura.Event, error)
}

// Journal is a bounded in-memory event log.
type Journal struct {
	mu     sync.RWMutex
	events []aura.Event
	size   int
	next   int
	full   bool
}

// NewJournal creates a journal keeping the last size events.
func NewJournal(size int) *Journal {
	if size <= 0 {
		size = DefaultJournalSize
	}
	return &Journal{events: make([]aura.Event, size), size: size}
}

// Name implements Handler.
func (j *Journal) Name() string { return "journal" }

// Handle implements Handler.
func (j *Journal) Handle(_ context.Context, e aura.Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.events[j.next] = e
	j.next = (j.next + 1) % j.size
	if j.next == 0 {
		j.full = true
	}
	return nil
}

// List implements Lister.
func (j *Journal) List(_ context.Context, principal aura.Principal, limit int) ([]aura.Event, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var ordered []aura.Event
	if j.full {
		ordered = append(ordered, j.events[j.next:]...)
	}
	ordered = append(ordered, j.events[:j.next]...)

	var out []aura.Event
	for i := len(ordered) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		e := ordered[i]
		if principal.IsZero() || e.Principal == principal || e.Counterpart == principal {
			out = append(out, e)
		}
	}
	reverse(out)
	return out, nil
}

func reverse(events []aura.Event) {
	for i, k := 0, len(events)-1; i < k; i, k = i+1, k-1 {
		events[i], events[k] = events[k], events[i]
	}
}
