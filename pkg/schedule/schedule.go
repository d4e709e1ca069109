// Package schedule decides which content providers are due on a tick.
//
// A [Table] holds one [Entry] per provider: its id, refresh interval and the
// time it was last refreshed. [Table.Tick] is a function of the supplied
// time and the table alone, so tests drive it with synthetic clocks:
//
//	tbl, _ := schedule.New(
//	    schedule.Entry{ID: "clock", Interval: time.Second},
//	    schedule.Entry{ID: "weather", Interval: 30 * time.Minute},
//	)
//	due := tbl.Tick(now) // ["clock", "weather"] on the first tick
//
// An entry that has never been refreshed is always due. Tick records the
// tick time as the last refresh for every due entry regardless of whether
// the refresh later succeeds; failed refreshes fall back to the provider's
// cached content and are retried one interval later.
package schedule

import (
	"sync"
	"time"

	"github.com/matzehuels/pixclock/pkg/errors"
)

// ID identifies a content provider.
type ID string

// Entry is one row of the schedule table.
type Entry struct {
	ID       ID
	Interval time.Duration
	// Last is the time of the last refresh; zero means never refreshed.
	Last time.Time
}

// Due reports whether the entry must refresh at now.
func (e Entry) Due(now time.Time) bool {
	return e.Last.IsZero() || now.Sub(e.Last) >= e.Interval
}

// Table is the schedule for a fixed set of providers. It is safe for
// concurrent use; the render loop is the only writer.
type Table struct {
	mu      sync.RWMutex
	entries []Entry
	index   map[ID]int
}

// New builds a table. Entries keep their given order, which is also the
// order of ids returned by Tick. Duplicate ids and non-positive intervals
// are rejected.
func New(entries ...Entry) (*Table, error) {
	t := &Table{
		entries: make([]Entry, 0, len(entries)),
		index:   make(map[ID]int, len(entries)),
	}
	for _, e := range entries {
		if e.ID == "" {
			return nil, errors.New(errors.ErrCodeInvalidInput, "schedule entry has empty id")
		}
		if e.Interval <= 0 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "schedule entry %q has non-positive interval %s", e.ID, e.Interval)
		}
		if _, dup := t.index[e.ID]; dup {
			return nil, errors.New(errors.ErrCodeInvalidInput, "duplicate schedule entry %q", e.ID)
		}
		t.index[e.ID] = len(t.entries)
		t.entries = append(t.entries, e)
	}
	return t, nil
}

// Tick returns the providers due at now and marks each of them refreshed
// at now.
func (t *Table) Tick(now time.Time) []ID {
	t.mu.Lock()
	defer t.mu.Unlock()

	var due []ID
	for i := range t.entries {
		if t.entries[i].Due(now) {
			due = append(due, t.entries[i].ID)
			t.entries[i].Last = now
		}
	}
	return due
}

// Due returns the providers due at now without changing the table.
func (t *Table) Due(now time.Time) []ID {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var due []ID
	for _, e := range t.entries {
		if e.Due(now) {
			due = append(due, e.ID)
		}
	}
	return due
}

// Next returns the earliest time id will be due again. A provider that has
// never been refreshed reports the zero time.
func (t *Table) Next(id ID) (time.Time, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	i, ok := t.index[id]
	if !ok {
		return time.Time{}, errors.New(errors.ErrCodeUnknownProvider, "provider %q is not scheduled", id)
	}
	e := t.entries[i]
	if e.Last.IsZero() {
		return time.Time{}, nil
	}
	return e.Last.Add(e.Interval), nil
}

// Reset clears every last-refresh time so all providers are due on the
// next tick.
func (t *Table) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.entries {
		t.entries[i].Last = time.Time{}
	}
}

// IDs returns the scheduled provider ids in table order.
func (t *Table) IDs() []ID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]ID, len(t.entries))
	for i, e := range t.entries {
		ids[i] = e.ID
	}
	return ids
}

// Entries returns a copy of the table.
func (t *Table) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Entry(nil), t.entries...)
}
