package ledger

import (
	"fmt"
	"time"
)

// Slot is one parking bay. ReservedUntil is nil whenever IsAvailable is true.
type Slot struct {
	ID            int        `json:"id"`
	IsAvailable   bool       `json:"isAvailable"`
	ReservedUntil *time.Time `json:"reservedUntil"`
}

// Expired reports whether the slot holds a reservation that has lapsed at
// now. A reservation ending exactly at now counts as lapsed.
func (s Slot) Expired(now time.Time) bool {
	return !s.IsAvailable && s.ReservedUntil != nil && !s.ReservedUntil.After(now)
}

// Reserve marks the slot taken until until, rounded up to the next
// millisecond so the stored expiry is never earlier than requested.
func (s *Slot) Reserve(until time.Time) {
	u := Timestamp(until)
	if u.Before(until) {
		u = u.Add(time.Millisecond)
	}
	s.IsAvailable = false
	s.ReservedUntil = &u
}

// Release makes the slot available again.
func (s *Slot) Release() {
	s.IsAvailable = true
	s.ReservedUntil = nil
}

func (s Slot) clone() Slot {
	if s.ReservedUntil != nil {
		u := *s.ReservedUntil
		s.ReservedUntil = &u
	}
	return s
}

// Timestamp normalizes t to the precision every backend can round-trip:
// UTC, milliseconds, no monotonic reading.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// Fresh returns a pool of size available slots with ids 1..size.
func Fresh(size int) []Slot {
	out := make([]Slot, size)
	for i := range out {
		out[i] = Slot{ID: i + 1, IsAvailable: true}
	}
	return out
}

func cloneAll(in []Slot) []Slot {
	out := make([]Slot, len(in))
	for i, s := range in {
		out[i] = s.clone()
	}
	return out
}

// reconcile fits persisted slots to a pool of size: ids missing from the
// document become available, ids beyond size are dropped and inconsistent
// slots are normalized. Non-positive or duplicate ids make the whole
// document malformed.
func reconcile(loaded []Slot, size int) ([]Slot, []string, error) {
	seen := make(map[int]struct{}, len(loaded))
	for _, s := range loaded {
		if s.ID < 1 {
			return nil, nil, fmt.Errorf("malformed ledger: invalid slot id %d", s.ID)
		}
		if _, dup := seen[s.ID]; dup {
			return nil, nil, fmt.Errorf("malformed ledger: duplicate slot id %d", s.ID)
		}
		seen[s.ID] = struct{}{}
	}

	var notes []string
	inPool := 0
	out := Fresh(size)
	for _, s := range loaded {
		if s.ID > size {
			notes = append(notes, fmt.Sprintf("slot %d outside pool of %d dropped", s.ID, size))
			continue
		}
		switch {
		case !s.IsAvailable && s.ReservedUntil == nil:
			notes = append(notes, fmt.Sprintf("slot %d unavailable without expiry, released", s.ID))
			s.Release()
		case s.IsAvailable && s.ReservedUntil != nil:
			s.ReservedUntil = nil
		case s.ReservedUntil != nil:
			u := Timestamp(*s.ReservedUntil)
			s.ReservedUntil = &u
		}
		out[s.ID-1] = s
		inPool++
	}
	if missing := size - inPool; missing > 0 {
		notes = append(notes, fmt.Sprintf("%d slot(s) missing from persisted ledger added as available", missing))
	}
	return out, notes, nil
}
