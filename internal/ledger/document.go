package ledger

import (
	"encoding/json"
	"errors"
	"time"
)

type document struct {
	Slots []docSlot `json:"slots"`
}

type docSlot struct {
	ID            int        `json:"id"`
	IsAvailable   bool       `json:"isAvailable"`
	ReservedUntil *time.Time `json:"reservedUntil"`
	// older ledgers used bookedUntil
	BookedUntil *time.Time `json:"bookedUntil,omitempty"`
}

func encodeDocument(slots []Slot) ([]byte, error) {
	doc := document{Slots: make([]docSlot, len(slots))}
	for i, s := range slots {
		doc.Slots[i] = docSlot{ID: s.ID, IsAvailable: s.IsAvailable, ReservedUntil: s.ReservedUntil}
	}
	return json.MarshalIndent(doc, "", "  ")
}

func decodeDocument(b []byte) ([]Slot, error) {
	var doc struct {
		Slots *[]docSlot `json:"slots"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, loadErr(err)
	}
	if doc.Slots == nil {
		return nil, loadErr(errors.New("document has no slots"))
	}
	out := make([]Slot, len(*doc.Slots))
	for i, d := range *doc.Slots {
		until := d.ReservedUntil
		if until == nil {
			until = d.BookedUntil
		}
		out[i] = Slot{ID: d.ID, IsAvailable: d.IsAvailable, ReservedUntil: until}
	}
	return out, nil
}
