package booking

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/parkour/internal/ledger"
	"github.com/example/parkour/internal/notify"
	"github.com/example/parkour/internal/receipt"
)

// longest reservation accepted; keeps now+duration representable
const maxDuration = 100 * 365 * 24 * time.Hour

// Notifier receives booking confirmations. Submit must not block on
// delivery.
type Notifier interface {
	Submit(msg notify.Message)
}

type Request struct {
	SlotID          int
	DurationMinutes float64
	Email           string
	// Amount is an opaque display value; empty means quote from Pricing.
	Amount string
}

type Reservation struct {
	ID              string
	SlotID          int
	ReservedUntil   time.Time
	DurationMinutes float64
	Amount          string
	Currency        string
	Reference       string
}

// Status is what a booking reference resolves to.
type Status struct {
	receipt.Receipt
	Active bool
}

// Engine is the only writer of reserve transitions.
type Engine struct {
	store    *ledger.Store
	receipts *receipt.Codec
	notifier Notifier
	pricing  Pricing
	log      *zap.SugaredLogger

	Now func() time.Time
}

func New(store *ledger.Store, receipts *receipt.Codec, notifier Notifier, pricing Pricing, log *zap.SugaredLogger) *Engine {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Engine{
		store:    store,
		receipts: receipts,
		notifier: notifier,
		pricing:  pricing,
		log:      log,
		Now:      time.Now,
	}
}

// ListSlots returns every slot in ascending id order.
func (e *Engine) ListSlots() []ledger.Slot {
	return e.store.Snapshot()
}

// Reserve takes req.SlotID for req.DurationMinutes if and only if it is
// available. Persistence and notification failures never fail a reservation.
func (e *Engine) Reserve(ctx context.Context, req Request) (Reservation, error) {
	if !e.store.Has(req.SlotID) {
		return Reservation{}, ErrSlotNotFound
	}
	d, err := duration(req.DurationMinutes)
	if err != nil {
		return Reservation{}, err
	}

	var (
		until   time.Time
		outcome error
	)
	_ = e.store.Mutate(ctx, func(slots []ledger.Slot) bool {
		s := &slots[req.SlotID-1]
		if !s.IsAvailable {
			outcome = ErrSlotUnavailable
			return false
		}
		s.Reserve(e.Now().Add(d))
		until = *s.ReservedUntil
		return true
	})
	if outcome != nil {
		return Reservation{}, outcome
	}

	res := Reservation{
		ID:              uuid.NewString(),
		SlotID:          req.SlotID,
		ReservedUntil:   until,
		DurationMinutes: req.DurationMinutes,
		Amount:          strings.TrimSpace(req.Amount),
		Currency:        e.pricing.Currency,
	}
	if res.Amount == "" {
		res.Amount = e.pricing.Quote(req.DurationMinutes)
	}
	if e.receipts != nil {
		ref, err := e.receipts.Encode(receipt.Receipt{BookingID: res.ID, SlotID: res.SlotID, ReservedUntil: until})
		if err != nil {
			e.log.Warnw("booking: receipt encode failed", "slot", res.SlotID, "err", err)
		}
		res.Reference = ref
	}
	e.log.Infow("booking: reserved", "slot", res.SlotID, "until", until, "booking", res.ID)

	e.confirm(req.Email, res)
	return res, nil
}

func (e *Engine) confirm(to string, res Reservation) {
	if e.notifier == nil {
		return
	}
	msg, err := notify.BookingConfirmation(notify.Booking{
		To:              to,
		SlotID:          res.SlotID,
		DurationMinutes: res.DurationMinutes,
		ReservedUntil:   res.ReservedUntil,
		Amount:          res.Amount,
		Currency:        res.Currency,
		Reference:       res.Reference,
	})
	if err != nil {
		e.log.Warnw("booking: confirmation not sent", "slot", res.SlotID, "err", err)
		return
	}
	e.notifier.Submit(msg)
}

// Verify decodes a booking reference and reports whether the ledger still
// holds that reservation.
func (e *Engine) Verify(ref string) (Status, error) {
	if e.receipts == nil {
		return Status{}, receipt.ErrInvalid
	}
	r, err := e.receipts.Decode(ref)
	if err != nil {
		return Status{}, err
	}
	st := Status{Receipt: r}
	if !e.store.Has(r.SlotID) {
		return st, nil
	}
	s := e.store.Snapshot()[r.SlotID-1]
	st.Active = !s.IsAvailable && s.ReservedUntil != nil && s.ReservedUntil.Equal(r.ReservedUntil)
	return st, nil
}

func duration(minutes float64) (time.Duration, error) {
	if math.IsNaN(minutes) || math.IsInf(minutes, 0) || minutes <= 0 {
		return 0, ErrInvalidDuration
	}
	d := time.Duration(minutes * float64(time.Minute))
	// expiries are stored to the millisecond
	if minutes > maxDuration.Minutes() || d < time.Millisecond {
		return 0, ErrInvalidDuration
	}
	return d, nil
}
