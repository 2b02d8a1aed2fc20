package sweeper

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/example/parkour/internal/ledger"
)

type Phase int32

const (
	Idle Phase = iota
	Scanning
	Persisting
)

func (p Phase) String() string {
	switch p {
	case Scanning:
		return "scanning"
	case Persisting:
		return "persisting"
	default:
		return "idle"
	}
}

// Sweeper reclaims lapsed reservations on a fixed interval.
type Sweeper struct {
	Store    *ledger.Store
	Interval time.Duration
	Log      *zap.SugaredLogger
	Now      func() time.Time

	phase atomic.Int32
}

func New(store *ledger.Store, interval time.Duration, log *zap.SugaredLogger) *Sweeper {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Sweeper{Store: store, Interval: interval, Log: log, Now: time.Now}
}

func (s *Sweeper) Run(ctx context.Context) error {
	t := time.NewTicker(s.Interval)
	defer t.Stop()

	// kick immediately to reclaim anything that lapsed while we were down
	s.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass and returns the ids it reclaimed.
func (s *Sweeper) Sweep(ctx context.Context) []int {
	defer s.phase.Store(int32(Idle))

	var reclaimed []int
	err := s.Store.Mutate(ctx, func(slots []ledger.Slot) bool {
		s.phase.Store(int32(Scanning))
		now := s.now()
		for i := range slots {
			if slots[i].Expired(now) {
				slots[i].Release()
				reclaimed = append(reclaimed, slots[i].ID)
			}
		}
		if len(reclaimed) == 0 {
			return false
		}
		s.phase.Store(int32(Persisting))
		return true
	})
	if len(reclaimed) > 0 {
		s.Log.Infow("sweeper: reclaimed expired slots", "slots", reclaimed)
	}
	if err != nil {
		s.Log.Warnw("sweeper: reclaim not persisted", "err", err)
	}
	return reclaimed
}

// Phase reports what the sweeper is doing right now.
func (s *Sweeper) Phase() Phase {
	return Phase(s.phase.Load())
}

func (s *Sweeper) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
