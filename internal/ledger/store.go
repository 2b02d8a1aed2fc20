package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/micro-go/lock"
	"go.uber.org/zap"
)

const persistTimeout = 5 * time.Second

// Store owns the slot pool. The in-memory slots are authoritative; the
// persister is written after every change but a failed write never undoes
// the change.
type Store struct {
	mu    sync.RWMutex
	slots []Slot
	size  int

	persister Persister
	log       *zap.SugaredLogger
}

func NewStore(p Persister, size int, log *zap.SugaredLogger) *Store {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Store{
		slots:     Fresh(size),
		size:      size,
		persister: p,
		log:       log,
	}
}

// Load replaces the pool with the persisted ledger. Absent or unreadable
// state leaves a fresh pool in place. It reports whether persisted state was
// used.
func (s *Store) Load(ctx context.Context) bool {
	loaded, err := s.persister.Load(ctx)
	if errors.Is(err, ErrNoState) {
		s.log.Infow("ledger: no persisted state, starting with a fresh pool", "size", s.size)
		s.reset()
		return false
	}
	if err != nil {
		s.log.Warnw("ledger: persisted state unreadable, starting with a fresh pool", "size", s.size, "err", err)
		s.reset()
		return false
	}

	slots, notes, err := reconcile(loaded, s.size)
	if err != nil {
		s.log.Warnw("ledger: persisted state malformed, starting with a fresh pool", "size", s.size, "err", err)
		s.reset()
		return false
	}
	for _, n := range notes {
		s.log.Warnw("ledger: " + n)
	}

	defer lock.Write(&s.mu).Unlock()
	s.slots = slots
	s.log.Infow("ledger: loaded", "size", s.size)
	return true
}

func (s *Store) reset() {
	defer lock.Write(&s.mu).Unlock()
	s.slots = Fresh(s.size)
}

// Size is the number of slots in the pool.
func (s *Store) Size() int { return s.size }

// Has reports whether id names a slot in the pool.
func (s *Store) Has(id int) bool {
	return id >= 1 && id <= s.size
}

// Snapshot returns a copy of every slot in ascending id order.
func (s *Store) Snapshot() []Slot {
	defer lock.Read(&s.mu).Unlock()
	return cloneAll(s.slots)
}

// Mutate runs fn with exclusive access to the slots. fn reports whether it
// changed anything; if so the ledger is persisted before the lock is
// released. The returned error is a persistence failure, already logged.
func (s *Store) Mutate(ctx context.Context, fn func(slots []Slot) bool) error {
	defer lock.Write(&s.mu).Unlock()
	if !fn(s.slots) {
		return nil
	}
	return s.persistLocked(ctx)
}

// Reset replaces the pool with a fresh, fully available one and persists it.
func (s *Store) Reset(ctx context.Context) error {
	defer lock.Write(&s.mu).Unlock()
	s.slots = Fresh(s.size)
	return s.persistLocked(ctx)
}

func (s *Store) persistLocked(ctx context.Context) error {
	// a cancelled request must not abandon a write for a mutation that stands
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if err := s.persister.Save(ctx, cloneAll(s.slots)); err != nil {
		s.log.Errorw("ledger: persist failed, continuing from memory", "err", err)
		return err
	}
	return nil
}

// Close releases the persister.
func (s *Store) Close() error {
	return s.persister.Close()
}
