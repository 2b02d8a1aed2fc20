package sweeper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/example/parkour/internal/booking"
	"github.com/example/parkour/internal/ledger"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type countingPersister struct {
	ledger.Persister
	mu    sync.Mutex
	saves int
}

func (c *countingPersister) Save(ctx context.Context, slots []ledger.Slot) error {
	c.mu.Lock()
	c.saves++
	c.mu.Unlock()
	return c.Persister.Save(ctx, slots)
}

func (c *countingPersister) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saves
}

func setup(t *testing.T) (*booking.Engine, *Sweeper, *clock, *countingPersister) {
	t.Helper()
	log := zaptest.NewLogger(t).Sugar()
	p := &countingPersister{Persister: ledger.NewFilePersister(filepath.Join(t.TempDir(), "db.json"))}
	st := ledger.NewStore(p, 20, log)
	st.Load(context.Background())

	c := &clock{now: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}
	e := booking.New(st, nil, nil, booking.Pricing{PerUnit: 10, UnitMinutes: 30}, log)
	e.Now = c.Now
	sw := New(st, 10*time.Second, log)
	sw.Now = c.Now
	return e, sw, c, p
}

func TestSweepReclaimsAfterOneMinuteAndATick(t *testing.T) {
	e, sw, c, _ := setup(t)
	ctx := context.Background()
	if _, err := e.Reserve(ctx, booking.Request{SlotID: 5, DurationMinutes: 1}); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	// ticks every 10s up to 60s: still reserved until the expiry is observed
	for i := 0; i < 5; i++ {
		c.Advance(10 * time.Second)
		if got := sw.Sweep(ctx); len(got) != 0 {
			t.Fatalf("reclaimed at %ds: %v", (i+1)*10, got)
		}
	}
	c.Advance(11 * time.Second)
	got := sw.Sweep(ctx)
	if len(got) != 1 || got[0] != 5 {
		t.Fatalf("expected slot 5 reclaimed at 61s, got %v", got)
	}
	if s := e.ListSlots()[4]; !s.IsAvailable || s.ReservedUntil != nil {
		t.Fatalf("slot 5 not available: %+v", s)
	}
}

func TestReclaimWithinDurationPlusInterval(t *testing.T) {
	e, sw, c, _ := setup(t)
	ctx := context.Background()
	const d = 3 * time.Minute
	if _, err := e.Reserve(ctx, booking.Request{SlotID: 2, DurationMinutes: d.Minutes()}); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	var elapsed time.Duration
	for elapsed < d+sw.Interval {
		c.Advance(sw.Interval)
		elapsed += sw.Interval
		if len(sw.Sweep(ctx)) > 0 {
			break
		}
	}
	if elapsed < d {
		t.Fatalf("reclaimed before the duration elapsed: %s", elapsed)
	}
	if elapsed > d+sw.Interval || !e.ListSlots()[1].IsAvailable {
		t.Fatalf("not reclaimed within %s", d+sw.Interval)
	}
}

func TestSweepExpiryIsInclusive(t *testing.T) {
	e, sw, c, _ := setup(t)
	ctx := context.Background()
	if _, err := e.Reserve(ctx, booking.Request{SlotID: 1, DurationMinutes: 2}); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	c.Advance(2 * time.Minute)
	if got := sw.Sweep(ctx); len(got) != 1 {
		t.Fatalf("slot expiring exactly now not reclaimed: %v", got)
	}
}

func TestSweepWithoutChangesDoesNoIO(t *testing.T) {
	e, sw, c, p := setup(t)
	ctx := context.Background()
	if _, err := e.Reserve(ctx, booking.Request{SlotID: 9, DurationMinutes: 30}); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	before := p.count()
	c.Advance(time.Minute)
	sw.Sweep(ctx)
	sw.Sweep(ctx)
	if p.count() != before {
		t.Fatalf("idle sweep wrote the ledger")
	}
	if sw.Phase() != Idle {
		t.Fatalf("expected idle after sweep, got %s", sw.Phase())
	}
}

func TestSweepPersistsReclaim(t *testing.T) {
	log := zaptest.NewLogger(t).Sugar()
	path := filepath.Join(t.TempDir(), "db.json")
	doc := `{"slots":[{"id":1,"isAvailable":false,"reservedUntil":"2000-01-01T00:00:00.000Z"}]}`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	st := ledger.NewStore(ledger.NewFilePersister(path), 1, log)
	st.Load(context.Background())

	New(st, time.Second, log).Sweep(context.Background())

	reloaded := ledger.NewStore(ledger.NewFilePersister(path), 1, log)
	reloaded.Load(context.Background())
	if !reloaded.Snapshot()[0].IsAvailable {
		t.Fatalf("reclaim not persisted")
	}
}

func TestRunSweepsOnTickerUntilCancelled(t *testing.T) {
	log := zaptest.NewLogger(t).Sugar()
	st := ledger.NewStore(ledger.NewFilePersister(filepath.Join(t.TempDir(), "db.json")), 3, log)
	st.Load(context.Background())
	e := booking.New(st, nil, nil, booking.Pricing{}, log)

	// 30ms reservation on a real clock
	if _, err := e.Reserve(context.Background(), booking.Request{SlotID: 3, DurationMinutes: 0.0005}); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	sw := New(st, 5*time.Millisecond, log)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sw.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for !st.Snapshot()[2].IsAvailable {
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("slot never reclaimed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPhaseString(t *testing.T) {
	if Idle.String() != "idle" || Scanning.String() != "scanning" || Persisting.String() != "persisting" {
		t.Fatalf("unexpected phase names")
	}
}
