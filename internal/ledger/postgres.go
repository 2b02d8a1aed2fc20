package ledger

import (
	"context"
	"time"

	"github.com/example/parkour/internal/db"
	"github.com/example/parkour/internal/migrate"
)

// PostgresPersister keeps the ledger in the slots table created by the
// embedded migrations.
type PostgresPersister struct {
	db *db.DB
}

func OpenPostgres(ctx context.Context, databaseURL string, migrateUp bool) (*PostgresPersister, error) {
	d, err := db.Open(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := d.Ping(ctx); err != nil {
		d.Close()
		return nil, err
	}
	if migrateUp {
		if _, err := migrate.Up(ctx, d); err != nil {
			d.Close()
			return nil, err
		}
	}
	return &PostgresPersister{db: d}, nil
}

func (p *PostgresPersister) Load(ctx context.Context) ([]Slot, error) {
	rows, err := p.db.Query(ctx, `SELECT id, is_available, reserved_until FROM slots ORDER BY id`)
	if err != nil {
		return nil, loadErr(err)
	}
	defer rows.Close()

	var out []Slot
	for rows.Next() {
		var (
			s     Slot
			until *time.Time
		)
		if err := rows.Scan(&s.ID, &s.IsAvailable, &until); err != nil {
			return nil, loadErr(err)
		}
		s.ReservedUntil = until
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, loadErr(err)
	}
	if len(out) == 0 {
		return nil, ErrNoState
	}
	return out, nil
}

func (p *PostgresPersister) Save(ctx context.Context, slots []Slot) error {
	err := p.db.InTx(ctx, func(tx db.Tx) error {
		ids := make([]int32, 0, len(slots))
		for _, s := range slots {
			if err := tx.Exec(ctx, `
INSERT INTO slots (id, is_available, reserved_until, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (id) DO UPDATE
SET is_available = EXCLUDED.is_available,
    reserved_until = EXCLUDED.reserved_until,
    updated_at = now()
WHERE slots.is_available IS DISTINCT FROM EXCLUDED.is_available
   OR slots.reserved_until IS DISTINCT FROM EXCLUDED.reserved_until`,
				s.ID, s.IsAvailable, s.ReservedUntil,
			); err != nil {
				return err
			}
			ids = append(ids, int32(s.ID))
		}
		return tx.Exec(ctx, `DELETE FROM slots WHERE NOT (id = ANY($1))`, ids)
	})
	if err != nil {
		return writeErr(err)
	}
	return nil
}

func (p *PostgresPersister) Close() error {
	p.db.Close()
	return nil
}
