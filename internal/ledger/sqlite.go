package ledger

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS slots (
	id INTEGER PRIMARY KEY,
	is_available INTEGER NOT NULL,
	reserved_until TEXT
);`

// SQLitePersister stores one row per slot and replaces the whole table on
// every save.
type SQLitePersister struct {
	db *sql.DB
}

func OpenSQLite(ctx context.Context, path string) (*SQLitePersister, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// a single connection serializes writers and keeps :memory: databases shared
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLitePersister{db: db}, nil
}

func (p *SQLitePersister) Load(ctx context.Context) ([]Slot, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, is_available, reserved_until FROM slots ORDER BY id`)
	if err != nil {
		return nil, loadErr(err)
	}
	defer rows.Close()

	var out []Slot
	for rows.Next() {
		var (
			s     Slot
			avail int
			until sql.NullString
		)
		if err := rows.Scan(&s.ID, &avail, &until); err != nil {
			return nil, loadErr(err)
		}
		s.IsAvailable = avail != 0
		if until.Valid {
			t, err := time.Parse(time.RFC3339Nano, until.String)
			if err != nil {
				return nil, loadErr(err)
			}
			s.ReservedUntil = &t
		}
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

func (p *SQLitePersister) Save(ctx context.Context, slots []Slot) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return writeErr(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM slots`); err != nil {
		return writeErr(err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO slots (id, is_available, reserved_until) VALUES (?, ?, ?)`)
	if err != nil {
		return writeErr(err)
	}
	defer stmt.Close()
	for _, s := range slots {
		var until any
		if s.ReservedUntil != nil {
			until = s.ReservedUntil.UTC().Format(time.RFC3339Nano)
		}
		avail := 0
		if s.IsAvailable {
			avail = 1
		}
		if _, err := stmt.ExecContext(ctx, s.ID, avail, until); err != nil {
			return writeErr(err)
		}
	}
	if err := tx.Commit(); err != nil {
		return writeErr(err)
	}
	return nil
}

func (p *SQLitePersister) Close() error { return p.db.Close() }
