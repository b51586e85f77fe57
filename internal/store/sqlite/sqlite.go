// Package sqlite provides a SQLite-backed implementation of the store.Index
// port for tracking cached artwork blobs.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tcgtools/deckimg/internal/store"

	// database/sql SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

var _ store.Index = (*Index)(nil)

// Index implements store.Index using SQLite (via database/sql). It is safe
// for concurrent use; database/sql manages connection pooling.
type Index struct{ db *sql.DB }

// New constructs an Index, initializing the required schema if absent.
func New(db *sql.DB) (*Index, error) {
	ix := &Index{db: db}
	if err := ix.init(); err != nil {
		return nil, err
	}
	return ix, nil
}

func (i *Index) init() error {
	schema := `CREATE TABLE IF NOT EXISTS artwork (
id TEXT PRIMARY KEY,
size INTEGER NOT NULL,
fetched_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS artwork_fetched_at ON artwork(fetched_at);`
	_, err := i.db.Exec(schema)
	return err
}

// Insert records a cached blob, replacing any prior row for the same ID.
func (i *Index) Insert(ctx context.Context, id string, size int64, fetchedAt time.Time) error {
	const q = `INSERT INTO artwork (id, size, fetched_at) VALUES (?,?,?)
ON CONFLICT(id) DO UPDATE SET size=excluded.size, fetched_at=excluded.fetched_at`
	_, err := i.db.ExecContext(ctx, q, id, size, fetchedAt.Unix())
	return err
}

// Has reports whether the ID is indexed.
func (i *Index) Has(ctx context.Context, id string) (bool, error) {
	const q = `SELECT 1 FROM artwork WHERE id=?`
	var one int
	err := i.db.QueryRowContext(ctx, q, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes index rows for the given IDs.
func (i *Index) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	q := fmt.Sprintf(`DELETE FROM artwork WHERE id IN (?%s)`, strings.Repeat(",?", len(ids)-1))
	args := make([]any, len(ids))
	for n, id := range ids {
		args[n] = id
	}
	_, err := i.db.ExecContext(ctx, q, args...)
	return err
}

// EvictBefore deletes rows fetched before t and returns their IDs.
func (i *Index) EvictBefore(ctx context.Context, t time.Time) ([]string, error) {
	const q = `DELETE FROM artwork WHERE fetched_at < ? RETURNING id`
	rows, err := i.db.QueryContext(ctx, q, t.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// EvictOverBudget deletes oldest rows until the summed size fits maxTotal,
// returning the deleted IDs. The selection and deletion run in one
// transaction so concurrent inserts cannot skew the accounting mid-pass.
func (i *Index) EvictOverBudget(ctx context.Context, maxTotal int64) ([]string, error) {
	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var total sql.NullInt64
	if err = tx.QueryRowContext(ctx, `SELECT SUM(size) FROM artwork`).Scan(&total); err != nil {
		return nil, err
	}
	if !total.Valid || total.Int64 <= maxTotal {
		return nil, tx.Commit()
	}

	rows, err := tx.QueryContext(ctx, `SELECT id, size FROM artwork ORDER BY fetched_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	var victims []string
	over := total.Int64 - maxTotal
	for rows.Next() && over > 0 {
		var (
			id   string
			size int64
		)
		if err = rows.Scan(&id, &size); err != nil {
			_ = rows.Close()
			return nil, err
		}
		victims = append(victims, id)
		over -= size
	}
	if cErr := rows.Close(); cErr != nil {
		err = cErr
		return nil, cErr
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	if len(victims) > 0 {
		q := fmt.Sprintf(`DELETE FROM artwork WHERE id IN (?%s)`, strings.Repeat(",?", len(victims)-1))
		args := make([]any, len(victims))
		for n, id := range victims {
			args[n] = id
		}
		if _, err = tx.ExecContext(ctx, q, args...); err != nil {
			return nil, err
		}
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return victims, nil
}

// ListIDs returns every indexed ID.
func (i *Index) ListIDs(ctx context.Context) ([]string, error) {
	const q = `SELECT id FROM artwork`
	rows, err := i.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
