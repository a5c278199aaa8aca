package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"TopArtistsTracker/internal/domain"
	"TopArtistsTracker/internal/ports"
)

// Schema creates the snapshot tables.
const Schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	day         TEXT PRIMARY KEY,
	run_id      TEXT NOT NULL,
	captured_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshot_items (
	day       TEXT NOT NULL REFERENCES snapshots(day) ON DELETE CASCADE,
	rank      INTEGER NOT NULL CHECK (rank >= 1),
	artist_id TEXT NOT NULL,
	name      TEXT NOT NULL,
	PRIMARY KEY (day, rank)
);
`

var sqlb = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// SQLiteRepository persists snapshots in SQLite.
type SQLiteRepository struct {
	db  *sql.DB
	loc *time.Location
	now func() time.Time
}

var _ ports.SnapshotRepository = (*SQLiteRepository)(nil)

// OpenSQLite opens (creating if needed) the database at dsn and applies Schema.
func OpenSQLite(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	// a single connection keeps ":memory:" databases shared across calls
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}

// NewSQLiteRepository wires a sql.DB implementation. Days are read back in loc.
func NewSQLiteRepository(db *sql.DB, loc *time.Location) *SQLiteRepository {
	if loc == nil {
		loc = time.UTC
	}
	return &SQLiteRepository{db: db, loc: loc, now: time.Now}
}

// Save replaces the day's snapshot in a single transaction.
func (r *SQLiteRepository) Save(ctx context.Context, snapshot domain.Snapshot) error {
	day := snapshot.Day.Format(domain.DayLayout)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := exec(ctx, tx, sqlb.Delete("snapshot_items").Where(sq.Eq{"day": day})); err != nil {
		return fmt.Errorf("clear items %s: %w", day, err)
	}
	if err := exec(ctx, tx, sqlb.Delete("snapshots").Where(sq.Eq{"day": day})); err != nil {
		return fmt.Errorf("clear snapshot %s: %w", day, err)
	}

	insertSnapshot := sqlb.Insert("snapshots").
		Columns("day", "run_id", "captured_at").
		Values(day, uuid.NewString(), r.now().Unix())
	if err := exec(ctx, tx, insertSnapshot); err != nil {
		return fmt.Errorf("insert snapshot %s: %w", day, err)
	}

	if len(snapshot.Items) > 0 {
		insertItems := sqlb.Insert("snapshot_items").Columns("day", "rank", "artist_id", "name")
		for _, item := range snapshot.Items {
			insertItems = insertItems.Values(day, item.Rank, item.ID, item.Name)
		}
		if err := exec(ctx, tx, insertItems); err != nil {
			return fmt.Errorf("insert items %s: %w", day, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot %s: %w", day, err)
	}
	return nil
}

// Load reads the snapshot of day or returns domain.ErrNoSnapshot.
func (r *SQLiteRepository) Load(ctx context.Context, day time.Time) (domain.Snapshot, error) {
	day = domain.TruncateDay(day)
	key := day.Format(domain.DayLayout)

	var exists int
	query, args, err := sqlb.Select("COUNT(*)").From("snapshots").Where(sq.Eq{"day": key}).ToSql()
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("build query: %w", err)
	}
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return domain.Snapshot{}, &domain.LoadError{Day: day, Err: err}
	}
	if exists == 0 {
		return domain.Snapshot{}, domain.ErrNoSnapshot
	}

	query, args, err = sqlb.Select("artist_id", "name", "rank").
		From("snapshot_items").
		Where(sq.Eq{"day": key}).
		OrderBy("rank").
		ToSql()
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.Snapshot{}, &domain.LoadError{Day: day, Err: err}
	}
	defer rows.Close()

	items := []domain.RankedItem{}
	for rows.Next() {
		var item domain.RankedItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Rank); err != nil {
			return domain.Snapshot{}, &domain.LoadError{Day: day, Err: err}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return domain.Snapshot{}, &domain.LoadError{Day: day, Err: err}
	}
	return domain.Snapshot{Day: day, Items: items}, nil
}

// Days lists captured days in ascending order.
func (r *SQLiteRepository) Days(ctx context.Context) ([]time.Time, error) {
	query, args, err := sqlb.Select("day").From("snapshots").OrderBy("day").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query days: %w", err)
	}
	defer rows.Close()

	var days []time.Time
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan day: %w", err)
		}
		day, err := domain.ParseDay(raw, r.loc)
		if err != nil {
			return nil, err
		}
		days = append(days, day)
	}
	return days, rows.Err()
}

func exec(ctx context.Context, tx *sql.Tx, builder sq.Sqlizer) error {
	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build statement: %w", err)
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}
