package sqlsource

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// sqliteSchema mirrors the catalog views as plain tables.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS mv_cruise_info (
	cruise_id   INTEGER PRIMARY KEY,
	ufl         TEXT,
	cruise_info TEXT,
	enabled     BOOLEAN NOT NULL DEFAULT 1
);
CREATE TABLE IF NOT EXISTS mv_cruise_date_range_info (
	cruise_id              INTEGER NOT NULL,
	cruise_date_range_id   INTEGER NOT NULL,
	cruise_date_range_info TEXT,
	PRIMARY KEY (cruise_id, cruise_date_range_id)
);
`

// InitSQLiteSchema creates the catalog tables in a SQLite database.
func InitSQLiteSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("creating catalog schema: %w", err)
	}
	return nil
}

// Writer inserts catalog rows into a SQLite catalog. It backs the demo seeder
// and test fixtures.
type Writer struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

// NewWriter creates a Writer for a SQLite catalog.
func NewWriter(db *sql.DB) *Writer {
	return &Writer{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
}

// PutEntity inserts or replaces an entity row.
func (w *Writer) PutEntity(ctx context.Context, id, code, info string, enabled bool) error {
	query, args, err := w.builder.
		Insert(entityView).
		Options("OR REPLACE").
		Columns("cruise_id", "ufl", "cruise_info", "enabled").
		Values(id, code, info, enabled).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := w.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting entity %s: %w", id, err)
	}
	return nil
}

// PutFact inserts or replaces a date range row.
func (w *Writer) PutFact(ctx context.Context, entityID, rangeID, info string) error {
	query, args, err := w.builder.
		Insert(factView).
		Options("OR REPLACE").
		Columns("cruise_id", "cruise_date_range_id", "cruise_date_range_info").
		Values(entityID, rangeID, info).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := w.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting fact %s/%s: %w", entityID, rangeID, err)
	}
	return nil
}
