package sqlsource

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/poiesic/cruisekb/core"
	"github.com/poiesic/cruisekb/source"
)

// Supported driver names.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	entityView = "mv_cruise_info"
	factView   = "mv_cruise_date_range_info"
)

// Reader implements source.Reader over database/sql.
type Reader struct {
	db        *sql.DB
	driver    string
	builder   sq.StatementBuilderType
	assembler *source.Assembler
	now       func() time.Time
	logger    *slog.Logger
}

var _ source.Reader = (*Reader)(nil)

// Option configures a Reader.
type Option func(*Reader) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reader) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithClock overrides the source of "today" used for candidate selection.
func WithClock(now func() time.Time) Option {
	return func(r *Reader) error {
		if now == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		r.now = now
		return nil
	}
}

// Open connects to the catalog database and verifies the connection.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Reader, error) {
	if driver == "" {
		driver = DriverPostgres
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", source.ErrConnectivity, driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping %s: %w", source.ErrConnectivity, driver, err)
	}
	r, err := New(db, driver, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

// New wraps an open database. The reader takes ownership of db.
func New(db *sql.DB, driver string, opts ...Option) (*Reader, error) {
	var placeholder sq.PlaceholderFormat
	switch driver {
	case DriverPostgres:
		placeholder = sq.Dollar
	case DriverSQLite:
		placeholder = sq.Question
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	r := &Reader{
		db:      db,
		driver:  driver,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder),
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "sql-source", "driver", driver)
	r.assembler = source.NewAssembler(r.logger)
	return r, nil
}

// Close closes the database.
func (r *Reader) Close() error {
	return r.db.Close()
}

// ListCandidateIDs returns enabled entities with a departure strictly after today.
// The query pre-filters on the begin date as text; the exact calendar
// comparison runs client-side so both dialects agree on it.
func (r *Reader) ListCandidateIDs(ctx context.Context) ([]string, error) {
	today := r.now()
	query, args, err := r.builder.
		Select("m.cruise_id", "d.cruise_date_range_id", "d.cruise_date_range_info").
		From(entityView + " m").
		Join(factView + " d ON d.cruise_id = m.cruise_id").
		Where(sq.Eq{"m.enabled": true}).
		Where(r.beginDateFrom(today)).
		ToSql()
	if err != nil {
		return nil, err
	}

	var ids []string
	err = r.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("%w: query candidates: %w", source.ErrConnectivity, err)
		}
		defer rows.Close()

		for rows.Next() {
			row, err := scanFact(rows)
			if err != nil {
				r.logger.Warn("ignoring unreadable fact row", "err", err)
				continue
			}
			fact, err := source.ParseFact(row)
			if err != nil {
				r.logger.Debug("ignoring malformed fact", "entity_id", row.EntityID, "err", err)
				continue
			}
			if source.DepartsAfter(fact, today) {
				ids = append(ids, row.EntityID)
			}
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("%w: rows iteration: %w", source.ErrConnectivity, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ids = source.DedupIDs(ids)
	r.logger.Info("candidate ids listed", "count", len(ids))
	return ids, nil
}

// beginDateFrom keeps facts whose begin_date text sorts on or after today.
// Unparseable JSON never matches.
func (r *Reader) beginDateFrom(today time.Time) sq.Sqlizer {
	day := core.CivilDate(today).Format(time.DateOnly)
	if r.driver == DriverPostgres {
		return sq.Expr("(d.cruise_date_range_info::json -> 'dateRange' ->> 'begin_date') >= ?", day)
	}
	return sq.Expr("(CASE WHEN json_valid(d.cruise_date_range_info) "+
		"THEN json_extract(d.cruise_date_range_info, '$.dateRange.begin_date') END) >= ?", day)
}

// Batches streams entities with their facts.
func (r *Reader) Batches(ctx context.Context, ids []string, batchSize int) iter.Seq2[*source.Batch, error] {
	return source.BatchSeq(ctx, ids, batchSize, r.fetch)
}

func (r *Reader) fetch(ctx context.Context, ids []string) (*source.Batch, error) {
	var (
		entities []source.EntityRow
		facts    []source.FactRow
		skipped  int
	)
	err := r.withConn(ctx, func(conn *sql.Conn) error {
		var err error
		entities, skipped, err = r.queryEntities(ctx, conn, ids)
		if err != nil {
			return err
		}
		var badFacts int
		facts, badFacts, err = r.queryFacts(ctx, conn, ids)
		skipped += badFacts
		return err
	})
	if err != nil {
		return nil, err
	}
	batch := r.assembler.Assemble(entities, facts)
	batch.Skipped += skipped
	return batch, nil
}

// queryEntities loads entity rows. Rows that cannot be scanned are logged
// and counted in the returned skip count.
func (r *Reader) queryEntities(ctx context.Context, conn *sql.Conn, ids []string) ([]source.EntityRow, int, error) {
	query, args, err := r.builder.
		Select("cruise_id", "ufl", "cruise_info").
		From(entityView).
		Where(r.idIn("cruise_id", ids)).
		ToSql()
	if err != nil {
		return nil, 0, err
	}

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: query entities: %w", source.ErrConnectivity, err)
	}
	defer rows.Close()

	var (
		out     []source.EntityRow
		skipped int
	)
	for rows.Next() {
		var id, code, info sql.NullString
		if err := rows.Scan(&id, &code, &info); err != nil {
			r.logger.Warn("skipping unreadable entity row", "err", fmt.Errorf("%w: %w", source.ErrMalformedRecord, err))
			skipped++
			continue
		}
		out = append(out, source.EntityRow{ID: id.String, Code: code.String, Info: []byte(info.String)})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: rows iteration: %w", source.ErrConnectivity, err)
	}
	return orderRows(out, ids), skipped, nil
}

func (r *Reader) queryFacts(ctx context.Context, conn *sql.Conn, ids []string) ([]source.FactRow, int, error) {
	query, args, err := r.builder.
		Select("cruise_id", "cruise_date_range_id", "cruise_date_range_info").
		From(factView).
		Where(r.idIn("cruise_id", ids)).
		OrderBy("cruise_date_range_id").
		ToSql()
	if err != nil {
		return nil, 0, err
	}

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: query facts: %w", source.ErrConnectivity, err)
	}
	defer rows.Close()

	var (
		out     []source.FactRow
		skipped int
	)
	for rows.Next() {
		row, err := scanFact(rows)
		if err != nil {
			r.logger.Warn("skipping unreadable fact row", "err", err)
			skipped++
			continue
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: rows iteration: %w", source.ErrConnectivity, err)
	}
	return out, skipped, nil
}

// scanFact reads an (entity id, range id, info) row. NULL columns come back
// empty and are rejected later by source.ParseFact.
func scanFact(rows *sql.Rows) (source.FactRow, error) {
	var entityID, rangeID, info sql.NullString
	if err := rows.Scan(&entityID, &rangeID, &info); err != nil {
		return source.FactRow{}, fmt.Errorf("%w: %w", source.ErrMalformedRecord, err)
	}
	return source.FactRow{EntityID: entityID.String, RangeID: rangeID.String, Info: []byte(info.String)}, nil
}

// idIn matches column against ids. PostgreSQL receives a single text array.
func (r *Reader) idIn(column string, ids []string) sq.Sqlizer {
	if r.driver == DriverPostgres {
		return sq.Expr(column+"::text = ANY(?)", pq.StringArray(ids))
	}
	return sq.Eq{column: ids}
}

// withConn runs fn on a dedicated connection that is released afterwards.
func (r *Reader) withConn(ctx context.Context, fn func(conn *sql.Conn) error) error {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("%w: acquire connection: %w", source.ErrConnectivity, err)
	}
	defer conn.Close()
	return fn(conn)
}

// orderRows returns rows in the order of ids, so batches follow candidate order.
func orderRows(rows []source.EntityRow, ids []string) []source.EntityRow {
	pos := make(map[string]int, len(ids))
	for i, id := range ids {
		if _, ok := pos[id]; !ok {
			pos[id] = i
		}
	}
	buckets := make([][]source.EntityRow, len(ids))
	var unknown []source.EntityRow
	for _, row := range rows {
		if i, ok := pos[row.ID]; ok {
			buckets[i] = append(buckets[i], row)
		} else {
			unknown = append(unknown, row)
		}
	}
	out := make([]source.EntityRow, 0, len(rows))
	for _, b := range buckets {
		out = append(out, b...)
	}
	return append(out, unknown...)
}
