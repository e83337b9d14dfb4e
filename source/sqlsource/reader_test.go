package sqlsource

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/cruisekb/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixtureToday = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

func factJSON(begin string, price float64) string {
	return fmt.Sprintf(`{"minPrice": {"2": %v}, "dateRange": {"begin_date": %q, "end_date": %q}}`, price, begin, begin)
}

// newFixture creates a SQLite catalog:
//
//	1 enabled, departs in the future
//	2 enabled, only past and same-day departures
//	3 disabled, departs in the future
//	4 enabled, two future departures
//	5 enabled, malformed cruise_info, future departure
func newFixture(t *testing.T) string {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "catalog.db")
	db, err := sql.Open(DriverSQLite, dsn)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, InitSQLiteSchema(ctx, db))
	w := NewWriter(db)

	require.NoError(t, w.PutEntity(ctx, "1", "ONE", `{"name": "One"}`, true))
	require.NoError(t, w.PutEntity(ctx, "2", "TWO", `{"name": "Two"}`, true))
	require.NoError(t, w.PutEntity(ctx, "3", "THREE", `{"name": "Three"}`, false))
	require.NoError(t, w.PutEntity(ctx, "4", "FOUR", `{"name": "Four"}`, true))
	require.NoError(t, w.PutEntity(ctx, "5", "FIVE", `{"name":`, true))

	require.NoError(t, w.PutFact(ctx, "1", "10", factJSON("2026-06-01", 500)))
	require.NoError(t, w.PutFact(ctx, "2", "20", factJSON("2026-03-01", 200)))
	require.NoError(t, w.PutFact(ctx, "2", "21", factJSON("2026-03-15T08:00:00Z", 210)))
	require.NoError(t, w.PutFact(ctx, "3", "30", factJSON("2026-07-01", 300)))
	require.NoError(t, w.PutFact(ctx, "4", "40", factJSON("2026-05-01", 400)))
	require.NoError(t, w.PutFact(ctx, "4", "41", factJSON("2026-08-01", 410)))
	require.NoError(t, w.PutFact(ctx, "4", "42", `{"dateRange": {"begin_date": "garbage"}}`))
	require.NoError(t, w.PutFact(ctx, "5", "50", factJSON("2026-09-01", 500)))

	return dsn
}

func openFixture(t *testing.T) *Reader {
	t.Helper()
	r, err := Open(context.Background(), DriverSQLite, newFixture(t),
		WithClock(func() time.Time { return fixtureToday }))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestReader_ListCandidateIDs(t *testing.T) {
	r := openFixture(t)

	ids, err := r.ListCandidateIDs(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1", "4", "5"}, ids)
}

func TestReader_Batches(t *testing.T) {
	r := openFixture(t)
	ctx := context.Background()

	var (
		got     []string
		skipped int
		batches int
	)
	for batch, err := range r.Batches(ctx, []string{"4", "1", "5"}, 2) {
		require.NoError(t, err)
		batches++
		skipped += batch.Skipped
		for _, e := range batch.Entities {
			got = append(got, e.ID)
		}
	}

	assert.Equal(t, 2, batches)
	assert.Equal(t, []string{"4", "1"}, got, "entities follow the requested order")
	// Entity 5 has malformed info, entity 4 has one malformed fact
	assert.Equal(t, 2, skipped)
}

func TestReader_FactsAttached(t *testing.T) {
	r := openFixture(t)

	for batch, err := range r.Batches(context.Background(), []string{"4"}, 10) {
		require.NoError(t, err)
		require.Len(t, batch.Entities, 1)

		e := batch.Entities[0]
		assert.Equal(t, "FOUR", e.Code)
		assert.Equal(t, "Four", e.Info.Get("name").String())
		require.Len(t, e.Facts, 2)
		assert.Equal(t, "40", e.Facts[0].RangeID)
		assert.Equal(t, "41", e.Facts[1].RangeID)

		price, ok := e.Facts[1].Price("2")
		assert.True(t, ok)
		assert.Equal(t, float64(410), price)
	}
}

func TestReader_ConnectivityError(t *testing.T) {
	r := openFixture(t)
	require.NoError(t, r.db.Close())

	_, err := r.ListCandidateIDs(context.Background())
	assert.ErrorIs(t, err, source.ErrConnectivity)

	var errs []error
	for _, err := range r.Batches(context.Background(), []string{"1", "4"}, 1) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1, "sequence stops after the first failure")
	assert.ErrorIs(t, errs[0], source.ErrConnectivity)
}

func TestNew_UnsupportedDriver(t *testing.T) {
	_, err := New(nil, "mysql")
	assert.Error(t, err)
}

func TestIdIn(t *testing.T) {
	pg, err := New(nil, DriverPostgres)
	require.NoError(t, err)
	query, args, err := pg.builder.Select("cruise_id").From(entityView).Where(pg.idIn("cruise_id", []string{"1", "2"})).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT cruise_id FROM mv_cruise_info WHERE cruise_id::text = ANY($1)", query)
	require.Len(t, args, 1)

	lite, err := New(nil, DriverSQLite)
	require.NoError(t, err)
	query, args, err = lite.builder.Select("cruise_id").From(entityView).Where(lite.idIn("cruise_id", []string{"1", "2"})).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT cruise_id FROM mv_cruise_info WHERE cruise_id IN (?,?)", query)
	assert.Equal(t, []any{"1", "2"}, args)
}

// newLooseFixture builds catalog tables without NOT NULL constraints, the way
// upstream views can surface partially filled rows.
func newLooseFixture(t *testing.T) *Reader {
	t.Helper()
	db, err := sql.Open(DriverSQLite, filepath.Join(t.TempDir(), "loose.db"))
	require.NoError(t, err)

	ctx := context.Background()
	for _, stmt := range []string{
		`CREATE TABLE mv_cruise_info (cruise_id TEXT, ufl TEXT, cruise_info TEXT, enabled BOOLEAN)`,
		`CREATE TABLE mv_cruise_date_range_info (cruise_id TEXT, cruise_date_range_id TEXT, cruise_date_range_info TEXT)`,
		`INSERT INTO mv_cruise_info VALUES ('1', NULL, NULL, 1)`,
		`INSERT INTO mv_cruise_date_range_info VALUES ('1', '10', '` + factJSON("2026-06-01", 500) + `')`,
		`INSERT INTO mv_cruise_date_range_info VALUES ('1', NULL, '` + factJSON("2026-07-01", 600) + `')`,
		`INSERT INTO mv_cruise_date_range_info VALUES ('1', '12', NULL)`,
		`INSERT INTO mv_cruise_date_range_info VALUES ('1', '13', 'not json')`,
	} {
		_, err := db.ExecContext(ctx, stmt)
		require.NoError(t, err, stmt)
	}

	r, err := New(db, DriverSQLite, WithClock(func() time.Time { return fixtureToday }))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestReader_NullColumnsAreSkipped(t *testing.T) {
	r := newLooseFixture(t)
	ctx := context.Background()

	ids, err := r.ListCandidateIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids)

	var batches int
	for batch, err := range r.Batches(ctx, ids, 10) {
		require.NoError(t, err)
		batches++
		require.Len(t, batch.Entities, 1)
		e := batch.Entities[0]
		assert.Empty(t, e.Code)
		assert.True(t, e.Info.IsZero())
		require.Len(t, e.Facts, 1)
		assert.Equal(t, "10", e.Facts[0].RangeID)
		// NULL range id, NULL info and invalid JSON
		assert.Equal(t, 3, batch.Skipped)
	}
	assert.Equal(t, 1, batches)
}

func TestBeginDateFrom(t *testing.T) {
	pg, err := New(nil, DriverPostgres)
	require.NoError(t, err)
	query, args, err := pg.beginDateFrom(fixtureToday).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "(d.cruise_date_range_info::json -> 'dateRange' ->> 'begin_date') >= ?", query)
	assert.Equal(t, []any{"2026-03-15"}, args)

	lite, err := New(nil, DriverSQLite)
	require.NoError(t, err)
	query, _, err = lite.beginDateFrom(fixtureToday).ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "json_valid(d.cruise_date_range_info)")
}
