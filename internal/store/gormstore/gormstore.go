// Package gormstore keeps tweets in Postgres or MySQL through the ORM.
package gormstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"tweetarchive/internal/metrics"
	"tweetarchive/internal/store"
	"tweetarchive/internal/tweet"
)

// Model constrains the pointer type of a deployment model: any struct that
// embeds tweet.Record.
type Model[T any] interface {
	*T
	Base() *tweet.Record
}

// Annotator is implemented by models that fill their own columns from the
// source message when saved.
type Annotator interface {
	Annotate(src tweet.Message) error
}

// Indexer is implemented by models with indices their tags cannot carry.
// Indexes maps each index name to a model declaring it on the same table.
type Indexer interface {
	Indexes() map[string]any
}

const tableStatusSQL = "SHOW TABLE STATUS WHERE Name = ?"

// Store serves the query helpers for deployment model T.
type Store[T any, PT Model[T]] struct {
	db       *gorm.DB
	strategy store.CountStrategy
	table    string
}

// New binds a store to the table of T. strategy decides how CountApprox
// is answered; see store.StrategyFor.
func New[T any, PT Model[T]](db *gorm.DB, strategy store.CountStrategy) (*Store[T, PT], error) {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(new(T)); err != nil {
		return nil, fmt.Errorf("parse model: %w", err)
	}
	return &Store[T, PT]{db: db, strategy: strategy, table: stmt.Schema.Table}, nil
}

// Table is the table T maps to.
func (s *Store[T, PT]) Table() string { return s.table }

func (s *Store[T, PT]) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store[T, PT]) Migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if err := db.AutoMigrate(new(T)); err != nil {
		return fmt.Errorf("failed to migrate %s: %w", s.table, err)
	}
	ix, ok := any(PT(new(T))).(Indexer)
	if !ok {
		return nil
	}
	m := db.Migrator()
	for name, model := range ix.Indexes() {
		if m.HasIndex(model, name) {
			continue
		}
		if err := m.CreateIndex(model, name); err != nil {
			return fmt.Errorf("create index %s: %w", name, err)
		}
	}
	return nil
}

// Save wraps rec in a fresh T and inserts it.
func (s *Store[T, PT]) Save(ctx context.Context, rec tweet.Record, src tweet.Message) error {
	var m T
	*PT(&m).Base() = rec
	if a, ok := any(PT(&m)).(Annotator); ok {
		if err := a.Annotate(src); err != nil {
			return fmt.Errorf("annotate tweet %d: %w", rec.TweetID, err)
		}
	}
	return s.Insert(ctx, &m)
}

// Insert writes a fully populated model.
func (s *Store[T, PT]) Insert(ctx context.Context, m *T) (err error) {
	defer func(start time.Time) { metrics.ObserveStore("save", start, err) }(time.Now())
	if err := PT(m).Base().Validate(); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("insert tweet %d: %w", PT(m).Base().TweetID, err)
	}
	return nil
}

func (s *Store[T, PT]) rangeQuery(ctx context.Context, start, end time.Time) *gorm.DB {
	return s.db.WithContext(ctx).Model(new(T)).Where("created_at >= ? AND created_at < ?", start, end)
}

// Find returns full models created in [start, end).
func (s *Store[T, PT]) Find(ctx context.Context, start, end time.Time) (out []T, err error) {
	defer func(t0 time.Time) { metrics.ObserveStore("range", t0, err) }(time.Now())
	if err := s.rangeQuery(ctx, start, end).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// CreatedInRange returns the base records created in [start, end).
func (s *Store[T, PT]) CreatedInRange(ctx context.Context, start, end time.Time) ([]tweet.Record, error) {
	models, err := s.Find(ctx, start, end)
	if err != nil {
		return nil, err
	}
	out := make([]tweet.Record, len(models))
	for i := range models {
		out[i] = *PT(&models[i]).Base()
	}
	return out, nil
}

func (s *Store[T, PT]) EarliestCreatedAt(ctx context.Context) (*time.Time, error) {
	return s.bound(ctx, "MIN")
}

func (s *Store[T, PT]) LatestCreatedAt(ctx context.Context) (*time.Time, error) {
	return s.bound(ctx, "MAX")
}

func (s *Store[T, PT]) bound(ctx context.Context, agg string) (_ *time.Time, err error) {
	defer func(start time.Time) { metrics.ObserveStore("bound", start, err) }(time.Now())
	row := s.db.WithContext(ctx).Model(new(T)).Select(agg + "(created_at)").Row()
	if row == nil {
		return nil, gorm.ErrDryRunModeUnsupported
	}
	var t sql.NullTime
	if err := row.Scan(&t); err != nil {
		return nil, err
	}
	if !t.Valid {
		return nil, nil
	}
	return &t.Time, nil
}

// CountApprox reads the engine's row estimate when the strategy allows it,
// else counts.
func (s *Store[T, PT]) CountApprox(ctx context.Context) (n int64, err error) {
	defer func(start time.Time) { metrics.ObserveStore("count", start, err) }(time.Now())
	if s.strategy == store.CountEstimated {
		return s.estimatedCount(ctx)
	}
	err = s.db.WithContext(ctx).Model(new(T)).Count(&n).Error
	return n, err
}

func (s *Store[T, PT]) estimatedCount(ctx context.Context) (int64, error) {
	rows, err := s.db.WithContext(ctx).Raw(tableStatusSQL, s.table).Rows()
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return 0, err
	}
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %s", store.ErrTableNotFound, s.table)
	}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return 0, err
	}
	return rowsColumn(cols, vals)
}

// rowsColumn picks the "Rows" column out of a table status row.
func rowsColumn(cols []string, vals []any) (int64, error) {
	for i, c := range cols {
		if !strings.EqualFold(c, "rows") {
			continue
		}
		switch v := vals[i].(type) {
		case int64:
			return v, nil
		case uint64:
			return int64(v), nil
		case []byte:
			return strconv.ParseInt(string(v), 10, 64)
		case string:
			return strconv.ParseInt(v, 10, 64)
		case nil:
			return 0, fmt.Errorf("table status has no row estimate")
		default:
			return 0, fmt.Errorf("table status rows: unexpected %T", v)
		}
	}
	return 0, fmt.Errorf("table status has no rows column")
}
