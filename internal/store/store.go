// Package store declares the query helpers every tweet backend provides.
package store

import (
	"context"
	"errors"
	"time"

	"tweetarchive/internal/config"
	"tweetarchive/internal/tweet"
)

// ErrTableNotFound is returned when table statistics name no such table.
var ErrTableNotFound = errors.New("table not found")

// Store persists records and answers the read helpers. Backend failures
// are returned wrapped but otherwise unchanged; nothing is retried.
type Store interface {
	// Migrate creates the table and its indices if missing.
	Migrate(ctx context.Context) error
	// Save validates rec and inserts it. src is the message rec was built
	// from and may be nil; backends with extra columns read it.
	Save(ctx context.Context, rec tweet.Record, src tweet.Message) error
	// CreatedInRange returns records with start <= created_at < end,
	// in the backend's default order.
	CreatedInRange(ctx context.Context, start, end time.Time) ([]tweet.Record, error)
	// EarliestCreatedAt returns nil on an empty store.
	EarliestCreatedAt(ctx context.Context) (*time.Time, error)
	// LatestCreatedAt returns nil on an empty store.
	LatestCreatedAt(ctx context.Context) (*time.Time, error)
	// CountApprox returns a row count that is exact or an estimate
	// depending on the backend's CountStrategy.
	CountApprox(ctx context.Context) (int64, error)
	Close() error
}

// CountStrategy selects how CountApprox is answered.
type CountStrategy int

const (
	// CountExact runs COUNT(*). Cost grows with the table.
	CountExact CountStrategy = iota
	// CountEstimated reads table statistics. Constant cost, possibly stale.
	CountEstimated
)

func (s CountStrategy) String() string {
	if s == CountEstimated {
		return "estimated"
	}
	return "exact"
}

// StrategyFor picks the count strategy of a dialect: MySQL-family engines
// keep a cheap row estimate in their table status, others count.
func StrategyFor(d config.Dialect) CountStrategy {
	if d == config.DialectMySQL {
		return CountEstimated
	}
	return CountExact
}
