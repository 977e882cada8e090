// Package storage defines the persistence contract consumed by the
// reconciliation service and provides two drivers: a gorm-backed store for
// postgres/sqlite deployments and an in-memory store for tests and local
// experiments.
package storage

import (
	"context"
	"fmt"
	"time"

	"p2p-reconciler/internal/models"
)

// TimeRange is a closed interval: both Start and End are inclusive, for
// both transaction streams. The comparison policy is deliberately uniform
// between matcher loads and aggregation queries.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Validate checks that the range is well-formed.
func (r TimeRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("time range bounds cannot be zero")
	}
	if r.End.Before(r.Start) {
		return fmt.Errorf("time range end %s is before start %s",
			r.End.Format(time.RFC3339), r.Start.Format(time.RFC3339))
	}
	return nil
}

// Contains reports whether t lies within the range.
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// ExternalTransactionFilter selects gateway transactions.
type ExternalTransactionFilter struct {
	// ApprovedWithin restricts results to approved transactions whose
	// approval time lies in the range. Unapproved rows are always
	// excluded when the filter is set.
	ApprovedWithin *TimeRange
}

// TransactionFilter selects internal transactions.
type TransactionFilter struct {
	Within *TimeRange
	UserID int64 // 0 selects all users
}

// MatchFilter selects matches for the read views.
//
// With UserID set, matches are restricted to that user's transactions with
// the internal trade time in range. With UserID zero, the filter is the
// union view: the internal trade time OR the external approval time lies
// in range, so either timestamp may anchor inclusion.
type MatchFilter struct {
	Range  TimeRange
	UserID int64

	// InternalOnly anchors the range to the internal trade time even when
	// UserID is zero. The leaderboard totals use this; the global listing
	// does not.
	InternalOnly bool
}

// Pagination selects one page of a result set. Page is 1-based.
type Pagination struct {
	Page     int
	PageSize int
}

// Normalize clamps the pagination to sane values.
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 1
	}
	return p
}

// Offset returns the row offset of the page.
func (p Pagination) Offset() int {
	p = p.Normalize()
	return (p.Page - 1) * p.PageSize
}

// TotalPages converts a row count into a page count, never less than 1.
func TotalPages(total int64, pageSize int) int {
	if pageSize < 1 {
		return 1
	}
	pages := int((total + int64(pageSize) - 1) / int64(pageSize))
	if pages < 1 {
		return 1
	}
	return pages
}

// Store is the persistence contract of the reconciliation core. All write
// operations are idempotent on their natural keys: re-inserting an existing
// row is a silent skip, never an error.
type Store interface {
	// ExternalTransactions returns gateway transactions matching the
	// filter, ordered by id ascending.
	ExternalTransactions(ctx context.Context, filter ExternalTransactionFilter) ([]*models.ExternalTransaction, error)

	// Transactions returns internal transactions matching the filter,
	// ordered by id ascending.
	Transactions(ctx context.Context, filter TransactionFilter) ([]*models.Transaction, error)

	// CreateTransactions inserts report rows, skipping duplicates on
	// (userID, orderNo). Returns the number of rows actually inserted.
	CreateTransactions(ctx context.Context, transactions []*models.Transaction) (int64, error)

	// InsertMatches bulk-inserts match rows, skipping any row that would
	// violate the one-to-one uniqueness of either transaction reference.
	// Returns the number of rows actually inserted.
	InsertMatches(ctx context.Context, matches []models.Match) (int64, error)

	// Matches returns matches for the filter with joined transaction,
	// external transaction and user detail, ordered by creation time
	// descending. A nil pagination returns the full set.
	Matches(ctx context.Context, filter MatchFilter, page *Pagination) ([]models.Match, error)

	// CountMatches returns the total number of matches for the filter.
	CountMatches(ctx context.Context, filter MatchFilter) (int64, error)

	// UsersWithMatches returns users owning at least one matched internal
	// transaction in the range, ordered by id ascending.
	UsersWithMatches(ctx context.Context, r TimeRange, page *Pagination) ([]models.User, error)

	// CountUsersWithMatches returns the total for UsersWithMatches.
	CountUsersWithMatches(ctx context.Context, r TimeRange) (int64, error)
}
