package matcher

import (
	"sort"

	"p2p-reconciler/internal/models"

	"github.com/shopspring/decimal"
)

// TransactionIndex buckets internal transactions by total price so that
// candidate lookup for one external transaction touches a handful of rows
// instead of the whole window. Buckets are keyed by the price quantized to
// the tolerance width; a lookup scans the bucket of the probe amount plus
// its two neighbors, then applies the exact tolerance check.
type TransactionIndex struct {
	// All holds the indexed transactions in load order.
	All []*models.Transaction

	buckets map[int64][]indexEntry
	width   decimal.Decimal
}

type indexEntry struct {
	pos int
	tx  *models.Transaction
}

// minBucketWidth keeps buckets sane when the tolerance is zero.
var minBucketWidth = decimal.NewFromFloat(0.01)

// NewTransactionIndex builds an index over transactions with buckets sized
// to the given amount tolerance. Input order is preserved and observable in
// Candidates results.
func NewTransactionIndex(transactions []*models.Transaction, tolerance decimal.Decimal) *TransactionIndex {
	width := tolerance
	if width.LessThan(minBucketWidth) {
		width = minBucketWidth
	}

	idx := &TransactionIndex{
		All:     transactions,
		buckets: make(map[int64][]indexEntry),
		width:   width,
	}

	for pos, tx := range transactions {
		key := idx.bucketKey(tx.TotalPrice)
		idx.buckets[key] = append(idx.buckets[key], indexEntry{pos: pos, tx: tx})
	}

	return idx
}

func (idx *TransactionIndex) bucketKey(amount decimal.Decimal) int64 {
	return amount.Div(idx.width).Floor().IntPart()
}

// Candidates returns transactions whose total price is within tolerance of
// amount, in load order.
func (idx *TransactionIndex) Candidates(amount, tolerance decimal.Decimal) []*models.Transaction {
	center := idx.bucketKey(amount)

	var entries []indexEntry
	for key := center - 1; key <= center+1; key++ {
		entries = append(entries, idx.buckets[key]...)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].pos < entries[j].pos
	})

	var candidates []*models.Transaction
	for _, e := range entries {
		diff := e.tx.TotalPrice.Sub(amount).Abs()
		if diff.LessThanOrEqual(tolerance) {
			candidates = append(candidates, e.tx)
		}
	}

	return candidates
}

// Size returns the number of indexed transactions.
func (idx *TransactionIndex) Size() int {
	return len(idx.All)
}
