package matcher

import (
	"testing"
	"time"

	"p2p-reconciler/internal/models"

	"github.com/shopspring/decimal"
)

func indexTransactions(prices ...float64) []*models.Transaction {
	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	txs := make([]*models.Transaction, 0, len(prices))
	for i, price := range prices {
		txs = append(txs, &models.Transaction{
			ID:         int64(i + 1),
			OrderNo:    "ORD-" + decimal.NewFromInt(int64(i+1)).String(),
			UserID:     1,
			DateTime:   base,
			Type:       models.TransactionTypeSell,
			TotalPrice: decimal.NewFromFloat(price),
		})
	}
	return txs
}

func TestTransactionIndexCandidates(t *testing.T) {
	tolerance := decimal.NewFromFloat(0.01)
	idx := NewTransactionIndex(indexTransactions(100.00, 100.01, 100.02, 250.00), tolerance)

	if idx.Size() != 4 {
		t.Fatalf("Size() = %d, want 4", idx.Size())
	}

	candidates := idx.Candidates(decimal.NewFromFloat(100.01), tolerance)
	if len(candidates) != 3 {
		t.Fatalf("Expected 3 candidates within tolerance of 100.01, got %d", len(candidates))
	}

	// Load order must be preserved.
	for i, want := range []int64{1, 2, 3} {
		if candidates[i].ID != want {
			t.Errorf("candidates[%d].ID = %d, want %d", i, candidates[i].ID, want)
		}
	}

	candidates = idx.Candidates(decimal.NewFromFloat(250.00), tolerance)
	if len(candidates) != 1 || candidates[0].ID != 4 {
		t.Errorf("Expected only the 250.00 transaction, got %v", candidates)
	}

	candidates = idx.Candidates(decimal.NewFromFloat(500.00), tolerance)
	if len(candidates) != 0 {
		t.Errorf("Expected no candidates for 500.00, got %d", len(candidates))
	}
}

func TestTransactionIndexToleranceBoundary(t *testing.T) {
	tolerance := decimal.NewFromFloat(0.01)
	idx := NewTransactionIndex(indexTransactions(100.00), tolerance)

	// Exactly at the tolerance is still a candidate.
	if got := idx.Candidates(decimal.NewFromFloat(100.01), tolerance); len(got) != 1 {
		t.Errorf("Expected a candidate at exactly 0.01 difference, got %d", len(got))
	}

	if got := idx.Candidates(decimal.NewFromFloat(100.02), tolerance); len(got) != 0 {
		t.Errorf("Expected no candidate at 0.02 difference, got %d", len(got))
	}
}

func TestTransactionIndexZeroTolerance(t *testing.T) {
	tolerance := decimal.Zero
	idx := NewTransactionIndex(indexTransactions(100.00, 100.01), tolerance)

	got := idx.Candidates(decimal.NewFromFloat(100.00), tolerance)
	if len(got) != 1 || got[0].ID != 1 {
		t.Errorf("Expected exactly the equal-price transaction, got %v", got)
	}
}
