// Package stats holds the MatchStats aggregation shared by the matching
// engine's run summary and every read view of the query layer. The formula
// lives here exactly once; callers must not reimplement the arithmetic.
package stats

import (
	"fmt"

	"p2p-reconciler/internal/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// MatchStats aggregates the financial metrics of a set of matches.
type MatchStats struct {
	MatchedCount     int             `json:"matched_count"`
	GrossExpense     decimal.Decimal `json:"gross_expense"`
	GrossIncome      decimal.Decimal `json:"gross_income"`
	GrossProfit      decimal.Decimal `json:"gross_profit"`
	ProfitPercentage decimal.Decimal `json:"profit_percentage"`
	ProfitPerOrder   decimal.Decimal `json:"profit_per_order"`
	ExpensePerOrder  decimal.Decimal `json:"expense_per_order"`
}

// Compute aggregates statistics over a set of matches. All ratio metrics
// are zero-guarded: an empty set or zero total expense yields zero, never
// NaN or infinity.
func Compute(matches []models.Match) MatchStats {
	s := MatchStats{
		MatchedCount:     len(matches),
		GrossExpense:     decimal.Zero,
		GrossIncome:      decimal.Zero,
		GrossProfit:      decimal.Zero,
		ProfitPercentage: decimal.Zero,
		ProfitPerOrder:   decimal.Zero,
		ExpensePerOrder:  decimal.Zero,
	}

	for _, m := range matches {
		s.GrossExpense = s.GrossExpense.Add(m.GrossExpense)
		s.GrossIncome = s.GrossIncome.Add(m.GrossIncome)
		s.GrossProfit = s.GrossProfit.Add(m.GrossProfit)
	}

	if !s.GrossExpense.IsZero() {
		s.ProfitPercentage = s.GrossProfit.Div(s.GrossExpense).Mul(hundred)
	}

	if s.MatchedCount > 0 {
		count := decimal.NewFromInt(int64(s.MatchedCount))
		s.ProfitPerOrder = s.GrossProfit.Div(count)
		s.ExpensePerOrder = s.GrossExpense.Div(count)
	}

	return s
}

// String returns a human-readable one-line summary.
func (s MatchStats) String() string {
	return fmt.Sprintf("MatchStats{Matched: %d, Expense: %s, Income: %s, Profit: %s (%s%%)}",
		s.MatchedCount, s.GrossExpense.StringFixed(2), s.GrossIncome.StringFixed(2),
		s.GrossProfit.StringFixed(2), s.ProfitPercentage.StringFixed(2))
}
