package stats

import (
	"testing"

	"p2p-reconciler/internal/models"

	"github.com/shopspring/decimal"
)

func matchWith(expense, income float64) models.Match {
	e := decimal.NewFromFloat(expense)
	i := decimal.NewFromFloat(income)
	return models.Match{
		GrossExpense: e,
		GrossIncome:  i,
		GrossProfit:  i.Sub(e),
	}
}

func TestComputeEmpty(t *testing.T) {
	s := Compute(nil)

	if s.MatchedCount != 0 {
		t.Errorf("MatchedCount = %d, want 0", s.MatchedCount)
	}
	for name, value := range map[string]decimal.Decimal{
		"GrossExpense":     s.GrossExpense,
		"GrossIncome":      s.GrossIncome,
		"GrossProfit":      s.GrossProfit,
		"ProfitPercentage": s.ProfitPercentage,
		"ProfitPerOrder":   s.ProfitPerOrder,
		"ExpensePerOrder":  s.ExpensePerOrder,
	} {
		if !value.IsZero() {
			t.Errorf("%s = %s, want 0 for an empty set", name, value)
		}
	}
}

func TestComputeAggregation(t *testing.T) {
	matches := []models.Match{
		matchWith(100, 110),
		matchWith(200, 190),
		matchWith(100, 100),
	}

	s := Compute(matches)

	if s.MatchedCount != 3 {
		t.Errorf("MatchedCount = %d, want 3", s.MatchedCount)
	}
	if !s.GrossExpense.Equal(decimal.NewFromInt(400)) {
		t.Errorf("GrossExpense = %s, want 400", s.GrossExpense)
	}
	if !s.GrossIncome.Equal(decimal.NewFromInt(400)) {
		t.Errorf("GrossIncome = %s, want 400", s.GrossIncome)
	}
	if !s.GrossProfit.IsZero() {
		t.Errorf("GrossProfit = %s, want 0", s.GrossProfit)
	}
	if !s.ProfitPercentage.IsZero() {
		t.Errorf("ProfitPercentage = %s, want 0", s.ProfitPercentage)
	}
}

func TestComputeProfitPercentage(t *testing.T) {
	s := Compute([]models.Match{matchWith(200, 250)})

	// 50 profit over 200 expense is 25%.
	if !s.ProfitPercentage.Equal(decimal.NewFromInt(25)) {
		t.Errorf("ProfitPercentage = %s, want 25", s.ProfitPercentage)
	}
	if !s.ProfitPerOrder.Equal(decimal.NewFromInt(50)) {
		t.Errorf("ProfitPerOrder = %s, want 50", s.ProfitPerOrder)
	}
	if !s.ExpensePerOrder.Equal(decimal.NewFromInt(200)) {
		t.Errorf("ExpensePerOrder = %s, want 200", s.ExpensePerOrder)
	}
}

func TestComputeZeroExpenseGuard(t *testing.T) {
	// Profit with no expense must not divide by zero.
	s := Compute([]models.Match{matchWith(0, 42)})

	if !s.ProfitPercentage.IsZero() {
		t.Errorf("ProfitPercentage = %s, want 0 when expense is zero", s.ProfitPercentage)
	}
	if !s.GrossProfit.Equal(decimal.NewFromInt(42)) {
		t.Errorf("GrossProfit = %s, want 42", s.GrossProfit)
	}
}
