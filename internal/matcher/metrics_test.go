package matcher

import (
	"testing"
	"time"

	"p2p-reconciler/internal/models"

	"github.com/shopspring/decimal"
)

func TestComputeMatchMetrics(t *testing.T) {
	commission := decimal.NewFromFloat(1.009)

	tx := &models.Transaction{
		ID:         1,
		TotalPrice: decimal.NewFromInt(1000),
	}
	approved := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	ext := &models.ExternalTransaction{
		ID:         1,
		Total:      models.NewPayload(`{"trader": {"000001": 11.5}}`),
		ApprovedAt: &approved,
	}

	m := ComputeMatchMetrics(tx, ext, commission)

	if !m.IncomeAvailable {
		t.Fatal("Expected income to be available")
	}
	if !m.GrossExpense.Equal(decimal.NewFromInt(1009)) {
		t.Errorf("GrossExpense = %s, want 1009", m.GrossExpense)
	}
	if !m.GrossIncome.Equal(decimal.NewFromFloat(11.5)) {
		t.Errorf("GrossIncome = %s, want 11.5", m.GrossIncome)
	}
	if !m.GrossProfit.Equal(decimal.NewFromFloat(-997.5)) {
		t.Errorf("GrossProfit = %s, want -997.5", m.GrossProfit)
	}

	// -997.5 / 1009 × 100 ≈ -98.86%
	wantPct := decimal.NewFromFloat(-997.5).Div(decimal.NewFromInt(1009)).Mul(decimal.NewFromInt(100))
	if !m.ProfitPercentage.Equal(wantPct) {
		t.Errorf("ProfitPercentage = %s, want %s", m.ProfitPercentage, wantPct)
	}
	if m.ProfitPercentage.Round(2).String() != "-98.86" {
		t.Errorf("ProfitPercentage rounds to %s, want -98.86", m.ProfitPercentage.Round(2))
	}
}

func TestComputeMatchMetricsUnavailableIncome(t *testing.T) {
	tx := &models.Transaction{TotalPrice: decimal.NewFromInt(100)}
	ext := &models.ExternalTransaction{Total: models.NewPayload("not json")}

	m := ComputeMatchMetrics(tx, ext, decimal.NewFromFloat(1.009))

	if m.IncomeAvailable {
		t.Error("Expected income to be unavailable")
	}
	if !m.GrossIncome.IsZero() {
		t.Errorf("GrossIncome = %s, want 0", m.GrossIncome)
	}
	if !m.GrossProfit.Equal(decimal.NewFromFloat(-100.9)) {
		t.Errorf("GrossProfit = %s, want -100.9", m.GrossProfit)
	}
}

func TestComputeMatchMetricsZeroExpense(t *testing.T) {
	tx := &models.Transaction{TotalPrice: decimal.Zero}
	ext := &models.ExternalTransaction{Total: models.NewPayload(`{"trader": {"000001": "5"}}`)}

	m := ComputeMatchMetrics(tx, ext, decimal.NewFromFloat(1.009))

	if !m.ProfitPercentage.IsZero() {
		t.Errorf("ProfitPercentage = %s, want 0 when expense is zero", m.ProfitPercentage)
	}
	if !m.GrossProfit.Equal(decimal.NewFromInt(5)) {
		t.Errorf("GrossProfit = %s, want 5", m.GrossProfit)
	}
}
