package matcher

import (
	"p2p-reconciler/internal/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// MatchMetrics carries the per-pair financial metrics recorded on a match.
type MatchMetrics struct {
	GrossExpense     decimal.Decimal
	GrossIncome      decimal.Decimal
	GrossProfit      decimal.Decimal
	ProfitPercentage decimal.Decimal

	// IncomeAvailable is false when the gateway total payload could not be
	// extracted; the pair is still matched but its income counted as zero.
	IncomeAvailable bool
}

// ComputeMatchMetrics computes the financial metrics for one paired
// (internal, external) transaction:
//
//	grossExpense = totalPrice × commission
//	grossIncome  = total payload value keyed by the stable-value unit
//	grossProfit  = grossIncome − grossExpense
//
// ProfitPercentage is zero-guarded: a zero expense yields zero, never a
// division failure. Pure function, no I/O.
func ComputeMatchMetrics(tx *models.Transaction, ext *models.ExternalTransaction, commission decimal.Decimal) MatchMetrics {
	m := MatchMetrics{
		GrossExpense:     tx.TotalPrice.Mul(commission),
		ProfitPercentage: decimal.Zero,
	}

	income, ok := models.ExtractAmount(ext.Total, models.CurrencyUSDT)
	m.IncomeAvailable = ok
	if ok {
		m.GrossIncome = income
	} else {
		m.GrossIncome = decimal.Zero
	}

	m.GrossProfit = m.GrossIncome.Sub(m.GrossExpense)

	if !m.GrossExpense.IsZero() {
		m.ProfitPercentage = m.GrossProfit.Div(m.GrossExpense).Mul(hundred)
	}

	return m
}
