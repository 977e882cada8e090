package matcher

import (
	"fmt"
	"time"

	"p2p-reconciler/internal/models"
	"p2p-reconciler/internal/stats"
	"p2p-reconciler/pkg/logger"
)

// Engine pairs external gateway transactions with internal P2P transactions
// loaded for one time window. All pairing state is function-local to one
// Reconcile call; the engine itself only carries configuration, loaded data
// and a logger.
type Engine struct {
	config *Config
	logger logger.Logger

	externals       []*models.ExternalTransaction
	externalsLoaded bool
	index           *TransactionIndex
}

// Result is the outcome of one reconciliation pass. Pending rows have not
// been persisted; the caller owns the insert.
type Result struct {
	// Pending holds the match rows produced by this pass, in pairing order.
	Pending []models.Match

	// SkippedExternals counts external transactions whose amount payload
	// could not be extracted.
	SkippedExternals int

	// IncompletePairs counts matched pairs whose income payload was
	// unavailable and recorded as zero.
	IncompletePairs int

	UnmatchedExternals    int
	UnmatchedTransactions int

	// Stats aggregates the pending matches of this pass only.
	Stats stats.MatchStats
}

// NewEngine creates a matching engine. A nil config selects the default
// policy.
func NewEngine(config *Config) *Engine {
	if config == nil {
		config = DefaultConfig()
	}

	return &Engine{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("matcher"),
	}
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() *Config {
	return e.config.Clone()
}

// LoadExternalTransactions loads the gateway side of the window. Iteration
// order follows input order, so callers wanting deterministic runs must
// pass rows sorted by id. An empty window is a valid load.
func (e *Engine) LoadExternalTransactions(externals []*models.ExternalTransaction) {
	e.externals = externals
	e.externalsLoaded = true
}

// LoadTransactions loads the internal side of the window and builds the
// amount index.
func (e *Engine) LoadTransactions(transactions []*models.Transaction) {
	e.index = NewTransactionIndex(transactions, e.config.AmountTolerance)
}

// Reconcile runs one greedy pairing pass over the loaded data.
//
// Each external transaction is considered once, in load order. Its
// candidates are the unmatched internal transactions within the amount
// tolerance whose trade time lies within the minutes threshold of the
// approval time; the closest-in-time candidate wins, ties going to the
// first encountered. Both sides of an accepted pair are excluded from the
// rest of the pass, which makes the result one-to-one.
//
// Per-item failures (unextractable payloads) are logged and skipped, never
// fatal. Reconcile only fails when data was not loaded.
func (e *Engine) Reconcile() (*Result, error) {
	if !e.externalsLoaded {
		return nil, fmt.Errorf("external transactions must be loaded before reconciliation")
	}

	if e.index == nil {
		return nil, fmt.Errorf("transactions must be loaded before reconciliation")
	}

	matchedExternals := make(map[int64]bool)
	matchedTransactions := make(map[int64]bool)

	result := &Result{}

	for _, ext := range e.externals {
		if matchedExternals[ext.ID] {
			continue
		}
		if !ext.Approved() {
			continue
		}

		amount, ok := models.ExtractAmount(ext.Amount, models.CurrencyRUB)
		if !ok {
			e.logger.WithField("external_id", ext.ExternalID).
				Warn("Skipping external transaction with unreadable amount payload")
			result.SkippedExternals++
			continue
		}

		var best *models.Transaction
		var bestMinutes int64

		for _, tx := range e.index.Candidates(amount, e.config.AmountTolerance) {
			if matchedTransactions[tx.ID] {
				continue
			}

			minutes := timeDifferenceMinutes(*ext.ApprovedAt, tx.DateTime)
			if minutes > int64(e.config.MinutesThreshold) {
				continue
			}

			// Strict comparison keeps the first candidate on ties.
			if best == nil || minutes < bestMinutes {
				best = tx
				bestMinutes = minutes
			}
		}

		if best == nil {
			continue
		}

		matchedExternals[ext.ID] = true
		matchedTransactions[best.ID] = true

		metrics := ComputeMatchMetrics(best, ext, e.config.Commission)
		if !metrics.IncomeAvailable {
			e.logger.WithField("external_id", ext.ExternalID).
				Warn("Matched pair has unreadable total payload; income recorded as zero")
			result.IncompletePairs++
		}

		result.Pending = append(result.Pending, models.Match{
			ExternalTransactionID: ext.ID,
			TransactionID:         best.ID,
			TimeDifference:        bestMinutes * 60,
			GrossExpense:          metrics.GrossExpense,
			GrossIncome:           metrics.GrossIncome,
			GrossProfit:           metrics.GrossProfit,
			ProfitPercentage:      metrics.ProfitPercentage,
		})
	}

	for _, ext := range e.externals {
		if !matchedExternals[ext.ID] {
			result.UnmatchedExternals++
		}
	}

	for _, tx := range e.index.All {
		if !matchedTransactions[tx.ID] {
			result.UnmatchedTransactions++
		}
	}

	result.Stats = stats.Compute(result.Pending)

	e.logger.WithFields(logger.Fields{
		"externals":    len(e.externals),
		"transactions": e.index.Size(),
		"matched":      len(result.Pending),
		"skipped":      result.SkippedExternals,
	}).Info("Reconciliation pass complete")

	return result, nil
}

// timeDifferenceMinutes returns the absolute gap between two instants in
// whole minutes. Truncation, not rounding: a 30m59s gap still counts as 30
// minutes, which keeps stored time differences comparable with historical
// match rows.
func timeDifferenceMinutes(a, b time.Time) int64 {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return int64(d / time.Minute)
}
