// Package reconciler orchestrates reconciliation runs and serves the read
// views over persisted matches.
//
// A run is a synchronous batch over one closed time window: load both
// transaction streams, pair them with the matching engine, persist the
// accepted matches idempotently, and return the run summary. Runs are
// serialized by a single-flight guard because pairing state is held in
// memory per run; the uniqueness constraints at insert time remain the last
// line of defense against duplicates.
package reconciler

import (
	"context"
	"sync"

	"p2p-reconciler/internal/matcher"
	"p2p-reconciler/internal/models"
	"p2p-reconciler/internal/stats"
	"p2p-reconciler/internal/storage"
	"p2p-reconciler/pkg/apperrors"
	"p2p-reconciler/pkg/logger"
)

// Service is the public entry point of the reconciliation core.
type Service struct {
	store  storage.Store
	config *matcher.Config
	logger logger.Logger

	mu      sync.Mutex
	running bool
}

// RunSummary reports the outcome of one reconciliation run.
type RunSummary struct {
	Stats stats.MatchStats `json:"stats"`

	// Inserted is the number of match rows actually written; it is lower
	// than Stats.MatchedCount when a re-run over an overlapping window
	// skipped duplicates.
	Inserted int64 `json:"inserted"`

	ExternalsLoaded    int `json:"externals_loaded"`
	TransactionsLoaded int `json:"transactions_loaded"`
	SkippedExternals   int `json:"skipped_externals"`
	IncompletePairs    int `json:"incomplete_pairs"`
	UnmatchedExternals int `json:"unmatched_externals"`

	Window storage.TimeRange `json:"-"`
}

// NewService creates a reconciliation service. A nil config selects the
// default matching policy.
func NewService(store storage.Store, config *matcher.Config) (*Service, error) {
	if config == nil {
		config = matcher.DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, apperrors.ConfigurationError(apperrors.CodeInvalidConfig, "matching", err)
	}

	return &Service{
		store:  store,
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("reconciler"),
	}, nil
}

// ParseDateRange parses the ISO-8601 boundary strings of the public entry
// points into a validated time range.
func ParseDateRange(startDate, endDate string) (storage.TimeRange, error) {
	start, err := models.ParseTimeWithFormats(startDate)
	if err != nil {
		return storage.TimeRange{}, apperrors.ValidationError(apperrors.CodeInvalidDateRange, "start date", err)
	}

	end, err := models.ParseTimeWithFormats(endDate)
	if err != nil {
		return storage.TimeRange{}, apperrors.ValidationError(apperrors.CodeInvalidDateRange, "end date", err)
	}

	r := storage.TimeRange{Start: start, End: end}
	if err := r.Validate(); err != nil {
		return storage.TimeRange{}, apperrors.ValidationError(apperrors.CodeInvalidDateRange, "date range", err)
	}

	return r, nil
}

// MatchTransactions runs one reconciliation over [startDate, endDate] and
// persists the accepted matches. The returned summary covers this run's
// pairs only, not the historical match set.
//
// The date range is validated before any data load. Load or write failures
// are fatal for the run and no summary is returned alongside them.
func (s *Service) MatchTransactions(ctx context.Context, startDate, endDate string) (*RunSummary, error) {
	window, err := ParseDateRange(startDate, endDate)
	if err != nil {
		return nil, err
	}

	if !s.tryAcquire() {
		return nil, apperrors.New(apperrors.CategoryReconciliation, apperrors.CodeRunInProgress,
			"a reconciliation run is already in progress").
			WithSuggestion("Wait for the current run to finish and retry")
	}
	defer s.release()

	s.logger.WithFields(logger.Fields{
		"start": window.Start,
		"end":   window.End,
	}).Info("Starting reconciliation run")

	externals, transactions, err := s.loadWindow(ctx, window)
	if err != nil {
		return nil, err
	}

	engine := matcher.NewEngine(s.config)
	engine.LoadExternalTransactions(externals)
	engine.LoadTransactions(transactions)

	result, err := engine.Reconcile()
	if err != nil {
		return nil, apperrors.ReconciliationError(apperrors.CodeMatchingFailed, "matching pass failed", err)
	}

	inserted, err := s.store.InsertMatches(ctx, result.Pending)
	if err != nil {
		return nil, apperrors.StorageError(apperrors.CodeWriteFailed, "insert matches", err)
	}

	if skipped := int64(len(result.Pending)) - inserted; skipped > 0 {
		s.logger.WithField("skipped", skipped).Info("Duplicate matches skipped on insert")
	}

	return &RunSummary{
		Stats:              result.Stats,
		Inserted:           inserted,
		ExternalsLoaded:    len(externals),
		TransactionsLoaded: len(transactions),
		SkippedExternals:   result.SkippedExternals,
		IncompletePairs:    result.IncompletePairs,
		UnmatchedExternals: result.UnmatchedExternals,
		Window:             window,
	}, nil
}

// loadWindow loads both transaction streams concurrently. The loads have no
// dependency on each other but both must succeed before pairing begins.
func (s *Service) loadWindow(ctx context.Context, window storage.TimeRange) ([]*models.ExternalTransaction, []*models.Transaction, error) {
	var (
		wg           sync.WaitGroup
		externals    []*models.ExternalTransaction
		transactions []*models.Transaction
		extErr       error
		txErr        error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		externals, extErr = s.store.ExternalTransactions(ctx, storage.ExternalTransactionFilter{
			ApprovedWithin: &window,
		})
	}()
	go func() {
		defer wg.Done()
		transactions, txErr = s.store.Transactions(ctx, storage.TransactionFilter{
			Within: &window,
		})
	}()
	wg.Wait()

	if extErr != nil {
		return nil, nil, apperrors.StorageError(apperrors.CodeReadFailed, "load external transactions", extErr)
	}
	if txErr != nil {
		return nil, nil, apperrors.StorageError(apperrors.CodeReadFailed, "load transactions", txErr)
	}

	s.logger.WithFields(logger.Fields{
		"externals":    len(externals),
		"transactions": len(transactions),
	}).Debug("Window loaded")

	return externals, transactions, nil
}

func (s *Service) tryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *Service) release() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}
