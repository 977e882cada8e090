package ingest

import (
	"context"
	"os"

	"p2p-reconciler/internal/storage"
	"p2p-reconciler/pkg/apperrors"
	"p2p-reconciler/pkg/logger"
)

// Ingestor parses report files and persists their rows.
type Ingestor struct {
	store  storage.Store
	parser *ReportParser
	logger logger.Logger
}

// Result reports one ingestion.
type Result struct {
	Stats *ParseStats `json:"stats"`

	// Inserted is the number of rows written; parsed rows already present
	// for the same (user, order) are silently skipped.
	Inserted int64 `json:"inserted"`
}

// NewIngestor creates an ingestor over the given store. A nil parser
// config selects the default column mapping.
func NewIngestor(store storage.Store, config *ParserConfig) (*Ingestor, error) {
	parser, err := NewReportParser(config)
	if err != nil {
		return nil, err
	}

	return &Ingestor{
		store:  store,
		parser: parser,
		logger: logger.GetGlobalLogger().WithComponent("ingestor"),
	}, nil
}

// IngestFile parses the report at path and inserts its transactions for
// userID.
func (ing *Ingestor) IngestFile(ctx context.Context, path string, userID int64) (*Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, apperrors.IngestError(apperrors.CodeFileUnreadable, path, err)
	}
	defer file.Close()

	transactions, stats, err := ing.parser.Parse(file, userID)
	if err != nil {
		return nil, err
	}

	inserted, err := ing.store.CreateTransactions(ctx, transactions)
	if err != nil {
		return nil, apperrors.StorageError(apperrors.CodeWriteFailed, "create transactions", err)
	}

	ing.logger.WithFields(logger.Fields{
		"file":     path,
		"user_id":  userID,
		"parsed":   stats.ParsedRows,
		"skipped":  stats.SkippedRows,
		"inserted": inserted,
	}).Info("Report ingested")

	return &Result{Stats: stats, Inserted: inserted}, nil
}
