package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"p2p-reconciler/internal/storage"
)

func writeReport(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "report.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write report fixture: %v", err)
	}
	return path
}

func TestIngestFile(t *testing.T) {
	store := storage.NewMemoryStore()
	ingestor, err := NewIngestor(store, nil)
	if err != nil {
		t.Fatalf("NewIngestor failed: %v", err)
	}

	path := writeReport(t, standardReport)

	result, err := ingestor.IngestFile(context.Background(), path, 42)
	if err != nil {
		t.Fatalf("IngestFile failed: %v", err)
	}

	if result.Inserted != 2 {
		t.Errorf("Inserted = %d, want 2", result.Inserted)
	}
	if result.Stats.ParsedRows != 2 {
		t.Errorf("ParsedRows = %d, want 2", result.Stats.ParsedRows)
	}

	stored, err := store.Transactions(context.Background(), storage.TransactionFilter{UserID: 42})
	if err != nil {
		t.Fatalf("Transactions failed: %v", err)
	}
	if len(stored) != 2 {
		t.Errorf("Expected 2 stored transactions, got %d", len(stored))
	}
}

func TestIngestFileIsIdempotent(t *testing.T) {
	store := storage.NewMemoryStore()
	ingestor, err := NewIngestor(store, nil)
	if err != nil {
		t.Fatalf("NewIngestor failed: %v", err)
	}

	path := writeReport(t, standardReport)

	if _, err := ingestor.IngestFile(context.Background(), path, 42); err != nil {
		t.Fatalf("first ingest failed: %v", err)
	}

	result, err := ingestor.IngestFile(context.Background(), path, 42)
	if err != nil {
		t.Fatalf("second ingest failed: %v", err)
	}
	if result.Inserted != 0 {
		t.Errorf("Inserted = %d on re-ingest, want 0", result.Inserted)
	}

	// The same report for a different user inserts fresh rows.
	result, err = ingestor.IngestFile(context.Background(), path, 43)
	if err != nil {
		t.Fatalf("ingest for second user failed: %v", err)
	}
	if result.Inserted != 2 {
		t.Errorf("Inserted = %d for a new user, want 2", result.Inserted)
	}
}

func TestIngestFileMissing(t *testing.T) {
	store := storage.NewMemoryStore()
	ingestor, err := NewIngestor(store, nil)
	if err != nil {
		t.Fatalf("NewIngestor failed: %v", err)
	}

	if _, err := ingestor.IngestFile(context.Background(), "/nonexistent/report.csv", 1); err == nil {
		t.Fatal("Expected a missing file to fail")
	}
}
