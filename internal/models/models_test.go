package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseTransactionType(t *testing.T) {
	tests := []struct {
		input    string
		expected TransactionType
		wantErr  bool
	}{
		{"BUY", TransactionTypeBuy, false},
		{"buy", TransactionTypeBuy, false},
		{" B ", TransactionTypeBuy, false},
		{"SELL", TransactionTypeSell, false},
		{"s", TransactionTypeSell, false},
		{"TRANSFER", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseTransactionType(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseTransactionType(%q) expected error, got %v", tt.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTransactionType(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.expected {
			t.Errorf("ParseTransactionType(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestParseDecimalFromString(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{"100.50", "100.50", false},
		{"$1,250.00", "1250.00", false},
		{"₽150.50", "150.50", false},
		{" 42 ", "42", false},
		{"-997.5", "-997.5", false},
		{"", "", true},
		{"abc", "", true},
	}

	for _, tt := range tests {
		got, err := ParseDecimalFromString(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseDecimalFromString(%q) expected error, got %s", tt.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDecimalFromString(%q) unexpected error: %v", tt.input, err)
			continue
		}
		want, _ := decimal.NewFromString(tt.expected)
		if !got.Equal(want) {
			t.Errorf("ParseDecimalFromString(%q) = %s, want %s", tt.input, got, want)
		}
	}
}

func TestParseTimeWithFormats(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"2024-01-15T10:30:00Z", false},
		{"2024-01-15 10:30:00", false},
		{"2024-01-15", false},
		{"15.01.2024 10:30:00", false},
		{"not a time", true},
		{"", true},
	}

	for _, tt := range tests {
		got, err := ParseTimeWithFormats(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseTimeWithFormats(%q) expected error, got %v", tt.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTimeWithFormats(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if got.IsZero() {
			t.Errorf("ParseTimeWithFormats(%q) returned zero time", tt.input)
		}
	}

	// Date-only parses to midnight.
	got, err := ParseTimeWithFormats("2024-01-15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseTimeWithFormats(2024-01-15) = %v, want %v", got, want)
	}
}

func TestTransactionValidate(t *testing.T) {
	valid := Transaction{
		OrderNo:    "ORD-1",
		UserID:     1,
		DateTime:   time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		Type:       TransactionTypeSell,
		TotalPrice: decimal.NewFromInt(1000),
	}

	if err := valid.Validate(); err != nil {
		t.Errorf("valid transaction rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(tx *Transaction)
	}{
		{"empty order no", func(tx *Transaction) { tx.OrderNo = "  " }},
		{"missing user", func(tx *Transaction) { tx.UserID = 0 }},
		{"invalid type", func(tx *Transaction) { tx.Type = "HOLD" }},
		{"zero time", func(tx *Transaction) { tx.DateTime = time.Time{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := valid
			tt.mutate(&tx)
			if err := tx.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestExternalTransactionApproved(t *testing.T) {
	e := &ExternalTransaction{ID: 1, ExternalID: 100}
	if e.Approved() {
		t.Error("Expected nil approval time to be unapproved")
	}

	zero := time.Time{}
	e.ApprovedAt = &zero
	if e.Approved() {
		t.Error("Expected zero approval time to be unapproved")
	}

	now := time.Now()
	e.ApprovedAt = &now
	if !e.Approved() {
		t.Error("Expected set approval time to be approved")
	}
}
