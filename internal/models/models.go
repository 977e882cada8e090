// Package models defines the domain entities shared by the matching engine,
// the query layer and the storage drivers.
//
// Two transaction streams exist:
//   - ExternalTransaction: a payout record synced from the payment gateway.
//   - Transaction: a P2P trade row ingested from a user-uploaded report.
//
// A Match is the persisted one-to-one pairing between the two, decorated
// with the financial metrics computed at match time.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Currency codes used inside gateway payloads.
const (
	// CurrencyRUB keys the ruble value carried by the amount payload.
	CurrencyRUB = "643"
	// CurrencyUSDT keys the stable-value total carried by the total payload.
	CurrencyUSDT = "000001"
)

// TransactionType represents the trade side of a P2P transaction.
type TransactionType string

const (
	TransactionTypeBuy  TransactionType = "BUY"
	TransactionTypeSell TransactionType = "SELL"
)

// String returns the string representation of TransactionType
func (t TransactionType) String() string {
	return string(t)
}

// IsValid checks if the transaction type is valid
func (t TransactionType) IsValid() bool {
	return t == TransactionTypeBuy || t == TransactionTypeSell
}

// ParseTransactionType parses and validates a trade side from string
func ParseTransactionType(s string) (TransactionType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY", "B":
		return TransactionTypeBuy, nil
	case "SELL", "S":
		return TransactionTypeSell, nil
	default:
		return "", fmt.Errorf("invalid transaction type '%s': must be BUY or SELL", s)
	}
}

// User owns internal transactions. Account management lives outside this
// service; only the fields the query layer renders are carried here.
type User struct {
	ID        int64
	Username  string
	CreatedAt time.Time
}

// Cabinet is the gateway account an external transaction belongs to.
type Cabinet struct {
	ID     int64
	IdexID int64
	Login  string
}

// ExternalTransaction represents one payment-gateway payout synced by the
// external collaborator. Amount and Total are polymorphic payloads; see
// Payload. Only rows with a non-nil ApprovedAt are matchable.
type ExternalTransaction struct {
	ID         int64
	ExternalID int64
	CabinetID  int64
	Amount     Payload
	Total      Payload
	Status     int
	ApprovedAt *time.Time
}

// Approved reports whether the transaction has an approval timestamp.
func (e *ExternalTransaction) Approved() bool {
	return e.ApprovedAt != nil && !e.ApprovedAt.IsZero()
}

// String returns a string representation of the ExternalTransaction
func (e *ExternalTransaction) String() string {
	approved := "unapproved"
	if e.Approved() {
		approved = e.ApprovedAt.Format(time.RFC3339)
	}
	return fmt.Sprintf("ExternalTransaction{ID: %d, ExternalID: %d, Cabinet: %d, ApprovedAt: %s}",
		e.ID, e.ExternalID, e.CabinetID, approved)
}

// Transaction represents one row of a user-uploaded P2P report.
type Transaction struct {
	ID           int64
	OrderNo      string
	UserID       int64
	DateTime     time.Time
	Type         TransactionType
	Asset        string
	Amount       decimal.Decimal
	TotalPrice   decimal.Decimal
	UnitPrice    decimal.Decimal
	Counterparty string
	Status       string
}

// Validate performs basic validation on the Transaction
func (t *Transaction) Validate() error {
	if strings.TrimSpace(t.OrderNo) == "" {
		return fmt.Errorf("transaction order number cannot be empty")
	}

	if t.UserID <= 0 {
		return fmt.Errorf("transaction must belong to a user")
	}

	if !t.Type.IsValid() {
		return fmt.Errorf("invalid transaction type: %s", t.Type)
	}

	if t.DateTime.IsZero() {
		return fmt.Errorf("transaction time cannot be zero")
	}

	return nil
}

// String returns a string representation of the Transaction
func (t *Transaction) String() string {
	return fmt.Sprintf("Transaction{ID: %d, OrderNo: %s, User: %d, TotalPrice: %s, Time: %s}",
		t.ID, t.OrderNo, t.UserID, t.TotalPrice.String(), t.DateTime.Format(time.RFC3339))
}

// Match is a persisted one-to-one pairing between one external and one
// internal transaction. TimeDifference is in seconds. Metric fields are
// computed once at match time and never updated.
type Match struct {
	ID                    int64
	ExternalTransactionID int64
	TransactionID         int64
	TimeDifference        int64
	GrossExpense          decimal.Decimal
	GrossIncome           decimal.Decimal
	GrossProfit           decimal.Decimal
	ProfitPercentage      decimal.Decimal
	CreatedAt             time.Time

	// Joined detail, populated by storage drivers on read views.
	ExternalTransaction *ExternalTransaction
	Transaction         *Transaction
	User                *User
}

// String returns a string representation of the Match
func (m *Match) String() string {
	return fmt.Sprintf("Match{External: %d, Transaction: %d, TimeDiff: %ds, Profit: %s}",
		m.ExternalTransactionID, m.TransactionID, m.TimeDifference, m.GrossProfit.String())
}

// ParseDecimalFromString parses a decimal value from string, stripping
// currency symbols and thousand separators commonly found in report files.
func ParseDecimalFromString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "₽", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format '%s': %w", s, err)
	}

	return d, nil
}

// ParseTimeWithFormats attempts to parse time from string using the formats
// seen in gateway responses and exchange report exports.
func ParseTimeWithFormats(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("time string cannot be empty")
	}

	formats := []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
		"02-01-2006 15:04:05",
		"02.01.2006 15:04:05",
		"01/02/2006 15:04:05",
	}

	var lastErr error
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse time '%s': %w", s, lastErr)
}
