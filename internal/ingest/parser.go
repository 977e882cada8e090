// Package ingest parses user-uploaded P2P report exports and feeds them to
// the transaction store with at-most-once insertion per (user, order).
//
// Report exports vary by exchange: column names differ, numeric cells may
// carry currency symbols, and timestamps come in several formats. The
// parser normalizes headers through a column-alias table and treats row
// failures as recoverable, so one bad line never rejects a whole report.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"p2p-reconciler/internal/models"
	"p2p-reconciler/pkg/apperrors"
	"p2p-reconciler/pkg/logger"

	"github.com/shopspring/decimal"
)

// ParserConfig maps report columns to transaction fields.
type ParserConfig struct {
	OrderNoColumn      string `json:"order_no_column"`
	DateTimeColumn     string `json:"date_time_column"`
	TypeColumn         string `json:"type_column"`
	AssetColumn        string `json:"asset_column"`
	AmountColumn       string `json:"amount_column"`
	TotalPriceColumn   string `json:"total_price_column"`
	UnitPriceColumn    string `json:"unit_price_column"`
	CounterpartyColumn string `json:"counterparty_column"`
	StatusColumn       string `json:"status_column"`

	Delimiter rune `json:"-"`

	// ColumnAliases maps lowercased header names seen in the wild onto
	// canonical column names.
	ColumnAliases map[string]string `json:"column_aliases"`
}

// DefaultParserConfig returns the column mapping of the standard P2P
// export, with aliases for the common exchange variants.
func DefaultParserConfig() *ParserConfig {
	return &ParserConfig{
		OrderNoColumn:      "orderNo",
		DateTimeColumn:     "dateTime",
		TypeColumn:         "type",
		AssetColumn:        "asset",
		AmountColumn:       "amount",
		TotalPriceColumn:   "totalPrice",
		UnitPriceColumn:    "unitPrice",
		CounterpartyColumn: "counterparty",
		StatusColumn:       "status",
		Delimiter:          ',',
		ColumnAliases: map[string]string{
			"order no":     "orderNo",
			"order number": "orderNo",
			"order_no":     "orderNo",
			"order id":     "orderNo",
			"date":         "dateTime",
			"time":         "dateTime",
			"datetime":     "dateTime",
			"created time": "dateTime",
			"side":         "type",
			"trade type":   "type",
			"coin":         "asset",
			"crypto":       "asset",
			"quantity":     "amount",
			"crypto amount": "amount",
			"total":         "totalPrice",
			"fiat amount":   "totalPrice",
			"total price":   "totalPrice",
			"price":         "unitPrice",
			"unit price":    "unitPrice",
			"counter party": "counterparty",
			"maker":         "counterparty",
		},
	}
}

// Validate checks that the required column mappings are present.
func (c *ParserConfig) Validate() error {
	required := map[string]string{
		"order number column": c.OrderNoColumn,
		"date time column":    c.DateTimeColumn,
		"type column":         c.TypeColumn,
		"total price column":  c.TotalPriceColumn,
	}
	for name, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s cannot be empty", name)
		}
	}
	return nil
}

// ParseStats reports how a report file was consumed.
type ParseStats struct {
	TotalRows   int      `json:"total_rows"`
	ParsedRows  int      `json:"parsed_rows"`
	SkippedRows int      `json:"skipped_rows"`
	RowErrors   []string `json:"row_errors,omitempty"`
}

// ReportParser parses one P2P report export into transactions.
type ReportParser struct {
	config *ParserConfig
	logger logger.Logger
}

// NewReportParser creates a parser. A nil config selects the default
// column mapping.
func NewReportParser(config *ParserConfig) (*ReportParser, error) {
	if config == nil {
		config = DefaultParserConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, apperrors.ConfigurationError(apperrors.CodeInvalidConfig, "report parser", err)
	}

	return &ReportParser{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("report_parser"),
	}, nil
}

// Parse reads a CSV report and returns the transactions owned by userID.
// Row-level failures are recorded in the stats and skipped; only a missing
// header or an unreadable stream fails the parse.
func (p *ReportParser) Parse(r io.Reader, userID int64) ([]*models.Transaction, *ParseStats, error) {
	reader := csv.NewReader(r)
	reader.Comma = p.config.Delimiter
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.CategoryIngest, apperrors.CodeFileUnreadable,
			"failed to read report header")
	}

	columns, err := p.resolveColumns(header)
	if err != nil {
		return nil, nil, err
	}

	stats := &ParseStats{}
	var transactions []*models.Transaction

	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, apperrors.Wrap(err, apperrors.CategoryIngest, apperrors.CodeFileUnreadable,
				fmt.Sprintf("failed to read report line %d", line))
		}

		stats.TotalRows++

		tx, err := p.parseRow(record, columns, userID)
		if err != nil {
			stats.SkippedRows++
			stats.RowErrors = append(stats.RowErrors, fmt.Sprintf("line %d: %v", line, err))
			p.logger.WithField("line", line).WithError(err).Warn("Skipping unparsable report row")
			continue
		}

		transactions = append(transactions, tx)
		stats.ParsedRows++
	}

	return transactions, stats, nil
}

// resolveColumns maps canonical column names to field positions, applying
// the alias table to the raw header.
func (p *ReportParser) resolveColumns(header []string) (map[string]int, error) {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		canonical := strings.TrimSpace(name)
		if alias, ok := p.config.ColumnAliases[strings.ToLower(canonical)]; ok {
			canonical = alias
		}
		positions[canonical] = i
	}

	for _, required := range []string{
		p.config.OrderNoColumn,
		p.config.DateTimeColumn,
		p.config.TypeColumn,
		p.config.TotalPriceColumn,
	} {
		if _, ok := positions[required]; !ok {
			return nil, apperrors.New(apperrors.CategoryIngest, apperrors.CodeFileUnreadable,
				fmt.Sprintf("report is missing required column '%s'", required)).
				WithSuggestion("Check the export format or extend the column aliases")
		}
	}

	return positions, nil
}

func (p *ReportParser) parseRow(record []string, columns map[string]int, userID int64) (*models.Transaction, error) {
	field := func(column string) string {
		pos, ok := columns[column]
		if !ok || pos >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[pos])
	}

	dateTime, err := models.ParseTimeWithFormats(field(p.config.DateTimeColumn))
	if err != nil {
		return nil, err
	}

	txType, err := models.ParseTransactionType(field(p.config.TypeColumn))
	if err != nil {
		return nil, err
	}

	totalPrice, err := models.ParseDecimalFromString(field(p.config.TotalPriceColumn))
	if err != nil {
		return nil, err
	}

	tx := &models.Transaction{
		OrderNo:      field(p.config.OrderNoColumn),
		UserID:       userID,
		DateTime:     dateTime,
		Type:         txType,
		Asset:        field(p.config.AssetColumn),
		TotalPrice:   totalPrice,
		Counterparty: field(p.config.CounterpartyColumn),
		Status:       field(p.config.StatusColumn),
		Amount:       decimal.Zero,
		UnitPrice:    decimal.Zero,
	}

	// Amount and unit price are optional; some exports omit them.
	if v := field(p.config.AmountColumn); v != "" {
		if amount, err := models.ParseDecimalFromString(v); err == nil {
			tx.Amount = amount
		}
	}
	if v := field(p.config.UnitPriceColumn); v != "" {
		if price, err := models.ParseDecimalFromString(v); err == nil {
			tx.UnitPrice = price
		}
	}

	if err := tx.Validate(); err != nil {
		return nil, err
	}

	return tx, nil
}
