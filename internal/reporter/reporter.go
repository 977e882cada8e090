// Package reporter renders reconciliation results for the CLI, either as
// human-readable console output or as JSON for programmatic consumption.
package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"p2p-reconciler/internal/models"
	"p2p-reconciler/internal/reconciler"
	"p2p-reconciler/internal/stats"
)

// Format represents the supported output formats.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// IsValid checks if the output format is supported
func (f Format) IsValid() bool {
	return f == FormatConsole || f == FormatJSON
}

// Reporter renders reconciliation results in one output format.
type Reporter struct {
	format Format
}

// New creates a reporter for the given format.
func New(format Format) (*Reporter, error) {
	if !format.IsValid() {
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
	return &Reporter{format: format}, nil
}

// RenderRunSummary writes the outcome of one reconciliation run.
func (r *Reporter) RenderRunSummary(w io.Writer, summary *reconciler.RunSummary) error {
	if r.format == FormatJSON {
		return writeJSON(w, summary)
	}

	fmt.Fprintf(w, "Reconciliation run %s .. %s\n",
		summary.Window.Start.Format(time.RFC3339), summary.Window.End.Format(time.RFC3339))
	fmt.Fprintf(w, "  externals loaded:    %d\n", summary.ExternalsLoaded)
	fmt.Fprintf(w, "  transactions loaded: %d\n", summary.TransactionsLoaded)
	fmt.Fprintf(w, "  matched:             %d (%d new)\n", summary.Stats.MatchedCount, summary.Inserted)
	fmt.Fprintf(w, "  skipped externals:   %d\n", summary.SkippedExternals)
	if summary.IncompletePairs > 0 {
		fmt.Fprintf(w, "  incomplete pairs:    %d\n", summary.IncompletePairs)
	}
	fmt.Fprintln(w)

	renderStats(w, summary.Stats)
	return nil
}

// RenderMatchPage writes one page of matches with set-wide statistics.
func (r *Reporter) RenderMatchPage(w io.Writer, page *reconciler.MatchPage) error {
	if r.format == FormatJSON {
		return writeJSON(w, page)
	}

	fmt.Fprintf(w, "Matches (page %d of %d)\n\n", page.CurrentPage, page.TotalPages)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "USER\tORDER\tGATEWAY AMOUNT\tEXPENSE\tINCOME\tPROFIT\tGAP")
	for i := range page.Matches {
		m := &page.Matches[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			matchUser(m), matchOrder(m), gatewayAmount(m),
			m.GrossExpense.StringFixed(2), m.GrossIncome.StringFixed(2),
			m.GrossProfit.StringFixed(2), formatGap(m.TimeDifference))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	renderStats(w, page.Stats)
	return nil
}

// RenderLeaderboard writes one page of the per-user leaderboard.
func (r *Reporter) RenderLeaderboard(w io.Writer, page *reconciler.LeaderboardPage) error {
	if r.format == FormatJSON {
		return writeJSON(w, page)
	}

	fmt.Fprintf(w, "Users (page %d of %d)\n\n", page.CurrentPage, page.TotalPages)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "USER\tMATCHES\tEXPENSE\tINCOME\tPROFIT\tPROFIT %\tPROFIT/ORDER")
	for _, u := range page.Users {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			userName(u.User), u.MatchCount,
			u.Stats.GrossExpense.StringFixed(2), u.Stats.GrossIncome.StringFixed(2),
			u.Stats.GrossProfit.StringFixed(2), u.Stats.ProfitPercentage.StringFixed(2),
			u.Stats.ProfitPerOrder.StringFixed(2))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Totals:")
	renderStats(w, page.TotalStats)
	return nil
}

func renderStats(w io.Writer, s stats.MatchStats) {
	fmt.Fprintf(w, "  matched count:     %d\n", s.MatchedCount)
	fmt.Fprintf(w, "  gross expense:     %s\n", s.GrossExpense.StringFixed(2))
	fmt.Fprintf(w, "  gross income:      %s\n", s.GrossIncome.StringFixed(2))
	fmt.Fprintf(w, "  gross profit:      %s\n", s.GrossProfit.StringFixed(2))
	fmt.Fprintf(w, "  profit percentage: %s%%\n", s.ProfitPercentage.StringFixed(2))
	fmt.Fprintf(w, "  profit per order:  %s\n", s.ProfitPerOrder.StringFixed(2))
	fmt.Fprintf(w, "  expense per order: %s\n", s.ExpensePerOrder.StringFixed(2))
}

func matchUser(m *models.Match) string {
	if m.User != nil && m.User.Username != "" {
		return m.User.Username
	}
	if m.Transaction != nil {
		return fmt.Sprintf("user %d", m.Transaction.UserID)
	}
	return "-"
}

func matchOrder(m *models.Match) string {
	if m.Transaction != nil {
		return m.Transaction.OrderNo
	}
	return "-"
}

// gatewayAmount renders the external amount payload; undecodable payloads
// render as N/A rather than a number.
func gatewayAmount(m *models.Match) string {
	if m.ExternalTransaction == nil {
		return "-"
	}
	amount, ok := models.ExtractAmount(m.ExternalTransaction.Amount, models.CurrencyRUB)
	if !ok {
		return "N/A"
	}
	return amount.StringFixed(2)
}

func formatGap(seconds int64) string {
	return (time.Duration(seconds) * time.Second).String()
}

func userName(u models.User) string {
	if u.Username != "" {
		return u.Username
	}
	return fmt.Sprintf("user %d", u.ID)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
