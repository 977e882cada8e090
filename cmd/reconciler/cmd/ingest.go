package cmd

import (
	"fmt"
	"os"

	"p2p-reconciler/internal/ingest"

	"github.com/spf13/cobra"
)

var (
	ingestFile string
	ingestUser int64
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load a P2P trade report CSV for a user",
	Long: `Ingest parses an exported P2P trade report and stores the trades
for the given user. Rows that cannot be parsed are skipped and reported;
trades already stored for the user (same order number) are skipped.

Examples:
  reconciler ingest --file trades.csv --user 42`,

	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestFile, "file", "", "path to the trade report CSV (required)")
	ingestCmd.Flags().Int64Var(&ingestUser, "user", 0, "owning user id (required)")

	ingestCmd.MarkFlagRequired("file")
	ingestCmd.MarkFlagRequired("user")
}

func runIngest(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	ingestor, err := ingest.NewIngestor(store, ingest.DefaultParserConfig())
	if err != nil {
		return err
	}

	result, err := ingestor.IngestFile(cmd.Context(), ingestFile, ingestUser)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Parsed %d/%d rows, stored %d new trades (%d duplicates skipped)\n",
		result.Stats.ParsedRows, result.Stats.TotalRows,
		result.Inserted, result.Stats.ParsedRows-int(result.Inserted))

	for _, rowErr := range result.Stats.RowErrors {
		fmt.Fprintf(os.Stderr, "warning: %s\n", rowErr)
	}

	return nil
}
