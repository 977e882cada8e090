package cmd

import (
	"os"

	"p2p-reconciler/cmd/reconciler/config"
	"p2p-reconciler/internal/reconciler"
	"p2p-reconciler/internal/reporter"
	"p2p-reconciler/internal/storage"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	matchFrom   string
	matchTo     string
	matchOutput string
)

// matchCmd represents the match command
var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Reconcile gateway payouts with P2P trades over a date window",
	Long: `Match loads approved gateway transactions and ingested P2P trades
for the given window, pairs them one-to-one by amount and closest time,
persists the accepted matches and prints the run summary.

Re-running over an overlapping window is safe: matches already persisted
are skipped, never duplicated.

Examples:
  reconciler match --from 2024-01-01 --to 2024-01-31
  reconciler match --from "2024-01-01 00:00:00" --to "2024-01-31 23:59:59" --output-format json`,

	RunE: runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringVar(&matchFrom, "from", "", "window start date (required)")
	matchCmd.Flags().StringVar(&matchTo, "to", "", "window end date (required)")
	matchCmd.Flags().StringVarP(&matchOutput, "output-format", "f", "console", "output format: console, json")

	matchCmd.MarkFlagRequired("from")
	matchCmd.MarkFlagRequired("to")

	matchCmd.Flags().Int("minutes-threshold", 0, "override the matching time window in minutes")
	matchCmd.Flags().Float64("amount-tolerance", 0, "override the amount tolerance")
	matchCmd.Flags().Float64("commission", 0, "override the commission multiplier")
	viper.BindPFlag("matching.minutes_threshold", matchCmd.Flags().Lookup("minutes-threshold"))
	viper.BindPFlag("matching.amount_tolerance", matchCmd.Flags().Lookup("amount-tolerance"))
	viper.BindPFlag("matching.commission", matchCmd.Flags().Lookup("commission"))
}

func runMatch(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	service, err := reconciler.NewService(store, config.LoadMatcherConfig())
	if err != nil {
		return err
	}

	summary, err := service.MatchTransactions(cmd.Context(), matchFrom, matchTo)
	if err != nil {
		return err
	}

	rep, err := reporter.New(reporter.Format(matchOutput))
	if err != nil {
		return err
	}

	return rep.RenderRunSummary(os.Stdout, summary)
}

// openStore connects to the configured database and ensures the schema.
func openStore() (storage.Store, error) {
	db, err := storage.Open(config.LoadStorageConfig())
	if err != nil {
		return nil, err
	}

	store := storage.NewGormStore(db)
	if err := store.AutoMigrate(); err != nil {
		return nil, err
	}

	return store, nil
}
