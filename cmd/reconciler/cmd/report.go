package cmd

import (
	"fmt"
	"os"

	"p2p-reconciler/cmd/reconciler/config"
	"p2p-reconciler/internal/reconciler"
	"p2p-reconciler/internal/reporter"

	"github.com/spf13/cobra"
)

var (
	reportView     string
	reportFrom     string
	reportTo       string
	reportUser     int64
	reportPage     int
	reportPageSize int
	reportOutput   string
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show persisted matches for a date window",
	Long: `Report renders one page of persisted matches. Three views exist:

  all          every match whose trade time or approval time is in range
  user         one user's matches, by trade time (requires --user)
  leaderboard  per-user match statistics plus totals over the range

Statistics always cover the complete filtered set, not just the page.

Examples:
  reconciler report --view all --from 2024-01-01 --to 2024-01-31
  reconciler report --view user --user 42 --from 2024-01-01 --to 2024-01-31 --page 2
  reconciler report --view leaderboard --from 2024-01-01 --to 2024-01-31 -f json`,

	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportView, "view", "all", "view to render: all, user, leaderboard")
	reportCmd.Flags().StringVar(&reportFrom, "from", "", "window start date (required)")
	reportCmd.Flags().StringVar(&reportTo, "to", "", "window end date (required)")
	reportCmd.Flags().Int64Var(&reportUser, "user", 0, "user id for the user view")
	reportCmd.Flags().IntVar(&reportPage, "page", 1, "page number")
	reportCmd.Flags().IntVar(&reportPageSize, "page-size", 0, "page size (defaults per view)")
	reportCmd.Flags().StringVarP(&reportOutput, "output-format", "f", "console", "output format: console, json")

	reportCmd.MarkFlagRequired("from")
	reportCmd.MarkFlagRequired("to")
}

func runReport(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	service, err := reconciler.NewService(store, config.LoadMatcherConfig())
	if err != nil {
		return err
	}

	rep, err := reporter.New(reporter.Format(reportOutput))
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	switch reportView {
	case "all":
		page, err := service.GetAllMatches(ctx, reportFrom, reportTo, reportPage, reportPageSize)
		if err != nil {
			return err
		}
		return rep.RenderMatchPage(os.Stdout, page)

	case "user":
		if reportUser < 1 {
			return fmt.Errorf("the user view requires --user")
		}
		page, err := service.GetUserMatches(ctx, reportUser, reportFrom, reportTo, reportPage, reportPageSize)
		if err != nil {
			return err
		}
		return rep.RenderMatchPage(os.Stdout, page)

	case "leaderboard":
		page, err := service.GetUsersWithMatchStats(ctx, reportFrom, reportTo, reportPage, reportPageSize)
		if err != nil {
			return err
		}
		return rep.RenderLeaderboard(os.Stdout, page)

	default:
		return fmt.Errorf("unknown view %q (expected all, user or leaderboard)", reportView)
	}
}
