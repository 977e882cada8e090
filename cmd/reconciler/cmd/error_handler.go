package cmd

import (
	"fmt"
	"os"
	"strings"

	"p2p-reconciler/pkg/apperrors"
	"p2p-reconciler/pkg/logger"

	"github.com/spf13/viper"
)

// CLIErrorHandler provides user-friendly error handling for CLI operations
type CLIErrorHandler struct {
	logger  logger.Logger
	verbose bool
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler() *CLIErrorHandler {
	return &CLIErrorHandler{
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		verbose: viper.GetBool("verbose"),
	}
}

// HandleError prints a user-facing message for err and returns the process
// exit code the caller should use.
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	h.logger.WithError(err).Error("Command failed")

	if appErr, ok := apperrors.As(err); ok {
		return h.handleAppError(appErr)
	}

	return h.handleGenericError(err)
}

func (h *CLIErrorHandler) handleAppError(err *apperrors.Error) int {
	fmt.Fprintf(os.Stderr, "Error: %s\n", err.Message)

	if len(err.Context) > 0 {
		fmt.Fprintf(os.Stderr, "\nContext:\n")
		for key, value := range err.Context {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", key, value)
		}
	}

	if err.Suggestion != "" {
		fmt.Fprintf(os.Stderr, "\nSuggestion: %s\n", err.Suggestion)
	}

	fmt.Fprintf(os.Stderr, "\n%s\n", h.categoryHelp(err.Category))

	if h.verbose && err.Cause != nil {
		fmt.Fprintf(os.Stderr, "\nUnderlying error: %v\n", err.Cause)
	}

	return err.ExitCode()
}

func (h *CLIErrorHandler) handleGenericError(err error) int {
	if h.isFileNotFoundError(err) {
		fmt.Fprintf(os.Stderr, "Error: File not found\n")
		fmt.Fprintf(os.Stderr, "Suggestion: Check if the file path is correct and the file exists\n")
		return 2
	}

	if h.isPermissionError(err) {
		fmt.Fprintf(os.Stderr, "Error: Permission denied\n")
		fmt.Fprintf(os.Stderr, "Suggestion: Check file permissions and ensure you have read access\n")
		return 2
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)

	if !h.verbose {
		fmt.Fprintf(os.Stderr, "\nRe-run with --verbose for more detailed error information\n")
	}

	return 1
}

func (h *CLIErrorHandler) categoryHelp(category apperrors.Category) string {
	switch category {
	case apperrors.CategoryValidation:
		return `Validation error help:
• Verify date formats use YYYY-MM-DD (or full RFC3339 timestamps)
• Check that the start of the range is not after the end
• Ensure amounts are decimal numbers without currency symbols`

	case apperrors.CategoryIngest:
		return `Ingest error help:
• Verify the trade report is a CSV file with a header row
• Check for the expected columns (order number, date, type, amounts)
• Ensure the file uses UTF-8 encoding
• Use 'reconciler ingest --help' for the expected file format`

	case apperrors.CategoryPayload:
		return `Payload error help:
• Gateway transactions with unreadable payloads are skipped, not matched
• Check the payload JSON on the affected gateway transactions`

	case apperrors.CategoryStorage:
		return `Storage error help:
• Check the database DSN in your configuration
• Verify the database server is reachable (for postgres)
• Ensure the database file is writable (for sqlite)`

	case apperrors.CategoryReconciliation:
		return `Reconciliation error help:
• Only one matching run may be active at a time; retry once it finishes
• Try a narrower date range if the run is too large
• Check data quality on both transaction streams`

	case apperrors.CategoryConfiguration:
		return `Configuration error help:
• Check your command-line flags and arguments
• Verify configuration file syntax if using --config
• Use 'reconciler match --help' to see all available options`

	default:
		return `For more help:
• Use 'reconciler --help' for general help
• Use 'reconciler <command> --help' for command-specific help`
	}
}

func (h *CLIErrorHandler) isFileNotFoundError(err error) bool {
	return os.IsNotExist(err) || strings.Contains(err.Error(), "no such file or directory")
}

func (h *CLIErrorHandler) isPermissionError(err error) bool {
	return os.IsPermission(err) ||
		strings.Contains(err.Error(), "permission denied") ||
		strings.Contains(err.Error(), "access denied")
}
