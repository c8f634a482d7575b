package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	envFile   string
	mode      string
	searchURL string
	dbPath    string
)

var rootCmd = &cobra.Command{
	Use:   "scraper",
	Short: "scraper collects directory profiles into a local store.",
	Long: "scraper walks the listing pages of a directory search, extracts every profile\n" +
		"it has not seen yet (mode new) or refreshes every stored profile (mode update).\n" +
		"Without a subcommand it behaves like `scraper run`.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runScrape,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional env file with configuration.")
	rootCmd.PersistentFlags().StringVar(&mode, "mode", "new", "Run mode: new or update.")
	rootCmd.PersistentFlags().StringVar(&searchURL, "search-url", "", "Search URL for page 1 (overrides SEARCH_URL).")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides DB_PATH).")
}

// ExecuteContext runs the CLI and returns the process exit code.
func ExecuteContext(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
