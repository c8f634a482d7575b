package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/user/profile-scraper/internal/entity"
)

var runCmd = &cobra.Command{
	Use:   "run [--mode new|update] [--search-url <url>] [--db <path/to/profiles.db>]",
	Short: "Runs one scrape and prints a summary.",
	Args:  cobra.NoArgs,
	RunE:  runScrape,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runScrape(cmd *cobra.Command, args []string) error {
	runMode, err := entity.ParseMode(mode)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	rep, err := a.orchestrator.Run(cmd.Context(), runMode)
	if rep != nil {
		printSummary(os.Stdout, rep)
	}
	return err
}

func printSummary(w io.Writer, rep *entity.RunReport) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("Run %s (%s) - %s", rep.RunID, rep.Mode, rep.State))

	t.AppendHeader(table.Row{"Metric", "Count"})
	t.AppendRows([]table.Row{
		{"Listing pages", rep.Pages},
		{"Discovered", rep.Discovered},
		{"Already known (skipped)", rep.Skipped},
		{"Attempted", rep.Attempted},
		{"Newly added", rep.Added},
		{"Updated", rep.Updated},
		{"Failed", rep.Failed},
	})
	t.AppendFooter(table.Row{"Duration", rep.FinishedAt.Sub(rep.StartedAt).Round(time.Millisecond).String()})
	t.Render()

	if len(rep.FailedPages) > 0 {
		renderFailures(w, "Skipped listing pages", rep.FailedPages)
	}
	if len(rep.FailedURLs) > 0 {
		renderFailures(w, "Failed profiles", rep.FailedURLs)
	}
	if rep.Error != "" {
		fmt.Fprintf(w, "run failed: %s\n", rep.Error)
	}
}

func renderFailures(w io.Writer, title string, items []entity.FailedItem) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	t.SetTitle(title)
	t.AppendHeader(table.Row{"URL", "Kind", "Reason"})
	for _, it := range items {
		t.AppendRow(table.Row{it.URL, it.Kind, it.Reason})
	}
	t.Render()
}
