// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-digest/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect past runs (list, export)",
	Long: `History reads the run database kept in history.dir. Every delivered
or dry-run digest is recorded with its ranked papers.`,
}

// --- list subcommand ---

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	RunE:  runHistoryList,
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.Recent(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	for _, r := range runs {
		status := "dry-run"
		if r.Delivered {
			status = "sent"
		}
		fmt.Printf("#%d  %s  %-8s  %s  candidates=%d recommended=%d\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04"), status, r.Query,
			r.Candidates, len(r.Recommendations))
		top := r.Recommendations
		if len(top) > 3 {
			top = top[:3]
		}
		for _, rec := range top {
			fmt.Printf("    %5.2f  %s  %s\n", rec.Score, rec.PaperID, rec.Title)
		}
	}
	return nil
}

// --- export subcommand ---

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recent runs as YAML or JSON",
	RunE:  runHistoryExport,
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	format, _ := cmd.Flags().GetString("format")
	return store.Export(cmd.Context(), os.Stdout, limit, history.Format(strings.ToLower(format)))
}

// openHistory opens the database named by --history-dir or history.dir.
func openHistory(cmd *cobra.Command) (*history.Store, error) {
	dir, _ := cmd.Flags().GetString("history-dir")
	if dir == "" {
		dir = viper.GetString("history.dir")
	}
	if dir == "" {
		return nil, fmt.Errorf("no history directory: set history.dir or pass --history-dir")
	}
	return history.Open(dir)
}

func init() {
	historyCmd.PersistentFlags().String("history-dir", "", "directory containing history.db (default from config)")
	historyCmd.PersistentFlags().Int("limit", 10, "number of most recent runs")

	historyExportCmd.Flags().String("format", "yaml", "output format: yaml or json")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyExportCmd)
	rootCmd.AddCommand(historyCmd)
}
