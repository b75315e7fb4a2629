// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/texplain/internal/history"
	"github.com/pdiddy/texplain/pkg/types"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Browse recorded extraction runs",
	Long: `Runs queries the history store written by extract when history is
enabled in the configuration. Use it to compare rule match counts across
documents and catalog changes.`,
}

func openHistory() (*history.Store, error) {
	return history.NewStore(types.HistoryConfig{
		Dir:        viper.GetString("history.dir"),
		MaxResults: viper.GetInt("history.max_results"),
	})
}

// --- list subcommand ---

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent extraction runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := store.Runs(context.Background(), limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No recorded runs.")
			return nil
		}

		fmt.Printf("%-5s  %-20s  %-9s  %-8s  %-8s  %-6s  %s\n",
			"ID", "Started", "Elapsed", "Rules", "Matched", "Diags", "Source")
		fmt.Println(strings.Repeat("-", 90))
		for _, r := range runs {
			source := r.Source
			if r.Aborted {
				source += " (aborted)"
			}
			fmt.Printf("%-5d  %-20s  %-9s  %-8d  %-8d  %-6d  %s\n",
				r.ID, r.StartedAt, time.Duration(r.ElapsedMS)*time.Millisecond,
				r.Rules, r.Matched, r.Diagnostics, source)
		}
		return nil
	},
}

// --- show subcommand ---

var runsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show one run with its match table and diagnostics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("bad run id %q", args[0])
		}

		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		detail, err := store.Run(context.Background(), id)
		if err != nil {
			return err
		}

		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(detail)
		}

		fmt.Printf("run %d: %s, started %s, %s\n",
			detail.Run.ID, detail.Run.Source, detail.Run.StartedAt,
			time.Duration(detail.Run.ElapsedMS)*time.Millisecond)
		printMatches(os.Stdout, detail.Matches)
		if len(detail.Remaining) > 0 {
			fmt.Println("\nRemaining commands:")
			for _, c := range detail.Remaining {
				fmt.Printf("%6d  \\%s\n", c.Count, c.Command)
			}
		}
		for _, d := range detail.Diagnostics {
			fmt.Printf("%s: %s\n", d.Kind, d.Message)
		}
		return nil
	},
}

// --- export subcommand ---

var runsExportCmd = &cobra.Command{
	Use:   "export [id]",
	Short: "Export one run to a YAML or JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("bad run id %q", args[0])
		}
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			output = fmt.Sprintf("run-%d.%s", id, format)
		}

		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		switch format {
		case "yaml", "":
			err = store.ExportYAML(context.Background(), id, output)
		case "json":
			err = store.ExportJSON(context.Background(), id, output)
		default:
			return fmt.Errorf("unsupported format %q: use yaml or json", format)
		}
		if err != nil {
			return err
		}
		fmt.Println("Exported to", output)
		return nil
	},
}

func init() {
	runsListCmd.Flags().Int("limit", 0, "maximum runs to list (0 = use default)")
	runsShowCmd.Flags().Bool("json", false, "output as JSON")
	runsExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	runsExportCmd.Flags().String("output", "", "output file (default run-<id>.<format>)")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsExportCmd)
	rootCmd.AddCommand(runsCmd)
}
