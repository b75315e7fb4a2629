// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/texplain/internal/engine"
	"github.com/pdiddy/texplain/internal/history"
	"github.com/pdiddy/texplain/pkg/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract plain text from a LaTeX document",
	Long: `Extract runs the full substitution pipeline on one document: referenced
files are inserted, macro definitions are scanned and expanded, and the
built-in rule catalog rewrites the markup into plain text.

Pass "-" to read the document from standard input. The extracted text goes
to standard output unless --output names a file; diagnostics go to standard
error either way.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	src, err := extractSource(cmd, args[0])
	if err != nil {
		return err
	}
	opts, err := extractOptions(cmd)
	if err != nil {
		return err
	}

	eng, err := engine.New()
	if err != nil {
		return err
	}
	result, err := eng.Extract(context.Background(), src, opts)
	if err != nil {
		return err
	}

	for _, d := range result.Diagnostics {
		if d.Location.IsZero() {
			fmt.Fprintf(os.Stderr, "%s: %s\n", d.Kind, d.Message)
		} else {
			fmt.Fprintf(os.Stderr, "%s: %s (%s:%d)\n",
				d.Kind, d.Message, d.Location.File, d.Location.Line)
		}
	}

	if err := recordRun(cmd, args[0], result); err != nil {
		fmt.Fprintf(os.Stderr, "warning: history not recorded: %v\n", err)
	}

	if err := writeExtractOutput(cmd, result); err != nil {
		return err
	}
	if result.Aborted {
		return fmt.Errorf("extraction aborted on fatal diagnostic")
	}
	return nil
}

func extractSource(cmd *cobra.Command, arg string) (engine.Source, error) {
	logPath, _ := cmd.Flags().GetString("log")
	if arg == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return engine.Source{}, fmt.Errorf("reading standard input: %w", err)
		}
		return engine.Source{Text: string(data), Log: logPath}, nil
	}
	return engine.Source{Path: arg, Log: logPath}, nil
}

func extractOptions(cmd *cobra.Command) (types.ExtractOptions, error) {
	opts := types.DefaultExtractOptions()

	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout > 0 {
		opts.Timeout = timeout
	}
	maxIter, _ := cmd.Flags().GetInt("max-iterations")
	if maxIter > 0 {
		opts.MaxIterations = maxIter
	}
	opts.Auto, _ = cmd.Flags().GetBool("auto")
	opts.Builtin, _ = cmd.Flags().GetBool("builtin")
	opts.DocumentRules, _ = cmd.Flags().GetBool("document-rules")
	opts.LocalRulesDir, _ = cmd.Flags().GetString("local-rules")
	opts.RootDir, _ = cmd.Flags().GetString("root-dir")
	opts.Patterns, _ = cmd.Flags().GetBool("patterns")
	opts.Trace, _ = cmd.Flags().GetBool("trace")

	phases, _ := cmd.Flags().GetStringSlice("auto-phase")
	for _, kv := range phases {
		kind, phase, ok := strings.Cut(kv, "=")
		if !ok {
			return opts, fmt.Errorf("bad --auto-phase %q: expected kind=phase", kv)
		}
		if opts.AutoPhases == nil {
			opts.AutoPhases = make(map[string]string)
		}
		opts.AutoPhases[kind] = phase
	}
	return opts, nil
}

func recordRun(cmd *cobra.Command, source string, result *types.ExtractionResult) error {
	noHistory, _ := cmd.Flags().GetBool("no-history")
	if noHistory || !viper.GetBool("history.enabled") {
		return nil
	}
	store, err := history.NewStore(types.HistoryConfig{
		Enabled:    true,
		Dir:        viper.GetString("history.dir"),
		MaxResults: viper.GetInt("history.max_results"),
	})
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err = store.Record(ctx, source, result)
	return err
}

func writeExtractOutput(cmd *cobra.Command, result *types.ExtractionResult) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	output, _ := cmd.Flags().GetString("output")

	w := os.Stdout
	if output != "" && output != "-" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if _, err := io.WriteString(w, result.Text); err != nil {
		return err
	}
	if result.Text != "" && !strings.HasSuffix(result.Text, "\n") {
		fmt.Fprintln(w)
	}

	if showMatches, _ := cmd.Flags().GetBool("matches"); showMatches {
		printMatches(os.Stderr, result.Matches)
	}
	if len(result.Remaining) > 0 {
		fmt.Fprintln(os.Stderr, "\nRemaining commands:")
		for _, c := range result.Remaining {
			fmt.Fprintf(os.Stderr, "%6d  \\%s\n", c.Count, c.Command)
		}
	}
	for _, p := range result.Patterns {
		fmt.Fprintln(os.Stderr, p)
	}
	for _, line := range result.Trace {
		fmt.Fprintln(os.Stderr, line)
	}
	return nil
}

func printMatches(w io.Writer, matches []types.RuleMatches) {
	fmt.Fprintf(w, "\n%-8s  %-10s  %-9s  %-12s  %s\n",
		"Matches", "Elapsed", "Phase", "Provenance", "Rule")
	fmt.Fprintln(w, strings.Repeat("-", 90))
	for _, m := range matches {
		if m.Matches == 0 {
			continue
		}
		rule := m.Rule
		if len(rule) > 60 {
			rule = rule[:57] + "..."
		}
		fmt.Fprintf(w, "%-8d  %-10s  %-9s  %-12s  %s\n",
			m.Matches, m.Elapsed.Round(time.Microsecond), m.Phase, m.Provenance, rule)
	}
}

func init() {
	extractCmd.Flags().String("log", "", "LaTeX compile log, improves class and package detection")
	extractCmd.Flags().String("output", "-", "output file (- for stdout)")
	extractCmd.Flags().Duration("timeout", 0, "per-rule match timeout (default 5s)")
	extractCmd.Flags().Int("max-iterations", 0, "iteration cap for fixpoint loops (default 1000)")
	extractCmd.Flags().Bool("auto", true, "expand macros defined in the document")
	extractCmd.Flags().Bool("builtin", true, "apply the built-in rule catalog")
	extractCmd.Flags().Bool("document-rules", true, "apply %% Rule(...) lines from the document")
	extractCmd.Flags().StringSlice("auto-phase", nil, "phase override for auto rules, kind=phase (e.g. command=setup)")
	extractCmd.Flags().String("local-rules", "", "directory of *.rules files to append to the built-in tier")
	extractCmd.Flags().String("root-dir", "", "directory for resolving inserted files (default: document directory)")
	extractCmd.Flags().Bool("patterns", false, "list expanded patterns on stderr")
	extractCmd.Flags().Bool("trace", false, "print the execution trace on stderr")
	extractCmd.Flags().Bool("matches", false, "print the per-rule match table on stderr")
	extractCmd.Flags().Bool("json", false, "write the full result as JSON")
	extractCmd.Flags().Bool("no-history", false, "skip recording this run in the history store")

	rootCmd.AddCommand(extractCmd)
}
