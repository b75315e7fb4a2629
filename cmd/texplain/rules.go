// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/texplain/internal/catalog"
	"github.com/pdiddy/texplain/internal/engine"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect the built-in rule catalog",
	Long: `Rules lists the selectable class, package and style rule sets and
shows the rules a set contains. Sets are selected automatically during
extraction based on \documentclass, \usepackage and \bibliographystyle.`,
}

// --- list subcommand ---

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the selectable rule sets",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := engine.New()
		if err != nil {
			return err
		}
		for _, name := range eng.Catalog().Sets() {
			fmt.Println(name)
		}
		return nil
	},
}

// --- show subcommand ---

var rulesShowCmd = &cobra.Command{
	Use:   "show [kind/name]",
	Short: "Show the rules of one set (e.g. package/natbib)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kindName, name, ok := strings.Cut(args[0], "/")
		if !ok {
			return fmt.Errorf("expected kind/name, e.g. package/natbib")
		}

		eng, err := engine.New()
		if err != nil {
			return err
		}
		set, found := eng.Catalog().Set(catalog.Kind(kindName), name)
		if !found {
			return fmt.Errorf("no rule set %s/%s; use `texplain rules list`", kindName, name)
		}
		for _, s := range set.Specs {
			repl := fmt.Sprintf("%q", s.Replace)
			if s.Func != nil {
				repl = "<function>"
			}
			fmt.Printf("%-9s  %q => %s\n", s.Phase, s.Pattern, repl)
		}
		return nil
	},
}

func init() {
	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesShowCmd)
	rootCmd.AddCommand(rulesCmd)
}
