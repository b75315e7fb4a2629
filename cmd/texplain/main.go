// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the texplain CLI.
// Implements: prd004-engine, prd005-diagnostics, prd006-history (CLI
// surface). See docs/ARCHITECTURE § Command Interface.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/texplain/internal/logging"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the texplain CLI.
var rootCmd = &cobra.Command{
	Use:   "texplain",
	Short: "Extract grammar-checkable plain text from LaTeX documents",
	Long: `texplain rewrites a LaTeX document into the plain text a grammar
checker should see: markup is substituted away rule by rule, document-defined
macros are expanded, math collapses to placeholders, and floats and footnotes
move to where they read naturally.

The main subcommand is extract. Use rules to inspect the built-in catalog
and runs to browse recorded extraction history.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		logging.Setup(verbosity, nil)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./texplain.yaml or ~/.config/texplain/config.yaml)")
	rootCmd.PersistentFlags().CountP("verbose", "v", "increase log verbosity (repeatable)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("texplain")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "texplain"))
		}
	}

	viper.SetEnvPrefix("TEXPLAIN")
	viper.AutomaticEnv()

	viper.SetDefault("history.enabled", false)
	viper.SetDefault("history.dir", ".texplain")
	viper.SetDefault("history.max_results", 20)

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
