package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"aiaudit/internal/config"
	"aiaudit/internal/errors"
)

var (
	initForce  bool
	initFormat string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long:  "Creates .aiaudit.yaml (or .json/.toml) with the default configuration in the current directory",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing config file")
	initCmd.Flags().StringVar(&initFormat, "format", "yaml", "Config file format: yaml, json, toml")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	repoRoot, err := getRepoRoot()
	if err != nil {
		return errors.New(errors.InternalError, "Failed to get current directory", err)
	}

	switch initFormat {
	case "yaml", "json", "toml":
	default:
		return errors.Newf(errors.InputInvalid, "unsupported config format %q (use: yaml, json, toml)", initFormat)
	}

	out := cmd.OutOrStdout()
	path := filepath.Join(repoRoot, config.FileName+"."+initFormat)
	if _, statErr := os.Stat(path); statErr == nil && !initForce {
		// Already initialized is success so CI can run init unconditionally.
		fmt.Fprintln(out, "aiaudit already initialized.")
		fmt.Fprintf(out, "Configuration at: %s\n", path)
		fmt.Fprintln(out, "\nRun 'aiaudit init --force' to overwrite it.")
		return nil
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return errors.New(errors.InternalError, "Failed to write config file", err)
	}

	fmt.Fprintln(out, "aiaudit initialized successfully!")
	fmt.Fprintf(out, "Configuration written to: %s\n", path)
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  1. Run 'aiaudit rules' to see what is checked")
	fmt.Fprintln(out, "  2. Run 'aiaudit scan .' to audit the working tree")
	return nil
}
