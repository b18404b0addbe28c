package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"aiaudit/internal/version"
)

var versionJSON bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if !versionJSON {
			_, err := fmt.Fprintln(out, version.Full())
			return err
		}
		data, err := json.MarshalIndent(version.Get(), "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Print as JSON")
	rootCmd.AddCommand(versionCmd)
}
