package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ctxc/internal/ui"
)

var capturesJSON bool

func init() {
	capturesCmd.Flags().BoolVar(&capturesJSON, "json", false, "emit the full report as JSON")
}

var capturesCmd = &cobra.Command{
	Use:   "captures <unit.toml>",
	Short: "Show per-function capture sets and inferred bundles",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := runAnalysis(cmd, args[0])
		if err != nil {
			return err
		}

		if capturesJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(res.report); err != nil {
				return fmt.Errorf("failed to encode report: %w", err)
			}
		} else {
			fmt.Fprint(os.Stdout, ui.CapturesTable(res.report, useColor(cmd)))
		}

		printTimings(cmd, res)
		if res.report.HasErrors() {
			os.Exit(1)
		}
		return nil
	},
}
