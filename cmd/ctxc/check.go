package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ctxc/internal/diagfmt"
)

var (
	checkFormat    string
	checkWithNotes bool
	checkFullPath  bool
)

func init() {
	checkCmd.Flags().StringVar(&checkFormat, "format", "pretty", "output format (pretty|json)")
	checkCmd.Flags().BoolVar(&checkWithNotes, "with-notes", true, "include secondary notes")
	checkCmd.Flags().BoolVar(&checkFullPath, "full-path", false, "print absolute file paths")
}

var checkCmd = &cobra.Command{
	Use:   "check <unit.toml>",
	Short: "Analyze a unit description and report context diagnostics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := runAnalysis(cmd, args[0])
		if err != nil {
			return err
		}

		maxDiagnostics, _ := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
		bag := bagFromReport(res.report, maxDiagnostics)

		pathMode := diagfmt.PathModeAuto
		if checkFullPath {
			pathMode = diagfmt.PathModeAbsolute
		}

		switch checkFormat {
		case "pretty":
			diagfmt.Pretty(os.Stdout, bag, res.fset, diagfmt.PrettyOpts{
				Color:     useColor(cmd),
				PathMode:  pathMode,
				ShowNotes: checkWithNotes,
			})
		case "json":
			err := diagfmt.JSON(os.Stdout, bag, res.fset, diagfmt.JSONOpts{
				IncludePositions: true,
				PathMode:         pathMode,
				Max:              maxDiagnostics,
				IncludeNotes:     checkWithNotes,
			})
			if err != nil {
				return fmt.Errorf("failed to format diagnostics: %w", err)
			}
		default:
			return fmt.Errorf("unknown format: %s", checkFormat)
		}

		printTimings(cmd, res)

		quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
		if res.report.HasErrors() {
			os.Exit(1)
		}
		if !quiet && checkFormat == "pretty" {
			fmt.Fprintf(os.Stdout, "ok: %s (%d functions)\n", res.report.Unit, len(res.report.Funcs))
		}
		return nil
	},
}
