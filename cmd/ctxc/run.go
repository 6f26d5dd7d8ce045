package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"ctxc/internal/diag"
	"ctxc/internal/engine"
	"ctxc/internal/observ"
	"ctxc/internal/program"
	"ctxc/internal/source"
)

type runResult struct {
	report *engine.Report
	fset   *source.FileSet
	timer  *observ.Timer
	cached bool
}

// runAnalysis loads the unit description, consults the disk cache and runs
// the engine on a miss. Loader diagnostics come first in the final report.
func runAnalysis(cmd *cobra.Command, path string) (*runResult, error) {
	flags := cmd.Root().PersistentFlags()
	maxDiagnostics, _ := flags.GetInt("max-diagnostics")
	jobs, _ := flags.GetInt("jobs")
	noCache, _ := flags.GetBool("no-cache")

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read unit description: %w", err)
	}
	fset := source.NewFileSet()
	fileID := fset.Add(path, content, 0)
	key := engine.DigestBytes(content)

	var cache *engine.Cache
	if !noCache {
		// cache trouble never blocks analysis
		cache, _ = engine.OpenCache("ctxc")
	}
	if cache != nil {
		if rep, hit, err := cache.Get(key); err == nil && hit {
			return &runResult{report: rep, fset: fset, cached: true}, nil
		}
	}

	loadBag := diag.NewBag(maxDiagnostics)
	unit, reg, err := program.Parse(fset, fileID, diag.BagReporter{Bag: loadBag})
	if err != nil {
		base := filepath.Base(path)
		rep := &engine.Report{
			Unit:  strings.TrimSuffix(base, filepath.Ext(base)),
			Diags: loadBag.Items(),
		}
		return &runResult{report: rep, fset: fset}, nil
	}

	timer := observ.NewTimer()
	res, err := engine.Analyze(cmd.Context(), unit, reg, engine.Options{
		Jobs:           jobs,
		MaxDiagnostics: maxDiagnostics,
		Timer:          timer,
	})
	if err != nil {
		return nil, fmt.Errorf("analysis failed: %w", err)
	}

	loadBag.Merge(res.Bag)
	loadBag.Sort()
	res.Bag = loadBag
	rep := res.Report()

	if cache != nil {
		if err := cache.Put(key, rep); err != nil {
			fmt.Fprintf(os.Stderr, "warning: cannot store result cache: %v\n", err)
		}
	}
	return &runResult{report: rep, fset: fset, timer: timer}, nil
}

// bagFromReport rebuilds a Bag for the formatters; cached runs carry their
// diagnostics only inside the report.
func bagFromReport(rep *engine.Report, maxDiagnostics int) *diag.Bag {
	bag := diag.NewBag(max(maxDiagnostics, len(rep.Diags)))
	for _, d := range rep.Diags {
		bag.Add(d)
	}
	return bag
}

func printTimings(cmd *cobra.Command, res *runResult) {
	showTimings, _ := cmd.Root().PersistentFlags().GetBool("timings")
	if !showTimings {
		return
	}
	if res.cached {
		fmt.Fprintln(os.Stderr, "timings: cached result, analysis skipped")
		return
	}
	fmt.Fprint(os.Stderr, res.timer.Summary())
}
