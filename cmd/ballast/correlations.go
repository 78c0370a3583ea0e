package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/aknight/ballast/internal/report"
)

// correlationsCmd measures how the held instruments actually move together.
type correlationsCmd struct {
	app        *app
	window     int
	stressOnly bool
	refresh    bool
}

func (*correlationsCmd) Name() string     { return "correlations" }
func (*correlationsCmd) Synopsis() string { return "analyse diversification from price history" }
func (*correlationsCmd) Usage() string {
	return `ballast correlations [-window 60|252] [-stress-only] [-refresh]

  Computes pairwise, role-level and group-level correlations from the stored
  price history. Results are cached for a day; -refresh recomputes.
`
}

func (c *correlationsCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.window, "window", 60, "rolling window in trading days (60 or 252)")
	f.BoolVar(&c.stressOnly, "stress-only", false, "judge tags by stress-period correlations only")
	f.BoolVar(&c.refresh, "refresh", false, "drop cached reports and recompute")
}

func (c *correlationsCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if c.window != 60 && c.window != 252 {
		return fail(fmt.Errorf("window must be 60 or 252, got %d", c.window))
	}

	s, err := c.app.services()
	if err != nil {
		return fail(err)
	}
	defer s.Close()

	if c.refresh {
		if _, err := s.db.Exec("DELETE FROM report_cache WHERE key LIKE 'corr:%'"); err != nil {
			return fail(fmt.Errorf("failed to drop cached reports: %w", err))
		}
	}

	val, _, err := s.snapshotAndParams()
	if err != nil {
		return fail(err)
	}

	rep, err := s.correlation.Compute(val.Snapshot, c.window, c.stressOnly)
	if err != nil {
		return fail(err)
	}

	fmt.Print(report.Correlation(rep))
	return subcommands.ExitSuccess
}
