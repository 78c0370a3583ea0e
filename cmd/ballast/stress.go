package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/aknight/ballast/internal/modules/stress"
	"github.com/aknight/ballast/internal/report"
)

// stressCmd replays crisis scenarios against the portfolio.
type stressCmd struct {
	app        *app
	scenario   string
	detail     bool
	tradesFile string
}

func (*stressCmd) Name() string     { return "stress" }
func (*stressCmd) Synopsis() string { return "replay stress scenarios against the portfolio" }
func (*stressCmd) Usage() string {
	return `ballast stress [-scenario all|flat35|covid2020|gfc2008|rates2022] [-detail] [-trades file.json]

  Applies the chosen scenario (or all of them) and reports the damage to each
  objective. With -trades, the scenarios also run against the projected
  portfolio and a comparison table is printed.
`
}

func (c *stressCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.scenario, "scenario", "all", "scenario id, or 'all'")
	f.BoolVar(&c.detail, "detail", false, "print per-holding drawdowns and post-shock findings")
	f.StringVar(&c.tradesFile, "trades", "", "JSON file of hypothetical trades to project")
}

func (c *stressCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	ids := stress.AllScenarioIDs
	if c.scenario != "all" {
		ids = []stress.ScenarioID{stress.ScenarioID(c.scenario)}
	}

	s, err := c.app.services()
	if err != nil {
		return fail(err)
	}
	defer s.Close()

	val, p, err := s.snapshotAndParams()
	if err != nil {
		return fail(err)
	}

	// A single named scenario fails loudly; 'all' tolerates partial failure.
	var pre []*stress.Result
	if len(ids) == 1 {
		result, err := s.stress.RunScenario(val.Snapshot, ids[0], p)
		if err != nil {
			return fail(err)
		}
		pre = []*stress.Result{result}
	} else {
		pre = s.stress.RunScenarios(val.Snapshot, ids, p)
	}
	fmt.Print(report.Stress(pre, c.detail))

	if c.tradesFile == "" {
		return subcommands.ExitSuccess
	}

	trades, err := loadTrades(c.tradesFile)
	if err != nil {
		return fail(err)
	}
	projected, err := s.valuation.Project(val.Snapshot, trades)
	if err != nil {
		return fail(err)
	}
	post := s.stress.RunScenarios(projected, ids, p)

	fmt.Print(report.StressComparison(pre, post))
	return subcommands.ExitSuccess
}
