package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/aknight/ballast/internal/report"
)

// sensitivityCmd grades how close the portfolio sits to its objectives.
type sensitivityCmd struct {
	app        *app
	tradesFile string
}

func (*sensitivityCmd) Name() string     { return "sensitivity" }
func (*sensitivityCmd) Synopsis() string { return "grade fragility against the five objectives" }
func (*sensitivityCmd) Usage() string {
	return `ballast sensitivity [-trades file.json]

  Prints a fragility grade per objective plus the rule limits with the least
  headroom. With -trades, also projects the hypothetical trades and shows how
  each grade would move.
`
}

func (c *sensitivityCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.tradesFile, "trades", "", "JSON file of hypothetical trades to project")
}

func (c *sensitivityCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	s, err := c.app.services()
	if err != nil {
		return fail(err)
	}
	defer s.Close()

	val, p, err := s.snapshotAndParams()
	if err != nil {
		return fail(err)
	}

	pre, err := s.sensitivity.Analyse(val.Snapshot, p)
	if err != nil {
		return fail(err)
	}
	fmt.Print(report.Sensitivity(pre))

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
	post, err := s.sensitivity.Analyse(projected, p)
	if err != nil {
		return fail(err)
	}

	fmt.Println()
	fmt.Print(report.SensitivityComparison(pre, post))
	return subcommands.ExitSuccess
}
