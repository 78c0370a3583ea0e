package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/aknight/ballast/internal/report"
)

// complianceCmd runs the full rulebook against the current portfolio.
type complianceCmd struct {
	app    *app
	detail bool
	save   bool
}

func (*complianceCmd) Name() string     { return "compliance" }
func (*complianceCmd) Synopsis() string { return "run all compliance checks against the portfolio" }
func (*complianceCmd) Usage() string {
	return `ballast compliance [-detail] [-save=false]

  Values the portfolio, evaluates every rule and prints the results.
  Each run is appended to the audit log unless -save=false.
`
}

func (c *complianceCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.detail, "detail", false, "print the detail line for passing checks too")
	f.BoolVar(&c.save, "save", true, "store the run in the audit log")
}

func (c *complianceCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	s, err := c.app.services()
	if err != nil {
		return fail(err)
	}
	defer s.Close()

	val, p, err := s.snapshotAndParams()
	if err != nil {
		return fail(err)
	}

	results, err := s.compliance.RunAllChecks(val.Snapshot, p)
	if err != nil {
		return fail(err)
	}

	fmt.Print(report.Valuation(val.Snapshot, val.Warnings))
	fmt.Println()
	fmt.Print(report.Compliance(results, c.detail))

	if c.save {
		runID, err := s.complianceRuns.StoreRun(results, val.Snapshot.TotalAUD())
		if err != nil {
			return fail(err)
		}
		fmt.Printf("\nRun stored as %s\n", runID)
	}
	return subcommands.ExitSuccess
}
