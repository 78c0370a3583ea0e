package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/subcommands"

	"github.com/aknight/ballast/internal/reliability"
	"github.com/aknight/ballast/internal/scheduler"
)

// watchCmd runs compliance on a schedule until interrupted.
type watchCmd struct {
	app      *app
	schedule string
	runNow   bool
}

func (*watchCmd) Name() string     { return "watch" }
func (*watchCmd) Synopsis() string { return "run compliance checks on a cron schedule" }
func (*watchCmd) Usage() string {
	return `ballast watch [-schedule "<cron>"] [-now]

  Runs the compliance suite on a schedule (default daily at 18:00), appending
  every run to the audit log. Daily database maintenance, and backups when a
  target is configured, run alongside. Stops on SIGINT or SIGTERM.
`
}

func (c *watchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.schedule, "schedule", "0 18 * * *", "cron schedule for compliance runs")
	f.BoolVar(&c.runNow, "now", false, "run a compliance pass immediately on startup")
}

func (c *watchCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	s, err := c.app.services()
	if err != nil {
		return fail(err)
	}
	defer s.Close()

	sched := scheduler.New(c.app.log)

	complianceJob := scheduler.NewComplianceJob(
		s.valuation, s.params, s.compliance, s.complianceRuns, c.app.log)
	if err := sched.AddJob(c.schedule, complianceJob); err != nil {
		return fail(fmt.Errorf("invalid schedule %q: %w", c.schedule, err))
	}

	maintenance := reliability.NewMaintenanceService(s.db, c.app.cfg.DataDir, c.app.log)
	if err := sched.AddJob("@daily", scheduler.NewMaintenanceJob(maintenance)); err != nil {
		return fail(err)
	}

	if c.app.cfg.Backup.Enabled() {
		store, err := reliability.NewS3Client(ctx, c.app.cfg.Backup, c.app.log)
		if err != nil {
			return fail(err)
		}
		backups := reliability.NewBackupService(s.db, store, c.app.cfg.DataDir, c.app.log)
		backupJob := scheduler.NewBackupJob(backups, c.app.cfg.Backup.RetentionDays, c.app.log)
		if err := sched.AddJob("@daily", backupJob); err != nil {
			return fail(err)
		}
	}

	if c.runNow {
		if err := sched.RunNow(complianceJob); err != nil {
			c.app.log.Error().Err(err).Msg("Initial compliance run failed")
		}
	}

	sched.Start()
	defer sched.Stop()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case <-stop:
	case <-ctx.Done():
	}
	return subcommands.ExitSuccess
}
