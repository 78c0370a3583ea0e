package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aknight/ballast/internal/modules/compliance"
	"github.com/aknight/ballast/internal/modules/params"
	"github.com/aknight/ballast/internal/modules/valuation"
	"github.com/aknight/ballast/internal/reliability"
)

// ComplianceJob values the portfolio, runs the full check suite and stores
// the run so drift shows up without anyone asking for a report.
type ComplianceJob struct {
	valuation *valuation.Service
	params    *params.Repository
	engine    *compliance.Engine
	runs      *compliance.Repository
	log       zerolog.Logger
}

// NewComplianceJob creates the scheduled compliance job.
func NewComplianceJob(
	v *valuation.Service,
	p *params.Repository,
	engine *compliance.Engine,
	runs *compliance.Repository,
	log zerolog.Logger,
) *ComplianceJob {
	return &ComplianceJob{
		valuation: v,
		params:    p,
		engine:    engine,
		runs:      runs,
		log:       log.With().Str("job", "compliance").Logger(),
	}
}

// Name returns the job name.
func (j *ComplianceJob) Name() string { return "compliance" }

// Run executes one compliance pass.
func (j *ComplianceJob) Run() error {
	val, err := j.valuation.Build()
	if err != nil {
		return fmt.Errorf("failed to value portfolio: %w", err)
	}
	for _, w := range val.Warnings {
		j.log.Warn().Str("warning", w).Msg("Valuation data gap")
	}

	p, err := j.params.Resolve()
	if err != nil {
		return fmt.Errorf("failed to resolve parameters: %w", err)
	}

	results, err := j.engine.RunAllChecks(val.Snapshot, p)
	if err != nil {
		return fmt.Errorf("compliance run failed: %w", err)
	}

	runID, err := j.runs.StoreRun(results, val.Snapshot.TotalAUD())
	if err != nil {
		return fmt.Errorf("failed to store compliance run: %w", err)
	}

	summary := compliance.Summarise(results)
	event := j.log.Info()
	if summary.Breach > 0 {
		event = j.log.Warn()
	}
	event.
		Str("run_id", runID).
		Int("checks", len(results)).
		Int("warnings", summary.Warning).
		Int("breaches", summary.Breach).
		Msg("Scheduled compliance run complete")
	return nil
}

// MaintenanceJob adapts the maintenance service to the scheduler.
type MaintenanceJob struct {
	maintenance *reliability.MaintenanceService
}

// NewMaintenanceJob creates the scheduled maintenance job.
func NewMaintenanceJob(m *reliability.MaintenanceService) *MaintenanceJob {
	return &MaintenanceJob{maintenance: m}
}

// Name returns the job name.
func (j *MaintenanceJob) Name() string { return "maintenance" }

// Run executes the daily maintenance pass.
func (j *MaintenanceJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	return j.maintenance.RunDaily(ctx)
}

// BackupJob ships a fresh backup and rotates old ones.
type BackupJob struct {
	backups       *reliability.BackupService
	retentionDays int
	log           zerolog.Logger
}

// NewBackupJob creates the scheduled backup job.
func NewBackupJob(b *reliability.BackupService, retentionDays int, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		backups:       b,
		retentionDays: retentionDays,
		log:           log.With().Str("job", "backup").Logger(),
	}
}

// Name returns the job name.
func (j *BackupJob) Name() string { return "backup" }

// Run creates and uploads a backup, then applies retention.
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	archive, err := j.backups.CreateAndUpload(ctx)
	if err != nil {
		return err
	}
	j.log.Info().Str("archive", archive).Msg("Backup uploaded")

	if err := j.backups.RotateOldBackups(ctx, j.retentionDays); err != nil {
		j.log.Warn().Err(err).Msg("Backup rotation failed")
	}
	return nil
}
