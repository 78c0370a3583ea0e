package reliability

import (
	"context"
	"fmt"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/aknight/ballast/internal/database"
)

// MaintenanceService performs routine database upkeep: integrity checks,
// WAL checkpointing, cache purging and a disk space check.
type MaintenanceService struct {
	db      *database.DB
	dataDir string
	log     zerolog.Logger
}

// NewMaintenanceService creates a maintenance service.
func NewMaintenanceService(db *database.DB, dataDir string, log zerolog.Logger) *MaintenanceService {
	return &MaintenanceService{
		db:      db,
		dataDir: dataDir,
		log:     log.With().Str("service", "maintenance").Logger(),
	}
}

// RunDaily performs the daily maintenance pass. A failed integrity check is
// fatal; checkpoint and purge failures are logged and tolerated.
func (s *MaintenanceService) RunDaily(ctx context.Context) error {
	s.log.Info().Msg("Starting daily maintenance")
	startTime := time.Now()

	if err := s.db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	if err := s.db.WALCheckpoint("TRUNCATE"); err != nil {
		s.log.Warn().Err(err).Msg("WAL checkpoint failed")
	}

	if err := s.purgeExpiredCache(); err != nil {
		s.log.Warn().Err(err).Msg("Report cache purge failed")
	}

	if err := s.checkDiskSpace(); err != nil {
		return err
	}

	s.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Msg("Daily maintenance completed")
	return nil
}

// purgeExpiredCache drops expired report cache entries.
func (s *MaintenanceService) purgeExpiredCache() error {
	result, err := s.db.Exec("DELETE FROM report_cache WHERE expires_at <= ?", time.Now().Unix())
	if err != nil {
		return err
	}
	if purged, err := result.RowsAffected(); err == nil && purged > 0 {
		s.log.Debug().Int64("purged", purged).Msg("Expired cache entries removed")
	}
	return nil
}

// checkDiskSpace fails when the data directory's filesystem is nearly full.
func (s *MaintenanceService) checkDiskSpace() error {
	stat := syscall.Statfs_t{}
	if err := syscall.Statfs(s.dataDir, &stat); err != nil {
		return fmt.Errorf("failed to stat filesystem: %w", err)
	}

	availableGB := float64(stat.Bavail*uint64(stat.Bsize)) / 1e9
	switch {
	case availableGB < 0.5:
		return fmt.Errorf("only %.2f GB free on %s", availableGB, s.dataDir)
	case availableGB < 2.0:
		s.log.Warn().Float64("available_gb", availableGB).Msg("Disk space running low")
	default:
		s.log.Debug().Float64("available_gb", availableGB).Msg("Disk space check")
	}
	return nil
}
