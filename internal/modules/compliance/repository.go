package compliance

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aknight/ballast/internal/database"
)

// Repository is the compliance audit log: it appends finished runs and reads
// them back for history. Results are stored per rule, tagged with a run id.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new compliance run repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "compliance").Logger(),
	}
}

// StoreRun persists a finished compliance run and returns its run id.
// The run header and every result commit atomically.
func (r *Repository) StoreRun(results []CheckResult, totalAUD float64) (string, error) {
	runID := uuid.NewString()
	date := time.Now().Format("2006-01-02")

	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(
			"INSERT INTO compliance_runs (id, date, total_value_aud) VALUES (?, ?, ?)",
			runID, date, totalAUD,
		); err != nil {
			return fmt.Errorf("failed to insert run header: %w", err)
		}
		for _, res := range results {
			if _, err := tx.Exec(
				"INSERT INTO compliance_results (run_id, rule_id, status, detail) VALUES (?, ?, ?, ?)",
				runID, string(res.RuleID), string(res.Status), res.Detail,
			); err != nil {
				return fmt.Errorf("failed to insert result %s: %w", res.RuleID, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	r.log.Info().Str("run_id", runID).Int("results", len(results)).Msg("Compliance run stored")
	return runID, nil
}

// RecentRuns returns the most recent runs, newest first.
func (r *Repository) RecentRuns(limit int) ([]Run, error) {
	rows, err := r.db.Query(`
		SELECT id, date, total_value_aud, created_at
		FROM compliance_runs
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query compliance runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.Date, &run.TotalValueAUD, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// ResultsForRun returns the stored results of one run in insertion order.
func (r *Repository) ResultsForRun(runID string) ([]CheckResult, error) {
	rows, err := r.db.Query(`
		SELECT rule_id, status, detail
		FROM compliance_results
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results for run %s: %w", runID, err)
	}
	defer rows.Close()

	var results []CheckResult
	for rows.Next() {
		var ruleID, status, detail string
		if err := rows.Scan(&ruleID, &status, &detail); err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}
		results = append(results, CheckResult{
			RuleID: RuleID(ruleID),
			Label:  RuleID(ruleID).Label(),
			Status: Status(status),
			Detail: detail,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}
	return results, nil
}
