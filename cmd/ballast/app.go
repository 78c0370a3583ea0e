package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/rs/zerolog"

	"github.com/aknight/ballast/internal/config"
	"github.com/aknight/ballast/internal/database"
	"github.com/aknight/ballast/internal/modules/compliance"
	"github.com/aknight/ballast/internal/modules/correlation"
	"github.com/aknight/ballast/internal/modules/historical"
	"github.com/aknight/ballast/internal/modules/params"
	"github.com/aknight/ballast/internal/modules/sensitivity"
	"github.com/aknight/ballast/internal/modules/stress"
	"github.com/aknight/ballast/internal/modules/valuation"
)

// app carries process-level state shared by every subcommand.
type app struct {
	cfg *config.Config
	log zerolog.Logger
}

// openDB opens the database and applies migrations.
func (a *app) openDB() (*database.DB, error) {
	db, err := database.New(database.Config{Path: a.cfg.DatabasePath(), Name: "ballast"})
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// services wires the repositories and engines over one open database.
type services struct {
	db *database.DB

	params         *params.Repository
	prices         *historical.Repository
	valuation      *valuation.Service
	compliance     *compliance.Engine
	complianceRuns *compliance.Repository
	sensitivity    *sensitivity.Engine
	stress         *stress.Engine
	correlation    *correlation.Engine
}

func (a *app) services() (*services, error) {
	db, err := a.openDB()
	if err != nil {
		return nil, err
	}

	conn := db.Conn()
	prices := historical.NewRepository(conn, a.log)
	complianceEngine := compliance.NewEngine(a.log)

	return &services{
		db:             db,
		params:         params.NewRepository(conn, a.log),
		prices:         prices,
		valuation:      valuation.NewService(valuation.NewRepository(conn, a.log), prices, a.log),
		compliance:     complianceEngine,
		complianceRuns: compliance.NewRepository(conn, a.log),
		sensitivity:    sensitivity.NewEngine(a.log),
		stress:         stress.NewEngine(prices, complianceEngine, a.log),
		correlation:    correlation.NewEngine(prices, correlation.NewCache(conn, a.log), a.log),
	}, nil
}

func (s *services) Close() error {
	return s.db.Close()
}

// snapshotAndParams builds the current valuation and resolves parameters,
// the preamble shared by every analysis command.
func (s *services) snapshotAndParams() (*valuation.Valuation, *params.Params, error) {
	val, err := s.valuation.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to value portfolio: %w", err)
	}
	p, err := s.params.Resolve()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve parameters: %w", err)
	}
	return val, p, nil
}

// loadTrades reads hypothetical trades from a JSON file.
func loadTrades(path string) ([]valuation.Trade, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trades file: %w", err)
	}
	var trades []valuation.Trade
	if err := json.Unmarshal(raw, &trades); err != nil {
		return nil, fmt.Errorf("failed to parse trades file %s: %w", path, err)
	}
	if len(trades) == 0 {
		return nil, fmt.Errorf("trades file %s contains no trades", path)
	}
	return trades, nil
}

// fail prints an error and maps it to a failure exit status.
func fail(err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return subcommands.ExitFailure
}
