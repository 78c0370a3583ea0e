// Command ballast is a single-user portfolio analytics CLI: valuation,
// compliance checks, sensitivity, stress scenarios and correlation analysis
// over a local SQLite database.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"

	"github.com/google/subcommands"

	"github.com/aknight/ballast/internal/config"
	"github.com/aknight/ballast/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.DevMode})
	logger.SetGlobalLogger(log)

	a := &app{cfg: cfg, log: log}

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	commander.Register(&initCmd{app: a}, "setup")
	commander.Register(&paramsCmd{app: a}, "setup")

	commander.Register(&complianceCmd{app: a}, "analysis")
	commander.Register(&sensitivityCmd{app: a}, "analysis")
	commander.Register(&stressCmd{app: a}, "analysis")
	commander.Register(&correlationsCmd{app: a}, "analysis")

	commander.Register(&backupCmd{app: a}, "operations")
	commander.Register(&watchCmd{app: a}, "operations")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
