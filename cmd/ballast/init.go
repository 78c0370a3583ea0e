package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
)

// initCmd creates the database schema.
type initCmd struct {
	app *app
}

func (*initCmd) Name() string     { return "init" }
func (*initCmd) Synopsis() string { return "create the database schema and default parameters" }
func (*initCmd) Usage() string {
	return `ballast init

  Creates the SQLite database (schema and indexes) under the data directory.
  Safe to run repeatedly; existing data is left untouched.
`
}
func (*initCmd) SetFlags(*flag.FlagSet) {}

func (c *initCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	db, err := c.app.openDB()
	if err != nil {
		return fail(err)
	}
	defer db.Close()

	if err := db.HealthCheck(ctx); err != nil {
		return fail(err)
	}

	fmt.Printf("Database ready at %s\n", c.app.cfg.DatabasePath())
	fmt.Println("Parameters use built-in defaults; run 'ballast params list' to inspect them.")
	return subcommands.ExitSuccess
}
