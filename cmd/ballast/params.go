package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/aknight/ballast/internal/modules/params"
	"github.com/aknight/ballast/internal/report"
)

// paramsCmd inspects and edits the parameter store.
type paramsCmd struct {
	app *app
}

func (*paramsCmd) Name() string     { return "params" }
func (*paramsCmd) Synopsis() string { return "inspect and edit analytic parameters" }
func (*paramsCmd) Usage() string {
	return `ballast params list
ballast params set <key> <value>
ballast params unset <key>

  Lists the parameter store with overrides marked, sets an override, or
  removes one (restoring the built-in default).
`
}
func (*paramsCmd) SetFlags(*flag.FlagSet) {}

func (c *paramsCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	s, err := c.app.services()
	if err != nil {
		return fail(err)
	}
	defer s.Close()

	action := "list"
	if f.NArg() > 0 {
		action = f.Arg(0)
	}

	switch action {
	case "list":
		values, err := s.params.GetAll()
		if err != nil {
			return fail(err)
		}
		fmt.Print(report.Params(values, params.Defaults, params.Descriptions))
		return subcommands.ExitSuccess

	case "set":
		if f.NArg() != 3 {
			return fail(fmt.Errorf("usage: ballast params set <key> <value>"))
		}
		key, value := f.Arg(1), f.Arg(2)
		if err := s.params.Set(key, value); err != nil {
			return fail(err)
		}
		fmt.Printf("%s = %s\n", key, value)
		return subcommands.ExitSuccess

	case "unset":
		if f.NArg() != 2 {
			return fail(fmt.Errorf("usage: ballast params unset <key>"))
		}
		key := f.Arg(1)
		if err := s.params.Delete(key); err != nil {
			return fail(err)
		}
		fmt.Printf("%s restored to default %q\n", key, params.Defaults[key])
		return subcommands.ExitSuccess

	default:
		return fail(fmt.Errorf("unknown params action %q", action))
	}
}
