package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

const usage = `Usage: jobsletter [--config=<path>] <command> [options]

Commands:
  send [--test <email>]          send the weekly jobs letter, or a test to <email>
  schedule [--status-addr=<a>]   run the weekly schedule until interrupted
  run-scheduled                  run the scheduled task once with its check-ins
`

var errUsage = errors.New("usage")

// testFlag records whether --test was given at all, so a bare or empty
// value can be told apart from no flag. Both --test=<email> and
// --test <email> are accepted.
type testFlag struct {
	set   bool
	value string
}

func (f *testFlag) String() string   { return f.value }
func (f *testFlag) IsBoolFlag() bool { return true }

func (f *testFlag) Set(v string) error {
	f.set = true
	if v == "true" {
		v = ""
	}
	f.value = v
	return nil
}

type command struct {
	name       string
	configPath string

	testMode      bool
	testRecipient string

	statusAddr string
}

func parseArgs(args []string, stderr io.Writer) (*command, error) {
	global := flag.NewFlagSet("jobsletter", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := global.String("config", "", "path to a YAML configuration file")
	if err := global.Parse(args); err != nil {
		return nil, err
	}

	rest := global.Args()
	if len(rest) == 0 {
		global.Usage()
		return nil, errUsage
	}
	cmd := &command{name: rest[0], configPath: *configPath}

	fs := flag.NewFlagSet(cmd.name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }

	switch cmd.name {
	case "send":
		var test testFlag
		fs.Var(&test, "test", "send a test to this address instead of the list")
		if err := fs.Parse(rest[1:]); err != nil {
			return nil, err
		}
		// "--test qa@jobbsy.dev": the value stops flag parsing, take it
		// and parse what follows.
		if test.set && test.value == "" && fs.NArg() > 0 && !strings.HasPrefix(fs.Arg(0), "-") {
			test.value = fs.Arg(0)
			if err := fs.Parse(fs.Args()[1:]); err != nil {
				return nil, err
			}
		}
		cmd.testMode, cmd.testRecipient = test.set, test.value
	case "schedule":
		fs.StringVar(&cmd.statusAddr, "status-addr", "", "serve the status endpoints on this address")
		if err := fs.Parse(rest[1:]); err != nil {
			return nil, err
		}
	case "run-scheduled":
		if err := fs.Parse(rest[1:]); err != nil {
			return nil, err
		}
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", cmd.name)
		global.Usage()
		return nil, errUsage
	}

	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%s: unexpected arguments %v", cmd.name, fs.Args())
	}
	return cmd, nil
}
