package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Serve  *ServeCommand
	Watch  *WatchCommand
	Report *ReportCommand
	Show   *ShowCommand
	Status *StatusCommand
	Forget *ForgetCommand
	Purge  *PurgeCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "sitetime"
	parser.LongDescription = "Local per-site active-tab time tracking with daily, weekly, and monthly totals."

	cmds := &commands{
		Serve:  &ServeCommand{globals: &globals, version: version},
		Watch:  &WatchCommand{globals: &globals, version: version},
		Report: &ReportCommand{globals: &globals, version: version},
		Show:   &ShowCommand{globals: &globals, version: version},
		Status: &StatusCommand{globals: &globals, version: version},
		Forget: &ForgetCommand{globals: &globals, version: version},
		Purge:  &PurgeCommand{globals: &globals, version: version},
	}

	parser.AddCommand("serve", "Start the sitetime daemon", "Start the sitetime daemon: receives tab events over HTTP and flushes active time to the store.", cmds.Serve)
	parser.AddCommand("watch", "Live ranked view", "Show a live ranked list of time per site for the selected period.", cmds.Watch)
	parser.AddCommand("report", "Print ranked totals", "Print the ranked time per site for a period.", cmds.Report)
	parser.AddCommand("show", "Dump stored records", "Print stored records as JSON in their storage shape.", cmds.Show)
	parser.AddCommand("status", "Show store statistics", "Show backend, tracked domains, today's total, and daemon reachability.", cmds.Status)
	parser.AddCommand("forget", "Delete one domain", "Delete the stored record of a single domain.", cmds.Forget)
	parser.AddCommand("purge", "Delete ALL sitetime data", "Delete ALL sitetime data. Destructive operation with safety prompt.", cmds.Purge)

	return parser, &globals, cmds
}

// Run is the main entry point for the sitetime CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// Handle --version before parser (go-flags requires a subcommand, but
	// --version is valid without one).
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("sitetime %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
