package cli

import (
	"io"

	"github.com/runnerr0/sitetime/internal/storage"
)

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable verbose output"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// ServeCommand runs the accounting loop and the local HTTP API.
type ServeCommand struct {
	Port     int    `long:"port" description:"Override daemon port"`
	LogLevel string `long:"log-level" description:"Override log level"`

	globals *GlobalFlags
	version string
	store   storage.Store // injectable for testing; nil means open the configured backend
}

// WatchCommand shows the live ranked view in the terminal.
type WatchCommand struct {
	Period string `long:"period" description:"Initial period: daily | weekly | monthly"`

	globals *GlobalFlags
	version string
	store   storage.Store
}

// ReportCommand prints a one-shot ranked list for a period.
type ReportCommand struct {
	Period string `long:"period" description:"Period: daily | weekly | monthly"`
	Limit  int    `long:"limit" description:"Maximum rows (0 = all)" default:"0"`

	globals *GlobalFlags
	version string
	store   storage.Store
}

// ShowCommand dumps stored records in their storage shape.
type ShowCommand struct {
	Domain string `long:"domain" description:"Only this domain"`

	globals *GlobalFlags
	version string
	store   storage.Store
}

// StatusCommand shows store statistics and daemon reachability.
type StatusCommand struct {
	globals *GlobalFlags
	version string
	store   storage.Store
}

// ForgetCommand deletes one domain's record.
type ForgetCommand struct {
	Domain string `long:"domain" description:"Domain to forget (required)"`

	globals *GlobalFlags
	version string
	store   storage.Store
}

// PurgeCommand deletes ALL sitetime data after a safety confirmation.
type PurgeCommand struct {
	All   bool `long:"all" description:"Required flag to confirm purge intent"`
	Force bool `long:"force" description:"Skip safety confirmation prompt"`

	globals *GlobalFlags
	version string
	store   storage.Store
	in      io.Reader // confirmation input; nil means os.Stdin
}
