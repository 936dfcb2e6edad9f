// Command attrhub-node runs an attrhub node: it loads the configured
// resources into attribute repositories, serves their values over HTTP,
// exports Prometheus metrics and replicates distributed attributes
// across the cluster.
//
// Usage:
//
//	attrhub-node [flags] <command>
//
// Commands:
//
//	run        Run the node (default)
//	validate   Check a configuration file and print a summary
//	events     Print an activity trace file
//	browse     List nodes advertised on the local network
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"
)

var version = "dev"

// CLI is the command-line interface.
type CLI struct {
	Config    string           `short:"c" help:"Configuration file path." default:"attrhub.yaml" type:"path"`
	LogLevel  string           `help:"Log level (debug, info, warn, error)." default:"info" enum:"debug,info,warn,error"`
	LogFormat string           `help:"Log format (text, json)." default:"text" enum:"text,json"`
	Version   kong.VersionFlag `help:"Show version and exit."`

	Run      RunCmd      `cmd:"" default:"withargs" help:"Run the node."`
	Validate ValidateCmd `cmd:"" help:"Check a configuration file and print a summary."`
	Events   EventsCmd   `cmd:"" help:"Print an activity trace file."`
	Browse   BrowseCmd   `cmd:"" help:"List nodes advertised on the local network."`

	logger *slog.Logger
}

// AfterApply sets up logging once flags are parsed.
func (c *CLI) AfterApply() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if c.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	c.logger = slog.New(h)
	slog.SetDefault(c.logger)
	return nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("attrhub-node"),
		kong.Description("Attribute management node."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)
	ctx.FatalIfErrorf(ctx.Run(&cli))
}
