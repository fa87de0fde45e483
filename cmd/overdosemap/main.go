// Command overdosemap renders a Maryland county choropleth of accidental
// overdose deaths for one year and substance, and can serve the generated
// maps over HTTP.
//
// Usage:
//
//	overdosemap <year> <substance> [--include-missing]
//	overdosemap serve
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/md-overdose-map/internal/adapter/archive"
	"github.com/couchcryptid/md-overdose-map/internal/config"
	"github.com/couchcryptid/md-overdose-map/internal/observability"
)

const networkErrorMessage = "There is something wrong with the Internet connection. Please try again."

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// metrics registers with the default registry exactly once per process.
var metrics = sync.OnceValue(observability.NewMetrics)

// usageError marks bad arguments or flags, reported with the usage text.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }

func (e *usageError) Unwrap() error { return e.err }

// app carries what the subcommands share once configuration is loaded.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	stdout io.Writer
	stderr io.Writer
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	return executeContext(context.Background(), args, stdout, stderr)
}

func executeContext(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	root := newRootCommand(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return exitOK
	}

	var uerr *usageError
	switch {
	case errors.As(err, &uerr):
		fmt.Fprintf(stderr, "Error: %v\n\n%s", err, cmd.UsageString())
		return exitUsage
	// An interrupted download surfaces as a NetworkError wrapping the
	// cancellation.
	case errors.Is(err, context.Canceled):
		if a.logger != nil {
			a.logger.Debug("run cancelled", "error", err)
		}
		fmt.Fprintln(stderr, "Interrupted.")
		return exitError
	case archive.IsNetworkError(err):
		if a.logger != nil {
			a.logger.Debug("download failed", "error", err)
		}
		fmt.Fprintln(stdout, networkErrorMessage)
		return exitError
	case a.logger != nil:
		a.logger.Error("map generation failed", "error", err)
		return exitError
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
}

// setup loads configuration and builds the logger. It runs after argument
// validation so bad input never touches the filesystem or network.
func (a *app) setup(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg
	a.logger = observability.NewLogger(cfg)
	return nil
}

// writeMetrics dumps the run's metrics when METRICS_TEXTFILE is set.
func (a *app) writeMetrics() {
	if a.cfg.MetricsTextfile == "" {
		return
	}
	if err := observability.WriteTextfile(a.cfg.MetricsTextfile); err != nil {
		a.logger.Warn("metrics textfile not written", "error", err)
	}
}
