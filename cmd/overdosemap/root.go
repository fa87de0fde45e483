package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/md-overdose-map/internal/adapter/archive"
	"github.com/couchcryptid/md-overdose-map/internal/adapter/kafka"
	"github.com/couchcryptid/md-overdose-map/internal/adapter/shapefile"
	"github.com/couchcryptid/md-overdose-map/internal/adapter/sqlite"
	"github.com/couchcryptid/md-overdose-map/internal/domain"
	"github.com/couchcryptid/md-overdose-map/internal/pipeline"
)

func newRootCommand(a *app) *cobra.Command {
	var (
		req            domain.MapRequest
		includeMissing bool
	)

	cmd := &cobra.Command{
		Use:   "overdosemap <year> <substance>",
		Short: "Render a Maryland county map of accidental overdose deaths",
		Long: fmt.Sprintf(`Render a Maryland county map of accidental overdose deaths.

Year must be between %d and %d. Substance is one of (case-insensitive):
  %s

The map is written to $MAPS_DIR/<year>_<substance>.html.`, domain.MinYear, domain.MaxYear, strings.Join(domain.Substances, ", ")),
		Example:       "  overdosemap 2016 fentanyl\n  overdosemap 2018 \"prescription opioid\" --include-missing",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 2 {
				return &usageError{fmt.Errorf("expected <year> <substance>, got %d argument(s)", len(args))}
			}
			r, err := domain.NewMapRequest(args[0], args[1])
			if err != nil {
				return &usageError{err}
			}
			req = r
			return nil
		},
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.generate(ctx, req, includeMissing)
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err}
	})
	cmd.Flags().BoolVar(&includeMissing, "include-missing", false,
		"keep counties without a record, shown with zero deaths")

	cmd.AddCommand(newServeCommand(a))
	return cmd
}

func (a *app) generate(ctx context.Context, req domain.MapRequest, includeMissing bool) error {
	defer a.writeMetrics()
	m := metrics()

	store, err := sqlite.Open(ctx, a.cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	opts := pipeline.Options{
		DataDir:       a.cfg.DataDir,
		MapsDir:       a.cfg.MapsDir,
		Catalog:       a.cfg.Catalog,
		KeepUnmatched: includeMissing,
	}
	if a.cfg.KafkaEnabled() {
		w := kafka.NewWriter(a.cfg, a.logger)
		defer func() {
			if err := w.Close(); err != nil {
				a.logger.Error("kafka writer close error", "error", err)
			}
		}()
		opts.Notifier = w
		a.logger.Info("map events enabled", "topic", a.cfg.KafkaTopic)
	}

	p := pipeline.New(
		archive.NewFetcher(a.cfg.HTTPTimeout, a.logger, m),
		store,
		pipeline.LoaderFunc(shapefile.Load),
		opts,
		a.logger,
		m,
	)

	res, err := p.Run(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Map saved to %s\n", res.Path)
	return nil
}
