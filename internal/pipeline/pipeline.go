// Package pipeline runs one map generation: fetch boundary archives, query
// the overdose store, join, render and save.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/md-overdose-map/internal/adapter/archive"
	"github.com/couchcryptid/md-overdose-map/internal/config"
	"github.com/couchcryptid/md-overdose-map/internal/domain"
	"github.com/couchcryptid/md-overdose-map/internal/observability"
)

// ArchiveFetcher downloads and unpacks a boundary archive unless it is
// already present in dir.
type ArchiveFetcher interface {
	FetchIfAbsent(ctx context.Context, dataset, url, dir string) (archive.Result, error)
}

// RecordStore returns the overdose rows for one year and substance.
type RecordStore interface {
	Query(ctx context.Context, year int, substance string) ([]domain.OverdoseRecord, error)
}

// BoundaryLoader reads the boundaries stored in a shapefile.
type BoundaryLoader interface {
	Load(path string) ([]domain.Boundary, error)
}

// LoaderFunc adapts a function to BoundaryLoader.
type LoaderFunc func(path string) ([]domain.Boundary, error)

// Load calls f(path).
func (f LoaderFunc) Load(path string) ([]domain.Boundary, error) { return f(path) }

// Notifier announces a written map.
type Notifier interface {
	Publish(ctx context.Context, event domain.MapGenerated) error
}

// Options configures where the pipeline reads and writes.
type Options struct {
	DataDir string
	MapsDir string
	Catalog config.Catalog
	// KeepUnmatched keeps counties without a record, with zero deaths.
	KeepUnmatched bool
	// Notifier is optional; nil disables publishing.
	Notifier Notifier
}

// Result summarizes a successful run.
type Result struct {
	RunID    string
	Path     string
	Records  int
	Features int
}

// Pipeline orchestrates a single map generation.
type Pipeline struct {
	fetcher ArchiveFetcher
	store   RecordStore
	loader  BoundaryLoader
	opts    Options
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Pipeline with the given stages and observability.
func New(f ArchiveFetcher, s RecordStore, l BoundaryLoader, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		fetcher: f,
		store:   s,
		loader:  l,
		opts:    opts,
		logger:  logger,
		metrics: metrics,
	}
}

// Run generates the map for req and writes it to
// {MapsDir}/{year}_{substance}.html, replacing any previous file.
func (p *Pipeline) Run(ctx context.Context, req domain.MapRequest) (Result, error) {
	res := Result{RunID: uuid.NewString()}
	logger := p.logger.With("run_id", res.RunID, "year", req.Year, "substance", req.Substance)

	state, err := p.dataset(config.DatasetState)
	if err != nil {
		return res, err
	}
	counties, err := p.dataset(config.DatasetCounties)
	if err != nil {
		return res, err
	}

	err = p.timed("fetch", func() error {
		for _, d := range []config.Dataset{state, counties} {
			if _, err := p.fetcher.FetchIfAbsent(ctx, d.Name, d.URL, d.DirIn(p.opts.DataDir)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return res, err
	}

	var records []domain.OverdoseRecord
	err = p.timed("query", func() error {
		records, err = p.store.Query(ctx, req.Year, req.Substance)
		return err
	})
	if err != nil {
		return res, err
	}
	res.Records = len(records)
	p.metrics.RecordsQueried.Set(float64(len(records)))
	logger.Debug("records queried", "records", len(records))

	logger.Info("creating web map")
	var layer *mapLayer
	err = p.timed("transform", func() error {
		layer, err = p.buildLayer(req, state, counties, records)
		return err
	})
	if err != nil {
		return res, err
	}
	res.Features = len(layer.features.Features)
	p.metrics.FeaturesRendered.Set(float64(res.Features))
	if res.Features == 0 {
		logger.Warn("no county matched the query; the map has no shaded counties")
	}

	if err := os.MkdirAll(p.opts.MapsDir, 0o755); err != nil {
		return res, fmt.Errorf("create maps directory: %w", err)
	}
	res.Path = filepath.Join(p.opts.MapsDir, req.FileName())

	logger.Info("saving map", "path", res.Path)
	err = p.timed("render", func() error {
		return layer.save(req, res.Path)
	})
	if err != nil {
		return res, err
	}
	p.metrics.MapsWritten.Inc()

	p.publish(ctx, logger, req, res)
	return res, nil
}

func (p *Pipeline) dataset(name string) (config.Dataset, error) {
	d, ok := p.opts.Catalog.Lookup(name)
	if !ok {
		return config.Dataset{}, fmt.Errorf("dataset %q not in catalog", name)
	}
	return d, nil
}

// publish sends the map event. A failure is logged only: the map is
// already on disk.
func (p *Pipeline) publish(ctx context.Context, logger *slog.Logger, req domain.MapRequest, res Result) {
	if p.opts.Notifier == nil {
		return
	}
	event := domain.MapGenerated{
		RunID:       res.RunID,
		Year:        req.Year,
		Substance:   req.Substance,
		Path:        res.Path,
		Records:     res.Records,
		Features:    res.Features,
		GeneratedAt: domain.Now(),
	}
	if err := p.opts.Notifier.Publish(ctx, event); err != nil {
		p.metrics.EventsPublished.WithLabelValues("error").Inc()
		logger.Warn("publish map event failed", "error", err)
		return
	}
	p.metrics.EventsPublished.WithLabelValues("success").Inc()
}

func (p *Pipeline) timed(stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	p.metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	return err
}
