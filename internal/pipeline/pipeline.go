// Package pipeline runs the Sentinel-2 preprocessing chain for one archive
// or many: band lookup, alignment, optional crop, indices and labels.
package pipeline

import (
	"fmt"
	"io"
	"sync"

	"github.com/forest-guardian/landcover-cli/internal/align"
	"github.com/forest-guardian/landcover-cli/internal/indices"
	"github.com/forest-guardian/landcover-cli/internal/labeler"
	"github.com/forest-guardian/landcover-cli/internal/logger"
	"github.com/forest-guardian/landcover-cli/internal/properties"
	"github.com/forest-guardian/landcover-cli/internal/raster"
	"github.com/forest-guardian/landcover-cli/internal/region"
	"github.com/forest-guardian/landcover-cli/internal/sentinel"
	"github.com/gammazero/workerpool"
	"github.com/sirupsen/logrus"
)

type Config struct {
	SafeFolder  string
	GeoJSONPath string // empty: no crop
	Resolution  sentinel.Resolution
	Bands       []sentinel.Band // nil: the default menu for Resolution
	Variant     sentinel.Variant
	Scratch     raster.ScratchMode

	PositionalFallback bool
	// SkipFeatures leaves Result.Features nil for callers that only need
	// indices and labels.
	SkipFeatures bool
}

// ConfigFrom copies the pipeline settings out of a validated run config.
func ConfigFrom(c *properties.Config) Config {
	return Config{
		SafeFolder:         c.SafeFolder,
		GeoJSONPath:        c.GeoJSONPath,
		Resolution:         c.Resolution,
		Bands:              c.Bands,
		Variant:            c.Mode,
		Scratch:            c.ScratchMode,
		PositionalFallback: c.PositionalFallback,
	}
}

type Result struct {
	Stack    *raster.Stack
	Indices  *indices.Pair
	Labels   []uint8
	Features *raster.FeatureTable
}

type Pipeline struct {
	src      raster.Source
	log      logrus.FieldLogger
	progress io.Writer
}

type Option func(*Pipeline)

// WithProgress draws progress bars on w.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) { p.progress = w }
}

func New(src raster.Source, log logrus.FieldLogger, opts ...Option) *Pipeline {
	p := &Pipeline{src: src, log: log, progress: io.Discard}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes one archive. Nothing is returned alongside an error.
func (p *Pipeline) Run(cfg Config) (*Result, error) {
	return p.run(cfg, p.progress)
}

func (p *Pipeline) run(cfg Config, progress io.Writer) (*Result, error) {
	log := p.log.WithFields(logrus.Fields{
		"safe_folder": cfg.SafeFolder,
		"resolution":  int(cfg.Resolution),
		"variant":     cfg.Variant.String(),
	})

	files, err := sentinel.NewCatalog(log).Resolve(cfg.SafeFolder, cfg.Resolution, cfg.Bands, cfg.Variant)
	if err != nil {
		return nil, err
	}

	stack, err := align.New(p.src, log, align.WithProgress(progress)).Align(files, cfg.Resolution)
	if err != nil {
		return nil, err
	}

	if cfg.GeoJSONPath != "" {
		poly, err := region.LoadPolygon(cfg.GeoJSONPath, log)
		if err != nil {
			return nil, err
		}
		if stack, err = region.NewCropper(log, cfg.Scratch).Crop(stack, poly); err != nil {
			return nil, err
		}
	}

	pair, err := indices.Compute(stack, indices.Options{AllowPositionalFallback: cfg.PositionalFallback}, log)
	if err != nil {
		return nil, err
	}
	labels, err := labeler.FromIndices(pair)
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"bands":  len(stack.Order),
		"width":  stack.Grid.Width,
		"height": stack.Grid.Height,
	}).Info("pipeline finished")

	res := &Result{Stack: stack, Indices: pair, Labels: labels}
	if !cfg.SkipFeatures {
		res.Features = raster.Flatten(stack)
	}
	return res, nil
}

// Handler consumes one archive's result on the worker that produced it. i is
// the position of cfg in the batch. The result is dropped once it returns.
type Handler func(i int, cfg Config, res *Result) error

// BatchResult is the outcome of the archive at the same position in the batch.
type BatchResult struct {
	SafeFolder string
	Err        error
}

// RunBatch runs every config on a pool of workers goroutines and hands each
// successful result to handle. Runs share no state; a failing archive does
// not stop the others. At most workers results are alive at a time.
func (p *Pipeline) RunBatch(cfgs []Config, workers int, handle Handler) []BatchResult {
	if workers < 1 {
		workers = 1
	}

	var (
		mu          sync.Mutex
		results     = make([]BatchResult, len(cfgs))
		progressBar = logger.Progress(p.progress, len(cfgs), "Processing archives")
	)

	wp := workerpool.New(workers)
	for i, cfg := range cfgs {
		i, c := i, cfg
		wp.Submit(func() {
			res, err := p.run(c, io.Discard)
			if err == nil && handle != nil {
				err = handle(i, c, res)
			}
			if err != nil {
				p.log.WithError(err).WithField("safe_folder", c.SafeFolder).Error("archive failed")
				err = fmt.Errorf("%s: %w", c.SafeFolder, err)
			}
			results[i] = BatchResult{SafeFolder: c.SafeFolder, Err: err}

			mu.Lock()
			_ = progressBar.Add(1)
			mu.Unlock()
		})
	}
	wp.StopWait()
	_ = progressBar.Finish()

	return results
}
