// Package align stacks per-band rasters of mixed native resolution onto one grid.
package align

import (
	"fmt"
	"io"

	"github.com/airbusgeo/godal"
	"github.com/forest-guardian/landcover-cli/internal/errkind"
	"github.com/forest-guardian/landcover-cli/internal/logger"
	"github.com/forest-guardian/landcover-cli/internal/raster"
	"github.com/forest-guardian/landcover-cli/internal/sentinel"
	"github.com/sirupsen/logrus"
)

type Aligner struct {
	src      raster.Source
	log      logrus.FieldLogger
	progress io.Writer
}

type Option func(*Aligner)

// WithProgress draws a progress bar on w while bands are aligned.
func WithProgress(w io.Writer) Option {
	return func(a *Aligner) { a.progress = w }
}

func New(src raster.Source, log logrus.FieldLogger, opts ...Option) *Aligner {
	a := &Aligner{src: src, log: log.WithField("component", "aligner"), progress: io.Discard}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Align reads the band files into one stack on the grid of a reference band
// captured at res. Bands are stacked in sorted band code order. Bands already at
// res are copied verbatim and must share the reference footprint and CRS; the
// others are warped onto the reference grid with bilinear interpolation.
func (a *Aligner) Align(files map[sentinel.Band]string, res sentinel.Resolution) (*raster.Stack, error) {
	order := make([]sentinel.Band, 0, len(files))
	for b := range files {
		order = append(order, b)
	}
	sentinel.SortBands(order)

	var refBand sentinel.Band
	for _, b := range order {
		if native, ok := b.NativeResolution(); ok && native == res {
			refBand = b
			break
		}
	}
	if refBand == "" {
		return nil, fmt.Errorf("%w: no band captured at %dm among %v to use as reference grid", errkind.ErrConfig, int(res), order)
	}

	ref, err := a.src.ReadBand(files[refBand])
	if err != nil {
		return nil, fmt.Errorf("reading reference band %s: %w", refBand, err)
	}
	refGrid := ref.Grid
	a.log.WithFields(logrus.Fields{
		"reference": refBand,
		"width":     refGrid.Width,
		"height":    refGrid.Height,
	}).Info("reference grid established")

	bar := logger.Progress(a.progress, len(order), "aligning bands")
	data := make([][]float64, len(order))
	types := make([]godal.DataType, len(order))
	for i, b := range order {
		var band *raster.Band
		if b == refBand {
			band = ref
		} else {
			band, err = a.load(b, files[b], res, refGrid)
			if err != nil {
				return nil, err
			}
		}
		data[i] = band.Data
		types[i] = band.Grid.DataType
		_ = bar.Add(1)
	}

	grid := refGrid
	grid.DataType = raster.PromoteType(types...)
	return raster.NewStack(grid, order, data)
}

func (a *Aligner) load(b sentinel.Band, path string, res sentinel.Resolution, ref raster.Grid) (*raster.Band, error) {
	log := a.log.WithFields(logrus.Fields{"band": b, "path": path})

	if native, ok := b.NativeResolution(); ok && native == res {
		band, err := a.src.ReadBand(path)
		if err != nil {
			return nil, fmt.Errorf("reading band %s: %w", b, err)
		}
		if !band.Grid.SameFootprint(ref) {
			return nil, fmt.Errorf("%w: band %s grid %dx%d %v does not match reference grid %dx%d %v",
				errkind.ErrConfig, b, band.Grid.Width, band.Grid.Height, band.Grid.Transform, ref.Width, ref.Height, ref.Transform)
		}
		if !raster.SameCRS(band.Grid.CRS, ref.CRS) {
			return nil, fmt.Errorf("%w: band %s is not in the reference CRS", errkind.ErrConfig, b)
		}
		log.Debug("band read at native resolution")
		return band, nil
	}

	band, err := a.src.Reproject(path, ref, raster.Bilinear)
	if err != nil {
		return nil, fmt.Errorf("resampling band %s: %w", b, err)
	}
	if band.Grid.Width != ref.Width || band.Grid.Height != ref.Height || len(band.Data) != ref.Pixels() {
		return nil, fmt.Errorf("%w: resampled band %s is %dx%d, expected %dx%d",
			errkind.ErrIO, b, band.Grid.Width, band.Grid.Height, ref.Width, ref.Height)
	}
	log.Debug("band resampled onto reference grid")
	return band, nil
}
