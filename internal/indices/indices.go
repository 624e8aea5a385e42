// Package indices computes normalized-difference spectral indices from a stack.
package indices

import (
	"fmt"

	"github.com/forest-guardian/landcover-cli/internal/errkind"
	"github.com/forest-guardian/landcover-cli/internal/raster"
	"github.com/forest-guardian/landcover-cli/internal/sentinel"
	"github.com/sirupsen/logrus"
)

// Fixed stack positions used when the band order does not name the
// green, red and near-infrared channels. They match a B02 B03 B04 B08 stack
// and are a guess for anything else.
const (
	FallbackGreen = 1
	FallbackRed   = 2
	FallbackNIR   = 3
)

type Options struct {
	// AllowPositionalFallback lets Compute read green, red and NIR from the
	// fixed Fallback positions when the band order lacks B03, B04 or B08.
	// Without it a missing band is a configuration error.
	AllowPositionalFallback bool
}

// Pair holds NDVI and NDWI per pixel, row-major, on the stack grid.
type Pair struct {
	Width  int
	Height int
	NDVI   []float64
	NDWI   []float64
}

// Compute returns NDVI = (NIR-Red)/(NIR+Red) and NDWI = (Green-NIR)/(Green+NIR).
// A pixel whose denominator is exactly zero gets 0.
func Compute(s *raster.Stack, opts Options, log logrus.FieldLogger) (*Pair, error) {
	green, red, nir, err := locate(s, opts, log)
	if err != nil {
		return nil, err
	}

	n := s.Grid.Pixels()
	pair := &Pair{
		Width:  s.Grid.Width,
		Height: s.Grid.Height,
		NDVI:   make([]float64, n),
		NDWI:   make([]float64, n),
	}
	for i := 0; i < n; i++ {
		pair.NDVI[i] = normalizedDifference(nir[i], red[i])
		pair.NDWI[i] = normalizedDifference(green[i], nir[i])
	}
	log.WithField("pixels", n).Info("spectral indices computed")
	return pair, nil
}

func locate(s *raster.Stack, opts Options, log logrus.FieldLogger) (green, red, nir []float64, err error) {
	g, gok := s.Band(sentinel.Green)
	r, rok := s.Band(sentinel.Red)
	n, nok := s.Band(sentinel.NIR)
	if gok && rok && nok {
		return g, r, n, nil
	}

	if !opts.AllowPositionalFallback {
		return nil, nil, nil, fmt.Errorf("%w: band order %v lacks %s, %s or %s; enable positional fallback to use stack positions %d, %d, %d",
			errkind.ErrConfig, s.Order, sentinel.Green, sentinel.Red, sentinel.NIR, FallbackGreen, FallbackRed, FallbackNIR)
	}
	if len(s.Data) <= FallbackNIR {
		return nil, nil, nil, fmt.Errorf("%w: positional fallback needs at least %d bands, stack has %d",
			errkind.ErrConfig, FallbackNIR+1, len(s.Data))
	}
	log.WithFields(logrus.Fields{
		"order": s.Order,
		"green": FallbackGreen,
		"red":   FallbackRed,
		"nir":   FallbackNIR,
	}).Warn("green, red or NIR band not named in band order, using fixed stack positions")
	return s.Data[FallbackGreen], s.Data[FallbackRed], s.Data[FallbackNIR], nil
}

func normalizedDifference(a, b float64) float64 {
	den := a + b
	if den == 0 {
		return 0
	}
	return (a - b) / den
}
