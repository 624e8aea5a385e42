// Package labeler derives bootstrap land-cover labels when no ground truth exists.
//
// The thresholds are a rough heuristic, not a land-cover model: turbid water,
// sparse vegetation and bare soil are all easily mislabelled.
package labeler

import (
	"fmt"

	"github.com/forest-guardian/landcover-cli/internal/errkind"
	"github.com/forest-guardian/landcover-cli/internal/indices"
)

type Class uint8

const (
	Water      Class = 0
	Vegetation Class = 1
	Urban      Class = 2
)

const (
	WaterNDWI      = 0.3
	VegetationNDVI = 0.4
)

func (c Class) String() string {
	switch c {
	case Water:
		return "water"
	case Vegetation:
		return "vegetation"
	case Urban:
		return "urban"
	}
	return fmt.Sprintf("class_%d", uint8(c))
}

// Classify labels one pixel: water when NDWI > 0.3, else vegetation when
// NDVI > 0.4, else urban/other.
func Classify(ndvi, ndwi float64) Class {
	switch {
	case ndwi > WaterNDWI:
		return Water
	case ndvi > VegetationNDVI:
		return Vegetation
	default:
		return Urban
	}
}

// FromIndices labels every pixel of pair, row-major.
func FromIndices(pair *indices.Pair) ([]uint8, error) {
	if len(pair.NDVI) != len(pair.NDWI) {
		return nil, fmt.Errorf("%w: NDVI has %d pixels, NDWI %d", errkind.ErrConfig, len(pair.NDVI), len(pair.NDWI))
	}
	labels := make([]uint8, len(pair.NDVI))
	for i := range labels {
		labels[i] = uint8(Classify(pair.NDVI[i], pair.NDWI[i]))
	}
	return labels, nil
}

// Stripes returns demo labels, row-major: the top third water, the middle
// third vegetation and the rest urban.
func Stripes(height, width int) []uint8 {
	labels := make([]uint8, height*width)
	for y := 0; y < height; y++ {
		c := Urban
		switch {
		case y < height/3:
			c = Water
		case y < 2*height/3:
			c = Vegetation
		}
		for x := 0; x < width; x++ {
			labels[y*width+x] = uint8(c)
		}
	}
	return labels
}
