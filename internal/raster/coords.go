package raster

import (
	"fmt"

	"github.com/airbusgeo/godal"
	"github.com/forest-guardian/landcover-cli/internal/errkind"
)

// PixelLonLat returns the WGS84 longitude and latitude of every pixel centre,
// in row-major order. A grid without CRS yields its raw coordinates.
func PixelLonLat(g Grid) ([]float64, []float64, error) {
	xs := make([]float64, g.Pixels())
	ys := make([]float64, g.Pixels())
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			xs[y*g.Width+x], ys[y*g.Width+x] = g.PixelCenter(x, y)
		}
	}
	if g.CRS == "" {
		return xs, ys, nil
	}

	src, err := godal.NewSpatialRef(g.CRS)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: parse raster CRS: %v", errkind.ErrGeometry, err)
	}
	defer src.Close()
	dst, err := godal.NewSpatialRefFromEPSG(4326)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: load EPSG:4326: %v", errkind.ErrGeometry, err)
	}
	defer dst.Close()
	if src.IsSame(dst) {
		return xs, ys, nil
	}

	tr, err := godal.NewTransform(src, dst)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: build transform to EPSG:4326: %v", errkind.ErrGeometry, err)
	}
	defer tr.Close()
	if err := tr.TransformEx(xs, ys, nil, nil); err != nil {
		return nil, nil, fmt.Errorf("%w: transform pixel centres: %v", errkind.ErrGeometry, err)
	}
	return xs, ys, nil
}
