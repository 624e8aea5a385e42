// Package dataset turns a processed stack into per-pixel records.
package dataset

import (
	"fmt"
	"os"

	"github.com/forest-guardian/landcover-cli/internal/errkind"
	"github.com/forest-guardian/landcover-cli/internal/indices"
	"github.com/forest-guardian/landcover-cli/internal/raster"
	"github.com/gocarina/gocsv"
)

// NoPrediction marks rows built without classifier output.
const NoPrediction = -1

type PixelRow struct {
	X          int     `csv:"x"`
	Y          int     `csv:"y"`
	Longitude  float64 `csv:"longitude"`
	Latitude   float64 `csv:"latitude"`
	NDVI       float64 `csv:"ndvi"`
	NDWI       float64 `csv:"ndwi"`
	Label      int     `csv:"label"`
	Prediction int     `csv:"prediction"`
}

// Build returns one row per pixel of grid, row-major, with pixel-centre
// coordinates in WGS84. predictions may be nil.
func Build(grid raster.Grid, pair *indices.Pair, labels, predictions []uint8) ([]*PixelRow, error) {
	n := grid.Pixels()
	if len(pair.NDVI) != n || len(labels) != n || (predictions != nil && len(predictions) != n) {
		return nil, fmt.Errorf("%w: dataset inputs do not match the %dx%d grid", errkind.ErrConfig, grid.Width, grid.Height)
	}
	lon, lat, err := raster.PixelLonLat(grid)
	if err != nil {
		return nil, err
	}

	rows := make([]*PixelRow, n)
	for i := range rows {
		rows[i] = &PixelRow{
			X:          i % grid.Width,
			Y:          i / grid.Width,
			Longitude:  lon[i],
			Latitude:   lat[i],
			NDVI:       pair.NDVI[i],
			NDWI:       pair.NDWI[i],
			Label:      int(labels[i]),
			Prediction: NoPrediction,
		}
		if predictions != nil {
			rows[i].Prediction = int(predictions[i])
		}
	}
	return rows, nil
}

func Save(path string, rows []*PixelRow) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", errkind.ErrIO, path, err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&rows, file); err != nil {
		return fmt.Errorf("%w: write %s: %v", errkind.ErrIO, path, err)
	}
	return nil
}

func Load(path string) ([]*PixelRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", errkind.ErrIO, path, err)
	}
	defer file.Close()

	var rows []*PixelRow
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", errkind.ErrIO, path, err)
	}
	return rows, nil
}

// Accuracy is the share of rows whose prediction equals the label, over rows
// that carry a prediction.
func Accuracy(rows []*PixelRow) float64 {
	var total, hits int
	for _, r := range rows {
		if r.Prediction == NoPrediction {
			continue
		}
		total++
		if r.Prediction == r.Label {
			hits++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
