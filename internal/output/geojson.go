package output

import (
	"fmt"
	"os"

	"github.com/forest-guardian/landcover-cli/internal/dataset"
	"github.com/forest-guardian/landcover-cli/internal/errkind"
	"github.com/forest-guardian/landcover-cli/internal/labeler"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// PixelFeatures returns one point feature per row at the pixel centre.
func PixelFeatures(rows []*dataset.PixelRow) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range rows {
		f := geojson.NewFeature(orb.Point{r.Longitude, r.Latitude})
		f.Properties["x"] = r.X
		f.Properties["y"] = r.Y
		f.Properties["ndvi"] = r.NDVI
		f.Properties["ndwi"] = r.NDWI
		f.Properties["label"] = labeler.Class(r.Label).String()
		if r.Prediction != dataset.NoPrediction {
			f.Properties["prediction"] = labeler.Class(r.Prediction).String()
		}
		fc.Append(f)
	}
	return fc
}

func WriteGeoJSON(path string, rows []*dataset.PixelRow) error {
	data, err := PixelFeatures(rows).MarshalJSON()
	if err != nil {
		return fmt.Errorf("%w: encode GeoJSON: %v", errkind.ErrIO, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", errkind.ErrIO, path, err)
	}
	return nil
}
