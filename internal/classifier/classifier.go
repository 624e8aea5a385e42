// Package classifier is the boundary to the supervised land-cover model.
package classifier

import (
	"context"

	"github.com/forest-guardian/landcover-cli/internal/raster"
)

// Model is a supervised classifier over feature tables. Labels are one per
// table row, in row order. Persistence is opaque to callers.
type Model interface {
	Train(ctx context.Context, table *raster.FeatureTable, labels []uint8) error
	Predict(ctx context.Context, table *raster.FeatureTable) ([]uint8, error)
	Save(ctx context.Context, path string) error
	Load(ctx context.Context, path string) error
}
