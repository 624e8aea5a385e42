package output

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/forest-guardian/landcover-cli/internal/dataset"
	"github.com/forest-guardian/landcover-cli/internal/errkind"
	"github.com/forest-guardian/landcover-cli/internal/properties"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderClassMap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classes.png")
	labels := []uint8{0, 1, 2, 7}
	require.NoError(t, RenderClassMap(path, labels, 2, 2, 8))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()
	img, err := png.Decode(file)
	require.NoError(t, err)

	b := img.Bounds()
	assert.Equal(t, 120, b.Dx(), "canvas is widened for the legend")
	assert.Equal(t, 16+3*legendSpacing+10, b.Dy())

	colorAt := func(x, y int, want properties.Color) {
		r, g, bl, _ := img.At(x, y).RGBA()
		assert.InDelta(t, want.R, uint8(r>>8), 2)
		assert.InDelta(t, want.G, uint8(g>>8), 2)
		assert.InDelta(t, want.B, uint8(bl>>8), 2)
	}
	colorAt(3, 3, properties.ColorMap["water"])
	colorAt(11, 3, properties.ColorMap["vegetation"])
	colorAt(3, 11, properties.ColorMap["urban"])
	colorAt(11, 11, properties.ColorMap["unknown"])

	assert.ErrorIs(t, RenderClassMap(path, labels, 3, 2, 1), errkind.ErrConfig)
	assert.ErrorIs(t, RenderClassMap(filepath.Join(t.TempDir(), "no", "map.png"), labels, 2, 2, 1), errkind.ErrIO)
}

func TestFitMap(t *testing.T) {
	tests := []struct {
		name                 string
		width, height, scale int
		wantStep, wantScale  int
	}{
		{"small map keeps scale", 100, 50, 4, 1, 4},
		{"scale shrinks first", 2000, 1000, 4, 1, 2},
		{"full tile is sampled", 10980, 10980, 4, 3, 1},
		{"long strip", 5000, 2, 4, 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			step, scale := fitMap(tt.width, tt.height, tt.scale)
			assert.Equal(t, tt.wantStep, step)
			assert.Equal(t, tt.wantScale, scale)
			assert.LessOrEqual(t, ceilDiv(tt.width, step)*scale, MaxMapSide)
			assert.LessOrEqual(t, ceilDiv(tt.height, step)*scale, MaxMapSide)
		})
	}
}

func TestRenderClassMapLargeIsBounded(t *testing.T) {
	width, height := 5000, 2
	labels := make([]uint8, width*height)
	for x := 0; x < width; x++ {
		labels[x] = 1
	}
	path := filepath.Join(t.TempDir(), "wide.png")
	require.NoError(t, RenderClassMap(path, labels, width, height, 4))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()
	img, err := png.Decode(file)
	require.NoError(t, err)

	assert.Equal(t, 2500, img.Bounds().Dx())
	assert.Equal(t, 1+3*legendSpacing+10, img.Bounds().Dy())

	r, g, b, _ := img.At(1000, 0).RGBA()
	want := properties.ColorMap["vegetation"]
	assert.InDelta(t, want.R, uint8(r>>8), 2)
	assert.InDelta(t, want.G, uint8(g>>8), 2)
	assert.InDelta(t, want.B, uint8(b>>8), 2)
}

func TestWriteGeoJSON(t *testing.T) {
	rows := []*dataset.PixelRow{
		{X: 0, Y: 0, Longitude: 10.25, Latitude: 45.75, NDVI: 0.6, NDWI: -0.2, Label: 1, Prediction: 1},
		{X: 1, Y: 0, Longitude: 10.75, Latitude: 45.75, NDVI: 0.1, NDWI: 0.5, Label: 0, Prediction: dataset.NoPrediction},
	}
	path := filepath.Join(t.TempDir(), "pixels.geojson")
	require.NoError(t, WriteGeoJSON(path, rows))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	require.NoError(t, err)
	require.Len(t, fc.Features, 2)

	assert.Equal(t, orb.Point{10.25, 45.75}, fc.Features[0].Geometry)
	assert.Equal(t, "vegetation", fc.Features[0].Properties["label"])
	assert.Equal(t, "vegetation", fc.Features[0].Properties["prediction"])
	assert.Equal(t, "water", fc.Features[1].Properties["label"])
	_, ok := fc.Features[1].Properties["prediction"]
	assert.False(t, ok)
}
