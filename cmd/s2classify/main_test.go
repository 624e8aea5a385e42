package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/airbusgeo/godal"
	"github.com/forest-guardian/landcover-cli/internal/errkind"
	"github.com/forest-guardian/landcover-cli/internal/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTileName(t *testing.T) {
	assert.Equal(t, "S2A_MSIL2A_20240101T101421_N0510_R022_T32TQM_20240101T140000",
		tileName("/data/S2A_MSIL2A_20240101T101421_N0510_R022_T32TQM_20240101T140000.SAFE/"))
	assert.Equal(t, "tile", tileName("tile"))
}

func TestInfoMissingRaster(t *testing.T) {
	t.Setenv("DISCORD_ERROR_NOTIFICATION_URL", "")
	t.Setenv("DISCORD_SUCCESS_NOTIFICATION_URL", "")

	root := newRootCmd()
	root.SetArgs([]string{"info", "--no-banner", filepath.Join(t.TempDir(), "missing.tif")})
	err := root.Execute()
	require.Error(t, err)
	assert.ErrorIs(t, err, errkind.ErrIO)
}

func TestRejectsInvalidConfig(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"process", "--no-banner", "--resolution", "30"})
	assert.ErrorIs(t, root.Execute(), errkind.ErrConfig)

	root = newRootCmd()
	root.SetArgs([]string{"process", "--no-banner", "--config", filepath.Join(t.TempDir(), "absent.json")})
	assert.ErrorIs(t, root.Execute(), errkind.ErrConfig, "an explicit config file must exist")
}

func TestProcessNeedsSafeFolder(t *testing.T) {
	t.Setenv("DISCORD_ERROR_NOTIFICATION_URL", "")
	root := newRootCmd()
	root.SetArgs([]string{"process", "--no-banner", "--output-dir", t.TempDir()})
	assert.ErrorIs(t, root.Execute(), errkind.ErrConfig)
}

func TestBatchNamesRejectsCollisions(t *testing.T) {
	names, err := batchNames([]string{"/a/T32TQM.SAFE", "/b/T33TUL.SAFE"})
	require.NoError(t, err)
	assert.Equal(t, []string{"T32TQM", "T33TUL"}, names)

	_, err = batchNames([]string{"/a/T32TQM.SAFE", "/a/T32TQM.SAFE/"})
	assert.ErrorIs(t, err, errkind.ErrConfig)

	_, err = batchNames([]string{"/a/T32TQM.SAFE", "/b/T32TQM.SAFE"})
	assert.ErrorIs(t, err, errkind.ErrConfig)
}

func quietEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DISCORD_ERROR_NOTIFICATION_URL", "")
	t.Setenv("DISCORD_SUCCESS_NOTIFICATION_URL", "")
	t.Setenv("ROOT_PATH", "")
	godal.RegisterAll()
}

func utmGrid(t *testing.T, side int, pixel float64) raster.Grid {
	t.Helper()
	sr, err := godal.NewSpatialRefFromEPSG(32632)
	require.NoError(t, err)
	defer sr.Close()
	wkt, err := sr.WKT()
	require.NoError(t, err)
	return raster.Grid{
		Width:     side,
		Height:    side,
		Transform: [6]float64{500000, pixel, 0, 5000000, 0, -pixel},
		CRS:       wkt,
	}
}

func constantBand(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// safeArchive writes a 4x4 10m archive holding B02, B03, B04 and B08.
func safeArchive(t *testing.T, parent, name string) string {
	t.Helper()
	root := filepath.Join(parent, name+".SAFE")
	dir := filepath.Join(root, "GRANULE", "L2A_"+name, "IMG_DATA", "R10m")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	grid := utmGrid(t, 4, 10)
	for b, v := range map[string]float64{"B02": 0.1, "B03": 0.2, "B04": 0.1, "B08": 0.5} {
		s, err := raster.NewStack(grid, nil, [][]float64{constantBand(16, v)})
		require.NoError(t, err)
		require.NoError(t, raster.WriteStack(filepath.Join(dir, name+"_"+b+"_10m.tif"), s, "NONE"))
	}
	return root
}

func TestProcessWritesIntoFreshOutputDir(t *testing.T) {
	quietEnv(t)
	safe := safeArchive(t, t.TempDir(), "T32TQM")
	out := filepath.Join(t.TempDir(), "not", "yet", "there")

	root := newRootCmd()
	root.SetArgs([]string{"process", "--no-banner", "--safe-folder", safe, "--output-dir", out})
	require.NoError(t, root.Execute())

	for _, name := range []string{
		"model.csv",
		"T32TQM_classification.tif",
		"T32TQM_classification.png",
		"T32TQM_pixels.csv",
		"T32TQM_pixels.geojson",
	} {
		assert.FileExists(t, filepath.Join(out, name))
	}
}

func TestTrainThenPredict(t *testing.T) {
	quietEnv(t)
	grid := utmGrid(t, 4, 10)
	s, err := raster.NewStack(grid, nil, [][]float64{
		constantBand(16, 0.1), constantBand(16, 0.2), constantBand(16, 0.1), constantBand(16, 0.5),
	})
	require.NoError(t, err)
	image := filepath.Join(t.TempDir(), "scene.tif")
	require.NoError(t, raster.WriteStack(image, s, "NONE"))

	out := filepath.Join(t.TempDir(), "fresh")
	model := filepath.Join(t.TempDir(), "models", "centroid.csv")

	root := newRootCmd()
	root.SetArgs([]string{"train", "--no-banner", image, "--band-order", "B02,B03,B04,B08", "--model", model, "--output-dir", out})
	require.NoError(t, root.Execute())
	assert.FileExists(t, model)

	root = newRootCmd()
	root.SetArgs([]string{"predict", "--no-banner", image, "--band-order", "B02,B03,B04,B08", "--model", model, "--output-dir", out})
	require.NoError(t, root.Execute())
	assert.FileExists(t, filepath.Join(out, "scene_classification.tif"))
}

func TestBatchWritesEveryArchive(t *testing.T) {
	quietEnv(t)
	parent := t.TempDir()
	first := safeArchive(t, parent, "T32TQM")
	second := safeArchive(t, parent, "T33TUL")
	out := filepath.Join(t.TempDir(), "batch")

	root := newRootCmd()
	root.SetArgs([]string{"batch", "--no-banner", "--output-dir", out, "--workers", "2", first, second})
	require.NoError(t, root.Execute())

	for _, tile := range []string{"T32TQM", "T33TUL"} {
		assert.FileExists(t, filepath.Join(out, tile+"_labels.tif"))
		assert.FileExists(t, filepath.Join(out, tile+"_labels.png"))
		assert.FileExists(t, filepath.Join(out, tile+"_pixels.csv"))
	}

	root = newRootCmd()
	root.SetArgs([]string{"batch", "--no-banner", "--output-dir", out, first, first})
	assert.ErrorIs(t, root.Execute(), errkind.ErrConfig)
}
