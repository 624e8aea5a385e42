package raster

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/airbusgeo/godal"
	"github.com/forest-guardian/landcover-cli/internal/errkind"
	"github.com/forest-guardian/landcover-cli/internal/sentinel"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	godal.RegisterAll()
	os.Exit(m.Run())
}

func epsgWKT(t *testing.T, code int) string {
	t.Helper()
	sr, err := godal.NewSpatialRefFromEPSG(code)
	require.NoError(t, err)
	defer sr.Close()
	wkt, err := sr.WKT()
	require.NoError(t, err)
	return wkt
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func writeFixture(t *testing.T, path string, grid Grid, data ...[]float64) {
	t.Helper()
	s, err := NewStack(grid, nil, data)
	require.NoError(t, err)
	require.NoError(t, WriteStack(path, s, "NONE"))
}

func TestReadBandIsVerbatim(t *testing.T) {
	path := filepath.Join(t.TempDir(), "b04.tif")
	g := utmGrid(3, 2, 10)
	g.CRS = epsgWKT(t, 32632)
	values := []float64{1, 2, 3, 4, 5, 6}
	writeFixture(t, path, g, values)

	log, _ := test.NewNullLogger()
	band, err := NewGDALSource(log).ReadBand(path)
	require.NoError(t, err)
	assert.Equal(t, values, band.Data)
	assert.Equal(t, 3, band.Grid.Width)
	assert.Equal(t, 2, band.Grid.Height)
	assert.Equal(t, g.Transform, band.Grid.Transform)
	assert.True(t, SameCRS(g.CRS, band.Grid.CRS))
	assert.Equal(t, godal.Float64, band.Grid.DataType)
}

func TestReadBandMissingFile(t *testing.T) {
	log, _ := test.NewNullLogger()
	_, err := NewGDALSource(log).ReadBand(filepath.Join(t.TempDir(), "missing.jp2"))
	require.ErrorIs(t, err, errkind.ErrIO)
	assert.Contains(t, err.Error(), "missing.jp2")
}

func TestReprojectMatchesDestinationShape(t *testing.T) {
	wkt := epsgWKT(t, 32632)
	src := utmGrid(2, 2, 20)
	src.CRS = wkt
	path := filepath.Join(t.TempDir(), "b8a.tif")
	writeFixture(t, path, src, constant(4, 42))

	dst := utmGrid(4, 4, 10)
	dst.CRS = wkt

	log, _ := test.NewNullLogger()
	band, err := NewGDALSource(log).Reproject(path, dst, Bilinear)
	require.NoError(t, err)
	assert.Equal(t, 4, band.Grid.Width)
	assert.Equal(t, 4, band.Grid.Height)
	assert.True(t, band.Grid.SameFootprint(dst))
	require.Len(t, band.Data, 16)
	for _, v := range band.Data {
		assert.InDelta(t, 42, v, 1e-9)
	}
}

func TestLoadImageAndDescribe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stack.tif")
	g := utmGrid(2, 2, 10)
	g.CRS = epsgWKT(t, 32632)
	g.NoData, g.HasNoData = -1, true
	writeFixture(t, path, g, constant(4, 1), constant(4, 2), constant(4, 3))

	log, _ := test.NewNullLogger()
	order := []sentinel.Band{sentinel.B02, sentinel.B03, sentinel.B04}
	s, err := LoadImage(path, order, log)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Grid.Bands)
	b03, ok := s.Band(sentinel.B03)
	require.True(t, ok)
	assert.Equal(t, constant(4, 2), b03)

	_, err = LoadImage(path, order[:2], log)
	assert.ErrorIs(t, err, errkind.ErrConfig)

	info, err := Describe(path, log)
	require.NoError(t, err)
	assert.Equal(t, 3, info.Bands)
	assert.Equal(t, 2, info.Width)
	assert.Equal(t, "Float64", info.DataType)
	assert.True(t, info.HasNoData)
	assert.Equal(t, -1.0, info.NoData)
	assert.Equal(t, g.Bounds(), info.Bounds)
	assert.Contains(t, info.String(), "3 band(s)")
}

func TestWriteClassification(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classes.tif")
	g := utmGrid(3, 1, 10)
	g.CRS = epsgWKT(t, 32632)

	require.NoError(t, WriteClassification(path, []uint8{0, 1, 2}, g, ""))

	ds, err := godal.Open(path)
	require.NoError(t, err)
	defer ds.Close()
	assert.Equal(t, 1, ds.Structure().NBands)
	band := ds.Bands()[0]
	assert.Equal(t, godal.Byte, band.Structure().DataType)
	buf := make([]uint8, 3)
	require.NoError(t, band.Read(0, 0, buf, 3, 1))
	assert.Equal(t, []uint8{0, 1, 2}, buf)
	gt, err := ds.GeoTransform()
	require.NoError(t, err)
	assert.Equal(t, g.Transform, gt)

	err = WriteClassification(path, []uint8{0}, g, "")
	assert.ErrorIs(t, err, errkind.ErrConfig)
}

func TestScratchRelease(t *testing.T) {
	s, err := NewStack(utmGrid(2, 2, 10), nil, [][]float64{constant(4, 7)})
	require.NoError(t, err)

	for _, mode := range []ScratchMode{ScratchMemory, ScratchDisk} {
		t.Run(string(mode), func(t *testing.T) {
			sc, err := Materialize(s, mode)
			require.NoError(t, err)
			path := sc.Path()

			back, err := ReadStack(sc.Dataset(), nil)
			require.NoError(t, err)
			assert.Equal(t, s.Data, back.Data)

			require.NoError(t, sc.Release())
			require.NoError(t, sc.Release())
			if mode == ScratchDisk {
				require.NotEmpty(t, path)
				_, err := os.Stat(filepath.Dir(path))
				assert.True(t, os.IsNotExist(err))
			}
		})
	}
}

func TestPixelLonLat(t *testing.T) {
	g := Grid{Width: 2, Height: 1, Transform: [6]float64{10, 1, 0, 50, 0, -1}, CRS: epsgWKT(t, 4326)}
	lon, lat, err := PixelLonLat(g)
	require.NoError(t, err)
	assert.Equal(t, []float64{10.5, 11.5}, lon)
	assert.Equal(t, []float64{49.5, 49.5}, lat)

	utm := utmGrid(1, 1, 10)
	utm.CRS = epsgWKT(t, 32632)
	lon, lat, err = PixelLonLat(utm)
	require.NoError(t, err)
	assert.InDelta(t, 10.3, lon[0], 0.1)
	assert.InDelta(t, 45.1, lat[0], 0.1)
}

func TestParseScratchMode(t *testing.T) {
	m, err := ParseScratchMode("")
	require.NoError(t, err)
	assert.Equal(t, ScratchMemory, m)

	m, err = ParseScratchMode("DISK")
	require.NoError(t, err)
	assert.Equal(t, ScratchDisk, m)

	_, err = ParseScratchMode("tmpfs")
	assert.ErrorIs(t, err, errkind.ErrConfig)
}
