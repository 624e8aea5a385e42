package raster

import (
	"fmt"
	"strconv"

	"github.com/airbusgeo/godal"
	"github.com/forest-guardian/landcover-cli/internal/errkind"
	"github.com/forest-guardian/landcover-cli/internal/sentinel"
	"github.com/sirupsen/logrus"
)

// Kernel is a GDAL resampling algorithm name.
type Kernel string

const (
	Bilinear Kernel = "bilinear"
	Nearest  Kernel = "near"
)

const memDriver = godal.DriverName("MEM")

// Source reads bands from raster files, optionally warping them onto a target grid.
type Source interface {
	ReadBand(path string) (*Band, error)
	Reproject(path string, dst Grid, kernel Kernel) (*Band, error)
}

// GDALSource is a Source backed by godal. godal.RegisterAll must have been called.
type GDALSource struct {
	log logrus.FieldLogger
}

func NewGDALSource(log logrus.FieldLogger) *GDALSource {
	return &GDALSource{log: log.WithField("component", "gdal")}
}

func (s *GDALSource) ReadBand(path string) (*Band, error) {
	ds, err := open(path, s.log)
	if err != nil {
		return nil, err
	}
	defer ds.Close()

	stack, err := readDataset(ds, nil, 1)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", errkind.ErrIO, path, err)
	}
	return &Band{Grid: stack.Grid, Data: stack.Data[0]}, nil
}

// Reproject warps the first band of path onto dst with the given kernel.
func (s *GDALSource) Reproject(path string, dst Grid, kernel Kernel) (*Band, error) {
	src, err := open(path, s.log)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	b := dst.Bounds()
	switches := []string{
		"-of", "MEM",
		"-b", "1",
		"-te", ftoa(b[0]), ftoa(b[1]), ftoa(b[2]), ftoa(b[3]),
		"-ts", strconv.Itoa(dst.Width), strconv.Itoa(dst.Height),
		"-r", string(kernel),
	}
	if dst.CRS != "" {
		switches = append(switches, "-t_srs", dst.CRS)
	}
	if dst.HasNoData {
		switches = append(switches, "-dstnodata", ftoa(dst.NoData))
	}

	warped, err := src.Warp("", switches, godal.ErrLogger(gdalErrors(s.log)))
	if err != nil {
		return nil, fmt.Errorf("%w: reproject %s: %v", errkind.ErrIO, path, err)
	}
	defer warped.Close()

	stack, err := readDataset(warped, nil, 1)
	if err != nil {
		return nil, fmt.Errorf("%w: read reprojected %s: %v", errkind.ErrIO, path, err)
	}
	s.log.WithFields(logrus.Fields{"path": path, "kernel": kernel, "width": dst.Width, "height": dst.Height}).Debug("band reprojected")
	return &Band{Grid: stack.Grid, Data: stack.Data[0]}, nil
}

func open(path string, log logrus.FieldLogger) (*godal.Dataset, error) {
	ds, err := godal.Open(path, godal.RasterOnly(), godal.ErrLogger(gdalErrors(log)))
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", errkind.ErrIO, path, err)
	}
	return ds, nil
}

// gdalErrors demotes GDAL warnings to debug logs and keeps failures as errors.
func gdalErrors(log logrus.FieldLogger) func(godal.ErrorCategory, int, string) error {
	return func(ec godal.ErrorCategory, code int, msg string) error {
		if ec == godal.CE_Warning {
			log.WithField("code", code).Debug(msg)
			return nil
		}
		return fmt.Errorf("GDAL error %d: %s", code, msg)
	}
}

// gridOf describes the dataset, with DataType promoted over all its bands.
func gridOf(ds *godal.Dataset) (Grid, error) {
	st := ds.Structure()
	gt, err := ds.GeoTransform()
	if err != nil {
		return Grid{}, fmt.Errorf("missing geotransform: %w", err)
	}
	grid := Grid{
		Width:     st.SizeX,
		Height:    st.SizeY,
		Transform: gt,
		CRS:       ds.Projection(),
		Bands:     st.NBands,
	}

	bands := ds.Bands()
	types := make([]godal.DataType, len(bands))
	for i, b := range bands {
		types[i] = b.Structure().DataType
	}
	grid.DataType = PromoteType(types...)
	if len(bands) > 0 {
		grid.NoData, grid.HasNoData = bands[0].NoData()
	}
	return grid, nil
}

// readDataset reads the first n bands of ds (all of them when n <= 0) as float64.
func readDataset(ds *godal.Dataset, order []sentinel.Band, n int) (*Stack, error) {
	grid, err := gridOf(ds)
	if err != nil {
		return nil, err
	}
	bands := ds.Bands()
	if n <= 0 || n > len(bands) {
		n = len(bands)
	}
	if n == 0 {
		return nil, fmt.Errorf("dataset has no raster band")
	}

	data := make([][]float64, n)
	for i := 0; i < n; i++ {
		data[i] = make([]float64, grid.Pixels())
		if err := bands[i].Read(0, 0, data[i], grid.Width, grid.Height); err != nil {
			return nil, fmt.Errorf("band %d: %w", i+1, err)
		}
	}
	if n == 1 {
		grid.DataType = bands[0].Structure().DataType
	}
	return NewStack(grid, order, data)
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
