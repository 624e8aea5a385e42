package raster

import (
	"fmt"
	"strings"

	"github.com/forest-guardian/landcover-cli/internal/errkind"
	"github.com/forest-guardian/landcover-cli/internal/sentinel"
	"github.com/sirupsen/logrus"
)

// Info summarises a raster file.
type Info struct {
	Path      string
	Bands     int
	Width     int
	Height    int
	DataType  string
	CRS       string
	Bounds    [4]float64
	NoData    float64
	HasNoData bool
}

func (i Info) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "path:      %s\n", i.Path)
	fmt.Fprintf(&b, "size:      %d x %d, %d band(s)\n", i.Width, i.Height, i.Bands)
	fmt.Fprintf(&b, "data type: %s\n", i.DataType)
	fmt.Fprintf(&b, "bounds:    %.6f %.6f %.6f %.6f\n", i.Bounds[0], i.Bounds[1], i.Bounds[2], i.Bounds[3])
	if i.HasNoData {
		fmt.Fprintf(&b, "nodata:    %g\n", i.NoData)
	} else {
		b.WriteString("nodata:    none\n")
	}
	crs := i.CRS
	if crs == "" {
		crs = "none"
	}
	fmt.Fprintf(&b, "crs:       %s\n", crs)
	return b.String()
}

// Describe reports the shape, type and georeferencing of the raster at path.
func Describe(path string, log logrus.FieldLogger) (*Info, error) {
	ds, err := open(path, log)
	if err != nil {
		return nil, err
	}
	defer ds.Close()

	grid, err := gridOf(ds)
	if err != nil {
		return nil, fmt.Errorf("%w: describe %s: %v", errkind.ErrIO, path, err)
	}
	info := &Info{
		Path:      path,
		Bands:     grid.Bands,
		Width:     grid.Width,
		Height:    grid.Height,
		DataType:  grid.DataType.String(),
		CRS:       grid.CRS,
		NoData:    grid.NoData,
		HasNoData: grid.HasNoData,
	}
	if grid.NorthUp() {
		info.Bounds = grid.Bounds()
	} else if b, err := ds.Bounds(); err == nil {
		info.Bounds = b
	}
	return info, nil
}

// LoadImage reads every band of an already stacked image. order names the
// bands in file order; leave it empty when the layout is unknown.
func LoadImage(path string, order []sentinel.Band, log logrus.FieldLogger) (*Stack, error) {
	ds, err := open(path, log)
	if err != nil {
		return nil, err
	}
	defer ds.Close()

	if n := ds.Structure().NBands; len(order) > 0 && len(order) != n {
		return nil, fmt.Errorf("%w: band order lists %d bands but %s holds %d", errkind.ErrConfig, len(order), path, n)
	}
	stack, err := ReadStack(ds, order)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", errkind.ErrIO, path, err)
	}
	log.WithFields(logrus.Fields{
		"path":   path,
		"bands":  len(stack.Data),
		"width":  stack.Grid.Width,
		"height": stack.Grid.Height,
	}).Info("image loaded")
	return stack, nil
}
