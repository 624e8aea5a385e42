package region

import (
	"fmt"
	"strconv"

	"github.com/airbusgeo/godal"
	"github.com/forest-guardian/landcover-cli/internal/errkind"
	"github.com/forest-guardian/landcover-cli/internal/raster"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/sirupsen/logrus"
)

type Cropper struct {
	log     logrus.FieldLogger
	scratch raster.ScratchMode
}

func NewCropper(log logrus.FieldLogger, scratch raster.ScratchMode) *Cropper {
	return &Cropper{log: log.WithField("component", "cropper"), scratch: scratch}
}

// Crop restricts s to the bounding window of p and sets pixels of that window
// lying outside the polygon to nodata (0 when the grid has none). The polygon
// is reprojected to the stack CRS first when needed. Band count and order
// are kept; s itself is not modified.
func (c *Cropper) Crop(s *raster.Stack, p *Polygon) (*raster.Stack, error) {
	grid := s.Grid
	poly := p
	if grid.CRS == "" {
		c.log.WithField("polygon_crs", p.CRS).Warn("stack has no CRS, using polygon coordinates as is")
	} else {
		var err error
		if poly, err = p.Reproject(grid.CRS); err != nil {
			return nil, err
		}
	}
	centroid := poly.Centroid()
	c.log.WithFields(logrus.Fields{
		"bounds":   poly.Bounds(),
		"centroid": fmt.Sprintf("%.3f,%.3f", centroid.X(), centroid.Y()),
	}).Debug("cropping to region")

	sc, err := raster.Materialize(s, c.scratch)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := sc.Release(); err != nil {
			c.log.WithError(err).Warn("failed to release scratch raster")
		}
	}()

	x0, y0, x1, y1, err := grid.Window(poly.Bounds())
	if err != nil {
		return nil, err
	}
	w, h := x1-x0, y1-y0

	window, err := sc.Dataset().Translate("", []string{
		"-of", "MEM",
		"-srcwin", strconv.Itoa(x0), strconv.Itoa(y0), strconv.Itoa(w), strconv.Itoa(h),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: extract window: %v", errkind.ErrIO, err)
	}
	defer window.Close()

	inside, err := rasterizeMask(window, poly.Ring, w, h)
	if err != nil {
		return nil, err
	}

	cropped, err := raster.ReadStack(window, s.Order)
	if err != nil {
		return nil, fmt.Errorf("%w: read cropped window: %v", errkind.ErrIO, err)
	}

	nodata := 0.0
	if grid.HasNoData {
		nodata = grid.NoData
	}
	var outside int
	for i, in := range inside {
		if in != 0 {
			continue
		}
		outside++
		for _, band := range cropped.Data {
			band[i] = nodata
		}
	}

	out := cropped.Grid
	out.CRS = grid.CRS
	out.DataType = grid.DataType
	out.NoData, out.HasNoData = nodata, true
	c.log.WithFields(logrus.Fields{
		"window":  []int{x0, y0, w, h},
		"outside": outside,
	}).Info("stack cropped to region")
	return raster.NewStack(out, s.Order, cropped.Data)
}

// rasterizeMask burns the ring into a Byte raster on the window grid and
// returns it row-major: 1 inside the polygon, 0 outside.
func rasterizeMask(window *godal.Dataset, ring orb.Ring, w, h int) ([]uint8, error) {
	gt, err := window.GeoTransform()
	if err != nil {
		return nil, fmt.Errorf("%w: window geotransform: %v", errkind.ErrIO, err)
	}
	mask, err := godal.Create(godal.DriverName("MEM"), "", 1, godal.Byte, w, h)
	if err != nil {
		return nil, fmt.Errorf("%w: create mask: %v", errkind.ErrIO, err)
	}
	defer mask.Close()
	if err := mask.SetGeoTransform(gt); err != nil {
		return nil, fmt.Errorf("%w: set mask geotransform: %v", errkind.ErrIO, err)
	}

	raw, err := wkb.Marshal(orb.Polygon{ring})
	if err != nil {
		return nil, fmt.Errorf("%w: encode polygon: %v", errkind.ErrGeometry, err)
	}
	geom, err := godal.NewGeometryFromWKB(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: decode polygon: %v", errkind.ErrGeometry, err)
	}
	defer geom.Close()

	if err := mask.RasterizeGeometry(geom, godal.Values(1)); err != nil {
		return nil, fmt.Errorf("%w: rasterize polygon: %v", errkind.ErrGeometry, err)
	}

	inside := make([]uint8, w*h)
	if err := mask.Bands()[0].Read(0, 0, inside, w, h); err != nil {
		return nil, fmt.Errorf("%w: read mask: %v", errkind.ErrIO, err)
	}
	return inside, nil
}
