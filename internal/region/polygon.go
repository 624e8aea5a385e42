// Package region reads a region of interest polygon and crops stacks to it.
package region

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/airbusgeo/godal"
	"github.com/forest-guardian/landcover-cli/internal/errkind"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/sirupsen/logrus"
)

// DefaultCRS is assumed for GeoJSON documents without a crs member.
const DefaultCRS = "EPSG:4326"

// Polygon is the exterior ring of a region of interest and the CRS its
// coordinates are expressed in.
type Polygon struct {
	Ring orb.Ring
	CRS  string
}

// legacyCRS is the pre-RFC 7946 named crs member.
type legacyCRS struct {
	CRS struct {
		Properties struct {
			Name string `json:"name"`
		} `json:"properties"`
	} `json:"crs"`
}

func LoadPolygon(path string, log logrus.FieldLogger) (*Polygon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", errkind.ErrIO, path, err)
	}
	p, err := ParsePolygon(data, log)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// ParsePolygon reads the first feature of a GeoJSON FeatureCollection (or a
// lone Feature). Only its exterior ring is kept; an unclosed ring is closed.
func ParsePolygon(data []byte, log logrus.FieldLogger) (*Polygon, error) {
	var named legacyCRS
	if err := json.Unmarshal(data, &named); err != nil {
		return nil, fmt.Errorf("%w: invalid GeoJSON: %v", errkind.ErrConfig, err)
	}
	crs := named.CRS.Properties.Name
	if crs == "" {
		crs = DefaultCRS
	}

	features, err := decodeFeatures(data)
	if err != nil {
		return nil, err
	}
	if len(features) == 0 {
		return nil, fmt.Errorf("%w: GeoJSON holds no feature", errkind.ErrConfig)
	}
	if len(features) > 1 {
		log.WithField("features", len(features)).Warn("GeoJSON holds several features, only the first one is used")
	}

	var poly orb.Polygon
	switch g := features[0].Geometry.(type) {
	case orb.Polygon:
		poly = g
	case orb.MultiPolygon:
		if len(g) == 0 {
			return nil, fmt.Errorf("%w: empty multipolygon", errkind.ErrGeometry)
		}
		if len(g) > 1 {
			log.WithField("polygons", len(g)).Warn("multipolygon region, only the first polygon is used")
		}
		poly = g[0]
	case nil:
		return nil, fmt.Errorf("%w: first feature has no geometry", errkind.ErrGeometry)
	default:
		return nil, fmt.Errorf("%w: region must be a polygon, got %s", errkind.ErrGeometry, g.GeoJSONType())
	}
	if len(poly) == 0 || len(poly[0]) == 0 {
		return nil, fmt.Errorf("%w: polygon has an empty ring", errkind.ErrGeometry)
	}

	ring := append(orb.Ring(nil), poly[0]...)
	if !ring.Closed() {
		log.Warn("polygon ring is not closed, closing it")
		ring = append(ring, ring[0])
	}
	if err := validateRing(ring); err != nil {
		return nil, err
	}
	return &Polygon{Ring: ring, CRS: crs}, nil
}

func decodeFeatures(data []byte) ([]*geojson.Feature, error) {
	var head struct {
		Type string `json:"type"`
	}
	_ = json.Unmarshal(data, &head)

	switch head.Type {
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid GeoJSON feature: %v", errkind.ErrConfig, err)
		}
		return []*geojson.Feature{f}, nil
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid GeoJSON feature collection: %v", errkind.ErrConfig, err)
		}
		return fc.Features, nil
	}
	return nil, fmt.Errorf("%w: expected a GeoJSON Feature or FeatureCollection, got %q", errkind.ErrConfig, head.Type)
}

func validateRing(ring orb.Ring) error {
	distinct := make(map[orb.Point]struct{}, len(ring))
	for _, p := range ring {
		distinct[p] = struct{}{}
	}
	if len(distinct) < 3 {
		return fmt.Errorf("%w: polygon ring has %d distinct vertices, need at least 3", errkind.ErrGeometry, len(distinct))
	}
	if planar.Area(ring) == 0 {
		return fmt.Errorf("%w: polygon ring has zero area", errkind.ErrGeometry)
	}
	return nil
}

// Bounds returns minX, minY, maxX, maxY of the ring.
func (p *Polygon) Bounds() [4]float64 {
	b := p.Ring.Bound()
	return [4]float64{b.Min.X(), b.Min.Y(), b.Max.X(), b.Max.Y()}
}

// Centroid returns the area-weighted centre of the ring.
func (p *Polygon) Centroid() orb.Point {
	c, _ := planar.CentroidArea(p.Ring)
	return c
}

// Reproject returns the polygon expressed in dstCRS. Vertex order and ring
// closure are preserved. The receiver is returned when both CRS are the same.
func (p *Polygon) Reproject(dstCRS string) (*Polygon, error) {
	src, err := godal.NewSpatialRef(p.CRS)
	if err != nil {
		return nil, fmt.Errorf("%w: parse polygon CRS %q: %v", errkind.ErrGeometry, p.CRS, err)
	}
	defer src.Close()
	dst, err := godal.NewSpatialRef(dstCRS)
	if err != nil {
		return nil, fmt.Errorf("%w: parse raster CRS: %v", errkind.ErrGeometry, err)
	}
	defer dst.Close()
	if src.IsSame(dst) {
		return p, nil
	}

	tr, err := godal.NewTransform(src, dst)
	if err != nil {
		return nil, fmt.Errorf("%w: build transform from %s: %v", errkind.ErrGeometry, p.CRS, err)
	}
	defer tr.Close()

	xs := make([]float64, len(p.Ring))
	ys := make([]float64, len(p.Ring))
	for i, pt := range p.Ring {
		xs[i], ys[i] = pt.X(), pt.Y()
	}
	if err := tr.TransformEx(xs, ys, nil, nil); err != nil {
		return nil, fmt.Errorf("%w: transform polygon from %s: %v", errkind.ErrGeometry, p.CRS, err)
	}

	ring := make(orb.Ring, len(xs))
	for i := range xs {
		ring[i] = orb.Point{xs[i], ys[i]}
	}
	// keep the ring exactly closed despite floating point noise
	ring[len(ring)-1] = ring[0]
	wkt, err := dst.WKT()
	if err != nil {
		return nil, fmt.Errorf("%w: export raster CRS: %v", errkind.ErrGeometry, err)
	}
	return &Polygon{Ring: ring, CRS: wkt}, nil
}
