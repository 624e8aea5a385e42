package raster

import (
	"fmt"
	"math"

	"github.com/airbusgeo/godal"
	"github.com/forest-guardian/landcover-cli/internal/errkind"
)

// Grid describes the pixel grid shared by every band of a Stack.
// Transform uses the GDAL geotransform layout:
// x = T[0] + col*T[1] + row*T[2], y = T[3] + col*T[4] + row*T[5].
type Grid struct {
	Width     int
	Height    int
	Transform [6]float64
	CRS       string
	NoData    float64
	HasNoData bool
	DataType  godal.DataType
	Bands     int
}

func (g Grid) Pixels() int {
	return g.Width * g.Height
}

// NorthUp reports whether the grid has no rotation terms and rows grow southwards.
func (g Grid) NorthUp() bool {
	return g.Transform[2] == 0 && g.Transform[4] == 0 && g.Transform[5] < 0
}

// Bounds returns minX, minY, maxX, maxY of a north-up grid.
func (g Grid) Bounds() [4]float64 {
	t := g.Transform
	x0, x1 := t[0], t[0]+float64(g.Width)*t[1]
	y0, y1 := t[3], t[3]+float64(g.Height)*t[5]
	return [4]float64{math.Min(x0, x1), math.Min(y0, y1), math.Max(x0, x1), math.Max(y0, y1)}
}

// PixelCenter returns the CRS coordinates of the centre of pixel (x, y).
func (g Grid) PixelCenter(x, y int) (float64, float64) {
	t := g.Transform
	col, row := float64(x)+0.5, float64(y)+0.5
	return t[0] + col*t[1] + row*t[2], t[3] + col*t[4] + row*t[5]
}

// Window returns the pixel window [x0,x1) x [y0,y1) of a north-up grid
// covering the bounding box b (minX, minY, maxX, maxY), clipped to the grid.
func (g Grid) Window(b [4]float64) (x0, y0, x1, y1 int, err error) {
	if !g.NorthUp() {
		return 0, 0, 0, 0, fmt.Errorf("%w: rotated geotransform %v is not supported", errkind.ErrGeometry, g.Transform)
	}
	t := g.Transform
	fx0 := (b[0] - t[0]) / t[1]
	fx1 := (b[2] - t[0]) / t[1]
	fy0 := (b[3] - t[3]) / t[5]
	fy1 := (b[1] - t[3]) / t[5]

	x0 = clamp(int(math.Floor(math.Min(fx0, fx1)+1e-9)), 0, g.Width)
	x1 = clamp(int(math.Ceil(math.Max(fx0, fx1)-1e-9)), 0, g.Width)
	y0 = clamp(int(math.Floor(math.Min(fy0, fy1)+1e-9)), 0, g.Height)
	y1 = clamp(int(math.Ceil(math.Max(fy0, fy1)-1e-9)), 0, g.Height)
	if x1 <= x0 || y1 <= y0 {
		return 0, 0, 0, 0, fmt.Errorf("%w: region %v lies outside raster bounds %v", errkind.ErrGeometry, b, g.Bounds())
	}
	return x0, y0, x1, y1, nil
}

// Crop returns the grid of the window starting at pixel (x0, y0).
func (g Grid) Crop(x0, y0, width, height int) Grid {
	t := g.Transform
	out := g
	out.Width = width
	out.Height = height
	out.Transform[0] = t[0] + float64(x0)*t[1] + float64(y0)*t[2]
	out.Transform[3] = t[3] + float64(x0)*t[4] + float64(y0)*t[5]
	return out
}

// SameFootprint reports whether both grids have the same shape and geotransform.
func (g Grid) SameFootprint(o Grid) bool {
	if g.Width != o.Width || g.Height != o.Height {
		return false
	}
	tol := 1e-6 * math.Max(math.Abs(g.Transform[1]), math.Abs(g.Transform[5]))
	for i := range g.Transform {
		if math.Abs(g.Transform[i]-o.Transform[i]) > tol {
			return false
		}
	}
	return true
}

// SameCRS reports whether two WKT (or user input) definitions denote the same
// coordinate reference system. Two empty definitions are equal.
func SameCRS(a, b string) bool {
	if a == b {
		return true
	}
	if a == "" || b == "" {
		return false
	}
	sa, err := godal.NewSpatialRef(a)
	if err != nil {
		return false
	}
	defer sa.Close()
	sb, err := godal.NewSpatialRef(b)
	if err != nil {
		return false
	}
	defer sb.Close()
	return sa.IsSame(sb)
}

// PromoteType returns the common data type of types: the shared type when
// they all agree, Float64 otherwise.
func PromoteType(types ...godal.DataType) godal.DataType {
	if len(types) == 0 {
		return godal.Float64
	}
	for _, t := range types[1:] {
		if t != types[0] {
			return godal.Float64
		}
	}
	return types[0]
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
