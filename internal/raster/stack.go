package raster

import (
	"fmt"

	"github.com/forest-guardian/landcover-cli/internal/errkind"
	"github.com/forest-guardian/landcover-cli/internal/sentinel"
)

// Stack is a co-registered multi-band array. Data[i] holds band Order[i] in
// row-major order (index y*Width+x). Order is the only record of which array
// position holds which channel and may be empty for images of unknown layout.
type Stack struct {
	Grid  Grid
	Order []sentinel.Band
	Data  [][]float64
}

// Band is a single band read from disk, with its own grid.
type Band struct {
	Grid Grid
	Data []float64
}

// NewStack validates the band layout and returns a stack whose grid band
// count matches data.
func NewStack(grid Grid, order []sentinel.Band, data [][]float64) (*Stack, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: stack has no bands", errkind.ErrConfig)
	}
	if len(order) > 0 && len(order) != len(data) {
		return nil, fmt.Errorf("%w: band order lists %d bands but stack holds %d", errkind.ErrConfig, len(order), len(data))
	}
	for i, band := range data {
		if len(band) != grid.Pixels() {
			return nil, fmt.Errorf("%w: band %d has %d pixels, grid is %dx%d", errkind.ErrConfig, i, len(band), grid.Width, grid.Height)
		}
	}
	grid.Bands = len(data)
	return &Stack{Grid: grid, Order: order, Data: data}, nil
}

// Band returns the pixels of b, if present in the band order.
func (s *Stack) Band(b sentinel.Band) ([]float64, bool) {
	i := sentinel.IndexOf(s.Order, b)
	if i < 0 {
		return nil, false
	}
	return s.Data[i], true
}

// At returns the value of band i at pixel (x, y).
func (s *Stack) At(i, x, y int) float64 {
	return s.Data[i][y*s.Grid.Width+x]
}

// ColumnNames returns the band codes in stack order, or band_N placeholders
// when the order is unknown.
func (s *Stack) ColumnNames() []string {
	names := make([]string, len(s.Data))
	for i := range s.Data {
		if len(s.Order) > 0 {
			names[i] = string(s.Order[i])
		} else {
			names[i] = fmt.Sprintf("band_%d", i+1)
		}
	}
	return names
}
