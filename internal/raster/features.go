package raster

import (
	"fmt"

	"github.com/forest-guardian/landcover-cli/internal/errkind"
	"github.com/forest-guardian/landcover-cli/internal/sentinel"
)

// FeatureTable is a sample-major view of a Stack: one row per pixel in
// row-major grid order (row = y*Width+x), one column per band in band order.
type FeatureTable struct {
	Rows    int
	Cols    int
	Columns []string
	Values  []float64
}

// Flatten turns a (bands, height, width) stack into a (height*width, bands) table.
func Flatten(s *Stack) *FeatureTable {
	rows, cols := s.Grid.Pixels(), len(s.Data)
	values := make([]float64, rows*cols)
	for c, band := range s.Data {
		for r, v := range band {
			values[r*cols+c] = v
		}
	}
	return &FeatureTable{Rows: rows, Cols: cols, Columns: s.ColumnNames(), Values: values}
}

func (t *FeatureTable) Row(i int) []float64 {
	return t.Values[i*t.Cols : (i+1)*t.Cols]
}

// Select returns a table holding only the given band columns, in the given order.
func (t *FeatureTable) Select(bands ...sentinel.Band) (*FeatureTable, error) {
	idx := make([]int, len(bands))
	for i, b := range bands {
		idx[i] = -1
		for c, name := range t.Columns {
			if name == string(b) {
				idx[i] = c
				break
			}
		}
		if idx[i] < 0 {
			return nil, fmt.Errorf("%w: band %s is not a feature column", errkind.ErrConfig, b)
		}
	}

	out := &FeatureTable{Rows: t.Rows, Cols: len(bands), Values: make([]float64, t.Rows*len(bands))}
	for _, b := range bands {
		out.Columns = append(out.Columns, string(b))
	}
	for r := 0; r < t.Rows; r++ {
		row := t.Row(r)
		for c, src := range idx {
			out.Values[r*out.Cols+c] = row[src]
		}
	}
	return out, nil
}

// Unflatten reshapes a per-pixel vector back into height rows of width values,
// the inverse of the row order used by Flatten.
func Unflatten[T any](values []T, width, height int) ([][]T, error) {
	if len(values) != width*height {
		return nil, fmt.Errorf("%w: %d values cannot fill a %dx%d grid", errkind.ErrConfig, len(values), width, height)
	}
	grid := make([][]T, height)
	for y := range grid {
		grid[y] = values[y*width : (y+1)*width : (y+1)*width]
	}
	return grid, nil
}
