package raster

import (
	"testing"

	"github.com/forest-guardian/landcover-cli/internal/errkind"
	"github.com/forest-guardian/landcover-cli/internal/sentinel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gradientStack encodes band, row and column in every value: b*100 + y*10 + x.
func gradientStack(t *testing.T, order []sentinel.Band, w, h int) *Stack {
	t.Helper()
	data := make([][]float64, len(order))
	for b := range order {
		data[b] = make([]float64, w*h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				data[b][y*w+x] = float64(b*100 + y*10 + x)
			}
		}
	}
	s, err := NewStack(utmGrid(w, h, 10), order, data)
	require.NoError(t, err)
	return s
}

func TestNewStackValidation(t *testing.T) {
	g := utmGrid(2, 2, 10)

	s, err := NewStack(g, []sentinel.Band{sentinel.B02}, [][]float64{{1, 2, 3, 4}})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Grid.Bands)

	_, err = NewStack(g, []sentinel.Band{sentinel.B02, sentinel.B03}, [][]float64{{1, 2, 3, 4}})
	assert.ErrorIs(t, err, errkind.ErrConfig)

	_, err = NewStack(g, nil, [][]float64{{1, 2, 3}})
	assert.ErrorIs(t, err, errkind.ErrConfig)

	_, err = NewStack(g, nil, nil)
	assert.ErrorIs(t, err, errkind.ErrConfig)
}

func TestFlattenRowMajor(t *testing.T) {
	order := []sentinel.Band{sentinel.B02, sentinel.B03, sentinel.B04}
	s := gradientStack(t, order, 3, 2)

	table := Flatten(s)
	assert.Equal(t, 6, table.Rows)
	assert.Equal(t, 3, table.Cols)
	assert.Equal(t, []string{"B02", "B03", "B04"}, table.Columns)

	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			row := table.Row(y*3 + x)
			for b := range order {
				assert.Equal(t, s.At(b, x, y), row[b], "pixel (%d,%d) band %d", x, y, b)
			}
		}
	}
}

func TestUnflattenInvertsFlatten(t *testing.T) {
	s := gradientStack(t, []sentinel.Band{sentinel.B02}, 4, 3)
	table := Flatten(s)

	labels := make([]int, table.Rows)
	for r := range labels {
		labels[r] = int(table.Row(r)[0])
	}

	grid, err := Unflatten(labels, 4, 3)
	require.NoError(t, err)
	require.Len(t, grid, 3)
	for y := range grid {
		require.Len(t, grid[y], 4)
		for x := range grid[y] {
			assert.Equal(t, y*10+x, grid[y][x])
		}
	}

	_, err = Unflatten(labels, 5, 3)
	assert.ErrorIs(t, err, errkind.ErrConfig)
}

func TestFeatureTableSelect(t *testing.T) {
	s := gradientStack(t, []sentinel.Band{sentinel.B02, sentinel.B03, sentinel.B04, sentinel.B08}, 2, 2)
	table := Flatten(s)

	sel, err := table.Select(sentinel.B08, sentinel.B03)
	require.NoError(t, err)
	assert.Equal(t, []string{"B08", "B03"}, sel.Columns)
	assert.Equal(t, 4, sel.Rows)
	assert.Equal(t, []float64{311, 111}, sel.Row(3))

	_, err = table.Select(sentinel.B11)
	assert.ErrorIs(t, err, errkind.ErrConfig)
}

func TestColumnNamesWithoutOrder(t *testing.T) {
	s, err := NewStack(utmGrid(1, 1, 10), nil, [][]float64{{1}, {2}})
	require.NoError(t, err)
	assert.Equal(t, []string{"band_1", "band_2"}, s.ColumnNames())

	_, ok := s.Band(sentinel.B02)
	assert.False(t, ok)
}
