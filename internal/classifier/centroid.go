package classifier

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/forest-guardian/landcover-cli/internal/errkind"
	"github.com/forest-guardian/landcover-cli/internal/raster"
	"github.com/gocarina/gocsv"
	"github.com/sirupsen/logrus"
)

// Centroid is an in-process nearest class mean model, used when no model
// server is configured. It is persisted as CSV rows of (label, feature, mean).
type Centroid struct {
	columns []string
	labels  []uint8
	means   map[uint8][]float64
	log     logrus.FieldLogger
}

type centroidRow struct {
	Label   uint8   `csv:"label"`
	Feature string  `csv:"feature"`
	Mean    float64 `csv:"mean"`
}

func NewCentroid(log logrus.FieldLogger) *Centroid {
	return &Centroid{log: log.WithField("component", "centroid")}
}

func (m *Centroid) Train(_ context.Context, table *raster.FeatureTable, labels []uint8) error {
	if len(labels) != table.Rows {
		return fmt.Errorf("%w: %d labels for %d samples", errkind.ErrConfig, len(labels), table.Rows)
	}
	if table.Rows == 0 {
		return fmt.Errorf("%w: no training samples", errkind.ErrConfig)
	}

	sums := make(map[uint8][]float64)
	counts := make(map[uint8]int)
	for r, l := range labels {
		if _, ok := sums[l]; !ok {
			sums[l] = make([]float64, table.Cols)
		}
		for c, v := range table.Row(r) {
			sums[l][c] += v
		}
		counts[l]++
	}
	for l, s := range sums {
		for c := range s {
			s[c] /= float64(counts[l])
		}
	}

	m.columns = append([]string(nil), table.Columns...)
	m.means = sums
	m.sortLabels()
	m.log.WithFields(logrus.Fields{"samples": table.Rows, "classes": len(m.labels)}).Info("model trained")
	return nil
}

// Predict assigns each row the label of the closest class mean. Ties go to the
// smallest label.
func (m *Centroid) Predict(_ context.Context, table *raster.FeatureTable) ([]uint8, error) {
	if len(m.means) == 0 {
		return nil, fmt.Errorf("%w: model is not trained", errkind.ErrConfig)
	}
	if !slices.Equal(m.columns, table.Columns) {
		return nil, fmt.Errorf("%w: model expects features %v, got %v", errkind.ErrConfig, m.columns, table.Columns)
	}

	out := make([]uint8, table.Rows)
	for r := range out {
		row := table.Row(r)
		best, bestDist := m.labels[0], -1.0
		for _, l := range m.labels {
			var d float64
			for c, mean := range m.means[l] {
				diff := row[c] - mean
				d += diff * diff
			}
			if bestDist < 0 || d < bestDist {
				best, bestDist = l, d
			}
		}
		out[r] = best
	}
	return out, nil
}

func (m *Centroid) Save(_ context.Context, path string) error {
	if len(m.means) == 0 {
		return fmt.Errorf("%w: model is not trained", errkind.ErrConfig)
	}
	var rows []*centroidRow
	for _, l := range m.labels {
		for c, name := range m.columns {
			rows = append(rows, &centroidRow{Label: l, Feature: name, Mean: m.means[l][c]})
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %v", errkind.ErrIO, filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", errkind.ErrIO, path, err)
	}
	defer f.Close()
	if err := gocsv.MarshalFile(&rows, f); err != nil {
		return fmt.Errorf("%w: write %s: %v", errkind.ErrIO, path, err)
	}
	return nil
}

func (m *Centroid) Load(_ context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", errkind.ErrIO, path, err)
	}
	defer f.Close()

	var rows []*centroidRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return fmt.Errorf("%w: parse %s: %v", errkind.ErrIO, path, err)
	}

	var columns []string
	index := make(map[string]int)
	for _, r := range rows {
		if _, ok := index[r.Feature]; !ok {
			index[r.Feature] = len(columns)
			columns = append(columns, r.Feature)
		}
	}
	means := make(map[uint8][]float64)
	for _, r := range rows {
		if _, ok := means[r.Label]; !ok {
			means[r.Label] = make([]float64, len(columns))
		}
		means[r.Label][index[r.Feature]] = r.Mean
	}
	if len(means) == 0 {
		return fmt.Errorf("%w: %s holds no class", errkind.ErrConfig, path)
	}

	m.columns, m.means = columns, means
	m.sortLabels()
	return nil
}

func (m *Centroid) sortLabels() {
	m.labels = m.labels[:0]
	for l := range m.means {
		m.labels = append(m.labels, l)
	}
	slices.Sort(m.labels)
}
