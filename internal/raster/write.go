package raster

import (
	"fmt"

	"github.com/airbusgeo/godal"
	"github.com/forest-guardian/landcover-cli/internal/errkind"
)

// WriteClassification writes labels as a single-band Byte GeoTIFF on grid,
// inheriting its geotransform and CRS. compress is a GTiff COMPRESS value;
// empty means LZW.
func WriteClassification(path string, labels []uint8, grid Grid, compress string) error {
	if len(labels) != grid.Pixels() {
		return fmt.Errorf("%w: %d labels for a %dx%d grid", errkind.ErrConfig, len(labels), grid.Width, grid.Height)
	}
	if compress == "" {
		compress = "LZW"
	}

	ds, err := godal.Create(godal.GTiff, path, 1, godal.Byte, grid.Width, grid.Height,
		godal.CreationOption("COMPRESS="+compress, "TILED=YES"))
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", errkind.ErrIO, path, err)
	}

	if err := writeLabels(ds, labels, grid); err != nil {
		_ = ds.Close()
		return fmt.Errorf("%w: write %s: %v", errkind.ErrIO, path, err)
	}
	if err := ds.Close(); err != nil {
		return fmt.Errorf("%w: flush %s: %v", errkind.ErrIO, path, err)
	}
	return nil
}

func writeLabels(ds *godal.Dataset, labels []uint8, grid Grid) error {
	if err := ds.SetGeoTransform(grid.Transform); err != nil {
		return err
	}
	if grid.CRS != "" {
		if err := ds.SetProjection(grid.CRS); err != nil {
			return err
		}
	}
	return ds.Bands()[0].Write(0, 0, labels, grid.Width, grid.Height)
}

// WriteStack writes every band of s to a GeoTIFF at path as Float64 bands,
// in band order, with the stack's georeferencing and nodata.
func WriteStack(path string, s *Stack, compress string) error {
	if compress == "" {
		compress = "LZW"
	}
	g := s.Grid
	ds, err := godal.Create(godal.GTiff, path, len(s.Data), godal.Float64, g.Width, g.Height,
		godal.CreationOption("COMPRESS="+compress, "TILED=YES"))
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", errkind.ErrIO, path, err)
	}

	if err := writeBands(ds, s); err != nil {
		_ = ds.Close()
		return fmt.Errorf("%w: write %s: %v", errkind.ErrIO, path, err)
	}
	if err := ds.Close(); err != nil {
		return fmt.Errorf("%w: flush %s: %v", errkind.ErrIO, path, err)
	}
	return nil
}

func writeBands(ds *godal.Dataset, s *Stack) error {
	g := s.Grid
	if err := ds.SetGeoTransform(g.Transform); err != nil {
		return err
	}
	if g.CRS != "" {
		if err := ds.SetProjection(g.CRS); err != nil {
			return err
		}
	}
	for i, band := range ds.Bands() {
		if g.HasNoData {
			if err := band.SetNoData(g.NoData); err != nil {
				return err
			}
		}
		if err := band.Write(0, 0, s.Data[i], g.Width, g.Height); err != nil {
			return fmt.Errorf("band %d: %w", i+1, err)
		}
	}
	return nil
}
