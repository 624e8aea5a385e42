package raster

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/airbusgeo/godal"
	"github.com/forest-guardian/landcover-cli/internal/errkind"
	"github.com/forest-guardian/landcover-cli/internal/sentinel"
)

// ScratchMode selects where a Stack is materialised for GDAL operations.
type ScratchMode string

const (
	ScratchMemory ScratchMode = "memory"
	ScratchDisk   ScratchMode = "disk"
)

func ParseScratchMode(s string) (ScratchMode, error) {
	switch m := ScratchMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ScratchMemory, nil
	case ScratchMemory, ScratchDisk:
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown scratch mode %q, expected memory or disk", errkind.ErrConfig, s)
}

// Scratch is a temporary raster holding a copy of a Stack. It must be released.
type Scratch struct {
	ds  *godal.Dataset
	dir string
}

// Materialize writes s into a new Float64 raster carrying its geotransform,
// CRS and nodata. On error nothing is left behind.
func Materialize(s *Stack, mode ScratchMode) (_ *Scratch, err error) {
	sc := &Scratch{}
	defer func() {
		if err != nil {
			_ = sc.Release()
		}
	}()

	driver, name := memDriver, ""
	var opts []godal.DatasetCreateOption
	if mode == ScratchDisk {
		sc.dir, err = os.MkdirTemp("", "s2-scratch-")
		if err != nil {
			return nil, fmt.Errorf("%w: create scratch dir: %v", errkind.ErrIO, err)
		}
		driver, name = godal.GTiff, filepath.Join(sc.dir, "stack.tif")
		opts = append(opts, godal.CreationOption("TILED=YES"))
	}

	g := s.Grid
	sc.ds, err = godal.Create(driver, name, len(s.Data), godal.Float64, g.Width, g.Height, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: create scratch raster: %v", errkind.ErrIO, err)
	}
	if err = writeBands(sc.ds, s); err != nil {
		return nil, fmt.Errorf("%w: fill scratch raster: %v", errkind.ErrIO, err)
	}
	return sc, nil
}

func (sc *Scratch) Dataset() *godal.Dataset {
	return sc.ds
}

// Release closes the raster and removes any file backing it. It is safe to call twice.
func (sc *Scratch) Release() error {
	var errs []error
	if sc.ds != nil {
		errs = append(errs, sc.ds.Close())
		sc.ds = nil
	}
	if sc.dir != "" {
		errs = append(errs, os.RemoveAll(sc.dir))
		sc.dir = ""
	}
	return errors.Join(errs...)
}

// Path is the file backing a disk scratch, empty for in-memory ones.
func (sc *Scratch) Path() string {
	if sc.dir == "" {
		return ""
	}
	return filepath.Join(sc.dir, "stack.tif")
}

// ReadStack reads every band of ds into a stack labelled with order.
func ReadStack(ds *godal.Dataset, order []sentinel.Band) (*Stack, error) {
	return readDataset(ds, order, 0)
}
