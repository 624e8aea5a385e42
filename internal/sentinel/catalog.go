package sentinel

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/forest-guardian/landcover-cli/internal/errkind"
	"github.com/sirupsen/logrus"
)

// Variant selects how bands captured at other resolutions are treated.
type Variant int

const (
	// Resample keeps every requested band; the aligner warps the ones
	// not captured at the target resolution onto the reference grid.
	Resample Variant = iota
	// NativeOnly keeps only the bands captured at the target resolution.
	NativeOnly
)

func (v Variant) String() string {
	if v == NativeOnly {
		return "native"
	}
	return "resample"
}

func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "resample":
		return Resample, nil
	case "native":
		return NativeOnly, nil
	}
	return 0, fmt.Errorf("%w: unknown variant %q, expected resample or native", errkind.ErrConfig, s)
}

var rasterExtensions = map[string]bool{".jp2": true, ".tif": true, ".tiff": true}

// Catalog finds per-band image files inside a SAFE archive.
type Catalog struct {
	log logrus.FieldLogger
}

func NewCatalog(log logrus.FieldLogger) *Catalog {
	return &Catalog{log: log.WithField("component", "catalog")}
}

// Resolve maps each selected band to its image file under safeFolder.
//
// Both archive layouts are handled: L2A image data split in R10m/R20m/R60m
// folders and L1C image data stored flat. A file matches a band when one of the
// underscore separated tokens of its base name equals the band code. Candidates
// are visited in lexical order and the first one wins; requested bands with no
// file are dropped.
func (c *Catalog) Resolve(safeFolder string, res Resolution, requested []Band, variant Variant) (map[Band]string, error) {
	imgDir, err := c.imageDataDir(safeFolder)
	if err != nil {
		return nil, err
	}

	bands := c.selectBands(res, requested, variant)
	split := isResolutionSplit(imgDir)
	c.log.WithFields(logrus.Fields{
		"img_data":   imgDir,
		"resolution": int(res),
		"variant":    variant.String(),
		"split":      split,
	}).Debug("resolving band files")

	found := make(map[Band]string)
	listings := make(map[string][]string)
	for _, band := range bands {
		var dirs []string
		if split {
			dirs = searchFolders(imgDir, band, res, variant)
		} else {
			dirs = []string{imgDir}
		}

		var candidates []string
		for _, dir := range dirs {
			files, ok := listings[dir]
			if !ok {
				files, err = listRasterFiles(dir)
				if err != nil {
					return nil, err
				}
				listings[dir] = files
			}
			for _, f := range files {
				if matchesBand(filepath.Base(f), band) {
					candidates = append(candidates, f)
				}
			}
			if len(candidates) > 0 {
				break
			}
		}

		if len(candidates) == 0 {
			c.log.WithField("band", band).Debug("requested band not found, dropping it")
			continue
		}
		if len(candidates) > 1 {
			c.log.WithFields(logrus.Fields{
				"band":       band,
				"candidates": len(candidates),
				"chosen":     candidates[0],
			}).Warn("several files match band, using the first one")
		}
		found[band] = candidates[0]
	}

	if len(found) == 0 {
		return nil, fmt.Errorf("%w: no bands found at %dm resolution in %s", errkind.ErrConfig, int(res), safeFolder)
	}
	return found, nil
}

func (c *Catalog) selectBands(res Resolution, requested []Band, variant Variant) []Band {
	if requested == nil {
		if variant == NativeOnly {
			return NativeBands(res)
		}
		return DefaultBands(res)
	}

	seen := make(map[Band]bool, len(requested))
	var bands []Band
	for _, b := range requested {
		if seen[b] {
			continue
		}
		seen[b] = true
		if variant == NativeOnly {
			native, ok := b.NativeResolution()
			if !ok || native != res {
				c.log.WithField("band", b).Debug("band not captured at target resolution, skipping")
				continue
			}
		}
		bands = append(bands, b)
	}
	return bands
}

// imageDataDir returns GRANULE/<first granule>/IMG_DATA.
func (c *Catalog) imageDataDir(safeFolder string) (string, error) {
	granuleRoot := filepath.Join(safeFolder, "GRANULE")
	entries, err := os.ReadDir(granuleRoot)
	if err != nil {
		return "", fmt.Errorf("%w: missing GRANULE folder in %s: %v", errkind.ErrConfig, safeFolder, err)
	}

	var granules []string
	for _, e := range entries {
		if e.IsDir() {
			granules = append(granules, e.Name())
		}
	}
	if len(granules) == 0 {
		return "", fmt.Errorf("%w: no granule found in %s", errkind.ErrConfig, granuleRoot)
	}
	if len(granules) > 1 {
		c.log.WithFields(logrus.Fields{"granules": len(granules), "chosen": granules[0]}).Warn("archive holds several granules, using the first one")
	}

	imgDir := filepath.Join(granuleRoot, granules[0], "IMG_DATA")
	info, err := os.Stat(imgDir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: missing IMG_DATA folder in granule %s", errkind.ErrConfig, granules[0])
	}
	return imgDir, nil
}

func isResolutionSplit(imgDir string) bool {
	for _, r := range []Resolution{R10, R20, R60} {
		if info, err := os.Stat(filepath.Join(imgDir, r.Folder())); err == nil && info.IsDir() {
			return true
		}
	}
	return false
}

// searchFolders lists the resolution folders to look a band up in: the target
// resolution first and, when resampling, the band's native folder.
func searchFolders(imgDir string, band Band, res Resolution, variant Variant) []string {
	dirs := []string{filepath.Join(imgDir, res.Folder())}
	if variant == Resample {
		if native, ok := band.NativeResolution(); ok && native != res {
			dirs = append(dirs, filepath.Join(imgDir, native.Folder()))
		}
	}
	return dirs
}

// listRasterFiles returns raster files in dir sorted by name. A missing folder is empty.
func listRasterFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list %s: %v", errkind.ErrIO, dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !rasterExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

func matchesBand(fileName string, band Band) bool {
	base := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	for _, token := range strings.Split(base, "_") {
		if token == string(band) {
			return true
		}
	}
	return false
}
