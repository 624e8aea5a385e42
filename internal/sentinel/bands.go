package sentinel

import (
	"fmt"
	"sort"
	"strings"

	"github.com/forest-guardian/landcover-cli/internal/errkind"
)

// Band is a Sentinel-2 spectral channel code such as "B02".
type Band string

const (
	B01 Band = "B01"
	B02 Band = "B02"
	B03 Band = "B03"
	B04 Band = "B04"
	B05 Band = "B05"
	B06 Band = "B06"
	B07 Band = "B07"
	B08 Band = "B08"
	B8A Band = "B8A"
	B09 Band = "B09"
	B10 Band = "B10"
	B11 Band = "B11"
	B12 Band = "B12"
	AOT Band = "AOT"
	WVP Band = "WVP"
	SCL Band = "SCL"
)

// Green, red and near-infrared channels used by the spectral indices.
const (
	Green = B03
	Red   = B04
	NIR   = B08
)

// Resolution is a ground sampling distance class in metres.
type Resolution int

const (
	R10 Resolution = 10
	R20 Resolution = 20
	R60 Resolution = 60
)

// Folder is the L2A image-data subfolder holding bands at this resolution.
func (r Resolution) Folder() string {
	return fmt.Sprintf("R%dm", int(r))
}

// nativeResolution maps every known band to the resolution it is captured at.
var nativeResolution = map[Band]Resolution{
	B01: R60,
	B02: R10,
	B03: R10,
	B04: R10,
	B05: R20,
	B06: R20,
	B07: R20,
	B08: R10,
	B8A: R20,
	B09: R60,
	B10: R60,
	B11: R20,
	B12: R20,
	AOT: R10,
	WVP: R10,
	SCL: R20,
}

// resolutionBands is the "all bands" selection per target resolution. Every
// menu carries B03, B04 and B08 so the indices can be computed; at 20m and
// 60m B08 is warped from the 10m folder.
var resolutionBands = map[Resolution][]Band{
	R10: {AOT, B02, B03, B04, B08, WVP},
	R20: {AOT, B01, B02, B03, B04, B05, B06, B07, B08, B11, B12, B8A, SCL, WVP},
	R60: {AOT, B01, B02, B03, B04, B05, B06, B07, B08, B09, B11, B12, B8A, SCL, WVP},
}

// NativeResolution returns the capture resolution of b.
func (b Band) NativeResolution() (Resolution, bool) {
	r, ok := nativeResolution[b]
	return r, ok
}

// DefaultBands returns a copy of the band menu for res.
func DefaultBands(res Resolution) []Band {
	return append([]Band(nil), resolutionBands[res]...)
}

// NativeBands returns the bands captured at res, sorted.
func NativeBands(res Resolution) []Band {
	var bands []Band
	for b, r := range nativeResolution {
		if r == res {
			bands = append(bands, b)
		}
	}
	SortBands(bands)
	return bands
}

// SortBands orders bands by code. Stack positions follow this order.
func SortBands(bands []Band) {
	sort.Slice(bands, func(i, j int) bool { return bands[i] < bands[j] })
}

// IndexOf returns the position of b in order, or -1.
func IndexOf(order []Band, b Band) int {
	for i, o := range order {
		if o == b {
			return i
		}
	}
	return -1
}

func ParseResolution(v int) (Resolution, error) {
	switch r := Resolution(v); r {
	case R10, R20, R60:
		return r, nil
	}
	return 0, fmt.Errorf("%w: unsupported resolution %dm, expected 10, 20 or 60", errkind.ErrConfig, v)
}

func ParseBand(code string) (Band, error) {
	b := Band(strings.ToUpper(strings.TrimSpace(code)))
	if _, ok := nativeResolution[b]; !ok {
		return "", fmt.Errorf("%w: unknown band %q", errkind.ErrConfig, code)
	}
	return b, nil
}

// ParseBands parses band codes. An empty list or the single value "all" yields nil,
// which the catalog reads as "every band of the target resolution".
func ParseBands(codes []string) ([]Band, error) {
	if len(codes) == 0 || (len(codes) == 1 && strings.EqualFold(strings.TrimSpace(codes[0]), "all")) {
		return nil, nil
	}
	bands := make([]Band, 0, len(codes))
	for _, c := range codes {
		b, err := ParseBand(c)
		if err != nil {
			return nil, err
		}
		bands = append(bands, b)
	}
	return bands, nil
}
