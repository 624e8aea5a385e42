// Package output renders classification results for people: a coloured
// class map and a GeoJSON of per-pixel points.
package output

import (
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/forest-guardian/landcover-cli/internal/errkind"
	"github.com/forest-guardian/landcover-cli/internal/labeler"
	"github.com/forest-guardian/landcover-cli/internal/properties"
)

const (
	legendSpacing = 20
	legendBox     = 15
)

// MaxMapSide bounds the drawn map, in pixels, along either axis.
const MaxMapSide = 4096

var legendClasses = []labeler.Class{labeler.Water, labeler.Vegetation, labeler.Urban}

// RenderClassMap draws labels (row-major, width x height) as a PNG, each
// pixel blown up to a scale x scale block, with a legend below the map.
// Maps larger than MaxMapSide are drawn at a smaller scale, then sampled
// every step pixels.
func RenderClassMap(path string, labels []uint8, width, height, scale int) error {
	if width <= 0 || height <= 0 || len(labels) != width*height {
		return fmt.Errorf("%w: %d labels for a %dx%d map", errkind.ErrConfig, len(labels), width, height)
	}
	if scale < 1 {
		scale = 1
	}

	step, scale := fitMap(width, height, scale)
	outW, outH := ceilDiv(width, step), ceilDiv(height, step)

	mapW, mapH := outW*scale, outH*scale
	img := image.NewRGBA(image.Rect(0, 0, mapW, mapH))
	for y := 0; y < outH; y++ {
		for x := 0; x < outW; x++ {
			c := classColor(labeler.Class(labels[y*step*width+x*step]))
			for dy := 0; dy < scale; dy++ {
				for dx := 0; dx < scale; dx++ {
					img.Set(x*scale+dx, y*scale+dy, c)
				}
			}
		}
	}

	legendH := len(legendClasses)*legendSpacing + 10
	canvasW := max(mapW, 120)
	dc := gg.NewContext(canvasW, mapH+legendH)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.DrawImage(img, 0, 0)

	legendX := 10
	for i, class := range legendClasses {
		y := mapH + 10 + i*legendSpacing
		c := classColor(class)

		dc.SetRGB255(int(c.R), int(c.G), int(c.B))
		dc.DrawRectangle(float64(legendX), float64(y), legendBox, legendBox)
		dc.Fill()

		dc.SetRGB(0, 0, 0)
		dc.DrawRectangle(float64(legendX), float64(y), legendBox, legendBox)
		dc.SetLineWidth(1)
		dc.Stroke()

		dc.DrawStringAnchored(class.String(), float64(legendX+20), float64(y+7), 0, 0.5)
	}

	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("%w: save class map %s: %v", errkind.ErrIO, path, err)
	}
	return nil
}

// fitMap returns the sampling step and the scale that keep the drawn map
// within MaxMapSide.
func fitMap(width, height, scale int) (step, fitted int) {
	step = 1
	for ceilDiv(width, step) > MaxMapSide || ceilDiv(height, step) > MaxMapSide {
		step++
	}
	side := max(ceilDiv(width, step), ceilDiv(height, step))
	for scale > 1 && side*scale > MaxMapSide {
		scale--
	}
	return step, scale
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

func classColor(c labeler.Class) color.RGBA {
	p, ok := properties.ColorMap[c.String()]
	if !ok {
		p = properties.ColorMap["unknown"]
	}
	return color.RGBA{R: p.R, G: p.G, B: p.B, A: 255}
}
