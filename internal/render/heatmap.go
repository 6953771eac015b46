package render

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/crowdcount/dashboard-server/internal/telemetry"
)

var (
	heatWash = color.NRGBA{R: 14, G: 22, B: 52, A: 89}
	heatSpot = color.NRGBA{R: 0, G: 200, B: 255, A: 166}
)

const heatRadius = 14

// PaintHeatmap washes the previous frame down and scatters a soft spot
// per normalized detection center. Centers outside the unit square are
// clamped by the disc clip against the canvas bounds.
func PaintHeatmap(img *image.RGBA, centers []telemetry.Center) {
	b := img.Bounds()
	draw.Draw(img, b, image.NewUniform(heatWash), image.Point{}, draw.Over)

	for _, c := range centers {
		x := int(c.X * float64(b.Dx()))
		y := int(c.Y * float64(b.Dy()))
		paintHeatSpot(img, x, y)
	}
}

// paintHeatSpot fades the spot color out towards the disc edge.
func paintHeatSpot(img *image.RGBA, cx, cy int) {
	for dy := -heatRadius; dy <= heatRadius; dy++ {
		for dx := -heatRadius; dx <= heatRadius; dx++ {
			d2 := dx*dx + dy*dy
			if d2 > heatRadius*heatRadius {
				continue
			}
			fade := 1.0 - float64(d2)/float64(heatRadius*heatRadius)
			c := heatSpot
			c.A = uint8(float64(c.A) * fade)
			r := image.Rect(cx+dx, cy+dy, cx+dx+1, cy+dy+1).Intersect(img.Bounds())
			draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Over)
		}
	}
}
