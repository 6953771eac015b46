// Package render repaints the overlay canvas: committed zones with
// their live counts, the in-progress draft on top, and the heatmap of
// detection centers. Every paint is a full, deterministic redraw.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"math"
	"sort"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/crowdcount/dashboard-server/internal/editor"
	"github.com/crowdcount/dashboard-server/internal/geometry"
	"github.com/crowdcount/dashboard-server/internal/telemetry"
	"github.com/crowdcount/dashboard-server/internal/zones"
)

// Overlay styling. Trip lines stay gold regardless of count; polygons
// switch between the empty and occupied fills.
var (
	TriplineColor = color.NRGBA{R: 255, G: 215, B: 0, A: 242}
	OccupiedFill  = color.NRGBA{R: 44, G: 195, B: 138, A: 77}
	EmptyFill     = color.NRGBA{R: 0, G: 150, B: 255, A: 64}
	DraftLine     = color.NRGBA{R: 255, G: 215, B: 0, A: 230}
	DraftFill     = color.NRGBA{R: 0, G: 150, B: 255, A: 90}
	OutlineColor  = color.NRGBA{R: 255, G: 255, B: 255, A: 230}
	VertexColor   = color.NRGBA{R: 255, G: 255, B: 255, A: 230}
	LabelBack     = color.NRGBA{R: 0, G: 0, B: 0, A: 191}
	LabelText     = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

// View is the shared read state one paint consumes. The render engine
// is the only component that touches the canvas; everything else hands
// it state through this snapshot.
type View struct {
	Canvas geometry.Size
	Source geometry.Size
	Zones  []zones.Zone
	Live   telemetry.Snapshot
	Draft  []geometry.Point
	Mode   editor.ToolMode
}

// Engine paints overlay frames for one editor session.
type Engine struct {
	store   *zones.Store
	session *editor.Session
	channel *telemetry.Channel
}

// NewEngine wires the paint source state together.
func NewEngine(store *zones.Store, session *editor.Session, channel *telemetry.Channel) *Engine {
	return &Engine{store: store, session: session, channel: channel}
}

// Paint gathers the current view and renders it.
func (e *Engine) Paint() *image.RGBA {
	tr := e.session.Transform()
	view := View{
		Canvas: tr.Canvas,
		Source: tr.Source,
		Zones:  e.store.All(),
		Draft:  e.session.Draft(),
		Mode:   e.session.Mode(),
	}
	if snap, ok := e.channel.Latest(); ok {
		view.Live = snap
	}
	return PaintView(view)
}

// PaintView renders a single frame of the given view.
//
// Order per paint: clear, committed zones (converted to display space,
// counts joined by name), then the draft on top in the active style.
// Committed zones are suppressed entirely while the source dimensions
// are unresolved; the draft is already in display space and still
// paints.
func PaintView(v View) *image.RGBA {
	w, h := v.Canvas.Width, v.Canvas.Height
	if w <= 0 || h <= 0 {
		return image.NewRGBA(image.Rect(0, 0, 1, 1))
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))

	tr := geometry.Transform{Canvas: v.Canvas, Source: v.Source}
	if tr.Valid() {
		for _, z := range v.Zones {
			disp := make([]geometry.Point, len(z.Points))
			for i, p := range z.Points {
				disp[i] = tr.ToDisplay(p)
			}
			count := v.Live.CountFor(z.Name)
			paintZone(img, disp, z.IsLine(), count)
		}
	}

	if len(v.Draft) > 0 {
		paintDraft(img, v.Draft, v.Mode)
	}
	return img
}

// CursorClass maps the tool mode to the pointer affordance class used
// by the console page, mirroring the canvas mode classes of the web UI.
func CursorClass(mode editor.ToolMode) string {
	switch mode {
	case editor.ModeLine:
		return "draw-line"
	case editor.ModePolygon:
		return "draw-poly"
	case editor.ModeEdit:
		return "edit-mode"
	default:
		return ""
	}
}

// EncodeJPEG serializes a painted frame for the MJPEG stream.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func paintZone(img *image.RGBA, pts []geometry.Point, isLine bool, count int) {
	if len(pts) < 2 {
		return
	}

	if isLine {
		strokeLine(img, pts[0], pts[1], TriplineColor, 3)
	} else {
		fill := EmptyFill
		if count > 0 {
			fill = OccupiedFill
		}
		fillPolygon(img, pts, fill)
		strokePolygon(img, pts, OutlineColor, 2)
	}

	paintVertices(img, pts)

	// Trip lines take the label above their leftmost end; polygons
	// carry it at their centroid.
	if isLine {
		min, _ := geometry.Bounds(pts)
		paintLabel(img, int(min.X)+6, int(min.Y)-8, fmt.Sprintf("%d", count))
	} else {
		c := geometry.Centroid(pts)
		paintLabel(img, int(c.X)-8, int(c.Y)+4, fmt.Sprintf("%d", count))
	}
}

func paintDraft(img *image.RGBA, pts []geometry.Point, mode editor.ToolMode) {
	if mode == editor.ModeLine {
		for i := 1; i < len(pts); i++ {
			strokeLine(img, pts[i-1], pts[i], DraftLine, 3)
		}
	} else if len(pts) >= 3 {
		fillPolygon(img, pts, DraftFill)
		strokePolygon(img, pts, OutlineColor, 2)
	} else if len(pts) == 2 {
		strokeLine(img, pts[0], pts[1], OutlineColor, 2)
	}
	paintVertices(img, pts)
}

func paintVertices(img *image.RGBA, pts []geometry.Point) {
	for _, p := range pts {
		fillDisc(img, int(p.X), int(p.Y), 3, VertexColor)
	}
}

func paintLabel(img *image.RGBA, x, y int, text string) {
	w := len(text)*7 + 12
	if w < 28 {
		w = 28
	}
	fillRect(img, x-4, y-12, w, 18, LabelBack)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(LabelText),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y+2),
	}
	d.DrawString(text)
}

func fillRect(img *image.RGBA, x, y, w, h int, c color.NRGBA) {
	r := image.Rect(x, y, x+w, y+h).Intersect(img.Bounds())
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Over)
}

// fillDisc paints a filled circle, used for vertex markers.
func fillDisc(img *image.RGBA, cx, cy, r int, c color.NRGBA) {
	src := image.NewUniform(c)
	for y := cy - r; y <= cy+r; y++ {
		for x := cx - r; x <= cx+r; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= r*r {
				draw.Draw(img, image.Rect(x, y, x+1, y+1), src, image.Point{}, draw.Over)
			}
		}
	}
}

// strokeLine walks the segment at sub-pixel steps painting a square
// brush of the given width.
func strokeLine(img *image.RGBA, a, b geometry.Point, c color.NRGBA, width int) {
	dx, dy := b.X-a.X, b.Y-a.Y
	steps := int(math.Max(math.Abs(dx), math.Abs(dy)))
	if steps == 0 {
		steps = 1
	}
	src := image.NewUniform(c)
	half := width / 2
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		x := int(math.Round(a.X + dx*t))
		y := int(math.Round(a.Y + dy*t))
		r := image.Rect(x-half, y-half, x-half+width, y-half+width).Intersect(img.Bounds())
		draw.Draw(img, r, src, image.Point{}, draw.Over)
	}
}

func strokePolygon(img *image.RGBA, pts []geometry.Point, c color.NRGBA, width int) {
	for i := range pts {
		strokeLine(img, pts[i], pts[(i+1)%len(pts)], c, width)
	}
}

// fillPolygon paints the polygon interior with an even-odd scanline.
func fillPolygon(img *image.RGBA, pts []geometry.Point, c color.NRGBA) {
	if len(pts) < 3 {
		return
	}
	minPt, maxPt := geometry.Bounds(pts)
	top := int(math.Floor(minPt.Y))
	bottom := int(math.Ceil(maxPt.Y))
	src := image.NewUniform(c)

	for y := top; y <= bottom; y++ {
		fy := float64(y) + 0.5
		var xs []float64
		j := len(pts) - 1
		for i := 0; i < len(pts); i++ {
			pi, pj := pts[i], pts[j]
			if (pi.Y > fy) != (pj.Y > fy) {
				x := pi.X + (fy-pi.Y)*(pj.X-pi.X)/(pj.Y-pi.Y)
				xs = append(xs, x)
			}
			j = i
		}
		sort.Float64s(xs)
		for k := 0; k+1 < len(xs); k += 2 {
			r := image.Rect(int(math.Round(xs[k])), y, int(math.Round(xs[k+1]))+1, y+1).
				Intersect(img.Bounds())
			draw.Draw(img, r, src, image.Point{}, draw.Over)
		}
	}
}
