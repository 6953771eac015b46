// Package geometry holds the coordinate transforms between the source
// video's native pixel frame (canonical space, where zone geometry is
// persisted) and the on-screen canvas (display space, used only while
// drawing), plus the point tests the occupancy counter relies on.
package geometry

import "math"

// Point is a position in either coordinate space. Canonical points are
// whole pixels; display points may carry sub-pixel positions.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is the extent of a frame or canvas in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Transform maps points between canonical and display space using
// independent per-axis linear scale factors.
type Transform struct {
	Canvas Size
	Source Size
}

// Valid reports whether both spaces have resolved, non-zero dimensions.
// The source size is learned asynchronously from the video feed, so the
// transform is unusable until the first frame dimensions arrive.
func (t Transform) Valid() bool {
	return t.Canvas.Width > 0 && t.Canvas.Height > 0 &&
		t.Source.Width > 0 && t.Source.Height > 0
}

// ToDisplay converts a canonical point to display space. No rounding:
// render space is continuous.
func (t Transform) ToDisplay(p Point) Point {
	return Point{
		X: p.X * float64(t.Canvas.Width) / float64(t.Source.Width),
		Y: p.Y * float64(t.Canvas.Height) / float64(t.Source.Height),
	}
}

// ToCanonical converts a display point back to the source frame,
// rounding to the nearest integer pixel.
func (t Transform) ToCanonical(p Point) Point {
	return Point{
		X: math.Round(p.X * float64(t.Source.Width) / float64(t.Canvas.Width)),
		Y: math.Round(p.Y * float64(t.Source.Height) / float64(t.Canvas.Height)),
	}
}

// Side returns the signed area of (a, b, p): positive on one side of
// the line a->b, negative on the other, zero on the line. Two
// consecutive positions with opposite signs have crossed the line.
func Side(a, b, p Point) float64 {
	return (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
}

// PointInPolygon reports whether p lies inside the polygon by ray
// casting. Polygons with fewer than 3 vertices contain nothing.
func PointInPolygon(p Point, poly []Point) bool {
	if len(poly) < 3 {
		return false
	}
	inside := false
	j := len(poly) - 1
	for i := 0; i < len(poly); i++ {
		pi, pj := poly[i], poly[j]
		if (pi.Y > p.Y) != (pj.Y > p.Y) &&
			p.X < (pj.X-pi.X)*(p.Y-pi.Y)/(pj.Y-pi.Y)+pi.X {
			inside = !inside
		}
		j = i
	}
	return inside
}

// Centroid returns the arithmetic mean of the points. Used for label
// placement; returns the zero point for an empty slice.
func Centroid(pts []Point) Point {
	if len(pts) == 0 {
		return Point{}
	}
	var c Point
	for _, p := range pts {
		c.X += p.X
		c.Y += p.Y
	}
	c.X /= float64(len(pts))
	c.Y /= float64(len(pts))
	return c
}

// Bounds returns the min and max corners of the points' bounding box.
func Bounds(pts []Point) (min, max Point) {
	if len(pts) == 0 {
		return Point{}, Point{}
	}
	min, max = pts[0], pts[0]
	for _, p := range pts[1:] {
		min.X = math.Min(min.X, p.X)
		min.Y = math.Min(min.Y, p.Y)
		max.X = math.Max(max.X, p.X)
		max.Y = math.Max(max.Y, p.Y)
	}
	return min, max
}
