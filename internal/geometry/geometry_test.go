package geometry

import (
	"math"
	"testing"
)

func TestRoundTripWithinOnePixel(t *testing.T) {
	tr := Transform{
		Canvas: Size{Width: 960, Height: 540},
		Source: Size{Width: 1280, Height: 720},
	}

	points := []Point{
		{X: 0, Y: 0},
		{X: 10, Y: 10},
		{X: 640, Y: 360},
		{X: 1279, Y: 719},
		{X: 1, Y: 719},
	}
	for _, p := range points {
		got := tr.ToCanonical(tr.ToDisplay(p))
		if math.Abs(got.X-p.X) > 1 || math.Abs(got.Y-p.Y) > 1 {
			t.Fatalf("round trip %v -> %v exceeds 1px tolerance", p, got)
		}
	}
}

func TestToCanonicalRounds(t *testing.T) {
	tr := Transform{
		Canvas: Size{Width: 640, Height: 360},
		Source: Size{Width: 1280, Height: 720},
	}
	got := tr.ToCanonical(Point{X: 100.3, Y: 50.6})
	if got.X != math.Round(got.X) || got.Y != math.Round(got.Y) {
		t.Fatalf("canonical point not integral: %v", got)
	}
	if got.X != 201 || got.Y != 101 {
		t.Fatalf("unexpected canonical point: %v", got)
	}
}

func TestToDisplayDoesNotRound(t *testing.T) {
	tr := Transform{
		Canvas: Size{Width: 960, Height: 540},
		Source: Size{Width: 1280, Height: 720},
	}
	got := tr.ToDisplay(Point{X: 1, Y: 1})
	if got.X != 0.75 || got.Y != 0.75 {
		t.Fatalf("display point should keep sub-pixel precision, got %v", got)
	}
}

func TestTransformValid(t *testing.T) {
	cases := []struct {
		name  string
		tr    Transform
		valid bool
	}{
		{"resolved", Transform{Canvas: Size{640, 480}, Source: Size{1280, 720}}, true},
		{"source unresolved", Transform{Canvas: Size{640, 480}}, false},
		{"source width zero", Transform{Canvas: Size{640, 480}, Source: Size{0, 720}}, false},
		{"canvas zero", Transform{Source: Size{1280, 720}}, false},
	}
	for _, tc := range cases {
		if got := tc.tr.Valid(); got != tc.valid {
			t.Fatalf("%s: Valid() = %v, want %v", tc.name, got, tc.valid)
		}
	}
}

func TestSideChangesAcrossLine(t *testing.T) {
	a := Point{X: 0, Y: 0}
	b := Point{X: 100, Y: 0}

	above := Side(a, b, Point{X: 50, Y: 10})
	below := Side(a, b, Point{X: 50, Y: -10})
	if above*below >= 0 {
		t.Fatalf("points on opposite sides should have opposite signs: %v %v", above, below)
	}
	if Side(a, b, Point{X: 50, Y: 0}) != 0 {
		t.Fatalf("point on the line should have zero sign")
	}
}

func TestPointInPolygon(t *testing.T) {
	square := []Point{{10, 10}, {100, 10}, {100, 100}, {10, 100}}

	if !PointInPolygon(Point{X: 50, Y: 50}, square) {
		t.Fatalf("center should be inside")
	}
	if PointInPolygon(Point{X: 5, Y: 50}, square) {
		t.Fatalf("point left of square should be outside")
	}
	if PointInPolygon(Point{X: 50, Y: 50}, square[:2]) {
		t.Fatalf("degenerate polygon should contain nothing")
	}
}

func TestBoundsAndCentroid(t *testing.T) {
	pts := []Point{{10, 40}, {30, 10}, {50, 40}}
	min, max := Bounds(pts)
	if min.X != 10 || min.Y != 10 || max.X != 50 || max.Y != 40 {
		t.Fatalf("bounds = %v %v", min, max)
	}
	c := Centroid(pts)
	if c.X != 30 || c.Y != 30 {
		t.Fatalf("centroid = %v", c)
	}
}
