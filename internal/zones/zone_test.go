package zones

import (
	"encoding/json"
	"testing"

	"github.com/crowdcount/dashboard-server/internal/geometry"
)

func TestPointsMarshalAsPairs(t *testing.T) {
	p := Points{{X: 100, Y: 200}, {X: 300.5, Y: 400}}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal points: %v", err)
	}
	if got, want := string(data), "[[100,200],[300.5,400]]"; got != want {
		t.Fatalf("marshal points = %s, want %s", got, want)
	}
}

func TestPointsUnmarshalPairs(t *testing.T) {
	var p Points
	if err := json.Unmarshal([]byte(`[[10,20],[30,40]]`), &p); err != nil {
		t.Fatalf("unmarshal pairs: %v", err)
	}
	if len(p) != 2 || p[0] != (geometry.Point{X: 10, Y: 20}) || p[1] != (geometry.Point{X: 30, Y: 40}) {
		t.Fatalf("unmarshal pairs = %+v", p)
	}
}

func TestPointsUnmarshalObjects(t *testing.T) {
	var p Points
	if err := json.Unmarshal([]byte(`[{"x":10,"y":20},{"x":30,"y":40}]`), &p); err != nil {
		t.Fatalf("unmarshal objects: %v", err)
	}
	if len(p) != 2 || p[0] != (geometry.Point{X: 10, Y: 20}) {
		t.Fatalf("unmarshal objects = %+v", p)
	}
}

func TestPointsUnmarshalRejectsGarbage(t *testing.T) {
	var p Points
	if err := json.Unmarshal([]byte(`["nope"]`), &p); err == nil {
		t.Fatalf("unmarshal garbage succeeded: %+v", p)
	}
}

func TestZoneIsLine(t *testing.T) {
	line := Zone{Points: Points{{X: 0, Y: 0}, {X: 10, Y: 10}}}
	if !line.IsLine() {
		t.Fatalf("two-point zone not a line")
	}
	poly := Zone{Points: Points{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}}}
	if poly.IsLine() {
		t.Fatalf("three-point zone reported as line")
	}
}
