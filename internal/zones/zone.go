// Package zones holds the zone data model, the client-side cache of the
// backend zone collection, and the CRUD client that keeps it in sync.
package zones

import (
	"encoding/json"
	"fmt"

	"github.com/crowdcount/dashboard-server/internal/geometry"
)

// Points is an ordered vertex sequence in canonical (source-frame)
// coordinates. On the wire it is a list of [x, y] pairs; object form
// {"x":..,"y":..} is accepted on decode for older payloads.
type Points []geometry.Point

// Zone is a named region (3+ points) or trip line (exactly 2 points) on
// the source frame. ID is assigned by the backend; a draft has none.
type Zone struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Points Points `json:"points"`
}

// IsLine reports whether the zone carries crossing semantics rather than
// region occupancy.
func (z Zone) IsLine() bool {
	return len(z.Points) == 2
}

// MarshalJSON encodes the points as [x, y] pairs.
func (p Points) MarshalJSON() ([]byte, error) {
	pairs := make([][2]float64, len(p))
	for i, pt := range p {
		pairs[i] = [2]float64{pt.X, pt.Y}
	}
	return json.Marshal(pairs)
}

// UnmarshalJSON accepts both [x, y] pairs and {x, y} objects.
func (p *Points) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(Points, 0, len(raw))
	for i, item := range raw {
		var pair [2]float64
		if err := json.Unmarshal(item, &pair); err == nil {
			out = append(out, geometry.Point{X: pair[0], Y: pair[1]})
			continue
		}
		var obj geometry.Point
		if err := json.Unmarshal(item, &obj); err == nil {
			out = append(out, obj)
			continue
		}
		return fmt.Errorf("point %d: unrecognized encoding", i)
	}
	*p = out
	return nil
}
