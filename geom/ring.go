package geom

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/pkg/errors"
)

// AssembleRings joins the given open or closed coordinate strings (usually the member ways of a multipolygon) into
// closed rings. Strings are joined at matching end points, reversing them where necessary.
func AssembleRings(lines [][]Coordinate) ([][]Coordinate, error) {
	used := make([]bool, len(lines))
	var rings [][]Coordinate

	for start := range lines {
		if used[start] || len(lines[start]) < 2 {
			used[start] = true
			continue
		}
		used[start] = true
		ring := append([]Coordinate{}, lines[start]...)

		for ring[0] != ring[len(ring)-1] {
			end := ring[len(ring)-1]
			extended := false

			for candidate := range lines {
				if used[candidate] || len(lines[candidate]) < 2 {
					continue
				}
				line := lines[candidate]
				if line[0] == end {
					ring = append(ring, line[1:]...)
				} else if line[len(line)-1] == end {
					for i := len(line) - 2; i >= 0; i-- {
						ring = append(ring, line[i])
					}
				} else {
					continue
				}
				used[candidate] = true
				extended = true
				break
			}

			if !extended {
				return nil, errors.Errorf("Unable to close ring starting at %s, no line continues at %s", ring[0], end)
			}
		}

		if len(ring) < 4 {
			return nil, errors.Errorf("Ring starting at %s has only %d coordinates", ring[0], len(ring))
		}
		rings = append(rings, ring)
	}

	return rings, nil
}

func RingOf(coordinates []Coordinate) orb.Ring {
	ring := make(orb.Ring, len(coordinates))
	for i, c := range coordinates {
		ring[i] = c.Point()
	}
	return ring
}

func LineStringOf(coordinates []Coordinate) orb.LineString {
	line := make(orb.LineString, len(coordinates))
	for i, c := range coordinates {
		line[i] = c.Point()
	}
	return line
}

// BuildMultiPolygon combines outer and inner rings: every inner ring becomes a hole of the first outer ring
// containing it. Inner rings without outer ring are dropped.
func BuildMultiPolygon(outerRings []orb.Ring, innerRings []orb.Ring) orb.MultiPolygon {
	multiPolygon := make(orb.MultiPolygon, 0, len(outerRings))
	for _, outer := range outerRings {
		if outer.Orientation() != orb.CCW {
			outer.Reverse()
		}
		multiPolygon = append(multiPolygon, orb.Polygon{outer})
	}

	for _, inner := range innerRings {
		if len(inner) == 0 {
			continue
		}
		if inner.Orientation() != orb.CW {
			inner.Reverse()
		}
		for i, polygon := range multiPolygon {
			if planar.RingContains(polygon[0], inner[0]) || locate(inner[0], orb.Polygon{polygon[0]}) == locationBoundary {
				multiPolygon[i] = append(multiPolygon[i], inner)
				break
			}
		}
	}

	return multiPolygon
}
