package geom

import (
	"fmt"
	"fsq/util"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"math"
	"strings"
)

// Box is an axis-aligned rectangle in the coordinate space with inclusive bounds. The empty box (min > max) is the
// neutral element for union and the absorbing element for intersection.
type Box struct {
	MinX int32
	MinY int32
	MaxX int32
	MaxY int32
}

func EmptyBox() Box {
	return Box{MinX: math.MaxInt32, MinY: math.MaxInt32, MaxX: math.MinInt32, MaxY: math.MinInt32}
}

func WorldBox() Box {
	return Box{MinX: math.MinInt32, MinY: math.MinInt32, MaxX: math.MaxInt32, MaxY: math.MaxInt32}
}

func BoxOf(c Coordinate) Box {
	return Box{MinX: c.X, MinY: c.Y, MaxX: c.X, MaxY: c.Y}
}

// BoxFromLonLat creates the box covering the given WGS84 bounds.
func BoxFromLonLat(minLon float64, minLat float64, maxLon float64, maxLat float64) Box {
	return BoxOf(FromLonLat(minLon, minLat)).ExpandToInclude(FromLonLat(maxLon, maxLat))
}

// ParseLonLatBox parses a box of the form "minLon,minLat,maxLon,maxLat" in WGS84 degrees.
func ParseLonLatBox(s string) (Box, error) {
	values, err := parseNumberList(s, "box", "minLon,minLat,maxLon,maxLat")
	if err != nil {
		return EmptyBox(), err
	}

	if values[0] > values[2] || values[1] > values[3] {
		return EmptyBox(), errors.Errorf("Minimum of box '%s' must not be greater than its maximum", s)
	}
	return BoxFromLonLat(values[0], values[1], values[2], values[3]), nil
}

// ParseLonLat parses a position given as "lon,lat".
func ParseLonLat(s string) (Coordinate, error) {
	values, err := parseNumberList(s, "position", "lon,lat")
	if err != nil {
		return Coordinate{}, err
	}
	return FromLonLat(values[0], values[1]), nil
}

// ParseLonLatDistance parses a position with a distance in meters given as "lon,lat,meters".
func ParseLonLatDistance(s string) (Coordinate, float64, error) {
	values, err := parseNumberList(s, "distance", "lon,lat,meters")
	if err != nil {
		return Coordinate{}, 0, err
	}
	if values[2] < 0 {
		return Coordinate{}, 0, errors.Errorf("Distance in '%s' must not be negative", s)
	}
	return FromLonLat(values[0], values[1]), values[2], nil
}

// parseNumberList parses comma separated numbers. The format determines how many numbers are expected.
func parseNumberList(s string, name string, format string) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != strings.Count(format, ",")+1 {
		return nil, errors.Errorf("%s '%s' must have the format %s", strings.ToUpper(name[:1])+name[1:], s, format)
	}

	values := make([]float64, len(parts))
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if !util.IsNumber(part) {
			return nil, errors.Errorf("Invalid number '%s' in %s '%s'", part, name, s)
		}
		values[i], _ = util.ParseNumber(part)
	}
	return values, nil
}

// BoxFromBound converts a bound in projected units into a box. Fractions are rounded outwards.
func BoxFromBound(bound orb.Bound) Box {
	if bound.Min.X() > bound.Max.X() || bound.Min.Y() > bound.Max.Y() {
		return EmptyBox()
	}
	return Box{
		MinX: clampToInt32(math.Floor(bound.Min.X())),
		MinY: clampToInt32(math.Floor(bound.Min.Y())),
		MaxX: clampToInt32(math.Ceil(bound.Max.X())),
		MaxY: clampToInt32(math.Ceil(bound.Max.Y())),
	}
}

func (b Box) IsEmpty() bool {
	return b.MinX > b.MaxX || b.MinY > b.MaxY
}

func (b Box) ExpandToInclude(c Coordinate) Box {
	return b.Union(BoxOf(c))
}

func (b Box) Union(other Box) Box {
	if b.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return b
	}
	return Box{
		MinX: min(b.MinX, other.MinX),
		MinY: min(b.MinY, other.MinY),
		MaxX: max(b.MaxX, other.MaxX),
		MaxY: max(b.MaxY, other.MaxY),
	}
}

func (b Box) Intersection(other Box) Box {
	if b.IsEmpty() || other.IsEmpty() {
		return EmptyBox()
	}
	result := Box{
		MinX: max(b.MinX, other.MinX),
		MinY: max(b.MinY, other.MinY),
		MaxX: min(b.MaxX, other.MaxX),
		MaxY: min(b.MaxY, other.MaxY),
	}
	if result.IsEmpty() {
		return EmptyBox()
	}
	return result
}

func (b Box) Intersects(other Box) bool {
	if b.IsEmpty() || other.IsEmpty() {
		return false
	}
	return b.MinX <= other.MaxX && other.MinX <= b.MaxX && b.MinY <= other.MaxY && other.MinY <= b.MaxY
}

func (b Box) Contains(c Coordinate) bool {
	return !b.IsEmpty() && c.X >= b.MinX && c.X <= b.MaxX && c.Y >= b.MinY && c.Y <= b.MaxY
}

// ContainsBox is true when the other box lies completely within this box. Nothing contains the empty box.
func (b Box) ContainsBox(other Box) bool {
	if b.IsEmpty() || other.IsEmpty() {
		return false
	}
	return other.MinX >= b.MinX && other.MaxX <= b.MaxX && other.MinY >= b.MinY && other.MaxY <= b.MaxY
}

// Buffer grows the box by the given amount of units in every direction, saturating at the edges of the world.
func (b Box) Buffer(units float64) Box {
	if b.IsEmpty() {
		return b
	}
	delta := math.Ceil(units)
	return Box{
		MinX: clampToInt32(float64(b.MinX) - delta),
		MinY: clampToInt32(float64(b.MinY) - delta),
		MaxX: clampToInt32(float64(b.MaxX) + delta),
		MaxY: clampToInt32(float64(b.MaxY) + delta),
	}
}

func (b Box) Center() Coordinate {
	return Coordinate{
		X: int32((int64(b.MinX) + int64(b.MaxX)) / 2),
		Y: int32((int64(b.MinY) + int64(b.MaxY)) / 2),
	}
}

func (b Box) Width() int64 {
	if b.IsEmpty() {
		return 0
	}
	return int64(b.MaxX) - int64(b.MinX)
}

func (b Box) Height() int64 {
	if b.IsEmpty() {
		return 0
	}
	return int64(b.MaxY) - int64(b.MinY)
}

func (b Box) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{float64(b.MinX), float64(b.MinY)},
		Max: orb.Point{float64(b.MaxX), float64(b.MaxY)},
	}
}

func (b Box) String() string {
	if b.IsEmpty() {
		return "[empty]"
	}
	return fmt.Sprintf("[%d,%d,%d,%d]", b.MinX, b.MinY, b.MaxX, b.MaxY)
}
