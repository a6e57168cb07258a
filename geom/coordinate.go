package geom

import (
	"fmt"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
	"math"
)

const (
	// MaxLatitude is the northernmost latitude the Mercator projection can represent in the coordinate space. Input
	// beyond this (and its negative counterpart) is clamped.
	MaxLatitude = 85.0511287798

	mercatorHalfWorld = 20037508.342789244 // meters from the center of the Mercator plane to its edge
	unitsPerMercator  = float64(1<<31) / mercatorHalfWorld
)

// Coordinate is a point in the projected integer space. The world spans the whole int32 range on both axes.
type Coordinate struct {
	X int32
	Y int32
}

// FromLonLat projects the WGS84 position into the coordinate space. Latitudes outside ±MaxLatitude and longitudes
// outside ±180 are clamped to the nearest representable value.
func FromLonLat(lon float64, lat float64) Coordinate {
	lat = math.Max(-MaxLatitude, math.Min(MaxLatitude, lat))
	lon = math.Max(-180, math.Min(180, lon))

	mercator := project.WGS84.ToMercator(orb.Point{lon, lat})
	return Coordinate{
		X: clampToInt32(math.Round(mercator.X() * unitsPerMercator)),
		Y: clampToInt32(math.Round(mercator.Y() * unitsPerMercator)),
	}
}

// LonLat returns the WGS84 longitude and latitude of this coordinate.
func (c Coordinate) LonLat() (float64, float64) {
	p := UnitsToLonLat(c.Point())
	return p.Lon(), p.Lat()
}

func (c Coordinate) Point() orb.Point {
	return orb.Point{float64(c.X), float64(c.Y)}
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// CoordinateOf converts a projected orb point back into the integer coordinate space.
func CoordinateOf(p orb.Point) Coordinate {
	return Coordinate{X: clampToInt32(math.Round(p.X())), Y: clampToInt32(math.Round(p.Y()))}
}

// UnitsToLonLat is an orb.Projection from the projected coordinate space to WGS84.
func UnitsToLonLat(p orb.Point) orb.Point {
	return project.Mercator.ToWGS84(orb.Point{p.X() / unitsPerMercator, p.Y() / unitsPerMercator})
}

// LonLatToUnits is an orb.Projection from WGS84 into the projected coordinate space.
func LonLatToUnits(p orb.Point) orb.Point {
	return FromLonLat(p.Lon(), p.Lat()).Point()
}

// ToLonLatGeometry returns a copy of the given projected geometry in WGS84 coordinates.
func ToLonLatGeometry(g orb.Geometry) orb.Geometry {
	return project.Geometry(orb.Clone(g), UnitsToLonLat)
}

func clampToInt32(v float64) int32 {
	if v >= math.MaxInt32 {
		return math.MaxInt32
	}
	if v <= math.MinInt32 {
		return math.MinInt32
	}
	return int32(v)
}
