package geom

import (
	"github.com/paulmach/orb/geo"
	"math"
)

const earthCircumference = 40075016.68557849 // meters at the equator, matches the Mercator plane width

// unitsPerMeterAtEquator is the scale of the coordinate space at latitude 0.
const unitsPerMeterAtEquator = float64(1<<32) / earthCircumference

// MetersToUnits converts the real-world distance into coordinate units at the given latitude. Mercator stretches
// distances by 1/cos(latitude), which is why the same distance needs more units towards the poles.
func MetersToUnits(meters float64, lat float64) float64 {
	lat = math.Max(-MaxLatitude, math.Min(MaxLatitude, lat))
	return meters * unitsPerMeterAtEquator / math.Cos(lat*math.Pi/180)
}

// UnitsToMeters is the inverse of MetersToUnits.
func UnitsToMeters(units float64, lat float64) float64 {
	lat = math.Max(-MaxLatitude, math.Min(MaxLatitude, lat))
	return units / unitsPerMeterAtEquator * math.Cos(lat*math.Pi/180)
}

// DistanceMeters returns the great-circle distance between the two coordinates.
func DistanceMeters(a Coordinate, b Coordinate) float64 {
	return geo.Distance(UnitsToLonLat(a.Point()), UnitsToLonLat(b.Point()))
}
