package geom

import (
	"fsq/util"
	"math"
	"testing"
)

func TestFromLonLat_origin(t *testing.T) {
	// Act
	c := FromLonLat(0, 0)

	// Assert
	util.AssertEqual(t, Coordinate{X: 0, Y: 0}, c)
}

func TestFromLonLat_latitudeIsClamped(t *testing.T) {
	// Act
	north := FromLonLat(10, 90)
	tooFarNorth := FromLonLat(10, 89.9)
	maxNorth := FromLonLat(10, MaxLatitude)
	south := FromLonLat(10, -120)
	maxSouth := FromLonLat(10, -MaxLatitude)

	// Assert
	util.AssertEqual(t, maxNorth, north)
	util.AssertEqual(t, maxNorth, tooFarNorth)
	util.AssertEqual(t, maxSouth, south)
	util.AssertTrue(t, maxNorth.Y > math.MaxInt32-1000)
	util.AssertTrue(t, maxSouth.Y < math.MinInt32+1000)
}

func TestFromLonLat_longitudeEdges(t *testing.T) {
	util.AssertEqual(t, int32(math.MaxInt32), FromLonLat(180, 0).X)
	util.AssertEqual(t, int32(math.MinInt32), FromLonLat(-180, 0).X)
	util.AssertEqual(t, int32(math.MaxInt32), FromLonLat(200, 0).X)
}

func TestCoordinate_lonLatRoundTrip(t *testing.T) {
	// Arrange
	c := FromLonLat(9.9937, 53.5511)

	// Act
	lon, lat := c.LonLat()

	// Assert
	util.AssertApprox(t, 9.9937, lon, 0.000001)
	util.AssertApprox(t, 53.5511, lat, 0.000001)
}

func TestCoordinateOf(t *testing.T) {
	c := Coordinate{X: -12, Y: 345}
	util.AssertEqual(t, c, CoordinateOf(c.Point()))
}
