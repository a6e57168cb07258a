package geom

import (
	"fsq/util"
	"math"
	"testing"
)

func TestBox_emptyIsNeutralForUnion(t *testing.T) {
	// Arrange
	b := Box{MinX: 1, MinY: 2, MaxX: 3, MaxY: 4}

	// Act & Assert
	util.AssertEqual(t, b, EmptyBox().Union(b))
	util.AssertEqual(t, b, b.Union(EmptyBox()))
	util.AssertTrue(t, EmptyBox().Union(EmptyBox()).IsEmpty())
}

func TestBox_emptyIsAbsorbingForIntersection(t *testing.T) {
	// Arrange
	b := Box{MinX: 1, MinY: 2, MaxX: 3, MaxY: 4}

	// Act & Assert
	util.AssertTrue(t, EmptyBox().Intersection(b).IsEmpty())
	util.AssertTrue(t, b.Intersection(EmptyBox()).IsEmpty())
	util.AssertFalse(t, b.Intersects(EmptyBox()))
	util.AssertFalse(t, EmptyBox().Intersects(EmptyBox()))
}

func TestBox_intersection(t *testing.T) {
	// Arrange
	a := Box{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10}
	b := Box{MinX: 5, MinY: -5, MaxX: 15, MaxY: 5}
	c := Box{MinX: 11, MinY: 11, MaxX: 20, MaxY: 20}

	// Act & Assert
	util.AssertEqual(t, Box{MinX: 5, MinY: 0, MaxX: 10, MaxY: 5}, a.Intersection(b))
	util.AssertTrue(t, a.Intersects(b))
	util.AssertTrue(t, a.Intersection(c).IsEmpty())
	util.AssertFalse(t, a.Intersects(c))
}

func TestBox_touchingBoxesIntersect(t *testing.T) {
	a := Box{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10}
	b := Box{MinX: 10, MinY: 10, MaxX: 20, MaxY: 20}
	util.AssertTrue(t, a.Intersects(b))
	util.AssertEqual(t, Box{MinX: 10, MinY: 10, MaxX: 10, MaxY: 10}, a.Intersection(b))
}

func TestBox_expandAndContains(t *testing.T) {
	// Act
	b := EmptyBox().ExpandToInclude(Coordinate{X: 5, Y: 5}).ExpandToInclude(Coordinate{X: -5, Y: 10})

	// Assert
	util.AssertEqual(t, Box{MinX: -5, MinY: 5, MaxX: 5, MaxY: 10}, b)
	util.AssertTrue(t, b.Contains(Coordinate{X: 0, Y: 7}))
	util.AssertFalse(t, b.Contains(Coordinate{X: 0, Y: 11}))
	util.AssertTrue(t, b.ContainsBox(Box{MinX: -5, MinY: 5, MaxX: 0, MaxY: 6}))
	util.AssertFalse(t, b.ContainsBox(EmptyBox()))
	util.AssertFalse(t, EmptyBox().Contains(Coordinate{}))
}

func TestBox_bufferSaturates(t *testing.T) {
	// Arrange
	b := Box{MinX: math.MinInt32 + 5, MinY: 0, MaxX: 10, MaxY: math.MaxInt32 - 5}

	// Act
	buffered := b.Buffer(10)

	// Assert
	util.AssertEqual(t, Box{MinX: math.MinInt32, MinY: -10, MaxX: 20, MaxY: math.MaxInt32}, buffered)
	util.AssertTrue(t, EmptyBox().Buffer(100).IsEmpty())
}

func TestBox_center(t *testing.T) {
	util.AssertEqual(t, Coordinate{X: 0, Y: 0}, WorldBox().Center())
	util.AssertEqual(t, Coordinate{X: 5, Y: 15}, Box{MinX: 0, MinY: 10, MaxX: 10, MaxY: 20}.Center())
}

func TestParseLonLatBox(t *testing.T) {
	// Act
	box, err := ParseLonLatBox("9.9, 53.5,10.1,53.6")

	// Assert
	util.AssertNil(t, err)
	util.AssertEqual(t, BoxFromLonLat(9.9, 53.5, 10.1, 53.6), box)
}

func TestParseLonLatBox_invalid(t *testing.T) {
	testCases := map[string]string{
		"1,2,3":     "Box '1,2,3' must have the format minLon,minLat,maxLon,maxLat",
		"1,2,x,4":   "Invalid number 'x' in box '1,2,x,4'",
		"1,2,3,4km": "Invalid number '4km' in box '1,2,3,4km'",
		"3,2,1,4":   "Minimum of box '3,2,1,4' must not be greater than its maximum",
	}

	for input, message := range testCases {
		// Act
		_, err := ParseLonLatBox(input)

		// Assert
		util.AssertError(t, message, err)
	}
}

func TestParseLonLat(t *testing.T) {
	// Act
	c, err := ParseLonLat("10.0,53.55")

	// Assert
	util.AssertNil(t, err)
	util.AssertEqual(t, FromLonLat(10.0, 53.55), c)

	_, err = ParseLonLat("10.0")
	util.AssertError(t, "Position '10.0' must have the format lon,lat", err)
}

func TestParseLonLatDistance(t *testing.T) {
	// Act
	c, meters, err := ParseLonLatDistance("10.0, 53.55, 250")

	// Assert
	util.AssertNil(t, err)
	util.AssertEqual(t, FromLonLat(10.0, 53.55), c)
	util.AssertEqual(t, 250.0, meters)

	_, _, err = ParseLonLatDistance("10.0,53.55,-1")
	util.AssertError(t, "Distance in '10.0,53.55,-1' must not be negative", err)

	_, _, err = ParseLonLatDistance("10.0,53.55,far")
	util.AssertError(t, "Invalid number 'far' in distance '10.0,53.55,far'", err)
}
