package geom

import (
	"fsq/util"
	"testing"
)

func TestMetersToUnits_equator(t *testing.T) {
	util.AssertApprox(t, 107173.188, MetersToUnits(1000, 0), 0.01)
}

func TestMetersToUnits_growsWithLatitude(t *testing.T) {
	util.AssertApprox(t, 2*MetersToUnits(1, 0), MetersToUnits(1, 60), 0.000001)
	util.AssertApprox(t, MetersToUnits(1, -60), MetersToUnits(1, 60), 0.000001)
	util.AssertApprox(t, 1000.0, UnitsToMeters(MetersToUnits(1000, 47), 47), 0.000001)
}

func TestMetersToUnits_matchesGreatCircleDistance(t *testing.T) {
	// Arrange
	a := FromLonLat(0, 0)
	b := FromLonLat(0.01, 0)
	units := float64(b.X - a.X)

	// Act
	meters := DistanceMeters(a, b)

	// Assert
	util.AssertApprox(t, units, MetersToUnits(meters, 0), units*0.001)
}
