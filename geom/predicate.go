package geom

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"math"
	"sort"
)

// The predicates below work on projected geometries whose vertices are integer coordinates stored as floats. Areas
// are polygons, multipolygons or collections containing them, everything else counts as linework or points.

const orientationTolerance = 1e-12

type components struct {
	points   []orb.Point
	lines    []orb.LineString
	polygons []orb.Polygon
}

func decompose(g orb.Geometry) components {
	var c components
	c.add(g)
	return c
}

func (c *components) add(g orb.Geometry) {
	switch g := g.(type) {
	case orb.Point:
		c.points = append(c.points, g)
	case orb.MultiPoint:
		c.points = append(c.points, g...)
	case orb.LineString:
		c.lines = append(c.lines, g)
	case orb.MultiLineString:
		c.lines = append(c.lines, g...)
	case orb.Ring:
		c.polygons = append(c.polygons, orb.Polygon{g})
	case orb.Polygon:
		c.polygons = append(c.polygons, g)
	case orb.MultiPolygon:
		c.polygons = append(c.polygons, g...)
	case orb.Collection:
		for _, child := range g {
			c.add(child)
		}
	case orb.Bound:
		c.polygons = append(c.polygons, g.ToPolygon())
	}
}

type segment [2]orb.Point

// segments returns all segments of lines and polygon rings. Isolated points become degenerate segments.
func (c *components) segments() []segment {
	var result []segment
	for _, p := range c.points {
		result = append(result, segment{p, p})
	}
	for _, line := range c.lines {
		result = appendSegments(result, line)
	}
	for _, polygon := range c.polygons {
		for _, ring := range polygon {
			result = appendSegments(result, ring)
		}
	}
	return result
}

func (c *components) linearSegments() []segment {
	var result []segment
	for _, line := range c.lines {
		result = appendSegments(result, line)
	}
	return result
}

func (c *components) boundarySegments() []segment {
	var result []segment
	for _, polygon := range c.polygons {
		for _, ring := range polygon {
			result = appendSegments(result, ring)
		}
	}
	return result
}

func appendSegments(result []segment, points []orb.Point) []segment {
	if len(points) == 1 {
		return append(result, segment{points[0], points[0]})
	}
	for i := 1; i < len(points); i++ {
		result = append(result, segment{points[i-1], points[i]})
	}
	return result
}

// representatives returns one vertex of every connected part, which suffices to detect full containment.
func (c *components) representatives() []orb.Point {
	result := append([]orb.Point{}, c.points...)
	for _, line := range c.lines {
		if len(line) > 0 {
			result = append(result, line[0])
		}
	}
	for _, polygon := range c.polygons {
		if len(polygon) > 0 && len(polygon[0]) > 0 {
			result = append(result, polygon[0][0])
		}
	}
	return result
}

func (c *components) vertices() []orb.Point {
	result := append([]orb.Point{}, c.points...)
	for _, line := range c.lines {
		result = append(result, line...)
	}
	for _, polygon := range c.polygons {
		for _, ring := range polygon {
			result = append(result, ring...)
		}
	}
	return result
}

func orientation(a orb.Point, b orb.Point, c orb.Point) int {
	abx, aby := b[0]-a[0], b[1]-a[1]
	acx, acy := c[0]-a[0], c[1]-a[1]
	v := abx*acy - aby*acx
	scale := (math.Abs(abx) + math.Abs(aby)) * (math.Abs(acx) + math.Abs(acy))
	if math.Abs(v) <= scale*orientationTolerance {
		return 0
	}
	if v > 0 {
		return 1
	}
	return -1
}

// withinSegmentBounds is only meaningful for points collinear with a and b.
func withinSegmentBounds(a orb.Point, b orb.Point, p orb.Point) bool {
	return p[0] >= math.Min(a[0], b[0]) && p[0] <= math.Max(a[0], b[0]) &&
		p[1] >= math.Min(a[1], b[1]) && p[1] <= math.Max(a[1], b[1])
}

func pointOnSegment(a orb.Point, b orb.Point, p orb.Point) bool {
	return orientation(a, b, p) == 0 && withinSegmentBounds(a, b, p)
}

// SegmentsIntersect is true when the two closed segments share at least one point. Touching and collinear overlaps
// count as intersection.
func SegmentsIntersect(a1 orb.Point, a2 orb.Point, b1 orb.Point, b2 orb.Point) bool {
	o1 := orientation(a1, a2, b1)
	o2 := orientation(a1, a2, b2)
	o3 := orientation(b1, b2, a1)
	o4 := orientation(b1, b2, a2)

	if o1 != o2 && o3 != o4 {
		return true
	}

	return o1 == 0 && withinSegmentBounds(a1, a2, b1) ||
		o2 == 0 && withinSegmentBounds(a1, a2, b2) ||
		o3 == 0 && withinSegmentBounds(b1, b2, a1) ||
		o4 == 0 && withinSegmentBounds(b1, b2, a2)
}

// SegmentsCrossProperly is true when the segments intersect in exactly one point that is interior to both of them.
func SegmentsCrossProperly(a1 orb.Point, a2 orb.Point, b1 orb.Point, b2 orb.Point) bool {
	o1 := orientation(a1, a2, b1)
	o2 := orientation(a1, a2, b2)
	o3 := orientation(b1, b2, a1)
	o4 := orientation(b1, b2, a2)
	return o1 != 0 && o2 != 0 && o3 != 0 && o4 != 0 && o1 != o2 && o3 != o4
}

func segmentBoundsOverlap(s segment, t segment) bool {
	return math.Max(s[0][0], s[1][0]) >= math.Min(t[0][0], t[1][0]) &&
		math.Max(t[0][0], t[1][0]) >= math.Min(s[0][0], s[1][0]) &&
		math.Max(s[0][1], s[1][1]) >= math.Min(t[0][1], t[1][1]) &&
		math.Max(t[0][1], t[1][1]) >= math.Min(s[0][1], s[1][1])
}

const (
	locationOutside  = -1
	locationBoundary = 0
	locationInside   = 1
)

// locate classifies the point relative to the polygon including its holes.
func locate(p orb.Point, polygon orb.Polygon) int {
	for _, ring := range polygon {
		for i := 1; i < len(ring); i++ {
			if pointOnSegment(ring[i-1], ring[i], p) {
				return locationBoundary
			}
		}
	}
	if planar.PolygonContains(polygon, p) {
		return locationInside
	}
	return locationOutside
}

func locateInAny(p orb.Point, polygons []orb.Polygon) int {
	location := locationOutside
	for _, polygon := range polygons {
		switch locate(p, polygon) {
		case locationInside:
			return locationInside
		case locationBoundary:
			location = locationBoundary
		}
	}
	return location
}

// Intersects is true when both geometries share at least one point.
func Intersects(a orb.Geometry, b orb.Geometry) bool {
	if !a.Bound().Intersects(b.Bound()) {
		return false
	}

	ca := decompose(a)
	cb := decompose(b)

	segmentsB := cb.segments()
	for _, s := range ca.segments() {
		for _, t := range segmentsB {
			if segmentBoundsOverlap(s, t) && SegmentsIntersect(s[0], s[1], t[0], t[1]) {
				return true
			}
		}
	}

	// No boundaries meet, so one part can only lie completely inside an area of the other one.
	return anyInside(ca.representatives(), cb.polygons) || anyInside(cb.representatives(), ca.polygons)
}

func anyInside(points []orb.Point, polygons []orb.Polygon) bool {
	if len(polygons) == 0 {
		return false
	}
	for _, p := range points {
		if locateInAny(p, polygons) != locationOutside {
			return true
		}
	}
	return false
}

// IsPolygonal is true when the geometry contains at least one area.
func IsPolygonal(g orb.Geometry) bool {
	c := decompose(g)
	return len(c.polygons) > 0
}

// Covers is true when no point of inner lies outside of outer. Only areas can cover something, so a non-polygonal
// outer geometry never covers anything. Every area covers itself.
func Covers(outer orb.Geometry, inner orb.Geometry) bool {
	co := decompose(outer)
	if len(co.polygons) == 0 {
		return false
	}

	outerBound := outer.Bound()
	innerBound := inner.Bound()
	if !outerBound.Contains(innerBound.Min) || !outerBound.Contains(innerBound.Max) {
		return false
	}

	ci := decompose(inner)
	for _, v := range ci.vertices() {
		if locateInAny(v, co.polygons) == locationOutside {
			return false
		}
	}

	boundary := co.boundarySegments()
	boundaryVertices := co.vertices()
	for _, s := range ci.segments() {
		for _, t := range boundary {
			if segmentBoundsOverlap(s, t) && SegmentsCrossProperly(s[0], s[1], t[0], t[1]) {
				return false
			}
		}

		// Between two consecutive boundary contacts a piece is either fully inside or fully outside.
		for _, piece := range splitAtPoints(s, boundaryVertices) {
			mid := orb.Point{(piece[0][0] + piece[1][0]) / 2, (piece[0][1] + piece[1][1]) / 2}
			if locateInAny(mid, co.polygons) == locationOutside {
				return false
			}
		}
	}

	// A hole of outer that lies inside an area of inner is not covered.
	for _, outerPolygon := range co.polygons {
		for _, hole := range outerPolygon[1:] {
			holeInterior, hasInterior := interiorPoint(hole)
			for _, innerPolygon := range ci.polygons {
				if hasInterior && locate(holeInterior, innerPolygon) == locationInside {
					return false
				}
				for _, v := range hole {
					if locate(v, innerPolygon) == locationInside {
						return false
					}
				}
			}
		}
	}

	return true
}

// splitAtPoints cuts the segment at all given points lying on it. The pieces are returned in order from s[0] to s[1].
func splitAtPoints(s segment, points []orb.Point) []segment {
	if s[0] == s[1] {
		return []segment{s}
	}

	dx := s[1][0] - s[0][0]
	dy := s[1][1] - s[0][1]
	position := func(p orb.Point) float64 {
		if math.Abs(dx) >= math.Abs(dy) {
			return (p[0] - s[0][0]) / dx
		}
		return (p[1] - s[0][1]) / dy
	}

	var cuts []orb.Point
	for _, p := range points {
		if p != s[0] && p != s[1] && pointOnSegment(s[0], s[1], p) {
			cuts = append(cuts, p)
		}
	}
	if len(cuts) == 0 {
		return []segment{s}
	}

	sort.Slice(cuts, func(i, j int) bool {
		return position(cuts[i]) < position(cuts[j])
	})

	pieces := make([]segment, 0, len(cuts)+1)
	start := s[0]
	for _, cut := range cuts {
		if cut != start {
			pieces = append(pieces, segment{start, cut})
			start = cut
		}
	}
	return append(pieces, segment{start, s[1]})
}

// interiorPoint finds a point strictly inside the ring. The centroid is tried first, then the midpoints of the
// diagonals cutting off single vertices, one of which lies inside for common ring shapes.
func interiorPoint(ring orb.Ring) (orb.Point, bool) {
	polygon := orb.Polygon{ring}
	centroid, _ := planar.CentroidArea(ring)
	if locate(centroid, polygon) == locationInside {
		return centroid, true
	}

	n := len(ring) - 1 // closing point repeats the first one
	for i := 0; i < n; i++ {
		previous := ring[(i+n-1)%n]
		next := ring[(i+1)%n]
		candidate := orb.Point{(previous[0] + next[0]) / 2, (previous[1] + next[1]) / 2}
		if locate(candidate, polygon) == locationInside {
			return candidate, true
		}
	}
	return orb.Point{}, false
}

// Crosses implements the topological crossing of linework with linework or areas: the geometries meet and the line
// has parts on both sides. Points never cross anything, and neither do two areas.
func Crosses(a orb.Geometry, b orb.Geometry) bool {
	if !a.Bound().Intersects(b.Bound()) {
		return false
	}

	ca := decompose(a)
	cb := decompose(b)

	linesA := ca.linearSegments()
	linesB := cb.linearSegments()
	if len(linesA) == 0 && len(linesB) == 0 {
		return false
	}

	if linesCross(ca, cb) {
		return true
	}

	return lineCrossesArea(linesA, cb) || lineCrossesArea(linesB, ca)
}

// linesCross is true when the linework of both geometries meets in a point that is not an end point of either line.
// Such a point can be a proper crossing or a vertex shared by both lines. Collinear overlaps are no crossing.
func linesCross(a components, b components) bool {
	endsA := a.lineEnds()
	endsB := b.lineEnds()
	segmentsB := b.linearSegments()

	for _, s := range a.linearSegments() {
		for _, t := range segmentsB {
			if !segmentBoundsOverlap(s, t) || !SegmentsIntersect(s[0], s[1], t[0], t[1]) {
				continue
			}
			if SegmentsCrossProperly(s[0], s[1], t[0], t[1]) {
				return true
			}

			for _, p := range touchingPoints(s, t) {
				if !containsPoint(endsA, p) && !containsPoint(endsB, p) {
					return true
				}
			}
		}
	}
	return false
}

// touchingPoints returns the segment end points lying on the other segment. Collinear segments yield nothing.
func touchingPoints(s segment, t segment) []orb.Point {
	if orientation(s[0], s[1], t[0]) == 0 && orientation(s[0], s[1], t[1]) == 0 {
		return nil
	}

	var result []orb.Point
	for _, p := range []orb.Point{s[0], s[1]} {
		if pointOnSegment(t[0], t[1], p) {
			result = append(result, p)
		}
	}
	for _, p := range []orb.Point{t[0], t[1]} {
		if pointOnSegment(s[0], s[1], p) {
			result = append(result, p)
		}
	}
	return result
}

// lineEnds returns the first and last point of every open line. Closed lines have no ends.
func (c *components) lineEnds() []orb.Point {
	var result []orb.Point
	for _, line := range c.lines {
		if len(line) == 0 || line[0] == line[len(line)-1] {
			continue
		}
		result = append(result, line[0], line[len(line)-1])
	}
	return result
}

func containsPoint(points []orb.Point, p orb.Point) bool {
	for _, q := range points {
		if q == p {
			return true
		}
	}
	return false
}

func lineCrossesArea(lineSegments []segment, area components) bool {
	if len(lineSegments) == 0 || len(area.polygons) == 0 {
		return false
	}

	boundary := area.boundarySegments()
	boundaryVertices := area.vertices()
	hasInside := false
	hasOutside := false
	for _, s := range lineSegments {
		for _, t := range boundary {
			if segmentBoundsOverlap(s, t) && SegmentsCrossProperly(s[0], s[1], t[0], t[1]) {
				return true
			}
		}

		for _, piece := range splitAtPoints(s, boundaryVertices) {
			mid := orb.Point{(piece[0][0] + piece[1][0]) / 2, (piece[0][1] + piece[1][1]) / 2}
			for _, p := range []orb.Point{piece[0], mid, piece[1]} {
				switch locateInAny(p, area.polygons) {
				case locationInside:
					hasInside = true
				case locationOutside:
					hasOutside = true
				}
			}
		}
		if hasInside && hasOutside {
			return true
		}
	}
	return false
}

// Distance returns the minimum distance between the two geometries in coordinate units.
func Distance(a orb.Geometry, b orb.Geometry) float64 {
	if Intersects(a, b) {
		return 0
	}

	ca := decompose(a)
	cb := decompose(b)
	segmentsB := cb.segments()

	minDistance := math.Inf(1)
	for _, s := range ca.segments() {
		for _, t := range segmentsB {
			d := math.Min(
				math.Min(planar.DistanceFromSegment(t[0], t[1], s[0]), planar.DistanceFromSegment(t[0], t[1], s[1])),
				math.Min(planar.DistanceFromSegment(s[0], s[1], t[0]), planar.DistanceFromSegment(s[0], s[1], t[1])),
			)
			if d < minDistance {
				minDistance = d
			}
		}
	}
	return minDistance
}
