package filter

import (
	"errors"
	"fsq/feature"
	"fsq/geom"
	"fsq/index"
	"fsq/util"
	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"testing"
)

func wayOf(id uint64, area bool, coordinates ...geom.Coordinate) *feature.Feature {
	nodes := make([]feature.WayNode, len(coordinates))
	for i, c := range coordinates {
		nodes[i] = feature.WayNode{Coordinate: c}
	}
	return feature.NewWay(id, nodes, feature.Tags{}, area)
}

func square(id uint64, min int32, max int32) *feature.Feature {
	return wayOf(id, true,
		geom.Coordinate{X: min, Y: min},
		geom.Coordinate{X: max, Y: min},
		geom.Coordinate{X: max, Y: max},
		geom.Coordinate{X: min, Y: max},
		geom.Coordinate{X: min, Y: min},
	)
}

type testFeatures struct {
	outerArea  *feature.Feature // 0..100
	innerArea  *feature.Feature // 10..20
	crossing   *feature.Feature // horizontal line through the outer area
	insideLine *feature.Feature // 30,30 -> 40,40
	leaving    *feature.Feature // 40,40 -> 300,300
	insideNode *feature.Feature // 60,70
	farNode    *feature.Feature // 500,500
}

func createTestFeatures() testFeatures {
	return testFeatures{
		outerArea:  square(1, 0, 100),
		innerArea:  square(2, 10, 20),
		crossing:   wayOf(3, false, geom.Coordinate{X: -50, Y: 50}, geom.Coordinate{X: 150, Y: 50}),
		insideLine: wayOf(4, false, geom.Coordinate{X: 30, Y: 30}, geom.Coordinate{X: 40, Y: 40}),
		leaving:    wayOf(5, false, geom.Coordinate{X: 40, Y: 40}, geom.Coordinate{X: 300, Y: 300}),
		insideNode: feature.NewNode(6, geom.Coordinate{X: 60, Y: 70}, feature.Tags{}),
		farNode:    feature.NewNode(7, geom.Coordinate{X: 500, Y: 500}, feature.Tags{}),
	}
}

func TestWithin(t *testing.T) {
	sigolo.SetDefaultLogLevel(sigolo.LOG_TRACE)

	// Arrange
	f := createTestFeatures()

	// Act
	filter, err := Within(f.outerArea)

	// Assert
	util.AssertNil(t, err)
	util.AssertTrue(t, filter.Accept(f.innerArea))
	util.AssertTrue(t, filter.Accept(f.insideLine))
	util.AssertTrue(t, filter.Accept(f.insideNode))
	util.AssertFalse(t, filter.Accept(f.crossing))
	util.AssertFalse(t, filter.Accept(f.leaving))
	util.AssertFalse(t, filter.Accept(f.farNode))
}

func TestWithin_itself(t *testing.T) {
	// Arrange
	f := createTestFeatures()

	for _, area := range []*feature.Feature{f.outerArea, f.innerArea} {
		// Act
		filter, err := Within(area)

		// Assert
		util.AssertNil(t, err)
		util.AssertTrue(t, filter.Accept(area))
	}
}

func TestWithin_polygonWithHole(t *testing.T) {
	// Arrange
	outer := geom.RingOf([]geom.Coordinate{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100}, {X: 0, Y: 0}})
	hole := geom.RingOf([]geom.Coordinate{{X: 40, Y: 40}, {X: 60, Y: 40}, {X: 60, Y: 60}, {X: 40, Y: 60}, {X: 40, Y: 40}})
	withHole := feature.NewRelation(10, nil, feature.Tags{}, true, geom.BuildMultiPolygon([]orb.Ring{outer}, []orb.Ring{hole}))
	holeArea := square(11, 40, 60)

	withinWithHole, err := Within(withHole)
	util.AssertNil(t, err)
	withinHole, err := Within(holeArea)
	util.AssertNil(t, err)

	// Act & Assert
	util.AssertTrue(t, withinWithHole.Accept(withHole))
	util.AssertFalse(t, withinWithHole.Accept(holeArea))
	util.AssertFalse(t, withinHole.Accept(withHole))
}

func TestWithin_boxCheckBeforeExactTest(t *testing.T) {
	// Arrange
	f := createTestFeatures()
	filter, err := Within(f.outerArea)
	util.AssertNil(t, err)
	predicate := filter.(*predicateFilter)

	// Act
	accepted := filter.Accept(f.farNode)

	// Assert
	util.AssertFalse(t, accepted)
	util.AssertEqual(t, int64(0), predicate.exactTests.Load())

	filter.Accept(f.innerArea)
	util.AssertEqual(t, int64(1), predicate.exactTests.Load())
}

func TestWithin_nonAreaReference(t *testing.T) {
	// Arrange
	f := createTestFeatures()

	// Act
	filter, err := Within(f.crossing)

	// Assert
	util.AssertNil(t, filter)
	var typeMismatch *TypeMismatchError
	util.AssertTrue(t, errors.As(err, &typeMismatch))
	util.AssertEqual(t, "within", typeMismatch.Predicate)
	util.AssertEqual(t, "Predicate 'within' cannot be applied to ways: reference feature w3 is not an area", err.Error())
}

func TestIntersects(t *testing.T) {
	// Arrange
	f := createTestFeatures()

	// Act
	filter, err := Intersects(f.outerArea)

	// Assert
	util.AssertNil(t, err)
	util.AssertTrue(t, filter.Accept(f.outerArea))
	util.AssertTrue(t, filter.Accept(f.innerArea))
	util.AssertTrue(t, filter.Accept(f.crossing))
	util.AssertTrue(t, filter.Accept(f.leaving))
	util.AssertTrue(t, filter.Accept(f.insideNode))
	util.AssertFalse(t, filter.Accept(f.farNode))
}

func TestWithinIsSubsetOfIntersects(t *testing.T) {
	// Arrange
	f := createTestFeatures()
	candidates := []*feature.Feature{f.outerArea, f.innerArea, f.crossing, f.insideLine, f.leaving, f.insideNode, f.farNode}

	for _, area := range []*feature.Feature{f.outerArea, f.innerArea} {
		within, err := Within(area)
		util.AssertNil(t, err)
		intersects, err := Intersects(area)
		util.AssertNil(t, err)

		// Act & Assert
		for _, candidate := range candidates {
			if within.Accept(candidate) {
				util.AssertTrue(t, intersects.Accept(candidate))
			}
		}
	}
}

func TestContains(t *testing.T) {
	// Arrange
	f := createTestFeatures()

	// Act
	filter, err := Contains(f.insideLine)

	// Assert
	util.AssertNil(t, err)
	util.AssertEqual(t, feature.Areas, filter.AcceptedTypes())
	util.AssertTrue(t, filter.Accept(f.outerArea))
	util.AssertFalse(t, filter.Accept(f.innerArea))
	util.AssertFalse(t, filter.Accept(f.crossing))
}

func TestContaining(t *testing.T) {
	// Arrange
	f := createTestFeatures()

	// Act
	filter := Containing(geom.Coordinate{X: 15, Y: 15})

	// Assert
	util.AssertTrue(t, filter.Accept(f.outerArea))
	util.AssertTrue(t, filter.Accept(f.innerArea))
	util.AssertFalse(t, filter.Accept(f.insideLine))
	util.AssertFalse(t, Containing(geom.Coordinate{X: 50, Y: 500}).Accept(f.outerArea))
	util.AssertTrue(t, Containing(geom.Coordinate{X: 100, Y: 50}).Accept(f.outerArea))
}

func TestCrosses(t *testing.T) {
	// Arrange
	f := createTestFeatures()

	// Act
	filter, err := Crosses(f.outerArea)

	// Assert
	util.AssertNil(t, err)
	util.AssertTrue(t, filter.Accept(f.crossing))
	util.AssertTrue(t, filter.Accept(f.leaving))
	util.AssertFalse(t, filter.Accept(f.insideLine))
	util.AssertFalse(t, filter.Accept(f.innerArea))
	util.AssertFalse(t, filter.Accept(f.insideNode))
}

func TestCrosses_lines(t *testing.T) {
	// Arrange
	f := createTestFeatures()
	vertical := wayOf(20, false, geom.Coordinate{X: 35, Y: -10}, geom.Coordinate{X: 35, Y: 200})

	// Act
	filter, err := Crosses(vertical)

	// Assert
	util.AssertNil(t, err)
	util.AssertEqual(t, feature.Ways|feature.Relations, filter.AcceptedTypes())
	util.AssertTrue(t, filter.Accept(f.crossing))
	util.AssertTrue(t, filter.Accept(f.insideLine))
	util.AssertTrue(t, filter.Accept(f.outerArea))
}

func TestCrosses_nodeReference(t *testing.T) {
	// Arrange
	f := createTestFeatures()

	// Act
	_, err := Crosses(f.insideNode)

	// Assert
	var typeMismatch *TypeMismatchError
	util.AssertTrue(t, errors.As(err, &typeMismatch))
}

func TestAround(t *testing.T) {
	// Arrange
	f := createTestFeatures()

	// Act
	near, err := Around(f.insideNode, 10)
	util.AssertNil(t, err)
	tooNear, err := Around(f.insideNode, 5)
	util.AssertNil(t, err)

	// Assert
	// The nodes are about 615 units apart, which is about 5.7m at the equator
	util.AssertTrue(t, near.Accept(f.farNode))
	util.AssertFalse(t, tooNear.Accept(f.farNode))
	util.AssertTrue(t, tooNear.Accept(f.insideNode))
	util.AssertTrue(t, tooNear.Bounds().Contains(geom.Coordinate{X: 400, Y: 400}))
}

func TestAround_negativeDistance(t *testing.T) {
	// Arrange
	f := createTestFeatures()

	// Act
	filter, err := Around(f.insideNode, -1)

	// Assert
	util.AssertNil(t, filter)
	util.AssertNotNil(t, err)
}

func TestInBox(t *testing.T) {
	// Arrange
	f := createTestFeatures()

	// Act
	filter := InBox(geom.Box{MinX: 0, MinY: 0, MaxX: 25, MaxY: 25})

	// Assert
	util.AssertTrue(t, filter.Accept(f.innerArea))
	util.AssertTrue(t, filter.Accept(f.outerArea))
	util.AssertFalse(t, filter.Accept(f.crossing))
	util.AssertFalse(t, filter.Accept(f.insideLine))
	util.AssertFalse(t, filter.Accept(f.farNode))
}

func TestCheck(t *testing.T) {
	// Arrange
	f := createTestFeatures()
	filter, err := Contains(f.insideLine)
	util.AssertNil(t, err)

	// Act
	nodesErr := Check(filter, feature.Nodes)
	allErr := Check(filter, feature.AllTypes)

	// Assert
	util.AssertNil(t, allErr)
	var typeMismatch *TypeMismatchError
	util.AssertTrue(t, errors.As(nodesErr, &typeMismatch))
	util.AssertEqual(t, feature.Nodes, typeMismatch.Types)
	util.AssertEqual(t, "Predicate 'contains' cannot be applied to nodes: only area-ways|area-relations can match", nodesErr.Error())
}

func TestConnectedTo(t *testing.T) {
	// Arrange
	f := createTestFeatures()
	store, err := index.NewMemoryStore(index.NewStringTable(nil), []int{0, 8})
	util.AssertNil(t, err)
	err = store.Add(f.outerArea, f.crossing, f.insideLine, f.leaving)
	util.AssertNil(t, err)
	startNode := feature.NewNode(8, geom.Coordinate{X: 30, Y: 30}, feature.Tags{})

	// Act
	filter, err := ConnectedTo(store, f.insideLine)

	// Assert
	util.AssertNil(t, err)
	util.AssertTrue(t, filter.Accept(f.leaving))
	util.AssertTrue(t, filter.Accept(startNode))
	util.AssertFalse(t, filter.Accept(f.insideLine))
	util.AssertFalse(t, filter.Accept(f.crossing))
	util.AssertFalse(t, filter.Accept(f.farNode))
}

func TestConnectedTo_cyclicRelation(t *testing.T) {
	// Arrange
	f := createTestFeatures()
	store, err := index.NewMemoryStore(index.NewStringTable(nil), []int{0, 8})
	util.AssertNil(t, err)

	relationId := feature.NewTypedID(feature.TypeRelation, 30)
	otherId := feature.NewTypedID(feature.TypeRelation, 31)
	relation := feature.NewRelation(30, []feature.Member{
		{Ref: f.insideLine.TypedID()},
		{Ref: otherId},
	}, feature.Tags{}, false, orb.Collection{f.insideLine.Geometry})
	other := feature.NewRelation(31, []feature.Member{
		{Ref: relationId},
	}, feature.Tags{}, false, orb.Collection{f.insideLine.Geometry})
	err = store.Add(f.insideLine, f.leaving, relation, other)
	util.AssertNil(t, err)

	// Act
	filter, err := ConnectedTo(store, relation)

	// Assert
	util.AssertNil(t, err)
	util.AssertTrue(t, filter.Accept(f.leaving))
	util.AssertTrue(t, filter.Accept(f.insideLine))
	util.AssertTrue(t, filter.Accept(other))
	util.AssertFalse(t, filter.Accept(relation))
}

func TestConnectedTo_relationCandidates(t *testing.T) {
	// Arrange
	f := createTestFeatures()
	store, err := index.NewMemoryStore(index.NewStringTable(nil), []int{0, 8})
	util.AssertNil(t, err)

	route := feature.NewRelation(40, []feature.Member{
		{Ref: f.leaving.TypedID()},
	}, feature.Tags{}, false, orb.Collection{f.leaving.Geometry})
	unconnected := feature.NewRelation(41, []feature.Member{
		{Ref: f.crossing.TypedID()},
	}, feature.Tags{}, false, orb.Collection{f.crossing.Geometry})
	nested := feature.NewRelation(42, []feature.Member{
		{Ref: unconnected.TypedID()},
		{Ref: route.TypedID()},
	}, feature.Tags{}, false, orb.Collection{f.crossing.Geometry, f.leaving.Geometry})
	err = store.Add(f.insideLine, f.leaving, f.crossing, route, unconnected, nested)
	util.AssertNil(t, err)

	// Act
	filter, err := ConnectedTo(store, f.insideLine)

	// Assert
	util.AssertNil(t, err)
	util.AssertEqual(t, feature.AllTypes, filter.AcceptedTypes())
	util.AssertTrue(t, filter.Accept(f.leaving))
	util.AssertTrue(t, filter.Accept(route))
	util.AssertTrue(t, filter.Accept(nested))
	util.AssertFalse(t, filter.Accept(unconnected))
	util.AssertFalse(t, filter.Accept(f.insideLine))
}

func TestConnectedTo_withoutVertices(t *testing.T) {
	// Arrange
	store, err := index.NewMemoryStore(index.NewStringTable(nil), []int{0})
	util.AssertNil(t, err)
	relation := feature.NewRelation(30, []feature.Member{
		{Ref: feature.NewTypedID(feature.TypeWay, 999)},
	}, feature.Tags{}, false, nil)

	// Act
	filter, err := ConnectedTo(store, relation)

	// Assert
	util.AssertNil(t, filter)
	var typeMismatch *TypeMismatchError
	util.AssertTrue(t, errors.As(err, &typeMismatch))
}

func TestAccept_featureWithoutGeometry(t *testing.T) {
	// Arrange
	relation := feature.NewRelation(30, nil, feature.Tags{}, false, nil)

	// Act & Assert
	util.AssertFalse(t, InBox(geom.WorldBox()).Accept(relation))
}
