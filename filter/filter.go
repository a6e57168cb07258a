package filter

import (
	"fmt"
	"fsq/feature"
	"fsq/geom"
	"github.com/hauke96/sigolo/v2"
	"github.com/pkg/errors"
	"sync/atomic"
)

// Filter is a spatial predicate on candidate features. Accept always checks the bounding boxes first and only calls
// the exact geometry test for candidates whose box passes.
type Filter interface {
	Name() string

	// Bounds covers all features the filter can accept. Tiles outside of it don't need to be fetched.
	Bounds() geom.Box

	// AcceptedTypes are the types a feature must have to be accepted at all.
	AcceptedTypes() feature.TypeSet

	Accept(f *feature.Feature) bool
}

type predicateFilter struct {
	name    string
	bounds  geom.Box
	types   feature.TypeSet
	boxTest func(candidate geom.Box) bool
	exact   func(f *feature.Feature) bool

	exactTests *atomic.Int64 // Number of exact geometry tests, only used for statistics
}

func newPredicateFilter(name string, bounds geom.Box, types feature.TypeSet, exact func(f *feature.Feature) bool) *predicateFilter {
	return &predicateFilter{
		name:       name,
		bounds:     bounds,
		types:      types,
		boxTest:    bounds.Intersects,
		exact:      exact,
		exactTests: &atomic.Int64{},
	}
}

func (p *predicateFilter) Name() string {
	return p.name
}

func (p *predicateFilter) Bounds() geom.Box {
	return p.bounds
}

func (p *predicateFilter) AcceptedTypes() feature.TypeSet {
	return p.types
}

func (p *predicateFilter) Accept(f *feature.Feature) bool {
	if !p.types.Accepts(f) || f.Geometry == nil {
		return false
	}
	if !p.boxTest(f.Bounds) {
		return false
	}

	p.exactTests.Add(1)
	accepted := p.exact(f)
	if sigolo.ShouldLogTrace() {
		sigolo.Tracef("Filter %s on %s: %v", p.name, f.TypedID().String(), accepted)
	}
	return accepted
}

func (p *predicateFilter) String() string {
	return fmt.Sprintf("%s(%s)", p.name, p.bounds.String())
}

// Check returns a TypeMismatchError when the filter accepts none of the given types.
func Check(filter Filter, types feature.TypeSet) error {
	if !types.Intersects(filter.AcceptedTypes()) {
		return &TypeMismatchError{
			Predicate: filter.Name(),
			Types:     types,
			Reason:    fmt.Sprintf("only %s can match", filter.AcceptedTypes().String()),
		}
	}
	return nil
}

func checkReference(predicate string, ref *feature.Feature) error {
	if ref == nil {
		return errors.Errorf("Reference feature of predicate '%s' must not be nil", predicate)
	}
	if ref.Geometry == nil {
		return &TypeMismatchError{
			Predicate: predicate,
			Types:     feature.TypeSetOf(ref),
			Reason:    fmt.Sprintf("reference feature %s has no geometry", ref.TypedID().String()),
		}
	}
	return nil
}

// Intersects accepts all features sharing at least one point with the reference feature.
func Intersects(ref *feature.Feature) (Filter, error) {
	if err := checkReference("intersects", ref); err != nil {
		return nil, err
	}

	return newPredicateFilter("intersects", ref.Bounds, feature.AllTypes, func(f *feature.Feature) bool {
		return geom.Intersects(f.Geometry, ref.Geometry)
	}), nil
}

// Within accepts all features completely covered by the reference area. An area is within itself.
func Within(ref *feature.Feature) (Filter, error) {
	if err := checkReference("within", ref); err != nil {
		return nil, err
	}
	if !geom.IsPolygonal(ref.Geometry) {
		return nil, &TypeMismatchError{
			Predicate: "within",
			Types:     feature.TypeSetOf(ref),
			Reason:    fmt.Sprintf("reference feature %s is not an area", ref.TypedID().String()),
		}
	}

	filter := newPredicateFilter("within", ref.Bounds, feature.AllTypes, func(f *feature.Feature) bool {
		return geom.Covers(ref.Geometry, f.Geometry)
	})
	filter.boxTest = ref.Bounds.ContainsBox
	return filter, nil
}

// Contains accepts all areas covering the reference feature completely.
func Contains(ref *feature.Feature) (Filter, error) {
	if err := checkReference("contains", ref); err != nil {
		return nil, err
	}

	filter := newPredicateFilter("contains", ref.Bounds, feature.Areas, func(f *feature.Feature) bool {
		return geom.Covers(f.Geometry, ref.Geometry)
	})
	filter.boxTest = func(candidate geom.Box) bool {
		return candidate.ContainsBox(ref.Bounds)
	}
	return filter, nil
}

// Containing accepts all areas the coordinate lies in, including their boundary.
func Containing(coordinate geom.Coordinate) Filter {
	point := coordinate.Point()
	filter := newPredicateFilter("containing", geom.BoxOf(coordinate), feature.Areas, func(f *feature.Feature) bool {
		return geom.Covers(f.Geometry, point)
	})
	filter.boxTest = func(candidate geom.Box) bool {
		return candidate.Contains(coordinate)
	}
	return filter
}

// Crosses accepts linear features crossing the reference feature. Points never cross anything and two areas never
// cross each other.
func Crosses(ref *feature.Feature) (Filter, error) {
	if err := checkReference("crosses", ref); err != nil {
		return nil, err
	}
	if ref.IsNode() {
		return nil, &TypeMismatchError{
			Predicate: "crosses",
			Types:     feature.Nodes,
			Reason:    fmt.Sprintf("reference feature %s is a point", ref.TypedID().String()),
		}
	}

	types := feature.Ways | feature.Relations
	if ref.IsArea() {
		types = feature.NonAreaWays | feature.NonAreaRelations
	}

	return newPredicateFilter("crosses", ref.Bounds, types, func(f *feature.Feature) bool {
		return geom.Crosses(f.Geometry, ref.Geometry)
	}), nil
}

// Around accepts all features whose distance to the reference feature is at most the given number of meters. The
// meters are converted into coordinate units at the latitude of the reference feature.
func Around(ref *feature.Feature, meters float64) (Filter, error) {
	if err := checkReference("around", ref); err != nil {
		return nil, err
	}
	if meters < 0 {
		return nil, errors.Errorf("Distance of predicate 'around' must not be negative but was %f", meters)
	}

	_, lat := ref.Bounds.Center().LonLat()
	units := geom.MetersToUnits(meters, lat)
	sigolo.Debugf("Distance of %fm is %f units at latitude %f", meters, units, lat)

	return newPredicateFilter("around", ref.Bounds.Buffer(units), feature.AllTypes, func(f *feature.Feature) bool {
		return geom.Distance(f.Geometry, ref.Geometry) <= units
	}), nil
}

// InBox accepts all features whose geometry intersects the box.
func InBox(box geom.Box) Filter {
	boxGeometry := box.Bound()
	return newPredicateFilter("in-box", box, feature.AllTypes, func(f *feature.Feature) bool {
		return box.ContainsBox(f.Bounds) || geom.Intersects(f.Geometry, boxGeometry)
	})
}
