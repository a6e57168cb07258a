package filter

import (
	"fmt"
	"fsq/feature"
	"fsq/geom"
	"fsq/index"
	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/hauke96/sigolo/v2"
	"github.com/pkg/errors"
)

// ConnectedTo accepts features sharing at least one vertex with the reference features. Relations among the
// references are resolved into their members. A relation candidate is accepted when one of its members, directly or
// through nested relations, shares a vertex. Only the reference features themselves are never accepted.
func ConnectedTo(store index.FeatureStore, refs ...*feature.Feature) (Filter, error) {
	vertices := map[geom.Coordinate]bool{}
	references := roaring64.New()
	bounds := geom.EmptyBox()

	for i, ref := range refs {
		if ref == nil {
			return nil, errors.Errorf("Reference feature %d of predicate 'connected-to' must not be nil", i)
		}
		references.Add(uint64(ref.TypedID()))

		err := walkMembers(store, ref, func(f *feature.Feature) bool {
			for _, c := range featureVertices(f) {
				vertices[c] = true
				bounds = bounds.ExpandToInclude(c)
			}
			return false
		})
		if err != nil {
			return nil, err
		}
	}

	if len(vertices) == 0 {
		return nil, &TypeMismatchError{
			Predicate: "connected-to",
			Types:     feature.Ways,
			Reason:    fmt.Sprintf("none of the %d reference features has any vertex", len(refs)),
		}
	}
	sigolo.Debugf("Connectivity check uses %d vertices of %d reference features", len(vertices), references.GetCardinality())

	sharesVertex := func(f *feature.Feature) bool {
		for _, c := range featureVertices(f) {
			if vertices[c] {
				return true
			}
		}
		return false
	}

	return newPredicateFilter("connected-to", bounds, feature.AllTypes, func(f *feature.Feature) bool {
		if references.Contains(uint64(f.TypedID())) {
			return false
		}
		if !f.IsRelation() {
			return sharesVertex(f)
		}

		connected := false
		err := walkMembers(store, f, func(member *feature.Feature) bool {
			connected = sharesVertex(member)
			return connected
		})
		if err != nil {
			sigolo.Warnf("Unable to check connectivity of relation %s: %+v", f.TypedID().String(), err)
			return false
		}
		return connected
	}), nil
}

// walkMembers calls visit for the feature itself and, for relations, for all direct and nested members in member
// order. Relations may contain themselves transitively, so every relation is only expanded once. The walk stops as
// soon as visit returns true.
func walkMembers(store index.FeatureStore, start *feature.Feature, visit func(f *feature.Feature) bool) error {
	visited := roaring64.New()
	stack := []*feature.Feature{start}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visit(f) {
			return nil
		}
		if !f.IsRelation() {
			continue
		}

		if visited.Contains(uint64(f.TypedID())) {
			sigolo.Tracef("Relation %s already visited", f.TypedID().String())
			continue
		}
		visited.Add(uint64(f.TypedID()))

		for i := len(f.Members) - 1; i >= 0; i-- {
			member, err := store.Feature(f.Members[i].Ref)
			if err != nil {
				return errors.Wrapf(err, "Unable to resolve member %s of relation %s", f.Members[i].Ref.String(), f.TypedID().String())
			}
			if member == nil {
				sigolo.Debugf("Member %s of relation %s is not in the store", f.Members[i].Ref.String(), f.TypedID().String())
				continue
			}
			stack = append(stack, member)
		}
	}
	return nil
}

func featureVertices(f *feature.Feature) []geom.Coordinate {
	switch f.Type {
	case feature.TypeNode:
		return []geom.Coordinate{f.Coordinate}
	case feature.TypeWay:
		result := make([]geom.Coordinate, len(f.Nodes))
		for i, node := range f.Nodes {
			result[i] = node.Coordinate
		}
		return result
	}
	return nil
}
