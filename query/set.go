package query

import (
	"fsq/feature"
	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// FeatureSet is a materialized set of typed feature IDs.
type FeatureSet struct {
	bitmap *roaring64.Bitmap
}

func NewFeatureSet(ids ...feature.TypedID) *FeatureSet {
	set := &FeatureSet{bitmap: roaring64.New()}
	for _, id := range ids {
		set.Add(id)
	}
	return set
}

func (s *FeatureSet) Add(id feature.TypedID) {
	s.bitmap.Add(uint64(id))
}

func (s *FeatureSet) Contains(id feature.TypedID) bool {
	return s.bitmap.Contains(uint64(id))
}

func (s *FeatureSet) Len() int {
	return int(s.bitmap.GetCardinality())
}

// And returns a new set with the IDs contained in both sets.
func (s *FeatureSet) And(other *FeatureSet) *FeatureSet {
	return &FeatureSet{bitmap: roaring64.And(s.bitmap, other.bitmap)}
}

// Or returns a new set with the IDs contained in at least one of the sets.
func (s *FeatureSet) Or(other *FeatureSet) *FeatureSet {
	return &FeatureSet{bitmap: roaring64.Or(s.bitmap, other.bitmap)}
}

// AndNot returns a new set with the IDs of this set that are not in the other set.
func (s *FeatureSet) AndNot(other *FeatureSet) *FeatureSet {
	return &FeatureSet{bitmap: roaring64.AndNot(s.bitmap, other.bitmap)}
}

// IDs returns all IDs in ascending order.
func (s *FeatureSet) IDs() []feature.TypedID {
	values := s.bitmap.ToArray()
	result := make([]feature.TypedID, len(values))
	for i, value := range values {
		result[i] = feature.TypedID(value)
	}
	return result
}
