package index

import (
	"fsq/feature"
	"github.com/hauke96/sigolo/v2"
	"github.com/pkg/errors"
	"slices"
)

// VerifyParents checks that relation membership is reciprocal: every member of a relation lists the relation as parent
// and every parent of a feature lists the feature as member. Members missing in the store are ignored.
func VerifyParents(store FeatureStore) error {
	for _, tile := range store.Tiles() {
		data, err := store.FetchTile(tile)
		if err != nil {
			return err
		}

		for _, f := range data.Features {
			for _, member := range f.Members {
				memberFeature, err := store.Feature(member.Ref)
				if err != nil {
					return err
				}
				if memberFeature == nil {
					sigolo.Tracef("Member %s of %s not in store", member.Ref.String(), f.String())
					continue
				}
				if !slices.Contains(memberFeature.Parents, f.TypedID()) {
					return errors.Errorf("Feature %s is member of %s but doesn't list it as parent", member.Ref.String(), f.String())
				}
			}

			for _, parent := range f.Parents {
				parentFeature, err := store.Feature(parent)
				if err != nil {
					return err
				}
				if parentFeature == nil {
					return errors.Errorf("Parent %s of feature %s does not exist", parent.String(), f.String())
				}
				if !hasMember(parentFeature, f.TypedID()) {
					return errors.Errorf("Feature %s lists %s as parent but isn't a member of it", f.String(), parent.String())
				}
			}
		}
	}
	return nil
}

func hasMember(relation *feature.Feature, id feature.TypedID) bool {
	for _, member := range relation.Members {
		if member.Ref == id {
			return true
		}
	}
	return false
}
