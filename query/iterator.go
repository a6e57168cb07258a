package query

import (
	"fsq/feature"
	"fsq/geom"
	"fsq/index"
	"github.com/hauke96/sigolo/v2"
)

// source produces the features of a view one by one. It returns nil when there are no more features.
type source interface {
	next() (*feature.Feature, error)
}

// tileSource walks the candidate tiles of a plain view and yields all features accepted by its filter chain.
type tileSource struct {
	view         *View
	tiles        []geom.Tile
	tileIndex    int
	current      *index.TileData
	featureIndex int
}

func (s *tileSource) next() (*feature.Feature, error) {
	for {
		if s.current == nil {
			if s.tileIndex >= len(s.tiles) {
				return nil, nil
			}

			tile := s.tiles[s.tileIndex]
			s.tileIndex++

			data, err := s.view.context.store.FetchTile(tile)
			if err != nil {
				return nil, err
			}
			sigolo.Tracef("Fetched tile %s with %d features", tile.String(), len(data.Features))
			s.current = data
			s.featureIndex = 0
		}

		for s.featureIndex < len(s.current.Features) {
			f := s.current.Features[s.featureIndex]
			s.featureIndex++
			if s.view.accepts(f) {
				return f, nil
			}
		}
		s.current = nil
	}
}

// filteredSource yields the features of the inner source that are (or, when negated, are not) in the other view.
type filteredSource struct {
	inner  source
	other  *View
	negate bool
}

func (s *filteredSource) next() (*feature.Feature, error) {
	for {
		f, err := s.inner.next()
		if f == nil || err != nil {
			return nil, err
		}
		if s.other.Has(f) != s.negate {
			return f, nil
		}
	}
}

// concatSource yields all features of the first source, then the ones of the second source.
type concatSource struct {
	first  source
	second source
}

func (s *concatSource) next() (*feature.Feature, error) {
	if s.first != nil {
		f, err := s.first.next()
		if f != nil || err != nil {
			return f, err
		}
		s.first = nil
	}
	return s.second.next()
}

func (v *View) newSource() source {
	switch v.combination {
	case combinationAnd:
		return &filteredSource{inner: v.left.newSource(), other: v.right}
	case combinationOr:
		// Features of the right side that are also in the left side have already been returned.
		return &concatSource{
			first:  v.left.newSource(),
			second: &filteredSource{inner: v.right.newSource(), other: v.left, negate: true},
		}
	case combinationMinus:
		return &filteredSource{inner: v.left.newSource(), other: v.right, negate: true}
	}

	tiles := v.candidateTiles()
	sigolo.Debugf("Iterate %d candidate tiles of %s", len(tiles), v.String())
	return &tileSource{
		view:  v,
		tiles: tiles,
	}
}

// Iterator is a cursor over the features of a view. It must not be used by multiple goroutines at the same time.
//
//	it := view.Iterator()
//	for it.Next() {
//		f := it.Feature()
//	}
//	if it.Err() != nil { ... }
type Iterator struct {
	source  source
	feature *feature.Feature
	err     error
}

func (v *View) Iterator() *Iterator {
	return &Iterator{
		source: v.newSource(),
	}
}

// Next moves to the next feature and returns false when there is none or an error occurred.
func (it *Iterator) Next() bool {
	if it.err != nil || it.source == nil {
		return false
	}

	it.feature, it.err = it.source.next()
	if it.feature == nil {
		it.source = nil
		return false
	}
	return true
}

func (it *Iterator) Feature() *feature.Feature {
	return it.feature
}

func (it *Iterator) Err() error {
	return it.err
}
