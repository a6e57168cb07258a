package index

import (
	"fsq/feature"
	"fsq/geom"
	"github.com/hauke96/sigolo/v2"
	"github.com/pkg/errors"
	"sync"
)

// MemoryStore holds all tiles in memory. Features are added while building the store, afterward the store is
// read-only and can be used by concurrent queries.
type MemoryStore struct {
	strings    *StringTable
	zoomLevels []int
	tiles      map[geom.Tile]*TileData
	features   map[feature.TypedID]geom.Tile

	sortedTiles []geom.Tile
	dirty       bool
	mutex       *sync.Mutex
}

func NewMemoryStore(strings *StringTable, zoomLevels []int) (*MemoryStore, error) {
	err := geom.ValidateZoomLevels(zoomLevels)
	if err != nil {
		return nil, err
	}

	return &MemoryStore{
		strings:    strings,
		zoomLevels: zoomLevels,
		tiles:      map[geom.Tile]*TileData{},
		features:   map[feature.TypedID]geom.Tile{},
		mutex:      &sync.Mutex{},
	}, nil
}

// Add puts each feature into its owning tile. Anonymous nodes are no stand-alone features and therefore rejected, as
// are duplicate IDs.
func (s *MemoryStore) Add(features ...*feature.Feature) error {
	for _, f := range features {
		if f.IsAnonymous() {
			return errors.Errorf("Anonymous nodes can't be added to the store")
		}
		if _, ok := s.features[f.TypedID()]; ok {
			return errors.Errorf("Feature %s already exists in the store", f.TypedID().String())
		}

		size, err := encodedFeatureSize(f)
		if err != nil {
			return errors.Wrapf(err, "Unable to determine encoded size of feature %s", f.TypedID().String())
		}

		tile := geom.OwnerTile(f.Bounds, s.zoomLevels)
		tileData, ok := s.tiles[tile]
		if !ok {
			tileData = &TileData{Tile: tile, Bounds: geom.EmptyBox()}
			s.tiles[tile] = tileData
		}

		tileData.Features = append(tileData.Features, f)
		tileData.Bounds = tileData.Bounds.Union(f.Bounds)
		tileData.ByteSize += size
		s.features[f.TypedID()] = tile
		s.dirty = true

		sigolo.Tracef("Added feature %s to tile %s", f.TypedID().String(), tile.String())
	}

	return nil
}

// finish brings tiles and features into store order after features have been added.
func (s *MemoryStore) finish() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.dirty {
		return
	}

	s.sortedTiles = make([]geom.Tile, 0, len(s.tiles))
	for tile, data := range s.tiles {
		s.sortedTiles = append(s.sortedTiles, tile)
		data.sortFeatures()
	}
	geom.SortTiles(s.sortedTiles)
	s.dirty = false
}

func (s *MemoryStore) Strings() *StringTable {
	return s.strings
}

func (s *MemoryStore) ZoomLevels() []int {
	return s.zoomLevels
}

func (s *MemoryStore) Tiles() []geom.Tile {
	s.finish()
	return s.sortedTiles
}

func (s *MemoryStore) TilesCovering(box geom.Box) []geom.Tile {
	return filterTilesCovering(s.Tiles(), box)
}

func (s *MemoryStore) FetchTile(tile geom.Tile) (*TileData, error) {
	s.finish()
	data, ok := s.tiles[tile]
	if !ok {
		return nil, &StoreError{Tile: tile, Err: errors.New("Tile does not exist")}
	}
	return data, nil
}

func (s *MemoryStore) Feature(id feature.TypedID) (*feature.Feature, error) {
	tile, ok := s.features[id]
	if !ok {
		return nil, nil
	}
	data, err := s.FetchTile(tile)
	if err != nil {
		return nil, err
	}
	return data.Feature(id), nil
}

func (s *MemoryStore) FeatureCount() int {
	return len(s.features)
}
