package index

import (
	"fmt"
	"fsq/feature"
	"fsq/geom"
	"sort"
)

// FeatureStore is a read-only, tiled collection of features. Every feature is owned by exactly one tile.
type FeatureStore interface {
	Strings() *StringTable
	ZoomLevels() []int

	// Tiles returns all non-empty tiles in store order (zoom, row, column).
	Tiles() []geom.Tile

	// TilesCovering returns the non-empty tiles whose bounds overlap the box, in store order.
	TilesCovering(box geom.Box) []geom.Tile

	// FetchTile returns the features of the tile. Failures are reported as *StoreError.
	FetchTile(tile geom.Tile) (*TileData, error)

	// Feature returns the feature with the given ID or nil if the store doesn't contain it.
	Feature(id feature.TypedID) (*feature.Feature, error)
}

// TileData is the content of one tile. The features are sorted by their typed ID.
type TileData struct {
	Tile     geom.Tile
	Bounds   geom.Box // Union of the bounds of all features in this tile
	ByteSize int
	Features []*feature.Feature
}

// Feature finds a feature of this tile by binary search.
func (t *TileData) Feature(id feature.TypedID) *feature.Feature {
	i := sort.Search(len(t.Features), func(i int) bool {
		return t.Features[i].TypedID() >= id
	})
	if i < len(t.Features) && t.Features[i].TypedID() == id {
		return t.Features[i]
	}
	return nil
}

func (t *TileData) sortFeatures() {
	sort.Slice(t.Features, func(i, j int) bool {
		return t.Features[i].TypedID() < t.Features[j].TypedID()
	})
}

// StoreError is returned whenever a tile can't be read or decoded. It is fatal for the query that caused it.
type StoreError struct {
	Tile geom.Tile
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("Unable to fetch tile %s: %s", e.Tile.String(), e.Err.Error())
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Cause makes this error work with github.com/pkg/errors.Cause.
func (e *StoreError) Cause() error {
	return e.Err
}

func filterTilesCovering(tiles []geom.Tile, box geom.Box) []geom.Tile {
	if box.IsEmpty() {
		return nil
	}
	var result []geom.Tile
	for _, tile := range tiles {
		if tile.Bounds().Intersects(box) {
			result = append(result, tile)
		}
	}
	return result
}
