package index

import (
	"fsq/geom"
	"fsq/util"
	"testing"
)

func TestLruCache_insertAndEviction(t *testing.T) {
	cache := newLruCache(3)

	tileA := geom.Tile{Zoom: 2, Column: 0, Row: 0}
	tileB := geom.Tile{Zoom: 2, Column: 1, Row: 0}
	tileC := geom.Tile{Zoom: 2, Column: 2, Row: 0}
	tileD := geom.Tile{Zoom: 2, Column: 3, Row: 0}

	cache.insert(tileA, &TileData{Tile: tileA})
	cache.insert(tileB, &TileData{Tile: tileB})
	cache.insert(tileC, &TileData{Tile: tileC})
	util.AssertEqual(t, 3, cache.len())

	// Insert D, A has been used the longest time ago
	cache.insert(tileD, &TileData{Tile: tileD})
	util.AssertFalse(t, cache.has(tileA))
	util.AssertTrue(t, cache.has(tileB))
	util.AssertTrue(t, cache.has(tileC))
	util.AssertTrue(t, cache.has(tileD))
}

func TestLruCache_getUpdatesRecency(t *testing.T) {
	// Arrange
	cache := newLruCache(2)
	tileA := geom.Tile{Zoom: 1, Column: 0, Row: 0}
	tileB := geom.Tile{Zoom: 1, Column: 1, Row: 0}
	tileC := geom.Tile{Zoom: 1, Column: 0, Row: 1}
	cache.insert(tileA, &TileData{Tile: tileA})
	cache.insert(tileB, &TileData{Tile: tileB})

	// Act
	data, ok := cache.get(tileA)
	cache.insert(tileC, &TileData{Tile: tileC})

	// Assert
	util.AssertTrue(t, ok)
	util.AssertEqual(t, tileA, data.Tile)
	util.AssertTrue(t, cache.has(tileA))
	util.AssertFalse(t, cache.has(tileB))
	util.AssertTrue(t, cache.has(tileC))
}

func TestLruCache_insertTwiceReplaces(t *testing.T) {
	// Arrange
	cache := newLruCache(2)
	tile := geom.Tile{Zoom: 1, Column: 0, Row: 0}
	cache.insert(tile, &TileData{Tile: tile, ByteSize: 1})

	// Act
	cache.insert(tile, &TileData{Tile: tile, ByteSize: 2})

	// Assert
	data, ok := cache.get(tile)
	util.AssertTrue(t, ok)
	util.AssertEqual(t, 2, data.ByteSize)
	util.AssertEqual(t, 1, cache.len())
}
