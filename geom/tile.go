package geom

import (
	"fmt"
	"github.com/pkg/errors"
	"math"
	"sort"
)

const MaxZoom = 16

// Tile is one cell of the tile pyramid. At zoom z the world is split into 2^z columns and 2^z rows, row 0 being the
// northernmost one.
type Tile struct {
	Zoom   int
	Column int
	Row    int
}

func tileShift(zoom int) uint {
	return uint(32 - zoom)
}

// TileAt returns the tile of the given zoom level containing the coordinate.
func TileAt(c Coordinate, zoom int) Tile {
	shift := tileShift(zoom)
	return Tile{
		Zoom:   zoom,
		Column: int((int64(c.X) - math.MinInt32) >> shift),
		Row:    int((math.MaxInt32 - int64(c.Y)) >> shift),
	}
}

func (t Tile) Bounds() Box {
	shift := tileShift(t.Zoom)
	size := int64(1) << shift
	minX := int64(math.MinInt32) + int64(t.Column)<<shift
	maxY := int64(math.MaxInt32) - int64(t.Row)<<shift
	return Box{
		MinX: int32(minX),
		MinY: int32(maxY - size + 1),
		MaxX: int32(minX + size - 1),
		MaxY: int32(maxY),
	}
}

func (t Tile) Contains(c Coordinate) bool {
	return TileAt(c, t.Zoom) == t
}

// Parent returns the tile at the given (lower or equal) zoom level that contains this tile.
func (t Tile) Parent(zoom int) Tile {
	if zoom >= t.Zoom {
		return t
	}
	shift := uint(t.Zoom - zoom)
	return Tile{Zoom: zoom, Column: t.Column >> shift, Row: t.Row >> shift}
}

func (t Tile) IsValid() bool {
	limit := 1 << t.Zoom
	return t.Zoom >= 0 && t.Zoom <= MaxZoom && t.Column >= 0 && t.Column < limit && t.Row >= 0 && t.Row < limit
}

// Less defines the stable order of tiles: by zoom level, then row, then column.
func (t Tile) Less(other Tile) bool {
	if t.Zoom != other.Zoom {
		return t.Zoom < other.Zoom
	}
	if t.Row != other.Row {
		return t.Row < other.Row
	}
	return t.Column < other.Column
}

func (t Tile) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Zoom, t.Column, t.Row)
}

// Key packs the tile into one integer, e.g. for index files.
func (t Tile) Key() uint64 {
	return uint64(t.Zoom)<<56 | uint64(t.Column)<<28 | uint64(t.Row)
}

func TileFromKey(key uint64) Tile {
	return Tile{
		Zoom:   int(key >> 56),
		Column: int((key >> 28) & (1<<28 - 1)),
		Row:    int(key & (1<<28 - 1)),
	}
}

// ParseTile parses the "zoom/column/row" notation of String.
func ParseTile(s string) (Tile, error) {
	var t Tile
	_, err := fmt.Sscanf(s, "%d/%d/%d", &t.Zoom, &t.Column, &t.Row)
	if err != nil {
		return Tile{}, errors.Wrapf(err, "Unable to parse tile '%s'", s)
	}
	if !t.IsValid() {
		return Tile{}, errors.Errorf("Tile '%s' is out of range", s)
	}
	return t, nil
}

func SortTiles(tiles []Tile) {
	sort.Slice(tiles, func(i, j int) bool {
		return tiles[i].Less(tiles[j])
	})
}

// TileRange is a rectangular block of tiles of one zoom level with inclusive column and row limits.
type TileRange struct {
	Zoom      int
	MinColumn int
	MinRow    int
	MaxColumn int
	MaxRow    int
}

// TileRangeOf returns all tiles of the zoom level overlapping the box.
func TileRangeOf(b Box, zoom int) TileRange {
	if b.IsEmpty() {
		return TileRange{Zoom: zoom, MinColumn: 0, MinRow: 0, MaxColumn: -1, MaxRow: -1}
	}
	topLeft := TileAt(Coordinate{X: b.MinX, Y: b.MaxY}, zoom)
	bottomRight := TileAt(Coordinate{X: b.MaxX, Y: b.MinY}, zoom)
	return TileRange{
		Zoom:      zoom,
		MinColumn: topLeft.Column,
		MinRow:    topLeft.Row,
		MaxColumn: bottomRight.Column,
		MaxRow:    bottomRight.Row,
	}
}

func (r TileRange) Count() int {
	if r.MaxColumn < r.MinColumn || r.MaxRow < r.MinRow {
		return 0
	}
	return (r.MaxColumn - r.MinColumn + 1) * (r.MaxRow - r.MinRow + 1)
}

func (r TileRange) Contains(t Tile) bool {
	return t.Zoom == r.Zoom && t.Column >= r.MinColumn && t.Column <= r.MaxColumn && t.Row >= r.MinRow && t.Row <= r.MaxRow
}

// Expand returns the smallest range containing this range and the given tile of the same zoom level.
func (r TileRange) Expand(t Tile) TileRange {
	if r.Count() == 0 {
		return TileRange{Zoom: t.Zoom, MinColumn: t.Column, MinRow: t.Row, MaxColumn: t.Column, MaxRow: t.Row}
	}
	return TileRange{
		Zoom:      r.Zoom,
		MinColumn: min(r.MinColumn, t.Column),
		MinRow:    min(r.MinRow, t.Row),
		MaxColumn: max(r.MaxColumn, t.Column),
		MaxRow:    max(r.MaxRow, t.Row),
	}
}

// Tiles returns the tiles of this range ordered by row and then column.
func (r TileRange) Tiles() []Tile {
	var tiles []Tile
	for row := r.MinRow; row <= r.MaxRow; row++ {
		for column := r.MinColumn; column <= r.MaxColumn; column++ {
			tiles = append(tiles, Tile{Zoom: r.Zoom, Column: column, Row: row})
		}
	}
	return tiles
}

// OwnerTile determines the canonical tile of a feature with the given bounds: the tile of the highest zoom level that
// contains the whole box. The zoom levels must be ascending and start with 0.
func OwnerTile(b Box, zoomLevels []int) Tile {
	if b.IsEmpty() {
		return Tile{}
	}
	for i := len(zoomLevels) - 1; i >= 0; i-- {
		zoom := zoomLevels[i]
		topLeft := TileAt(Coordinate{X: b.MinX, Y: b.MaxY}, zoom)
		bottomRight := TileAt(Coordinate{X: b.MaxX, Y: b.MinY}, zoom)
		if topLeft == bottomRight {
			return topLeft
		}
	}
	return Tile{}
}

// ValidateZoomLevels checks that the zoom levels form a usable pyramid.
func ValidateZoomLevels(zoomLevels []int) error {
	if len(zoomLevels) == 0 || zoomLevels[0] != 0 {
		return errors.Errorf("Zoom levels %v must start with 0", zoomLevels)
	}
	for i, zoom := range zoomLevels {
		if zoom < 0 || zoom > MaxZoom {
			return errors.Errorf("Zoom level %d out of range 0..%d", zoom, MaxZoom)
		}
		if i > 0 && zoom <= zoomLevels[i-1] {
			return errors.Errorf("Zoom levels %v must be strictly ascending", zoomLevels)
		}
	}
	return nil
}

// TilesCovering returns the tiles of all given zoom levels overlapping the box, ordered by zoom, row and column.
func TilesCovering(b Box, zoomLevels []int) []Tile {
	var tiles []Tile
	for _, zoom := range zoomLevels {
		tiles = append(tiles, TileRangeOf(b, zoom).Tiles()...)
	}
	return tiles
}
