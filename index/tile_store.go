package index

import (
	"encoding/binary"
	"fsq/feature"
	"fsq/geom"
	"github.com/edsrzf/mmap-go"
	"github.com/hauke96/sigolo/v2"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"os"
	"path"
	"sort"
	"strconv"
	"time"
)

const (
	TilesFolder = "tiles"
	IdsFilename = "ids"

	idEntrySize = 16 // Typed ID and tile key, both uint64
)

// TileStore is a store on disk. Tile files are memory mapped while they are decoded, decoded tiles are kept in an
// LRU cache. The ID index stays mapped until the store is closed.
type TileStore struct {
	baseFolder string
	metadata   *Metadata
	strings    *StringTable
	tiles      []geom.Tile
	tileCache  *lruTileCache

	idsFile *os.File
	ids     mmap.MMap
}

func tileFilename(baseFolder string, tile geom.Tile) string {
	return path.Join(baseFolder, TilesFolder, strconv.Itoa(tile.Zoom), strconv.Itoa(tile.Column), strconv.Itoa(tile.Row)+".tile")
}

// WriteTileStore writes all tiles of the given store into the folder. Existing data in that folder is removed.
func WriteTileStore(store FeatureStore, baseFolder string, workers int) error {
	sigolo.Infof("Write store to %s", baseFolder)
	writeStartTime := time.Now()

	err := os.RemoveAll(baseFolder)
	if err != nil {
		return errors.Wrapf(err, "Unable to remove store folder %s", baseFolder)
	}
	err = os.MkdirAll(path.Join(baseFolder, TilesFolder), os.ModePerm)
	if err != nil {
		return errors.Wrapf(err, "Unable to create store folder %s", baseFolder)
	}

	tiles := store.Tiles()
	tileDatas := make([]*TileData, len(tiles))

	group := errgroup.Group{}
	group.SetLimit(max(workers, 1))
	for i, tile := range tiles {
		i, tile := i, tile
		group.Go(func() error {
			data, err := store.FetchTile(tile)
			if err != nil {
				return err
			}
			tileDatas[i] = data
			return writeTileFile(baseFolder, data)
		})
	}
	err = group.Wait()
	if err != nil {
		return err
	}

	var entries [][2]uint64
	for _, data := range tileDatas {
		for _, f := range data.Features {
			entries = append(entries, [2]uint64{uint64(f.TypedID()), data.Tile.Key()})
		}
	}
	err = writeIdIndex(baseFolder, entries)
	if err != nil {
		return err
	}

	err = store.Strings().SaveToFile(baseFolder)
	if err != nil {
		return err
	}

	metadata := &Metadata{
		ZoomLevels:   store.ZoomLevels(),
		FeatureCount: len(entries),
		StringCount:  store.Strings().Len(),
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	for _, tile := range tiles {
		metadata.Tiles = append(metadata.Tiles, tile.String())
	}
	err = writeMetadata(baseFolder, metadata)
	if err != nil {
		return err
	}

	sigolo.Infof("Wrote %d features in %d tiles in %s", len(entries), len(tiles), time.Since(writeStartTime))
	return nil
}

func writeTileFile(baseFolder string, data *TileData) error {
	filename := tileFilename(baseFolder, data.Tile)
	err := os.MkdirAll(path.Dir(filename), os.ModePerm)
	if err != nil {
		return errors.Wrapf(err, "Unable to create tile folder for %s", filename)
	}

	encoded, err := encodeTile(data)
	if err != nil {
		return err
	}

	sigolo.Tracef("Write tile %s with %d features and %d bytes", data.Tile.String(), len(data.Features), len(encoded))
	return errors.Wrapf(os.WriteFile(filename, encoded, 0644), "Unable to write tile file %s", filename)
}

func writeIdIndex(baseFolder string, entries [][2]uint64) error {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i][0] < entries[j][0]
	})

	data := make([]byte, len(entries)*idEntrySize)
	for i, entry := range entries {
		binary.LittleEndian.PutUint64(data[i*idEntrySize:], entry[0])
		binary.LittleEndian.PutUint64(data[i*idEntrySize+8:], entry[1])
	}

	filename := path.Join(baseFolder, IdsFilename)
	return errors.Wrapf(os.WriteFile(filename, data, 0644), "Unable to write ID index %s", filename)
}

func OpenTileStore(baseFolder string, tileCacheSize int) (*TileStore, error) {
	metadata, err := readMetadata(baseFolder)
	if err != nil {
		return nil, err
	}
	err = geom.ValidateZoomLevels(metadata.ZoomLevels)
	if err != nil {
		return nil, errors.Wrapf(err, "Invalid zoom levels in store %s", baseFolder)
	}

	strings, err := LoadStringTable(baseFolder)
	if err != nil {
		return nil, err
	}

	store := &TileStore{
		baseFolder: baseFolder,
		metadata:   metadata,
		strings:    strings,
		tileCache:  newLruCache(tileCacheSize),
	}

	for _, tileString := range metadata.Tiles {
		tile, err := geom.ParseTile(tileString)
		if err != nil {
			return nil, errors.Wrapf(err, "Invalid tile in store metadata of %s", baseFolder)
		}
		store.tiles = append(store.tiles, tile)
	}
	geom.SortTiles(store.tiles)

	err = store.mapIdIndex()
	if err != nil {
		return nil, err
	}

	sigolo.Debugf("Opened store %s with %d tiles and %d features", baseFolder, len(store.tiles), metadata.FeatureCount)
	return store, nil
}

func (s *TileStore) mapIdIndex() error {
	filename := path.Join(s.baseFolder, IdsFilename)
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrapf(err, "Unable to open ID index %s", filename)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return errors.Wrapf(err, "Unable to stat ID index %s", filename)
	}
	if info.Size()%idEntrySize != 0 {
		file.Close()
		return errors.Errorf("ID index %s has invalid size %d", filename, info.Size())
	}
	if info.Size() == 0 {
		// Empty files can't be mapped.
		return file.Close()
	}

	ids, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		file.Close()
		return errors.Wrapf(err, "Unable to map ID index %s", filename)
	}

	s.idsFile = file
	s.ids = ids
	return nil
}

func (s *TileStore) Close() error {
	if s.ids == nil {
		return nil
	}

	err := s.ids.Unmap()
	if err != nil {
		return errors.Wrap(err, "Unable to unmap ID index")
	}
	s.ids = nil
	return s.idsFile.Close()
}

func (s *TileStore) Metadata() *Metadata {
	return s.metadata
}

func (s *TileStore) Strings() *StringTable {
	return s.strings
}

func (s *TileStore) ZoomLevels() []int {
	return s.metadata.ZoomLevels
}

func (s *TileStore) Tiles() []geom.Tile {
	return s.tiles
}

func (s *TileStore) TilesCovering(box geom.Box) []geom.Tile {
	return filterTilesCovering(s.tiles, box)
}

func (s *TileStore) FetchTile(tile geom.Tile) (*TileData, error) {
	if data, ok := s.tileCache.get(tile); ok {
		sigolo.Tracef("Use cached tile %s", tile.String())
		return data, nil
	}

	data, err := s.readTile(tile)
	if err != nil {
		return nil, &StoreError{Tile: tile, Err: err}
	}

	s.tileCache.insert(tile, data)
	return data, nil
}

func (s *TileStore) readTile(tile geom.Tile) (*TileData, error) {
	filename := tileFilename(s.baseFolder, tile)
	sigolo.Tracef("Read tile file %s", filename)

	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to open tile file %s", filename)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to stat tile file %s", filename)
	}
	if info.Size() == 0 {
		return nil, errors.Errorf("Tile file %s is empty", filename)
	}

	data, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to map tile file %s", filename)
	}
	defer data.Unmap()

	// Decoding copies all data, nothing refers to the mapped memory afterward.
	return decodeTile(tile, data, s.strings)
}

func (s *TileStore) Feature(id feature.TypedID) (*feature.Feature, error) {
	tile, ok := s.lookupTile(id)
	if !ok {
		return nil, nil
	}

	data, err := s.FetchTile(tile)
	if err != nil {
		return nil, err
	}
	return data.Feature(id), nil
}

// lookupTile performs a binary search on the mapped ID index.
func (s *TileStore) lookupTile(id feature.TypedID) (geom.Tile, bool) {
	count := len(s.ids) / idEntrySize
	i := sort.Search(count, func(i int) bool {
		return binary.LittleEndian.Uint64(s.ids[i*idEntrySize:]) >= uint64(id)
	})
	if i >= count || binary.LittleEndian.Uint64(s.ids[i*idEntrySize:]) != uint64(id) {
		return geom.Tile{}, false
	}
	return geom.TileFromKey(binary.LittleEndian.Uint64(s.ids[i*idEntrySize+8:])), true
}
