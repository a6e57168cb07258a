package index

import (
	"bytes"
	"fsq/feature"
	"fsq/geom"
	"fsq/util"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

var tileFileMagic = []byte("FSQT\x01")

const (
	flagArea byte = 1
)

// Kinds of geometry parts of relations.
const (
	partPoint byte = iota
	partLine
	partOuterRing
	partInnerRing
)

var (
	pointSchema = util.BinarySchema{
		Items: []util.BinaryItem{
			&util.BinaryDataItem{FieldName: "X", BinaryType: util.DatatypeInt32},
			&util.BinaryDataItem{FieldName: "Y", BinaryType: util.DatatypeInt32},
		},
	}

	featureSchema = util.BinarySchema{
		Items: []util.BinaryItem{
			&util.BinaryDataItem{FieldName: "TypedID", BinaryType: util.DatatypeInt64},
			&util.BinaryDataItem{FieldName: "Flags", BinaryType: util.DatatypeByte},
			&util.BinaryDataItem{FieldName: "X", BinaryType: util.DatatypeInt32},
			&util.BinaryDataItem{FieldName: "Y", BinaryType: util.DatatypeInt32},
			&util.BinaryCollectionItem{
				FieldName: "Tags",
				ItemSchema: util.BinarySchema{
					Items: []util.BinaryItem{
						&util.BinaryDataItem{FieldName: "KeyCode", BinaryType: util.DatatypeInt32},
						&util.BinaryDataItem{FieldName: "Key", BinaryType: util.DatatypeString},
						&util.BinaryDataItem{FieldName: "ValueCode", BinaryType: util.DatatypeInt32},
						&util.BinaryDataItem{FieldName: "Value", BinaryType: util.DatatypeString},
					},
				},
			},
			&util.BinaryCollectionItem{
				FieldName: "Nodes",
				ItemSchema: util.BinarySchema{
					Items: []util.BinaryItem{
						&util.BinaryDataItem{FieldName: "ID", BinaryType: util.DatatypeInt64},
						&util.BinaryDataItem{FieldName: "X", BinaryType: util.DatatypeInt32},
						&util.BinaryDataItem{FieldName: "Y", BinaryType: util.DatatypeInt32},
					},
				},
			},
			&util.BinaryCollectionItem{
				FieldName: "Members",
				ItemSchema: util.BinarySchema{
					Items: []util.BinaryItem{
						&util.BinaryDataItem{FieldName: "Ref", BinaryType: util.DatatypeInt64},
						&util.BinaryDataItem{FieldName: "Role", BinaryType: util.DatatypeString},
					},
				},
			},
			&util.BinaryRawCollectionItem{FieldName: "Parents", BinaryType: util.DatatypeInt64},
			&util.BinaryCollectionItem{
				FieldName: "Parts",
				ItemSchema: util.BinarySchema{
					Items: []util.BinaryItem{
						&util.BinaryDataItem{FieldName: "Kind", BinaryType: util.DatatypeByte},
						&util.BinaryCollectionItem{FieldName: "Points", ItemSchema: pointSchema},
					},
				},
			},
		},
	}

	tileSchema = util.BinarySchema{
		Items: []util.BinaryItem{
			&util.BinaryCollectionItem{FieldName: "Features", ItemSchema: featureSchema},
		},
	}
)

type tagDao struct {
	KeyCode   int32
	Key       string // Empty for global keys
	ValueCode int32
	Value     string // Empty for global values
}

type wayNodeDao struct {
	ID uint64
	X  int32
	Y  int32
}

type memberDao struct {
	Ref  uint64
	Role string
}

type pointDao struct {
	X int32
	Y int32
}

type partDao struct {
	Kind   byte
	Points []pointDao
}

type featureDao struct {
	TypedID uint64
	Flags   byte
	X       int32 // Coordinate of nodes
	Y       int32
	Tags    []tagDao
	Nodes   []wayNodeDao
	Members []memberDao
	Parents []uint64
	Parts   []partDao // Geometry of relations
}

type tileDao struct {
	Features []featureDao
}

func toFeatureDao(f *feature.Feature) featureDao {
	dao := featureDao{
		TypedID: uint64(f.TypedID()),
		X:       f.Coordinate.X,
		Y:       f.Coordinate.Y,
	}
	if f.Area {
		dao.Flags |= flagArea
	}

	for _, tag := range f.Tags.All() {
		tDao := tagDao{
			KeyCode:   int32(tag.KeyCode),
			ValueCode: int32(tag.Value.Code),
		}
		if tag.KeyCode <= 0 {
			tDao.Key = tag.Key
		}
		if tag.Value.Code <= 0 {
			tDao.Value = tag.Value.Text
		}
		dao.Tags = append(dao.Tags, tDao)
	}

	for _, node := range f.Nodes {
		dao.Nodes = append(dao.Nodes, wayNodeDao{ID: node.ID, X: node.Coordinate.X, Y: node.Coordinate.Y})
	}
	for _, member := range f.Members {
		dao.Members = append(dao.Members, memberDao{Ref: uint64(member.Ref), Role: member.Role})
	}
	for _, parent := range f.Parents {
		dao.Parents = append(dao.Parents, uint64(parent))
	}
	if f.IsRelation() && f.Geometry != nil {
		dao.Parts = appendParts(dao.Parts, f.Geometry)
	}

	return dao
}

func appendParts(parts []partDao, g orb.Geometry) []partDao {
	switch geometry := g.(type) {
	case orb.Point:
		parts = append(parts, partDao{Kind: partPoint, Points: toPointDaos([]orb.Point{geometry})})
	case orb.MultiPoint:
		for _, p := range geometry {
			parts = appendParts(parts, p)
		}
	case orb.LineString:
		parts = append(parts, partDao{Kind: partLine, Points: toPointDaos(geometry)})
	case orb.MultiLineString:
		for _, l := range geometry {
			parts = appendParts(parts, l)
		}
	case orb.Ring:
		parts = append(parts, partDao{Kind: partOuterRing, Points: toPointDaos(geometry)})
	case orb.Polygon:
		for i, ring := range geometry {
			kind := partInnerRing
			if i == 0 {
				kind = partOuterRing
			}
			parts = append(parts, partDao{Kind: kind, Points: toPointDaos(ring)})
		}
	case orb.MultiPolygon:
		for _, p := range geometry {
			parts = appendParts(parts, p)
		}
	case orb.Collection:
		for _, child := range geometry {
			parts = appendParts(parts, child)
		}
	case orb.Bound:
		parts = appendParts(parts, geometry.ToPolygon())
	}
	return parts
}

func toPointDaos(points []orb.Point) []pointDao {
	result := make([]pointDao, len(points))
	for i, p := range points {
		c := geom.CoordinateOf(p)
		result[i] = pointDao{X: c.X, Y: c.Y}
	}
	return result
}

func fromFeatureDao(dao *featureDao, strings *StringTable) (*feature.Feature, error) {
	typedID := feature.TypedID(dao.TypedID)
	area := dao.Flags&flagArea != 0

	tagList := make([]feature.Tag, len(dao.Tags))
	for i, tDao := range dao.Tags {
		tag := feature.Tag{
			KeyCode: int(tDao.KeyCode),
			Key:     tDao.Key,
			Value:   feature.TagValue{Code: int(tDao.ValueCode), Text: tDao.Value},
		}
		if tag.KeyCode > 0 {
			tag.Key = strings.String(tag.KeyCode)
		}
		if tag.Value.Code > 0 {
			tag.Value.Text = strings.String(tag.Value.Code)
		}
		tagList[i] = tag
	}
	tags, err := feature.NewTags(tagList...)
	if err != nil {
		return nil, errors.Wrapf(err, "Invalid tags of feature %s", typedID.String())
	}

	var f *feature.Feature
	switch typedID.Type() {
	case feature.TypeNode:
		f = feature.NewNode(typedID.ID(), geom.Coordinate{X: dao.X, Y: dao.Y}, tags)
	case feature.TypeWay:
		nodes := make([]feature.WayNode, len(dao.Nodes))
		for i, node := range dao.Nodes {
			nodes[i] = feature.WayNode{ID: node.ID, Coordinate: geom.Coordinate{X: node.X, Y: node.Y}}
		}
		f = feature.NewWay(typedID.ID(), nodes, tags, area)
	case feature.TypeRelation:
		members := make([]feature.Member, len(dao.Members))
		for i, member := range dao.Members {
			members[i] = feature.Member{Ref: feature.TypedID(member.Ref), Role: member.Role}
		}
		f = feature.NewRelation(typedID.ID(), members, tags, area, geometryFromParts(dao.Parts, area))
	default:
		return nil, errors.Errorf("Unknown feature type of %d", dao.TypedID)
	}

	for _, parent := range dao.Parents {
		f.Parents = append(f.Parents, feature.TypedID(parent))
	}

	return f, nil
}

func geometryFromParts(parts []partDao, area bool) orb.Geometry {
	if len(parts) == 0 {
		return nil
	}

	var multiPolygon orb.MultiPolygon
	var collection orb.Collection

	for _, part := range parts {
		points := make([]orb.Point, len(part.Points))
		for i, p := range part.Points {
			points[i] = orb.Point{float64(p.X), float64(p.Y)}
		}

		switch part.Kind {
		case partPoint:
			collection = append(collection, points[0])
		case partLine:
			collection = append(collection, orb.LineString(points))
		case partOuterRing:
			multiPolygon = append(multiPolygon, orb.Polygon{orb.Ring(points)})
		case partInnerRing:
			if len(multiPolygon) > 0 {
				last := len(multiPolygon) - 1
				multiPolygon[last] = append(multiPolygon[last], orb.Ring(points))
			}
		}
	}

	if area {
		return multiPolygon
	}
	for _, polygon := range multiPolygon {
		collection = append(collection, polygon)
	}
	return collection
}

func encodedFeatureSize(f *feature.Feature) (int, error) {
	dao := toFeatureDao(f)
	return featureSchema.Size(&dao)
}

// encodeTile writes the magic header followed by all features of the tile.
func encodeTile(tile *TileData) ([]byte, error) {
	dao := &tileDao{Features: make([]featureDao, len(tile.Features))}
	for i, f := range tile.Features {
		dao.Features[i] = toFeatureDao(f)
	}

	data, err := tileSchema.Marshal(dao)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to encode tile %s", tile.Tile.String())
	}

	return append(append([]byte{}, tileFileMagic...), data...), nil
}

func decodeTile(tile geom.Tile, data []byte, strings *StringTable) (*TileData, error) {
	if !bytes.HasPrefix(data, tileFileMagic) {
		return nil, errors.Errorf("Missing tile header")
	}

	dao := &tileDao{}
	_, err := tileSchema.Read(dao, data, len(tileFileMagic))
	if err != nil {
		return nil, errors.Wrap(err, "Unable to decode tile data")
	}

	result := &TileData{
		Tile:     tile,
		Bounds:   geom.EmptyBox(),
		ByteSize: len(data),
		Features: make([]*feature.Feature, len(dao.Features)),
	}
	for i := range dao.Features {
		f, err := fromFeatureDao(&dao.Features[i], strings)
		if err != nil {
			return nil, err
		}
		result.Features[i] = f
		result.Bounds = result.Bounds.Union(f.Bounds)
	}
	result.sortFeatures()

	return result, nil
}
