package importing

import (
	"fsq/index"
	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/paulmach/osm"
)

// statisticsHandler is the first pass of the import. It counts the usage of all keys and values and collects the
// nodes that are members of relations.
type statisticsHandler struct {
	statistics  *index.StringStatistics
	memberNodes *roaring64.Bitmap
}

func newStatisticsHandler() *statisticsHandler {
	return &statisticsHandler{
		statistics:  index.NewStringStatistics(),
		memberNodes: roaring64.New(),
	}
}

func (h *statisticsHandler) Name() string {
	return "StatisticsHandler"
}

func (h *statisticsHandler) Init() error {
	return nil
}

func (h *statisticsHandler) addTags(tags osm.Tags) {
	for _, tag := range tags {
		h.statistics.Add(tag.Key)
		h.statistics.Add(tag.Value)
	}
}

func (h *statisticsHandler) HandleNode(node *osm.Node) error {
	h.addTags(node.Tags)
	return nil
}

func (h *statisticsHandler) HandleWay(way *osm.Way) error {
	h.addTags(way.Tags)
	return nil
}

func (h *statisticsHandler) HandleRelation(relation *osm.Relation) error {
	h.addTags(relation.Tags)
	for _, member := range relation.Members {
		if member.Type == osm.TypeNode && member.Ref > 0 {
			h.memberNodes.Add(uint64(member.Ref))
		}
	}
	return nil
}

func (h *statisticsHandler) Done() error {
	return nil
}
