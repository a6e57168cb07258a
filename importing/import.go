package importing

import (
	"fsq/config"
	"fsq/index"
	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/osm"
	"time"
)

// Import reads the OSM file twice: the first pass builds the string table from the key and value statistics, the
// second pass creates the features.
func Import(inputFile string, settings *config.Settings) (*index.MemoryStore, error) {
	sigolo.Infof("Start import of file %s", inputFile)
	importStartTime := time.Now()

	statistics := newStatisticsHandler()
	err := readFile(inputFile, statistics)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(statistics, settings, func(handler passHandler) error {
		return readFile(inputFile, handler)
	})
	if err != nil {
		return nil, err
	}

	sigolo.Infof("Finished import of %d features in %s", store.FeatureCount(), time.Since(importStartTime))
	return store, nil
}

// ImportScanners is Import for already opened data, e.g. in-memory OSM XML. Each pass needs its own scanner.
func ImportScanners(firstPass osm.Scanner, secondPass osm.Scanner, settings *config.Settings) (*index.MemoryStore, error) {
	statistics := newStatisticsHandler()
	err := readScanner(firstPass, "first pass", statistics)
	if err != nil {
		return nil, err
	}

	return buildStore(statistics, settings, func(handler passHandler) error {
		return readScanner(secondPass, "second pass", handler)
	})
}

func buildStore(statistics *statisticsHandler, settings *config.Settings, secondPass func(handler passHandler) error) (*index.MemoryStore, error) {
	strings := statistics.statistics.Build(settings.MinStringUsage, settings.MaxGlobalStrings)
	sigolo.Debugf("Use %d global strings and %d relation member nodes", strings.Len(), statistics.memberNodes.GetCardinality())

	features := newFeatureHandler(settings, strings, statistics.memberNodes)
	err := secondPass(features)
	if err != nil {
		return nil, err
	}

	store, err := index.NewMemoryStore(strings, settings.ZoomLevels)
	if err != nil {
		return nil, err
	}
	err = store.Add(features.features...)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// ImportAndSave imports the OSM file and writes the resulting store into the store folder of the settings.
func ImportAndSave(inputFile string, settings *config.Settings) error {
	store, err := Import(inputFile, settings)
	if err != nil {
		return err
	}

	if sigolo.ShouldLogTrace() {
		err = index.VerifyParents(store)
		if err != nil {
			return err
		}
	}

	return index.WriteTileStore(store, settings.StoreFolder, settings.Workers)
}
