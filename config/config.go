package config

import (
	"fsq/geom"
	"github.com/hauke96/sigolo/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"os"
)

const DefaultFilename = "fsq.yaml"

// Settings of the store and the query engine. Every field can be set in the YAML settings file, missing fields keep
// their default value.
type Settings struct {
	StoreFolder      string   `yaml:"store-folder"`
	ZoomLevels       []int    `yaml:"zoom-levels"`
	TileCacheSize    int      `yaml:"tile-cache-size"`
	Workers          int      `yaml:"workers"`
	ProgramCacheSize int      `yaml:"program-cache-size"`
	MinStringUsage   int      `yaml:"min-string-usage"`
	MaxGlobalStrings int      `yaml:"max-global-strings"`
	AreaKeys         []string `yaml:"area-keys"`
}

func Default() *Settings {
	return &Settings{
		StoreFolder:      "fsq-store",
		ZoomLevels:       []int{0, 2, 4, 6, 8, 10, 12},
		TileCacheSize:    64,
		Workers:          4,
		ProgramCacheSize: 256,
		MinStringUsage:   2,
		MaxGlobalStrings: 65000,
		AreaKeys: []string{
			"amenity",
			"building",
			"building:part",
			"historic",
			"landuse",
			"leisure",
			"man_made",
			"military",
			"natural",
			"place",
			"shop",
			"tourism",
		},
	}
}

// Load reads the settings file. A missing file results in the default settings.
func Load(filename string) (*Settings, error) {
	settings := Default()

	data, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		sigolo.Debugf("Settings file %s does not exist, use default settings", filename)
		return settings, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to read settings file %s", filename)
	}

	err = yaml.Unmarshal(data, settings)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to parse settings file %s", filename)
	}

	err = settings.Validate()
	if err != nil {
		return nil, errors.Wrapf(err, "Invalid settings in %s", filename)
	}

	sigolo.Debugf("Loaded settings from %s: %+v", filename, *settings)
	return settings, nil
}

func (s *Settings) Validate() error {
	if s.StoreFolder == "" {
		return errors.New("Store folder must not be empty")
	}
	err := geom.ValidateZoomLevels(s.ZoomLevels)
	if err != nil {
		return err
	}
	if s.TileCacheSize <= 0 {
		return errors.Errorf("Tile cache size must be positive but was %d", s.TileCacheSize)
	}
	if s.Workers <= 0 {
		return errors.Errorf("Number of workers must be positive but was %d", s.Workers)
	}
	if s.ProgramCacheSize <= 0 {
		return errors.Errorf("Program cache size must be positive but was %d", s.ProgramCacheSize)
	}
	if s.MinStringUsage <= 0 {
		return errors.Errorf("Minimum string usage must be positive but was %d", s.MinStringUsage)
	}
	if s.MaxGlobalStrings <= 0 {
		return errors.Errorf("Maximum number of global strings must be positive but was %d", s.MaxGlobalStrings)
	}
	return nil
}

// IsAreaKey returns true when a closed way with this key is an area.
func (s *Settings) IsAreaKey(key string) bool {
	for _, areaKey := range s.AreaKeys {
		if areaKey == key {
			return true
		}
	}
	return false
}
