package index

import (
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"os"
	"path"
	"time"
)

const MetadataFilename = "metadata.yaml"

// Metadata describes a store on disk.
type Metadata struct {
	ZoomLevels   []int     `yaml:"zoom-levels"`
	FeatureCount int       `yaml:"feature-count"`
	StringCount  int       `yaml:"string-count"`
	CreatedAt    time.Time `yaml:"created-at"`
	Tiles        []string  `yaml:"tiles"` // In store order
}

func readMetadata(baseFolder string) (*Metadata, error) {
	filepath := path.Join(baseFolder, MetadataFilename)
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to read store metadata %s", filepath)
	}

	metadata := &Metadata{}
	err = yaml.Unmarshal(data, metadata)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to parse store metadata %s", filepath)
	}

	return metadata, nil
}

func writeMetadata(baseFolder string, metadata *Metadata) error {
	data, err := yaml.Marshal(metadata)
	if err != nil {
		return errors.Wrap(err, "Unable to serialize store metadata")
	}

	filepath := path.Join(baseFolder, MetadataFilename)
	err = os.WriteFile(filepath, data, 0644)
	return errors.Wrapf(err, "Unable to write store metadata %s", filepath)
}
