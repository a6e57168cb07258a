package io

import (
	"fsq/feature"
	"fsq/geom"
	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"
	"io"
	"os"
	"time"
)

// ToFeatureCollection converts the features into GeoJSON features with WGS84 coordinates. The tags become properties,
// the typed ID is stored in the "@id" property. Features without geometry are skipped.
func ToFeatureCollection(features []*feature.Feature) *geojson.FeatureCollection {
	featureCollection := geojson.NewFeatureCollection()
	for _, f := range features {
		if f.Geometry == nil {
			sigolo.Debugf("Feature %s has no geometry and is not written", f.TypedID().String())
			continue
		}

		geojsonFeature := geojson.NewFeature(geom.ToLonLatGeometry(f.Geometry))
		geojsonFeature.ID = f.TypedID().String()
		geojsonFeature.Properties["@id"] = f.TypedID().String()
		geojsonFeature.Properties["@type"] = f.Type.String()
		if f.IsArea() {
			geojsonFeature.Properties["@area"] = true
		}
		for key, value := range f.Tags.ToMap() {
			geojsonFeature.Properties[key] = value
		}

		featureCollection.Features = append(featureCollection.Features, geojsonFeature)
	}
	return featureCollection
}

func WriteFeaturesAsGeoJsonFile(features []*feature.Feature, filename string) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "Unable to create GeoJSON file %s", filename)
	}

	defer func() {
		closeErr := file.Close()
		if err == nil && closeErr != nil {
			err = errors.Wrapf(closeErr, "Unable to close file handle for GeoJSON file %s", filename)
		}
	}()

	return WriteFeaturesAsGeoJson(features, file)
}

func WriteFeaturesAsGeoJson(features []*feature.Feature, writer io.Writer) error {
	sigolo.Debugf("Write %d features to GeoJSON", len(features))
	writeStartTime := time.Now()

	geojsonBytes, err := ToFeatureCollection(features).MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "Unable to marshal features to GeoJSON")
	}

	_, err = writer.Write(geojsonBytes)
	if err != nil {
		return errors.Wrap(err, "Unable to write GeoJSON")
	}

	sigolo.Debugf("Finished writing in %s", time.Since(writeStartTime))
	return nil
}
