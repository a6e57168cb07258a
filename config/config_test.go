package config

import (
	"fsq/util"
	"os"
	"path"
	"testing"
)

func writeSettingsFile(t *testing.T, content string) string {
	filename := path.Join(t.TempDir(), DefaultFilename)
	err := os.WriteFile(filename, []byte(content), 0644)
	util.AssertNil(t, err)
	return filename
}

func TestLoad_missingFileUsesDefaults(t *testing.T) {
	// Act
	settings, err := Load(path.Join(t.TempDir(), "does-not-exist.yaml"))

	// Assert
	util.AssertNil(t, err)
	util.AssertEqual(t, Default(), settings)
}

func TestLoad_overridesDefaults(t *testing.T) {
	// Arrange
	filename := writeSettingsFile(t, `
store-folder: /tmp/hamburg
zoom-levels: [0, 4, 8, 12, 14]
workers: 8
area-keys:
  - building
  - landuse
`)

	// Act
	settings, err := Load(filename)

	// Assert
	util.AssertNil(t, err)
	util.AssertEqual(t, "/tmp/hamburg", settings.StoreFolder)
	util.AssertEqual(t, []int{0, 4, 8, 12, 14}, settings.ZoomLevels)
	util.AssertEqual(t, 8, settings.Workers)
	util.AssertEqual(t, 64, settings.TileCacheSize)
	util.AssertTrue(t, settings.IsAreaKey("landuse"))
	util.AssertFalse(t, settings.IsAreaKey("amenity"))
}

func TestLoad_malformedFile(t *testing.T) {
	// Arrange
	filename := writeSettingsFile(t, "workers: [1, 2")

	// Act
	_, err := Load(filename)

	// Assert
	util.AssertNotNil(t, err)
	util.AssertMatch(t, "^Unable to parse settings file .*fsq.yaml", err.Error())
}

func TestLoad_invalidSettings(t *testing.T) {
	// Arrange
	filename := writeSettingsFile(t, "zoom-levels: [0, 8, 4]")

	// Act
	_, err := Load(filename)

	// Assert
	util.AssertNotNil(t, err)
	util.AssertMatch(t, "strictly ascending", err.Error())
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		modify  func(s *Settings)
		message string
	}{
		{func(s *Settings) { s.StoreFolder = "" }, "Store folder must not be empty"},
		{func(s *Settings) { s.ZoomLevels = []int{2, 4} }, "Zoom levels [2 4] must start with 0"},
		{func(s *Settings) { s.ZoomLevels = []int{0, 17} }, "Zoom level 17 out of range 0..16"},
		{func(s *Settings) { s.TileCacheSize = 0 }, "Tile cache size must be positive but was 0"},
		{func(s *Settings) { s.Workers = -1 }, "Number of workers must be positive but was -1"},
		{func(s *Settings) { s.MaxGlobalStrings = 0 }, "Maximum number of global strings must be positive but was 0"},
	}

	for _, testCase := range testCases {
		// Arrange
		settings := Default()
		testCase.modify(settings)

		// Act
		err := settings.Validate()

		// Assert
		util.AssertError(t, testCase.message, err)
	}

	util.AssertNil(t, Default().Validate())
}
