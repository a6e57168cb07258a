package main

import (
	"fmt"
	"fsq/config"
	"fsq/feature"
	"fsq/geom"
	"fsq/importing"
	"fsq/index"
	ownIo "fsq/io"
	"fsq/match"
	"fsq/parser"
	"fsq/query"
	"fsq/web"
	"github.com/alecthomas/kong"
	"github.com/hauke96/sigolo/v2"
	"github.com/pkg/errors"
	"os"
	"strings"
	"time"
)

const VERSION = "v0.1.0"

var cli struct {
	Logging string      `help:"Logging verbosity." enum:"info,debug,trace" short:"l" default:"info"`
	Config  string      `help:"The YAML settings file. Default settings are used when it doesn't exist." short:"c" default:"fsq.yaml" type:"path"`
	Version VersionFlag `help:"Print version information and quit" name:"version" short:"v"`
	Import  struct {
		Input string `help:"The input file. Either .osm or .osm.pbf." placeholder:"<input-file>" arg:"" type:"existingfile"`
	} `cmd:"" help:"Imports the given OSM file into the feature store."`
	Query struct {
		Selector string       `help:"The selector, e.g. 'na[amenity=bench]'." placeholder:"<selector>" arg:""`
		Spatial  spatialFlags `embed:""`
		Output   string       `help:"The GeoJSON output file. The result is printed when not set." short:"o" type:"path"`
	} `cmd:"" help:"Returns all features matching the selector as GeoJSON."`
	Count struct {
		Selector string       `help:"The selector, e.g. 'na[amenity=bench]'." placeholder:"<selector>" arg:""`
		Spatial  spatialFlags `embed:""`
	} `cmd:"" help:"Counts the features matching the selector."`
	Explain struct {
		Selector string `help:"The selector, e.g. 'na[amenity=bench]'." placeholder:"<selector>" arg:""`
	} `cmd:"" help:"Prints the program the selector is compiled into."`
	Serve struct {
		Port string `help:"The port of the HTTP API." short:"p" default:"8080"`
	} `cmd:"" help:"Starts the HTTP API."`
}

type spatialFlags struct {
	Bbox       string `help:"Only features intersecting this box." placeholder:"<minLon,minLat,maxLon,maxLat>"`
	Around     string `help:"Only features within the given distance in meters of the position." placeholder:"<lon,lat,meters>"`
	Containing string `help:"Only areas containing the position." placeholder:"<lon,lat>"`
}

type VersionFlag string

func (v VersionFlag) Decode(ctx *kong.DecodeContext) error { return nil }
func (v VersionFlag) IsBool() bool                         { return true }
func (v VersionFlag) BeforeApply(app *kong.Kong, vars kong.Vars) error {
	fmt.Println(vars["version"])
	app.Exit(0)
	return nil
}

func main() {
	ctx := kong.Parse(
		&cli,
		kong.Name("fsq"),
		kong.Description("Selector queries on a tiled store of OSM features."),
		kong.Vars{
			"version": VERSION,
		},
	)

	if strings.ToLower(cli.Logging) == "debug" {
		sigolo.SetDefaultLogLevel(sigolo.LOG_DEBUG)
	} else if strings.ToLower(cli.Logging) == "trace" {
		sigolo.SetDefaultLogLevel(sigolo.LOG_TRACE)
	} else if strings.ToLower(cli.Logging) == "info" {
		sigolo.SetDefaultLogLevel(sigolo.LOG_INFO)
		sigolo.SetDefaultFormatFunctionAll(sigolo.LogPlain)
	} else {
		sigolo.SetDefaultFormatFunctionAll(sigolo.LogPlain)
		sigolo.Fatalf("Unknown logging level '%s'", cli.Logging)
	}

	settings, err := config.Load(cli.Config)
	sigolo.FatalCheck(err)

	switch ctx.Command() {
	case "import <input>":
		err = importing.ImportAndSave(cli.Import.Input, settings)
		sigolo.FatalCheck(err)
	case "query <selector>":
		view, closeStore := openView(settings)
		defer closeStore()

		view = filterView(view, cli.Query.Selector, cli.Query.Spatial)

		queryStartTime := time.Now()
		features, err := view.ToSlice()
		sigolo.FatalCheck(err)
		sigolo.Infof("Found %d features in %s", len(features), time.Since(queryStartTime))

		if cli.Query.Output != "" {
			err = ownIo.WriteFeaturesAsGeoJsonFile(features, cli.Query.Output)
		} else {
			err = ownIo.WriteFeaturesAsGeoJson(features, os.Stdout)
		}
		sigolo.FatalCheck(err)
	case "count <selector>":
		view, closeStore := openView(settings)
		defer closeStore()

		count, err := filterView(view, cli.Count.Selector, cli.Count.Spatial).Count()
		sigolo.FatalCheck(err)
		fmt.Println(count)
	case "explain <selector>":
		var resolver feature.StringResolver
		stringTable, err := index.LoadStringTable(settings.StoreFolder)
		if err != nil {
			sigolo.Infof("No string table found, all strings are compared as text: %v", err)
		} else {
			resolver = stringTable
		}

		program, err := match.Compile(cli.Explain.Selector, resolver)
		sigolo.FatalCheck(err)
		fmt.Printf("%s\n\n%s", program.Selector().String(), program.String())
	case "serve":
		view, closeStore := openView(settings)
		defer closeStore()

		err = web.StartServer(cli.Serve.Port, view)
		sigolo.FatalCheck(err)
	default:
		sigolo.Errorf("Unknown command '%s'", ctx.Command())
	}
}

func openView(settings *config.Settings) (*query.View, func()) {
	store, err := index.OpenTileStore(settings.StoreFolder, settings.TileCacheSize)
	sigolo.FatalCheck(err)

	view := query.NewView(store, query.Settings{
		Workers:          settings.Workers,
		ProgramCacheSize: settings.ProgramCacheSize,
	})
	return view, func() {
		err := store.Close()
		if err != nil {
			sigolo.Errorf("Unable to close store: %+v", err)
		}
	}
}

func filterView(view *query.View, selector string, spatial spatialFlags) *query.View {
	result, err := view.Filter(selector)
	var syntaxError *parser.QuerySyntaxError
	if errors.As(err, &syntaxError) {
		sigolo.Fatalf("Invalid selector: %s\n%s", syntaxError.Message, syntaxError.Pointer())
	}
	sigolo.FatalCheck(err)

	if spatial.Bbox != "" {
		box, err := geom.ParseLonLatBox(spatial.Bbox)
		sigolo.FatalCheck(err)
		result = result.In(box)
	}

	if spatial.Around != "" {
		position, meters, err := geom.ParseLonLatDistance(spatial.Around)
		sigolo.FatalCheck(err)
		result, err = result.Around(feature.AnonymousNode(position), meters)
		sigolo.FatalCheck(err)
	}

	if spatial.Containing != "" {
		position, err := geom.ParseLonLat(spatial.Containing)
		sigolo.FatalCheck(err)
		result, err = result.Containing(position)
		sigolo.FatalCheck(err)
	}

	result.Print(0)
	return result
}
