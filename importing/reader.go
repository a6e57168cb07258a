package importing

import (
	"context"
	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"github.com/pkg/errors"
	"os"
	"strings"
	"time"
)

// passHandler consumes the objects of one pass over OSM data. Objects arrive in file order, which for OSM files means
// all nodes, then all ways, then all relations.
type passHandler interface {
	Name() string
	Init() error
	HandleNode(node *osm.Node) error
	HandleWay(way *osm.Way) error
	HandleRelation(relation *osm.Relation) error
	Done() error
}

func IsSupportedFile(filename string) bool {
	return strings.HasSuffix(filename, ".osm") || strings.HasSuffix(filename, ".pbf")
}

// readFile opens the .osm or .pbf file and runs one pass over it.
func readFile(filename string, handlers ...passHandler) error {
	if !IsSupportedFile(filename) {
		return errors.Errorf("Input file %s must be an .osm or .pbf file", filename)
	}

	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrapf(err, "Unable to open OSM input file %s", filename)
	}
	defer file.Close()

	var scanner osm.Scanner
	if strings.HasSuffix(filename, ".osm") {
		scanner = osmxml.New(context.Background(), file)
	} else {
		scanner = osmpbf.New(context.Background(), file, 1)
	}
	return readScanner(scanner, filename, handlers...)
}

// readScanner passes every object of the scanner to all handlers and closes the scanner afterwards.
func readScanner(scanner osm.Scanner, name string, handlers ...passHandler) error {
	defer scanner.Close()

	sigolo.Infof("Start pass over OSM data %s", name)
	passStartTime := time.Now()

	for _, handler := range handlers {
		if err := handler.Init(); err != nil {
			return errors.Wrapf(err, "Unable to initialize handler '%s'", handler.Name())
		}
	}

	counts := map[osm.Type]int{}
	var currentType osm.Type
	for scanner.Scan() {
		object := scanner.Object()
		if object.ObjectID().Type() != currentType {
			currentType = object.ObjectID().Type()
			sigolo.Debugf("Start processing objects of type %s", currentType)
		}
		counts[currentType]++

		for _, handler := range handlers {
			if err := dispatch(handler, object); err != nil {
				return errors.Wrapf(err, "Handler '%s' failed on %s", handler.Name(), object.ObjectID().String())
			}
		}
	}
	if scanner.Err() != nil {
		return errors.Wrapf(scanner.Err(), "Unable to read OSM data %s", name)
	}

	for _, handler := range handlers {
		if err := handler.Done(); err != nil {
			return errors.Wrapf(err, "Unable to finish handler '%s'", handler.Name())
		}
	}

	sigolo.Infof("Finished pass over %d nodes, %d ways and %d relations in %s", counts[osm.TypeNode], counts[osm.TypeWay], counts[osm.TypeRelation], time.Since(passStartTime))
	return nil
}

func dispatch(handler passHandler, object osm.Object) error {
	switch o := object.(type) {
	case *osm.Node:
		return handler.HandleNode(o)
	case *osm.Way:
		return handler.HandleWay(o)
	case *osm.Relation:
		return handler.HandleRelation(o)
	}
	return nil
}
