package web

import (
	"encoding/json"
	"fsq/feature"
	"fsq/filter"
	"fsq/geom"
	ownIo "fsq/io"
	"fsq/parser"
	"fsq/query"
	"fsq/util"
	"github.com/gorilla/mux"
	"github.com/hauke96/sigolo/v2"
	"github.com/pkg/errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"
)

const maxLengthOfLoggedSelector = 10000

// ErrorResponse is the JSON body of failed requests. Offset and Pointer are only set for syntax errors.
type ErrorResponse struct {
	Message string `json:"message"`
	Offset  *int   `json:"offset,omitempty"`
	Pointer string `json:"pointer,omitempty"`
}

type CountResponse struct {
	Count int `json:"count"`
}

func StartServer(port string, view *query.View) error {
	r := NewRouter(view)
	sigolo.Infof("Start server on port %s", port)
	return http.ListenAndServe(":"+port, r)
}

// NewRouter creates the routes of the HTTP API. All queries are evaluated on the given view.
func NewRouter(view *query.View) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/query", func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Access-Control-Allow-Origin", "*")

		selectorBytes, err := io.ReadAll(request.Body)
		if err != nil {
			writeError(writer, http.StatusInternalServerError, errors.Wrap(err, "Error reading HTTP body"))
			return
		}

		result, err := filterView(view, string(selectorBytes), request)
		if err != nil {
			writeError(writer, statusOf(err), err)
			return
		}

		limit, err := parseLimit(request)
		if err != nil {
			writeError(writer, http.StatusBadRequest, err)
			return
		}

		queryStartTime := time.Now()
		features, err := result.Slice(0, limit)
		if err != nil {
			writeError(writer, statusOf(err), err)
			return
		}
		sigolo.Infof("Found %d features in %s", len(features), time.Since(queryStartTime))

		writer.Header().Set("Content-Type", "application/geo+json")
		err = ownIo.WriteFeaturesAsGeoJson(features, writer)
		if err != nil {
			sigolo.Errorf("Error writing query result: %+v", err)
		}
	}).Methods(http.MethodPost)

	r.HandleFunc("/count", func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Access-Control-Allow-Origin", "*")

		result, err := filterView(view, request.URL.Query().Get("selector"), request)
		if err != nil {
			writeError(writer, statusOf(err), err)
			return
		}

		count, err := result.Count()
		if err != nil {
			writeError(writer, statusOf(err), err)
			return
		}

		writeJson(writer, http.StatusOK, &CountResponse{Count: count})
	}).Methods(http.MethodGet)

	return r
}

// filterView applies the selector and the optional spatial parameters of the request: "bbox" (minLon,minLat,maxLon,
// maxLat), "around" (lon,lat,meters) and "containing" (lon,lat).
func filterView(view *query.View, selector string, request *http.Request) (*query.View, error) {
	sigolo.Infof("Selector: %s", util.LogTruncated(selector, maxLengthOfLoggedSelector))

	result, err := view.Filter(selector)
	if err != nil {
		return nil, err
	}

	parameters := request.URL.Query()
	if bbox := parameters.Get("bbox"); bbox != "" {
		box, err := geom.ParseLonLatBox(bbox)
		if err != nil {
			return nil, &badRequestError{err}
		}
		result = result.In(box)
	}

	if around := parameters.Get("around"); around != "" {
		position, meters, err := geom.ParseLonLatDistance(around)
		if err != nil {
			return nil, &badRequestError{err}
		}
		result, err = result.Around(feature.AnonymousNode(position), meters)
		if err != nil {
			return nil, err
		}
	}

	if containing := parameters.Get("containing"); containing != "" {
		position, err := geom.ParseLonLat(containing)
		if err != nil {
			return nil, &badRequestError{err}
		}
		result, err = result.Containing(position)
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}

func parseLimit(request *http.Request) (int, error) {
	limitString := request.URL.Query().Get("limit")
	if limitString == "" {
		return math.MaxInt, nil
	}
	limit, err := strconv.Atoi(limitString)
	if err != nil || limit < 0 {
		return 0, errors.Errorf("Invalid limit '%s'", limitString)
	}
	return limit, nil
}

type badRequestError struct {
	error
}

func statusOf(err error) int {
	var syntaxError *parser.QuerySyntaxError
	var typeMismatch *filter.TypeMismatchError
	var badRequest *badRequestError
	if errors.As(err, &syntaxError) || errors.As(err, &typeMismatch) || errors.As(err, &badRequest) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeError(writer http.ResponseWriter, status int, err error) {
	sigolo.Errorf("Error handling request: %+v", err)

	response := &ErrorResponse{Message: err.Error()}
	var syntaxError *parser.QuerySyntaxError
	if errors.As(err, &syntaxError) {
		response.Offset = &syntaxError.Offset
		response.Pointer = syntaxError.Pointer()
	}
	writeJson(writer, status, response)
}

func writeJson(writer http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		sigolo.Errorf("Error marshalling response: %+v", err)
		writer.WriteHeader(http.StatusInternalServerError)
		return
	}

	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	_, err = writer.Write(data)
	if err != nil {
		sigolo.Errorf("Error writing response: %+v", err)
	}
}
