package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/star/horizons/internal/client"
	"github.com/star/horizons/internal/horizons"
	"github.com/star/horizons/internal/httputil"
	"github.com/star/horizons/internal/units"
)

// maxWindow bounds a single ephemeris request.
const maxWindow = 366 * 24 * time.Hour

// writeJSON encodes v before writing the header so an encoding failure can
// still be answered with an error status. Only encoding errors are returned.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
	return nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	_ = writeJSON(w, status, map[string]string{"error": msg})
}

// writeOK writes a 200 response, or a 500 when v does not encode, e.g. a
// NaN decoded from the upstream text.
func writeOK(w http.ResponseWriter, r *http.Request, logger *slog.Logger, v any) {
	if err := writeJSON(w, http.StatusOK, v); err != nil {
		logger.Error("encoding response",
			"component", "api",
			"path", r.URL.Path,
			"request_id", httputil.RequestIDFrom(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "response could not be encoded")
	}
}

// upstreamStatus maps a Source error to the response status.
func upstreamStatus(err error) int {
	var apiErr *client.APIError
	switch {
	case errors.Is(err, horizons.ErrPropertyNotFound):
		return http.StatusNotFound
	case errors.As(err, &apiErr):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeUpstreamError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := upstreamStatus(err)
	level := slog.LevelWarn
	if status == http.StatusNotFound {
		level = slog.LevelDebug
	}
	logger.Log(r.Context(), level, "upstream error",
		"component", "api",
		"path", r.URL.Path,
		"status", status,
		"request_id", httputil.RequestIDFrom(r.Context()),
		"error", err,
	)
	writeError(w, status, err.Error())
}

func bodyID(r *http.Request) (int, error) {
	raw := r.PathValue("id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid body id %q", raw)
	}
	return id, nil
}

// windowParams reads start, stop and step. step is a Go duration such as
// "1h" or "10m"; it is omitted from the query when absent.
func windowParams(r *http.Request) (client.Window, error) {
	q := r.URL.Query()
	if q.Get("start") == "" || q.Get("stop") == "" {
		return client.Window{}, errors.New("start and stop are required")
	}

	start, err := client.ParseTime(q.Get("start"))
	if err != nil {
		return client.Window{}, fmt.Errorf("invalid start: %w", err)
	}
	stop, err := client.ParseTime(q.Get("stop"))
	if err != nil {
		return client.Window{}, fmt.Errorf("invalid stop: %w", err)
	}
	w := client.Window{Start: start, Stop: stop}
	if err := w.Validate(); err != nil {
		return client.Window{}, err
	}
	if w.Stop.Sub(w.Start) > maxWindow {
		return client.Window{}, fmt.Errorf("window exceeds maximum of %s", maxWindow)
	}

	if v := q.Get("step"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return client.Window{}, fmt.Errorf("invalid step %q", v)
		}
		if w.Step, err = client.StepSize(d); err != nil {
			return client.Window{}, err
		}
	}
	return w, nil
}

func wantSI(r *http.Request) (bool, error) {
	switch v := r.URL.Query().Get("units"); v {
	case "", "native":
		return false, nil
	case "si":
		return true, nil
	default:
		return false, fmt.Errorf("invalid units %q, want native or si", v)
	}
}

type bodiesResponse struct {
	Count  int             `json:"count"`
	Bodies []horizons.Body `json:"bodies"`
}

func bodiesHandler(logger *slog.Logger, src Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bodies, err := src.Bodies(r.Context())
		if err != nil {
			writeUpstreamError(w, r, logger, err)
			return
		}

		if name := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("name"))); name != "" {
			filtered := bodies[:0:0]
			for _, b := range bodies {
				if strings.Contains(strings.ToLower(b.Name), name) {
					filtered = append(filtered, b)
				}
			}
			bodies = filtered
		}
		if bodies == nil {
			bodies = []horizons.Body{}
		}
		writeOK(w, r, logger, bodiesResponse{Count: len(bodies), Bodies: bodies})
	}
}

type ephemerisResponse[T any] struct {
	ID    int    `json:"id"`
	Units string `json:"units"`
	Count int    `json:"count"`
	Items []T    `json:"items"`
}

func newEphemerisResponse[T any](id int, unitSystem string, items []T) ephemerisResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ephemerisResponse[T]{ID: id, Units: unitSystem, Count: len(items), Items: items}
}

// ephemerisRequest parses the parameters shared by the vectors and elements
// routes, writing a 400 and returning ok=false on failure.
func ephemerisRequest(w http.ResponseWriter, r *http.Request) (id int, win client.Window, si bool, ok bool) {
	var err error
	if id, err = bodyID(r); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, client.Window{}, false, false
	}
	if win, err = windowParams(r); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, client.Window{}, false, false
	}
	if si, err = wantSI(r); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, client.Window{}, false, false
	}
	return id, win, si, true
}

func vectorsHandler(logger *slog.Logger, src Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, win, si, ok := ephemerisRequest(w, r)
		if !ok {
			return
		}

		items, err := src.Vectors(r.Context(), id, win)
		if err != nil {
			writeUpstreamError(w, r, logger, err)
			return
		}
		if si {
			writeOK(w, r, logger, newEphemerisResponse(id, "si", units.Vectors(items)))
			return
		}
		writeOK(w, r, logger, newEphemerisResponse(id, "native", items))
	}
}

func elementsHandler(logger *slog.Logger, src Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, win, si, ok := ephemerisRequest(w, r)
		if !ok {
			return
		}

		items, err := src.Elements(r.Context(), id, win)
		if err != nil {
			writeUpstreamError(w, r, logger, err)
			return
		}
		if si {
			writeOK(w, r, logger, newEphemerisResponse(id, "si", units.ElementSets(items)))
			return
		}
		writeOK(w, r, logger, newEphemerisResponse(id, "native", items))
	}
}

type propertiesResponse struct {
	ID     int     `json:"id"`
	MassKg float64 `json:"mass_kg"`
}

func propertiesHandler(logger *slog.Logger, src Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := bodyID(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		props, err := src.Properties(r.Context(), id)
		if err != nil {
			writeUpstreamError(w, r, logger, err)
			return
		}
		writeOK(w, r, logger, propertiesResponse{ID: id, MassKg: props.Mass})
	}
}
