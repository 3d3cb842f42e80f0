package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/star/horizons/internal/auth"
	"github.com/star/horizons/internal/client"
	"github.com/star/horizons/internal/health"
	"github.com/star/horizons/internal/horizons"
	"github.com/star/horizons/internal/httputil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// fakeSource records the last window and serves canned data.
type fakeSource struct {
	bodies   []horizons.Body
	vectors  []horizons.VectorItem
	elements []horizons.OrbitalElementsItem
	props    horizons.Properties
	err      error

	lastID     int
	lastWindow client.Window
}

func (f *fakeSource) Bodies(ctx context.Context) ([]horizons.Body, error) {
	return f.bodies, f.err
}

func (f *fakeSource) Vectors(ctx context.Context, id int, w client.Window) ([]horizons.VectorItem, error) {
	f.lastID, f.lastWindow = id, w
	return f.vectors, f.err
}

func (f *fakeSource) Elements(ctx context.Context, id int, w client.Window) ([]horizons.OrbitalElementsItem, error) {
	f.lastID, f.lastWindow = id, w
	return f.elements, f.err
}

func (f *fakeSource) Properties(ctx context.Context, id int) (horizons.Properties, error) {
	f.lastID = id
	return f.props, f.err
}

func newTestHandler(src Source, opts Options) http.Handler {
	readiness := &health.Readiness{}
	readiness.SetReady(true)
	return newHandler(testLogger(), src, readiness, opts)
}

func get(t *testing.T, h http.Handler, target string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

var testTime = time.Date(2022, 8, 13, 19, 55, 56, 0, time.UTC)

func TestBodies(t *testing.T) {
	src := &fakeSource{bodies: []horizons.Body{
		{ID: 10, Name: "Sun"},
		{ID: 399, Name: "Earth"},
		{ID: 3, Name: "Earth-Moon Barycenter"},
	}}
	h := newTestHandler(src, Options{})

	tests := []struct {
		query     string
		wantCount int
	}{
		{"", 3},
		{"?name=earth", 2},
		{"?name=SUN", 1},
		{"?name=pluto", 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := get(t, h, "/api/v1/bodies"+tt.query)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", w.Code)
			}
			resp := decode[bodiesResponse](t, w)
			if resp.Count != tt.wantCount || len(resp.Bodies) != tt.wantCount {
				t.Errorf("count = %d/%d, want %d", resp.Count, len(resp.Bodies), tt.wantCount)
			}
		})
	}
}

// TestVectorsParams verifies the window handed to the source and the
// native/SI rendering.
func TestVectorsParams(t *testing.T) {
	src := &fakeSource{vectors: []horizons.VectorItem{
		{Time: testTime, Position: [3]float64{1, 2, 3}, Velocity: [3]float64{0.1, 0.2, 0.3}},
	}}
	h := newTestHandler(src, Options{})

	w := get(t, h, "/api/v1/bodies/301/vectors?start=2022-08-13T19:55:56Z&stop=2022-08-13%2023:55:56&step=1h")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if src.lastID != 301 {
		t.Errorf("id = %d, want 301", src.lastID)
	}
	if !src.lastWindow.Start.Equal(testTime) || !src.lastWindow.Stop.Equal(testTime.Add(4*time.Hour)) {
		t.Errorf("window = %+v", src.lastWindow)
	}
	if src.lastWindow.Step != "1 h" {
		t.Errorf("step = %q, want \"1 h\"", src.lastWindow.Step)
	}

	resp := decode[ephemerisResponse[horizons.VectorItem]](t, w)
	if resp.Units != "native" || resp.Count != 1 || resp.Items[0].Position != [3]float64{1, 2, 3} {
		t.Errorf("native response = %+v", resp)
	}

	w = get(t, h, "/api/v1/bodies/301/vectors?start=2022-08-13&stop=2022-08-14&units=si")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var si struct {
		Units string `json:"units"`
		Items []struct {
			Position [3]float64 `json:"position_m"`
		} `json:"items"`
	}
	if err := json.NewDecoder(w.Body).Decode(&si); err != nil {
		t.Fatal(err)
	}
	if si.Units != "si" || si.Items[0].Position != [3]float64{1000, 2000, 3000} {
		t.Errorf("si response = %+v", si)
	}
	if src.lastWindow.Step != "" {
		t.Errorf("step = %q, want empty", src.lastWindow.Step)
	}
}

func TestElements(t *testing.T) {
	src := &fakeSource{elements: []horizons.OrbitalElementsItem{
		{Time: testTime, Eccentricity: 0.0167, Inclination: 180, SemiMajorAxis: 1.496e8,
			TimeOfPeriapsis: 2451545.0, SiderealPeriod: 3.15581e7},
	}}
	h := newTestHandler(src, Options{})

	w := get(t, h, "/api/v1/bodies/399/elements?start=2022-06-19&stop=2022-06-20&units=si")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Count int `json:"count"`
		Items []struct {
			Eccentricity      float64   `json:"eccentricity"`
			Inclination       float64   `json:"inclination_rad"`
			SemiMajorAxis     float64   `json:"semi_major_axis_m"`
			TimeOfPeriapsis   time.Time `json:"time_of_periapsis"`
			TimeOfPeriapsisJD float64   `json:"time_of_periapsis_jd"`
			SiderealPeriod    float64   `json:"sidereal_period_s"`
		} `json:"items"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 1 || resp.Items[0].SemiMajorAxis != 1.496e11 || resp.Items[0].Eccentricity != 0.0167 {
		t.Errorf("response = %+v", resp)
	}
	if d := resp.Items[0].Inclination - 3.141592653589793; d > 1e-12 || d < -1e-12 {
		t.Errorf("inclination = %v, want pi", resp.Items[0].Inclination)
	}
	item := resp.Items[0]
	if item.TimeOfPeriapsisJD != 2451545.0 || item.SiderealPeriod != 3.15581e7 {
		t.Errorf("item = %+v", item)
	}
	if want := time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC); item.TimeOfPeriapsis.Sub(want).Abs() > time.Millisecond {
		t.Errorf("time of periapsis = %v, want %v", item.TimeOfPeriapsis, want)
	}
}

// TestElementsPeriapsisOutOfRange verifies a Tp with no representable
// instant still encodes, carrying only the Julian day.
func TestElementsPeriapsisOutOfRange(t *testing.T) {
	src := &fakeSource{elements: []horizons.OrbitalElementsItem{{Eccentricity: 0.0167}}}
	h := newTestHandler(src, Options{})

	w := get(t, h, "/api/v1/bodies/399/elements?start=2022-06-19&stop=2022-06-20&units=si")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode[struct {
		Items []map[string]json.RawMessage `json:"items"`
	}](t, w)
	if len(resp.Items) != 1 {
		t.Fatalf("items = %v", resp.Items)
	}
	if _, ok := resp.Items[0]["time_of_periapsis"]; ok {
		t.Errorf("time_of_periapsis = %s, want omitted", resp.Items[0]["time_of_periapsis"])
	}
	if string(resp.Items[0]["time_of_periapsis_jd"]) != "0" {
		t.Errorf("time_of_periapsis_jd = %s, want 0", resp.Items[0]["time_of_periapsis_jd"])
	}
}

// TestUnencodableResponse verifies a value JSON cannot represent gives a 500
// with a body rather than an empty 200.
func TestUnencodableResponse(t *testing.T) {
	src := &fakeSource{elements: []horizons.OrbitalElementsItem{{Eccentricity: math.NaN()}}}
	h := newTestHandler(src, Options{})

	w := get(t, h, "/api/v1/bodies/399/elements?start=2022-06-19&stop=2022-06-20")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if body := decode[map[string]string](t, w); body["error"] == "" {
		t.Errorf("body = %v, want an error message", body)
	}
}

func TestEmptyItemsRenderAsArray(t *testing.T) {
	h := newTestHandler(&fakeSource{}, Options{})
	w := get(t, h, "/api/v1/bodies/399/vectors?start=2022-06-19&stop=2022-06-20")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	raw := decode[map[string]json.RawMessage](t, w)
	if string(raw["items"]) != "[]" {
		t.Errorf("items = %s, want []", raw["items"])
	}
}

// TestBadRequests verifies parameter validation happens before any upstream call.
func TestBadRequests(t *testing.T) {
	h := newTestHandler(&fakeSource{}, Options{})

	tests := []struct {
		name  string
		path  string
		query string
	}{
		{"non-numeric id", "/api/v1/bodies/earth/vectors", "?start=2022-01-01&stop=2022-01-02"},
		{"missing start", "/api/v1/bodies/399/vectors", "?stop=2022-01-02"},
		{"missing stop", "/api/v1/bodies/399/elements", "?start=2022-01-01"},
		{"bad start", "/api/v1/bodies/399/vectors", "?start=yesterday&stop=2022-01-02"},
		{"stop before start", "/api/v1/bodies/399/vectors", "?start=2022-01-02&stop=2022-01-01"},
		{"window too long", "/api/v1/bodies/399/vectors", "?start=2020-01-01&stop=2022-01-01"},
		{"bad step", "/api/v1/bodies/399/vectors", "?start=2022-01-01&stop=2022-01-02&step=often"},
		{"sub-minute step", "/api/v1/bodies/399/vectors", "?start=2022-01-01&stop=2022-01-02&step=30s"},
		{"bad units", "/api/v1/bodies/399/elements", "?start=2022-01-01&stop=2022-01-02&units=imperial"},
		{"properties bad id", "/api/v1/bodies/x/properties", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, h, tt.path+tt.query)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			resp := decode[map[string]string](t, w)
			if resp["error"] == "" {
				t.Error("expected error message in response body")
			}
		})
	}
}

func TestUpstreamErrors(t *testing.T) {
	recErr := fmt.Errorf("decoding vectors of 301: %w",
		&horizons.MalformedRecordError{Product: "vectors", Line: 8, Err: &horizons.UnexpectedPrefixError{Label: " X =", Text: " Q ="}})

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"property missing", fmt.Errorf("decoding properties of 0: %w", horizons.ErrPropertyNotFound), http.StatusNotFound},
		{"horizons rejected query", &client.APIError{Message: "No matches found."}, http.StatusBadRequest},
		{"malformed record", recErr, http.StatusBadGateway},
		{"upstream failure", errors.New("querying horizons vectors after 3 attempt(s): boom"), http.StatusBadGateway},
		{"timeout", fmt.Errorf("fetching horizons data: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(&fakeSource{err: tt.err}, Options{})
			for _, path := range []string{
				"/api/v1/bodies/0/properties",
				"/api/v1/bodies/301/vectors?start=2022-01-01&stop=2022-01-02",
			} {
				w := get(t, h, path)
				if w.Code != tt.wantStatus {
					t.Errorf("%s: status = %d, want %d", path, w.Code, tt.wantStatus)
				}
			}
		})
	}
}

func TestProperties(t *testing.T) {
	h := newTestHandler(&fakeSource{props: horizons.Properties{Mass: 5.97219e24}}, Options{})
	w := get(t, h, "/api/v1/bodies/399/properties")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decode[propertiesResponse](t, w)
	if resp.ID != 399 || resp.MassKg != 5.97219e24 {
		t.Errorf("response = %+v", resp)
	}
}

// TestAuthChain verifies the auth middleware is wired in and probes stay public.
func TestAuthChain(t *testing.T) {
	h := newTestHandler(&fakeSource{}, Options{Auth: auth.Config{Enabled: true, Token: "tok"}})

	tests := []struct {
		path       string
		header     []string
		wantStatus int
	}{
		{"/api/v1/bodies", nil, http.StatusUnauthorized},
		{"/api/v1/bodies", []string{"Authorization", "Bearer tok"}, http.StatusOK},
		{"/healthz", nil, http.StatusOK},
		{"/readyz", nil, http.StatusOK},
		{"/metrics", nil, http.StatusOK},
	}
	for _, tt := range tests {
		w := get(t, h, tt.path, tt.header...)
		if w.Code != tt.wantStatus {
			t.Errorf("%s: status = %d, want %d", tt.path, w.Code, tt.wantStatus)
		}
	}
}

func TestRequestIDHeader(t *testing.T) {
	h := newTestHandler(&fakeSource{}, Options{})

	w := get(t, h, "/healthz", httputil.RequestIDHeader, "trace-42")
	if got := w.Header().Get(httputil.RequestIDHeader); got != "trace-42" {
		t.Errorf("request id = %q, want trace-42", got)
	}

	w = get(t, h, "/healthz")
	if w.Header().Get(httputil.RequestIDHeader) == "" {
		t.Error("expected a generated request id")
	}
}

// TestShutdownFailsReadiness verifies readyz flips to 503 once shutdown begins.
func TestShutdownFailsReadiness(t *testing.T) {
	s := NewServer("127.0.0.1:0", testLogger(), &fakeSource{}, Options{})
	s.readiness.SetReady(true)

	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	w := get(t, s.HTTPServer().Handler, "/readyz")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

// TestListenFailureNotReady verifies readyz stays 503 when the address
// cannot be bound.
func TestListenFailureNotReady(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	s := NewServer(ln.Addr().String(), testLogger(), &fakeSource{}, Options{})
	if err := s.ListenAndServe(); err == nil {
		t.Fatal("expected an error binding an address in use")
	}
	if w := get(t, s.HTTPServer().Handler, "/readyz"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestServeMarksReady(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	s := NewServer(ln.Addr().String(), testLogger(), &fakeSource{}, Options{})
	if w := get(t, s.HTTPServer().Handler, "/readyz"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("status before serve = %d, want 503", w.Code)
	}

	done := make(chan error, 1)
	go func() { done <- s.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/readyz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status while serving = %d, want 200", resp.StatusCode)
	}

	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if err := <-done; !errors.Is(err, http.ErrServerClosed) {
		t.Errorf("serve returned %v, want ErrServerClosed", err)
	}
}
