package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/buildsys/brick-api/brick"
	"github.com/buildsys/brick-api/config"
	"github.com/buildsys/brick-api/errors"
)

var (
	sampleOnce sync.Once
	sampleSvc  *brick.Service
	sampleErr  error
)

// setupService loads the sample buildings once for the whole package.
func setupService(t *testing.T) *brick.Service {
	t.Helper()
	sampleOnce.Do(func() {
		sampleSvc, sampleErr = brick.New(context.Background(), config.GraphConfig{Files: []string{
			filepath.Join("..", "assets", "campus_lab_1.ttl"),
			filepath.Join("..", "assets", "office_building_1.ttl"),
		}})
	})
	if sampleErr != nil {
		t.Fatalf("load sample graph: %v", sampleErr)
	}
	return sampleSvc
}

func newTestApp(t *testing.T) *App {
	return NewApp(setupService(t), config.ServerConfig{CORSOrigins: []string{"http://localhost:3000"}})
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
}

func wantDetail(t *testing.T, rec *httptest.ResponseRecorder, code int, detail string) {
	t.Helper()
	if rec.Code != code {
		t.Errorf("want %d, got %d (body %q)", code, rec.Code, rec.Body.String())
	}
	var out struct {
		Detail string `json:"detail"`
	}
	decode(t, rec, &out)
	if out.Detail != detail {
		t.Errorf("detail: want %q, got %q", detail, out.Detail)
	}
}

// stubBackend fails every call with err.
type stubBackend struct {
	ready bool
	err   error
}

func (s stubBackend) Ready() bool { return s.ready }
func (s stubBackend) Buildings(context.Context) ([]brick.Building, error) {
	return nil, s.err
}
func (s stubBackend) BuildingFloors(context.Context, string) ([]brick.Floor, error) {
	return nil, s.err
}
func (s stubBackend) BuildingDevices(context.Context, string, ...brick.ListOption) ([]brick.Device, error) {
	return nil, s.err
}
func (s stubBackend) FloorDevices(context.Context, string, string, ...brick.ListOption) ([]brick.Device, error) {
	return nil, s.err
}
func (s stubBackend) Points(context.Context, string) ([]brick.Point, error) {
	return nil, s.err
}
func (s stubBackend) DevicePoints(context.Context, string, string) ([]brick.Point, error) {
	return nil, s.err
}
func (s stubBackend) ExecuteRawQuery(context.Context, string) (brick.RawResult, error) {
	return brick.RawResult{}, s.err
}
func (s stubBackend) TripleCount(context.Context) (int, error) { return 0, s.err }
func (s stubBackend) Namespaces(context.Context) (map[string]string, error) {
	return nil, s.err
}

func TestAPI_Buildings(t *testing.T) {
	rec := serve(newTestApp(t).Handler(), http.MethodGet, "/api/v1/buildings", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/v1/buildings: want 200, got %d", rec.Code)
	}
	var buildings []brick.Building
	decode(t, rec, &buildings)
	names := map[string]string{}
	for _, b := range buildings {
		names[b.ID] = b.Name
	}
	if len(names) != 2 || names["campus_lab_1"] != "Campus Lab 1" || names["office_building_1"] != "Office Building 1" {
		t.Errorf("unexpected buildings: %+v", buildings)
	}
}

func TestAPI_Buildings_TrailingSlash(t *testing.T) {
	rec := serve(newTestApp(t).Handler(), http.MethodGet, "/api/v1/buildings/", "")
	if rec.Code != http.StatusOK {
		t.Errorf("GET /api/v1/buildings/: want 200, got %d", rec.Code)
	}
}

func TestAPI_Buildings_EmptyGraph(t *testing.T) {
	svc, err := brick.New(context.Background(), config.GraphConfig{Files: []string{
		filepath.Join("..", "brick", "testdata", "no_buildings.ttl"),
	}})
	if err != nil {
		t.Fatalf("load graph: %v", err)
	}
	defer svc.Close()
	rec := serve(NewApp(svc, config.ServerConfig{}).Handler(), http.MethodGet, "/api/v1/buildings", "")
	wantDetail(t, rec, http.StatusNotFound, "No buildings found")
}

func TestAPI_Floors(t *testing.T) {
	rec := serve(newTestApp(t).Handler(), http.MethodGet, "/api/v1/floors/campus_lab_1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/v1/floors/campus_lab_1: want 200, got %d", rec.Code)
	}
	var floors []brick.Floor
	decode(t, rec, &floors)
	if len(floors) != 2 || floors[0].ID != "floor1" || floors[1].ID != "floor2" {
		t.Fatalf("unexpected floors: %+v", floors)
	}
	for _, f := range floors {
		if f.BuildingID != "campus_lab_1" {
			t.Errorf("floor %s: building_id %q", f.ID, f.BuildingID)
		}
	}
}

func TestAPI_Floors_UnknownBuilding(t *testing.T) {
	rec := serve(newTestApp(t).Handler(), http.MethodGet, "/api/v1/floors/non_existent_building", "")
	wantDetail(t, rec, http.StatusNotFound, "No floors found for building non_existent_building")
}

func TestAPI_Floors_InvalidIdentifier(t *testing.T) {
	rec := serve(newTestApp(t).Handler(), http.MethodGet, "/api/v1/floors/bad%20id", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("GET /api/v1/floors/bad%%20id: want 400, got %d", rec.Code)
	}
}

func TestAPI_BuildingDevices(t *testing.T) {
	rec := serve(newTestApp(t).Handler(), http.MethodGet, "/api/v1/devices/building/campus_lab_1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	var devices []brick.Device
	decode(t, rec, &devices)
	if len(devices) != 8 {
		t.Fatalf("want 8 devices, got %d: %+v", len(devices), devices)
	}
	ahu := devices[0]
	if ahu.ID != "AHU1" || ahu.Type != "AHU" || ahu.Location == nil || *ahu.Location != "campus_lab_1" {
		t.Errorf("unexpected first device: %+v", ahu)
	}
	if ahu.Points == nil || len(ahu.Points) != 0 {
		t.Errorf("points should be an empty list without ?points, got %v", ahu.Points)
	}
}

func TestAPI_BuildingDevices_WithPoints(t *testing.T) {
	rec := serve(newTestApp(t).Handler(), http.MethodGet, "/api/v1/devices/building/campus_lab_1?points=true", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	var devices []brick.Device
	decode(t, rec, &devices)
	for _, d := range devices {
		if d.ID == "AHU1" && len(d.Points) != 3 {
			t.Errorf("AHU1 points: want 3, got %v", d.Points)
		}
	}
}

func TestAPI_BuildingDevices_BadPointsFlag(t *testing.T) {
	rec := serve(newTestApp(t).Handler(), http.MethodGet, "/api/v1/devices/building/campus_lab_1?points=maybe", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("want 400, got %d", rec.Code)
	}
}

func TestAPI_BuildingDevices_Unknown(t *testing.T) {
	rec := serve(newTestApp(t).Handler(), http.MethodGet, "/api/v1/devices/building/nowhere", "")
	wantDetail(t, rec, http.StatusNotFound, "No devices found in building nowhere")
}

func TestAPI_FloorDevices(t *testing.T) {
	rec := serve(newTestApp(t).Handler(), http.MethodGet, "/api/v1/devices/floor/campus_lab_1/floor1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	var devices []brick.Device
	decode(t, rec, &devices)
	if len(devices) != 4 {
		t.Fatalf("want 4 devices, got %+v", devices)
	}
	for _, d := range devices {
		if d.Location == nil || *d.Location != "floor1" {
			t.Errorf("device %s: location should be floor1", d.ID)
		}
	}
}

func TestAPI_FloorDevices_Unknown(t *testing.T) {
	rec := serve(newTestApp(t).Handler(), http.MethodGet, "/api/v1/devices/floor/campus_lab_1/floor9", "")
	wantDetail(t, rec, http.StatusNotFound, "No devices found on floor floor9 in building campus_lab_1")
}

func TestAPI_Points(t *testing.T) {
	h := newTestApp(t).Handler()
	rec := serve(h, http.MethodGet, "/api/v1/points/campus_lab_1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	var points []brick.Point
	decode(t, rec, &points)
	if len(points) != 10 {
		t.Errorf("want 10 points, got %d", len(points))
	}

	rec = serve(h, http.MethodGet, "/api/v1/points/device/campus_lab_1/AHU1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	decode(t, rec, &points)
	if len(points) != 3 || points[0].Device == nil || *points[0].Device != "AHU1" {
		t.Errorf("unexpected AHU1 points: %+v", points)
	}

	rec = serve(h, http.MethodGet, "/api/v1/points/device/campus_lab_1/FH102", "")
	wantDetail(t, rec, http.StatusNotFound, "No points found for device FH102 in building campus_lab_1")
}

func TestAPI_Query(t *testing.T) {
	h := newTestApp(t).Handler()

	rec := serve(h, http.MethodGet, "/api/v1/query/triples/count", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET triples/count: want 200, got %d", rec.Code)
	}
	var count struct {
		Count int `json:"count"`
	}
	decode(t, rec, &count)
	if count.Count == 0 {
		t.Fatal("triple count should be positive")
	}

	rec = serve(h, http.MethodPost, "/api/v1/query", `{"query": "SELECT (COUNT(*) AS ?n) WHERE { ?s ?p ?o }"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/v1/query: want 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if _, err := uuid.Parse(rec.Header().Get("X-Query-Id")); err != nil {
		t.Errorf("X-Query-Id should be a uuid: %v", err)
	}
	var res brick.RawResult
	decode(t, rec, &res)
	if len(res.Results) != 1 {
		t.Fatalf("want one row, got %+v", res.Results)
	}
	if n, _ := res.Results[0]["n"].(string); n == "" || n != strconv.Itoa(count.Count) {
		t.Errorf("COUNT(*) = %v, triples/count = %d", res.Results[0]["n"], count.Count)
	}
}

func TestAPI_Query_Ask(t *testing.T) {
	rec := serve(newTestApp(t).Handler(), http.MethodPost, "/api/v1/query/",
		`{"query": "ASK { brick:VAV rdfs:subClassOf* brick:Equipment }"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var res brick.RawResult
	decode(t, rec, &res)
	if len(res.Results) != 1 || res.Results[0]["result"] != true {
		t.Errorf("unexpected ASK result: %+v", res.Results)
	}
}

func TestAPI_Query_Error(t *testing.T) {
	h := newTestApp(t).Handler()
	rec := serve(h, http.MethodPost, "/api/v1/query", `{"query": "SELECT ?s WHERE { ?s ?p ?o"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", rec.Code)
	}
	var out detail
	decode(t, rec, &out)
	if !strings.HasPrefix(out.Detail, "Query error: ") {
		t.Errorf("detail should start with 'Query error: ', got %q", out.Detail)
	}

	rec = serve(h, http.MethodPost, "/api/v1/query", `{"query": `)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body: want 400, got %d", rec.Code)
	}
}

func TestAPI_Query_RateLimited(t *testing.T) {
	app := NewApp(setupService(t), config.ServerConfig{QueryRateLimit: 0.001, QueryBurst: 1})
	h := app.Handler()
	body := `{"query": "ASK { ?s ?p ?o }"}`
	if rec := serve(h, http.MethodPost, "/api/v1/query", body); rec.Code != http.StatusOK {
		t.Fatalf("first query: want 200, got %d", rec.Code)
	}
	rec := serve(h, http.MethodPost, "/api/v1/query", body)
	wantDetail(t, rec, http.StatusTooManyRequests, "Query rate limit exceeded")
}

func TestAPI_Namespaces(t *testing.T) {
	rec := serve(newTestApp(t).Handler(), http.MethodGet, "/api/v1/query/namespaces", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	var out struct {
		Namespaces map[string]string `json:"namespaces"`
	}
	decode(t, rec, &out)
	if out.Namespaces["brick"] != "https://brickschema.org/schema/Brick#" {
		t.Errorf("brick namespace missing: %v", out.Namespaces)
	}
}

func TestAPI_Health(t *testing.T) {
	rec := serve(newTestApp(t).Handler(), http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	var out map[string]string
	decode(t, rec, &out)
	if out["status"] != "healthy" {
		t.Errorf("status: want healthy, got %q", out["status"])
	}

	rec = serve(NewApp(stubBackend{}, config.ServerConfig{}).Handler(), http.MethodGet, "/health", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("not ready: want 503, got %d", rec.Code)
	}
}

func TestAPI_BackendErrors(t *testing.T) {
	h := NewApp(stubBackend{ready: true, err: errors.New("disk on fire")}, config.ServerConfig{}).Handler()
	wantDetail(t, serve(h, http.MethodGet, "/api/v1/buildings", ""), http.StatusInternalServerError, "disk on fire")

	h = NewApp(stubBackend{ready: false, err: errors.ErrNotReady}, config.ServerConfig{}).Handler()
	if rec := serve(h, http.MethodGet, "/api/v1/floors/x", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("not ready: want 503, got %d", rec.Code)
	}
	if rec := serve(h, http.MethodPost, "/api/v1/query", `{"query": "ASK {}"}`); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("query while not ready: want 503, got %d", rec.Code)
	}
}

func TestAPI_CORS(t *testing.T) {
	h := newTestApp(t).Handler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if origin := rec.Header().Get("Access-Control-Allow-Origin"); origin != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin: want http://localhost:3000, got %q", origin)
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/query", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight: want 204, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if origin := rec.Header().Get("Access-Control-Allow-Origin"); origin != "" {
		t.Errorf("unlisted origin should not be allowed, got %q", origin)
	}
}

func TestAPI_CORSWildcard(t *testing.T) {
	app := NewApp(setupService(t), config.ServerConfig{CORSOrigins: []string{"*", "http://localhost:3000"}})
	h := app.Handler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://other.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if origin := rec.Header().Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("Access-Control-Allow-Origin: want *, got %q", origin)
	}
	if cred := rec.Header().Get("Access-Control-Allow-Credentials"); cred != "" {
		t.Errorf("wildcard origin must not allow credentials, got %q", cred)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if origin := rec.Header().Get("Access-Control-Allow-Origin"); origin != "http://localhost:3000" {
		t.Errorf("listed origin: want echo, got %q", origin)
	}
	if cred := rec.Header().Get("Access-Control-Allow-Credentials"); cred != "true" {
		t.Errorf("listed origin: want credentials, got %q", cred)
	}
}

func TestAPI_ContentType(t *testing.T) {
	rec := serve(newTestApp(t).Handler(), http.MethodGet, "/api/v1/buildings", "")
	ct := rec.Header().Get("Content-Type")
	if ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type: want application/json; charset=utf-8, got %q", ct)
	}
}

func TestAPI_Metrics(t *testing.T) {
	h := newTestApp(t).Handler()
	serve(h, http.MethodGet, "/api/v1/buildings", "")
	rec := serve(h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics: want 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `brick_http_requests_total{code="200",route="/api/v1/buildings"}`) {
		t.Error("request counter for /api/v1/buildings missing")
	}
}

func TestAPI_NotFound(t *testing.T) {
	rec := serve(newTestApp(t).Handler(), http.MethodGet, "/api/v2/buildings", "")
	wantDetail(t, rec, http.StatusNotFound, "Not Found")
}
