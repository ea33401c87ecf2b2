package brick

import (
	"context"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/buildsys/brick-api/config"
	"github.com/buildsys/brick-api/errors"
	"github.com/buildsys/brick-api/graph"
)

func TestMain(m *testing.M) {
	// knakk/rdf's lexer goroutine stays parked on its token channel after the
	// parser gives up on a malformed file.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("github.com/knakk/rdf.(*lexer).emit"))
}

var sampleFiles = []string{
	filepath.Join("..", "assets", "campus_lab_1.ttl"),
	filepath.Join("..", "assets", "office_building_1.ttl"),
}

func newService(t *testing.T, files ...string) *Service {
	t.Helper()
	svc, err := New(context.Background(), config.GraphConfig{Files: files})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func ids[T any](records []T, id func(T) string) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, id(r))
	}
	return out
}

func deviceID(d Device) string { return d.ID }

func TestNew_Ready(t *testing.T) {
	svc := newService(t, sampleFiles...)
	assert.True(t, svc.Ready())
	assert.Equal(t, config.DefaultBaseURI, svc.BaseURI())
}

func TestNew_LoadError(t *testing.T) {
	_, err := New(context.Background(), config.GraphConfig{Files: []string{"testdata/missing.ttl"}})
	var loadErr *graph.LoadError
	require.ErrorAs(t, err, &loadErr)
}

func TestNew_MalformedFile(t *testing.T) {
	path := filepath.Join("testdata", "malformed.ttl")
	_, err := New(context.Background(), config.GraphConfig{Files: append([]string{path}, sampleFiles...)})
	var loadErr *graph.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, path, loadErr.Path)
}

func TestService_InitRunsOnce(t *testing.T) {
	svc := newService(t, sampleFiles...)
	before, err := svc.TripleCount(context.Background())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, svc.init(context.Background()))
		}()
	}
	wg.Wait()

	after, err := svc.TripleCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestService_Buildings(t *testing.T) {
	svc := newService(t, sampleFiles...)
	got, err := svc.Buildings(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []Building{
		{ID: "campus_lab_1", Name: "Campus Lab 1"},
		{ID: "office_building_1", Name: "Office Building 1"},
	}, got)
}

func TestService_BuildingsEmpty(t *testing.T) {
	svc := newService(t, filepath.Join("testdata", "no_buildings.ttl"))
	got, err := svc.Buildings(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestService_BuildingFloors(t *testing.T) {
	svc := newService(t, sampleFiles...)
	got, err := svc.BuildingFloors(context.Background(), "campus_lab_1")
	require.NoError(t, err)
	assert.Equal(t, []Floor{
		{ID: "floor1", Name: "Floor 1", BuildingID: "campus_lab_1"},
		{ID: "floor2", Name: "Floor 2", BuildingID: "campus_lab_1"},
	}, got)

	got, err = svc.BuildingFloors(context.Background(), "office_building_1")
	require.NoError(t, err)
	assert.Equal(t, []Floor{{ID: "floor1", Name: "floor1", BuildingID: "office_building_1"}}, got)

	got, err = svc.BuildingFloors(context.Background(), "non_existent_building")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestService_BuildingDevices(t *testing.T) {
	svc := newService(t, sampleFiles...)
	got, err := svc.BuildingDevices(context.Background(), "campus_lab_1")
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"AHU1", "CH1", "DMP101", "FH102", "TSTAT201", "VAV101", "VAV102", "VAV201"},
		ids(got, deviceID))

	want := map[string]struct{ typ, name, location string }{
		"AHU1":     {"AHU", "Air Handler 1", "campus_lab_1"},
		"CH1":      {"Chiller", "Chiller 1", "campus_lab_1"},
		"DMP101":   {"Damper", "DMP101", "VAV101"},
		"FH102":    {"Fume_Hood", "Fume Hood 102", "RM102_room"},
		"TSTAT201": {"Thermostat", "Thermostat 201", "RM201_room"},
		"VAV101":   {"VAV", "VAV 101", "RM101_room"},
		"VAV102":   {"VAV", "VAV102", "RM102_room"},
		"VAV201":   {"VAV", "VAV 201", "RM201_room"},
	}
	for _, d := range got {
		w := want[d.ID]
		assert.Equal(t, w.typ, d.Type, d.ID)
		assert.Equal(t, w.name, d.Name, d.ID)
		require.NotNil(t, d.Location, d.ID)
		assert.Equal(t, w.location, *d.Location, d.ID)
		assert.Equal(t, []string{}, d.Points, d.ID)
	}
}

func TestService_BuildingDevicesCollapsesPaths(t *testing.T) {
	svc := newService(t, filepath.Join("testdata", "nested.ttl"))
	got, err := svc.BuildingDevices(context.Background(), "nested")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "BOX1", got[0].ID)
	assert.Equal(t, "Terminal_Unit", got[0].Type)
	assert.Equal(t, "Box one", got[0].Name)
	require.NotNil(t, got[0].Location)
	assert.Equal(t, "roomA", *got[0].Location)

	// brick:Equipment itself counts as equipment
	assert.Equal(t, "GEN1", got[1].ID)
	assert.Equal(t, "Equipment", got[1].Type)
	require.NotNil(t, got[1].Location)
	assert.Equal(t, "nested", *got[1].Location)
}

func TestService_DeviceTypesAreEquipment(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, sampleFiles...)
	devices, err := svc.BuildingDevices(ctx, "campus_lab_1")
	require.NoError(t, err)
	floorDevices, err := svc.FloorDevices(ctx, "campus_lab_1", "floor1")
	require.NoError(t, err)

	for _, d := range append(devices, floorDevices...) {
		res, err := svc.ExecuteRawQuery(ctx,
			"ASK { brick:"+d.Type+" rdfs:subClassOf* brick:Equipment }")
		require.NoError(t, err)
		assert.Equal(t, true, res.Results[0]["result"], d.Type)
	}
}

func TestService_FloorDevices(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, sampleFiles...)

	got, err := svc.FloorDevices(ctx, "campus_lab_1", "floor1")
	require.NoError(t, err)
	assert.Equal(t, []string{"DMP101", "FH102", "VAV101", "VAV102"}, ids(got, deviceID))
	for _, d := range got {
		require.NotNil(t, d.Location)
		assert.Equal(t, "floor1", *d.Location)
	}

	got, err = svc.FloorDevices(ctx, "campus_lab_1", "floor2")
	require.NoError(t, err)
	assert.Equal(t, []string{"TSTAT201", "VAV201"}, ids(got, deviceID))

	got, err = svc.FloorDevices(ctx, "campus_lab_1", "non_existent_floor")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestService_FloorDevicesCollapse(t *testing.T) {
	svc := newService(t, filepath.Join("testdata", "nested.ttl"))
	got, err := svc.FloorDevices(context.Background(), "nested", "level1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "BOX1", got[0].ID)
	assert.Equal(t, "level1", *got[0].Location)
}

func TestService_DevicesWithPoints(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, sampleFiles...)
	got, err := svc.BuildingDevices(ctx, "campus_lab_1", WithPoints())
	require.NoError(t, err)

	byID := map[string]Device{}
	for _, d := range got {
		byID[d.ID] = d
	}
	assert.Equal(t, []string{"VAV101_SA_F", "VAV101_ZN_SP", "VAV101_ZN_T"}, byID["VAV101"].Points)
	assert.Equal(t, []string{"DMP101_POS"}, byID["DMP101"].Points)
	assert.Equal(t, []string{}, byID["FH102"].Points)

	floor, err := svc.FloorDevices(ctx, "campus_lab_1", "floor2", WithPoints())
	require.NoError(t, err)
	assert.Equal(t, []string{"VAV201_ZN_T"}, floor[1].Points)
}

func TestService_Points(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, sampleFiles...)

	points, err := svc.Points(ctx, "campus_lab_1")
	require.NoError(t, err)
	assert.Len(t, points, 10)
	for _, p := range points {
		require.NotNil(t, p.Device, p.ID)
		assert.Nil(t, p.CurrentValue)
	}
	assert.Equal(t, "AHU1", *points[0].Device)

	got, err := svc.DevicePoints(ctx, "campus_lab_1", "AHU1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "AHU1_RAT", got[0].ID)
	assert.Equal(t, "Return_Air_Temperature_Sensor", got[0].Type)
	assert.Equal(t, "AHU1_SAT", got[1].ID)
	assert.Equal(t, "AHU1 supply air temp", got[1].Name)
	assert.Equal(t, "AHU1", *got[1].Device)

	got, err = svc.DevicePoints(ctx, "campus_lab_1", "FH102")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestService_InvalidIdentifier(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, sampleFiles...)

	_, err := svc.BuildingFloors(ctx, "x> ?p ?o . <y")
	assert.True(t, errors.Is(err, errors.ErrInvalidIdentifier))
	_, err = svc.BuildingDevices(ctx, "a b")
	assert.True(t, errors.Is(err, errors.ErrInvalidIdentifier))
	_, err = svc.FloorDevices(ctx, "campus_lab_1", "{")
	assert.True(t, errors.Is(err, errors.ErrInvalidIdentifier))
	_, err = svc.DevicePoints(ctx, "campus_lab_1", "")
	assert.True(t, errors.Is(err, errors.ErrInvalidIdentifier))
}

func TestService_RawQueryCount(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, sampleFiles...)

	n, err := svc.TripleCount(ctx)
	require.NoError(t, err)
	res, err := svc.ExecuteRawQuery(ctx, `SELECT (COUNT(*) AS ?c) WHERE { ?s ?p ?o }`)
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, strconv.Itoa(n), res.Results[0]["c"])
}

func TestService_RawQueryUnbound(t *testing.T) {
	svc := newService(t, sampleFiles...)
	res, err := svc.ExecuteRawQuery(context.Background(), `
		SELECT ?d ?name WHERE {
			?d a brick:VAV .
			OPTIONAL { ?d rdfs:label ?name }
		} ORDER BY ?d`)
	require.NoError(t, err)
	require.Len(t, res.Results, 3)
	assert.Equal(t, "http://buildsys.org/ontologies/campus_lab_1#VAV102", res.Results[1]["d"])
	v, ok := res.Results[1]["name"]
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestService_RawQueryError(t *testing.T) {
	svc := newService(t, sampleFiles...)
	_, err := svc.ExecuteRawQuery(context.Background(), `SELECT ?s WHERE { ?s ?p ?o`)
	var qe *graph.QueryError
	require.ErrorAs(t, err, &qe)
}

func TestService_Namespaces(t *testing.T) {
	svc := newService(t, sampleFiles...)
	ns, err := svc.Namespaces(context.Background())
	require.NoError(t, err)
	assert.Equal(t, graph.BrickNS, ns["brick"])
	assert.Equal(t, "http://buildsys.org/ontologies/campus_lab_1#", ns["bldg"])
}

func TestService_Idempotent(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, sampleFiles...)
	first, err := svc.BuildingDevices(ctx, "campus_lab_1")
	require.NoError(t, err)
	second, err := svc.BuildingDevices(ctx, "campus_lab_1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestService_RoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, sampleFiles...)
	buildings, err := svc.Buildings(ctx)
	require.NoError(t, err)
	for _, b := range buildings {
		floors, err := svc.BuildingFloors(ctx, b.ID)
		require.NoError(t, err)
		require.NotEmpty(t, floors, b.ID)
		for _, f := range floors {
			assert.Equal(t, b.ID, f.BuildingID)
			devices, err := svc.FloorDevices(ctx, b.ID, f.ID)
			require.NoError(t, err)
			for _, d := range devices {
				points, err := svc.DevicePoints(ctx, b.ID, d.ID)
				require.NoError(t, err)
				for _, p := range points {
					assert.Equal(t, d.ID, *p.Device)
				}
			}
		}
	}
}

func TestService_Snapshot(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, sampleFiles...)
	path := filepath.Join(t.TempDir(), "campus.db")
	require.NoError(t, svc.ExportSnapshot(ctx, path))

	snap, err := New(ctx, config.GraphConfig{Snapshot: path})
	require.NoError(t, err)
	defer snap.Close()

	want, err := svc.BuildingDevices(ctx, "campus_lab_1")
	require.NoError(t, err)
	got, err := snap.BuildingDevices(ctx, "campus_lab_1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestService_WithStore(t *testing.T) {
	ctx := context.Background()
	store, err := graph.Open(ctx, graph.Options{})
	require.NoError(t, err)

	_, err = New(ctx, config.GraphConfig{}, WithStore(store))
	assert.True(t, errors.Is(err, errors.ErrNotReady))

	require.NoError(t, store.Load(ctx, sampleFiles))
	svc, err := New(ctx, config.GraphConfig{}, WithStore(store))
	require.NoError(t, err)
	defer svc.Close()
	floors, err := svc.BuildingFloors(ctx, "campus_lab_1")
	require.NoError(t, err)
	assert.Len(t, floors, 2)
}

func TestService_ClosedIsNotReady(t *testing.T) {
	svc, err := New(context.Background(), config.GraphConfig{Files: sampleFiles})
	require.NoError(t, err)
	require.NoError(t, svc.Close())
	assert.False(t, svc.Ready())
	_, err = svc.Buildings(context.Background())
	assert.True(t, errors.Is(err, errors.ErrNotReady))
}
