// Package brick answers building, floor, device and point questions over a
// loaded Brick graph. It builds the query text for each operation, runs it
// against the graph store and normalizes the rows into records.
package brick

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/buildsys/brick-api/config"
	"github.com/buildsys/brick-api/errors"
	"github.com/buildsys/brick-api/graph"
	"github.com/buildsys/brick-api/logger"
	"github.com/buildsys/brick-api/sparql"
)

// Service is the application-lifetime facade over one immutable graph. It
// is constructed once at startup and shared by every request.
type Service struct {
	cfg   config.GraphConfig
	base  string
	store *graph.Store
	norm  normalizer
	log   *zap.SugaredLogger

	once    sync.Once
	initErr error
	ready   atomic.Bool
}

// Option customizes a Service.
type Option func(*Service)

// WithStore serves an already loaded store instead of building one from
// the configured files.
func WithStore(store *graph.Store) Option {
	return func(s *Service) { s.store = store }
}

// New builds the service and loads its graph. Loading happens exactly once
// per Service; a failed load is returned and the service is not usable.
func New(ctx context.Context, cfg config.GraphConfig, opts ...Option) (*Service, error) {
	s := &Service{
		cfg:  cfg,
		base: cfg.BaseURI,
		norm: newNormalizer(),
		log:  logger.Named("brick"),
	}
	if s.base == "" {
		s.base = config.DefaultBaseURI
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.init(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) init(ctx context.Context) error {
	s.once.Do(func() {
		s.initErr = s.load(ctx)
		if s.initErr == nil {
			s.ready.Store(true)
		}
	})
	return s.initErr
}

func (s *Service) load(ctx context.Context) error {
	start := time.Now()
	switch {
	case s.store != nil:
		if !s.store.Loaded() {
			return errors.Wrap(errors.ErrNotReady, "injected store")
		}
		return nil
	case s.cfg.Snapshot != "":
		store, err := graph.OpenSnapshot(ctx, s.cfg.Snapshot)
		if err != nil {
			return err
		}
		s.store = store
	default:
		store, err := graph.Open(ctx, graph.Options{SchemaFile: s.cfg.SchemaFile})
		if err != nil {
			return err
		}
		if err := store.Load(ctx, s.cfg.Files); err != nil {
			_ = store.Close()
			return err
		}
		s.store = store
	}
	s.log.Infow("brick service ready",
		logger.FieldFiles, len(s.cfg.Files),
		logger.FieldDurationMS, time.Since(start).Milliseconds())
	return nil
}

// Ready reports whether the graph finished loading.
func (s *Service) Ready() bool {
	return s.ready.Load()
}

// BaseURI is the namespace root used to build entity IRIs.
func (s *Service) BaseURI() string {
	return s.base
}

// Close releases the graph store.
func (s *Service) Close() error {
	s.ready.Store(false)
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

// ExportSnapshot writes the loaded graph to a SQLite file.
func (s *Service) ExportSnapshot(ctx context.Context, path string) error {
	if !s.Ready() {
		return errors.ErrNotReady
	}
	return s.store.ExportSnapshot(ctx, path)
}

func (s *Service) query(ctx context.Context, text string) (*sparql.Result, error) {
	if !s.Ready() {
		return nil, errors.ErrNotReady
	}
	return s.store.Query(ctx, text)
}

// Buildings lists every building in the graph.
func (s *Service) Buildings(ctx context.Context) ([]Building, error) {
	res, err := s.query(ctx, BuildingsQuery())
	if err != nil {
		return nil, errors.Wrap(err, "list buildings")
	}
	return s.norm.buildings(res), nil
}

// BuildingFloors lists the floors of a building in IRI order.
func (s *Service) BuildingFloors(ctx context.Context, buildingID string) ([]Floor, error) {
	q, err := BuildingFloorsQuery(s.base, buildingID)
	if err != nil {
		return nil, err
	}
	res, err := s.query(ctx, q)
	if err != nil {
		return nil, errors.Wrapf(err, "list floors of %s", buildingID)
	}
	return s.norm.floors(res, buildingID), nil
}

type listOptions struct {
	points bool
}

// ListOption adjusts a device listing.
type ListOption func(*listOptions)

// WithPoints fills each device's Points with the ids of its points.
func WithPoints() ListOption {
	return func(o *listOptions) { o.points = true }
}

// BuildingDevices lists the equipment of a building in IRI order. Each
// device's location is the entity that directly contains it.
func (s *Service) BuildingDevices(ctx context.Context, buildingID string, opts ...ListOption) ([]Device, error) {
	q, err := BuildingDevicesQuery(s.base, buildingID)
	if err != nil {
		return nil, err
	}
	containment, err := ContainmentQuery(s.base, buildingID)
	if err != nil {
		return nil, err
	}
	res, err := s.query(ctx, q)
	if err != nil {
		return nil, errors.Wrapf(err, "list devices of %s", buildingID)
	}
	if len(res.Rows) == 0 {
		return []Device{}, nil
	}
	edges, err := s.query(ctx, containment)
	if err != nil {
		return nil, errors.Wrapf(err, "list containment of %s", buildingID)
	}
	devices := s.norm.devices(res, s.norm.parents(edges), nil)
	return s.withPoints(ctx, buildingID, devices, opts)
}

// FloorDevices lists the equipment of a floor in IRI order. Every device's
// location is floorID, however deeply it is nested.
func (s *Service) FloorDevices(ctx context.Context, buildingID, floorID string, opts ...ListOption) ([]Device, error) {
	q, err := FloorDevicesQuery(s.base, buildingID, floorID)
	if err != nil {
		return nil, err
	}
	res, err := s.query(ctx, q)
	if err != nil {
		return nil, errors.Wrapf(err, "list devices of %s/%s", buildingID, floorID)
	}
	devices := s.norm.devices(res, nil, &floorID)
	return s.withPoints(ctx, buildingID, devices, opts)
}

func (s *Service) withPoints(ctx context.Context, buildingID string, devices []Device, opts []ListOption) ([]Device, error) {
	var o listOptions
	for _, opt := range opts {
		opt(&o)
	}
	if !o.points || len(devices) == 0 {
		return devices, nil
	}
	points, err := s.Points(ctx, buildingID)
	if err != nil {
		return nil, err
	}
	byDevice := map[string][]string{}
	for _, p := range points {
		if p.Device != nil {
			byDevice[*p.Device] = append(byDevice[*p.Device], p.ID)
		}
	}
	for i := range devices {
		if ids, ok := byDevice[devices[i].ID]; ok {
			devices[i].Points = ids
		}
	}
	return devices, nil
}

// Points lists every point in a building with its owning entity.
func (s *Service) Points(ctx context.Context, buildingID string) ([]Point, error) {
	q, err := BuildingPointsQuery(s.base, buildingID)
	if err != nil {
		return nil, err
	}
	res, err := s.query(ctx, q)
	if err != nil {
		return nil, errors.Wrapf(err, "list points of %s", buildingID)
	}
	return s.norm.points(res, nil), nil
}

// DevicePoints lists the points of one device.
func (s *Service) DevicePoints(ctx context.Context, buildingID, deviceID string) ([]Point, error) {
	q, err := DevicePointsQuery(s.base, buildingID, deviceID)
	if err != nil {
		return nil, err
	}
	res, err := s.query(ctx, q)
	if err != nil {
		return nil, errors.Wrapf(err, "list points of %s/%s", buildingID, deviceID)
	}
	return s.norm.points(res, &deviceID), nil
}

// ExecuteRawQuery runs caller-supplied query text. Failures are returned
// unwrapped so callers can echo the engine message.
func (s *Service) ExecuteRawQuery(ctx context.Context, text string) (RawResult, error) {
	res, err := s.query(ctx, text)
	if err != nil {
		return RawResult{}, err
	}
	return raw(res), nil
}

// TripleCount is the number of triples in the graph, schema included.
func (s *Service) TripleCount(ctx context.Context) (int, error) {
	if !s.Ready() {
		return 0, errors.ErrNotReady
	}
	return s.store.TripleCount(ctx)
}

// Namespaces returns the prefix bindings known to the graph.
func (s *Service) Namespaces(ctx context.Context) (map[string]string, error) {
	if !s.Ready() {
		return nil, errors.ErrNotReady
	}
	return s.store.Namespaces(ctx)
}
