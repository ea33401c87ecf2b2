// Package server exposes the brick service over HTTP.
package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/buildsys/brick-api/brick"
	"github.com/buildsys/brick-api/config"
	"github.com/buildsys/brick-api/logger"
)

// Backend is the subset of *brick.Service the handlers need.
type Backend interface {
	Ready() bool
	Buildings(ctx context.Context) ([]brick.Building, error)
	BuildingFloors(ctx context.Context, buildingID string) ([]brick.Floor, error)
	BuildingDevices(ctx context.Context, buildingID string, opts ...brick.ListOption) ([]brick.Device, error)
	FloorDevices(ctx context.Context, buildingID, floorID string, opts ...brick.ListOption) ([]brick.Device, error)
	Points(ctx context.Context, buildingID string) ([]brick.Point, error)
	DevicePoints(ctx context.Context, buildingID, deviceID string) ([]brick.Point, error)
	ExecuteRawQuery(ctx context.Context, query string) (brick.RawResult, error)
	TripleCount(ctx context.Context) (int, error)
	Namespaces(ctx context.Context) (map[string]string, error)
}

// App holds server dependencies.
type App struct {
	svc       Backend
	origins   map[string]bool
	anyOrigin bool
	limiter   *rate.Limiter
	log       *zap.SugaredLogger
}

// NewApp creates an App serving svc. A zero QueryRateLimit leaves the raw
// query endpoint unlimited.
func NewApp(svc Backend, cfg config.ServerConfig) *App {
	a := &App{
		svc:     svc,
		origins: map[string]bool{},
		log:     logger.Named("server"),
	}
	for _, o := range cfg.CORSOrigins {
		o = strings.TrimSuffix(strings.TrimSpace(o), "/")
		if o == "*" {
			a.anyOrigin = true
			continue
		}
		a.origins[o] = true
	}
	if cfg.QueryRateLimit > 0 {
		burst := cfg.QueryBurst
		if burst < 1 {
			burst = 1
		}
		a.limiter = rate.NewLimiter(rate.Limit(cfg.QueryRateLimit), burst)
	}
	return a
}

// Handler returns the HTTP handler (router with CORS, recovery, routes).
func (a *App) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(a.requestLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(a.cors)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(instrument)

		r.Get("/buildings", a.handleBuildings)
		r.Get("/floors/{building_id}", a.handleFloors)
		r.Route("/devices", func(r chi.Router) {
			r.Get("/building/{building_id}", a.handleBuildingDevices)
			r.Get("/floor/{building_id}/{floor_id}", a.handleFloorDevices)
		})
		r.Route("/points", func(r chi.Router) {
			r.Get("/{building_id}", a.handlePoints)
			r.Get("/device/{building_id}/{device_id}", a.handleDevicePoints)
		})
		r.Route("/query", func(r chi.Router) {
			r.Post("/", a.handleQuery)
			r.Get("/triples/count", a.handleTripleCount)
			r.Get("/namespaces", a.handleNamespaces)
		})
	})

	r.Get("/health", a.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
	return r
}

// cors answers preflight requests and sets the allow headers for the
// configured origins. Listed origins are echoed with credentials; "*"
// allows any other origin without them.
func (a *App) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		h := w.Header()
		switch {
		case origin == "":
		case a.origins[origin]:
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
		case a.anyOrigin:
			h.Set("Access-Control-Allow-Origin", "*")
		default:
			next.ServeHTTP(w, r)
			return
		}
		if origin != "" && r.Method == http.MethodOptions {
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			if req := r.Header.Get("Access-Control-Request-Headers"); req != "" {
				h.Set("Access-Control-Allow-Headers", req)
			} else {
				h.Set("Access-Control-Allow-Headers", "Accept, Content-Type")
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
