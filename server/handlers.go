package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/buildsys/brick-api/brick"
	"github.com/buildsys/brick-api/errors"
	"github.com/buildsys/brick-api/logger"
)

func (a *App) handleBuildings(w http.ResponseWriter, r *http.Request) {
	buildings, err := a.svc.Buildings(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if len(buildings) == 0 {
		writeDetail(w, http.StatusNotFound, "No buildings found")
		return
	}
	writeJSON(w, http.StatusOK, buildings)
}

func (a *App) handleFloors(w http.ResponseWriter, r *http.Request) {
	buildingID := chi.URLParam(r, "building_id")
	floors, err := a.svc.BuildingFloors(r.Context(), buildingID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if len(floors) == 0 {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("No floors found for building %s", buildingID))
		return
	}
	writeJSON(w, http.StatusOK, floors)
}

func (a *App) handleBuildingDevices(w http.ResponseWriter, r *http.Request) {
	buildingID := chi.URLParam(r, "building_id")
	opts, err := listOptions(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	devices, err := a.svc.BuildingDevices(r.Context(), buildingID, opts...)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if len(devices) == 0 {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("No devices found in building %s", buildingID))
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

func (a *App) handleFloorDevices(w http.ResponseWriter, r *http.Request) {
	buildingID := chi.URLParam(r, "building_id")
	floorID := chi.URLParam(r, "floor_id")
	opts, err := listOptions(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	devices, err := a.svc.FloorDevices(r.Context(), buildingID, floorID, opts...)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if len(devices) == 0 {
		writeDetail(w, http.StatusNotFound,
			fmt.Sprintf("No devices found on floor %s in building %s", floorID, buildingID))
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

func (a *App) handlePoints(w http.ResponseWriter, r *http.Request) {
	buildingID := chi.URLParam(r, "building_id")
	points, err := a.svc.Points(r.Context(), buildingID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if len(points) == 0 {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("No points found in building %s", buildingID))
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (a *App) handleDevicePoints(w http.ResponseWriter, r *http.Request) {
	buildingID := chi.URLParam(r, "building_id")
	deviceID := chi.URLParam(r, "device_id")
	points, err := a.svc.DevicePoints(r.Context(), buildingID, deviceID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if len(points) == 0 {
		writeDetail(w, http.StatusNotFound,
			fmt.Sprintf("No points found for device %s in building %s", deviceID, buildingID))
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !a.svc.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "loading"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// listOptions reads the optional ?points=true flag of the device routes.
func listOptions(r *http.Request) ([]brick.ListOption, error) {
	raw := r.URL.Query().Get("points")
	if raw == "" {
		return nil, nil
	}
	withPoints, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "points=%q is not a boolean", raw)
	}
	if withPoints {
		return []brick.ListOption{brick.WithPoints()}, nil
	}
	return nil, nil
}

// fail maps a service error to a status code and a detail body.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.log.Errorw("request failed",
			logger.FieldPath, r.URL.Path,
			logger.FieldError, err)
	}
	writeDetail(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.IsAny(err, errors.ErrInvalidIdentifier, errors.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrNotReady):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type detail struct {
	Detail string `json:"detail"`
}

func writeDetail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, detail{Detail: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
