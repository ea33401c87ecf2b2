package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/buildsys/brick-api/errors"
	"github.com/buildsys/brick-api/logger"
)

// maxQueryBody bounds the raw query request body.
const maxQueryBody = 1 << 20

type queryRequest struct {
	Query string `json:"query"`
}

// handleQuery runs caller-supplied query text. Every failure other than an
// unloaded graph is the caller's fault and is reported as 400.
func (a *App) handleQuery(w http.ResponseWriter, r *http.Request) {
	queryID := uuid.NewString()
	w.Header().Set("X-Query-Id", queryID)

	if a.limiter != nil && !a.limiter.Allow() {
		queryRejected.Inc()
		writeDetail(w, http.StatusTooManyRequests, "Query rate limit exceeded")
		return
	}

	var req queryRequest
	body := http.MaxBytesReader(w, r.Body, maxQueryBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		msg := "invalid request body"
		if errors.Is(err, io.EOF) {
			msg = "missing request body"
		}
		writeDetail(w, http.StatusBadRequest, "Query error: "+msg)
		return
	}

	log := a.log.With(logger.FieldQueryID, queryID)
	res, err := a.svc.ExecuteRawQuery(r.Context(), req.Query)
	if err != nil {
		if errors.Is(err, errors.ErrNotReady) {
			writeDetail(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		log.Infow("query rejected", logger.FieldError, err.Error())
		writeDetail(w, http.StatusBadRequest, "Query error: "+err.Error())
		return
	}
	log.Debugw("query", logger.FieldCount, len(res.Results))
	writeJSON(w, http.StatusOK, res)
}

func (a *App) handleTripleCount(w http.ResponseWriter, r *http.Request) {
	n, err := a.svc.TripleCount(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

func (a *App) handleNamespaces(w http.ResponseWriter, r *http.Request) {
	ns, err := a.svc.Namespaces(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]map[string]string{"namespaces": ns})
}
