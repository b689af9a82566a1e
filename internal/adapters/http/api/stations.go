package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/okian/fwi/internal/domain/fwi"
	"github.com/okian/fwi/internal/domain/model"
)

// StationDependencies reads and manages tracked stations.
type StationDependencies interface {
	Station(ctx context.Context, stationID string) (model.StationState, error)
	Stations(ctx context.Context) []model.StationState
	SeedStation(ctx context.Context, stationID string, codes fwi.Codes, date time.Time) (model.StationState, error)
	DeleteStation(ctx context.Context, stationID string) error
}

// StationHandler serves station state.
type StationHandler struct {
	deps StationDependencies
}

// NewStationHandler creates a new station handler.
func NewStationHandler(deps StationDependencies) *StationHandler {
	return &StationHandler{deps: deps}
}

type stationListResponse struct {
	Stations []stationView `json:"stations"`
	Count    int           `json:"count"`
}

type seedRequest struct {
	FFMC *float64 `json:"ffmc"`
	DMC  *float64 `json:"dmc"`
	DC   *float64 `json:"dc"`
	Date string   `json:"date,omitempty"`
}

// HandleList handles GET /stations.
func (h *StationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	list := h.deps.Stations(r.Context())
	views := make([]stationView, 0, len(list))
	for i := range list {
		views = append(views, newStationView(list[i]))
	}
	writeJSON(w, http.StatusOK, stationListResponse{Stations: views, Count: len(views)})
}

// HandleStation handles GET, PUT and DELETE on /stations/{id}.
func (h *StationHandler) HandleStation(w http.ResponseWriter, r *http.Request) {
	const op = "station"
	id := strings.TrimPrefix(r.URL.Path, "/stations/")
	if id == "" || strings.Contains(id, "/") {
		writeFailure(w, NewKind(op, ErrNotFound))
		return
	}

	switch r.Method {
	case http.MethodGet:
		st, err := h.deps.Station(r.Context(), id)
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newStationView(st))
	case http.MethodPut:
		h.seed(w, r, op, id)
	case http.MethodDelete:
		if err := h.deps.DeleteStation(r.Context(), id); err != nil {
			writeFailure(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	}
}

// seed sets the carried codes of a station. Without a date any day may
// follow the seed.
func (h *StationHandler) seed(w http.ResponseWriter, r *http.Request, op, id string) {
	var req seedRequest
	if err := decode(r, op, &req); err != nil {
		writeFailure(w, err)
		return
	}
	if req.FFMC == nil || req.DMC == nil || req.DC == nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, errors.New("ffmc, dmc and dc are required")))
		return
	}
	var date time.Time
	if req.Date != "" {
		d, err := model.ParseDate(req.Date)
		if err != nil {
			writeFailure(w, WrapKind(op, ErrBadRequest, err))
			return
		}
		date = d
	}

	codes := fwi.Codes{FFMC: *req.FFMC, DMC: *req.DMC, DC: *req.DC}
	st, err := h.deps.SeedStation(r.Context(), id, codes, date)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newStationView(st))
}
