package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/fwi/internal/domain/model"
)

// ObservationDependencies accepts observations for asynchronous application.
type ObservationDependencies interface {
	Submit(ctx context.Context, obs model.Observation) (duplicate bool, err error)
}

// ObservationHandler serves observation intake.
type ObservationHandler struct {
	deps ObservationDependencies
}

// NewObservationHandler creates a new observation handler.
func NewObservationHandler(deps ObservationDependencies) *ObservationHandler {
	return &ObservationHandler{deps: deps}
}

type observationRequest struct {
	ID        string `json:"id,omitempty"`
	StationID string `json:"station_id"`
	Date      string `json:"date"`
	weatherRequest
}

type observationResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
	ID        string `json:"id"`
}

// toObservation checks the wire fields and derives the id when absent. The
// month comes from the date.
func (req *observationRequest) toObservation(op string) (model.Observation, error) {
	stationID := strings.TrimSpace(req.StationID)
	if stationID == "" {
		return model.Observation{}, WrapKind(op, ErrBadRequest, errors.New("missing station_id"))
	}
	if req.Date == "" {
		return model.Observation{}, WrapKind(op, ErrBadRequest, errors.New("missing date"))
	}
	day, err := model.ParseDate(req.Date)
	if err != nil {
		return model.Observation{}, WrapKind(op, ErrBadRequest, err)
	}
	weather, err := req.weather(op, false)
	if err != nil {
		return model.Observation{}, err
	}
	weather.Month = day.Month()

	id := req.ID
	if id == "" {
		id = model.ObservationID(stationID, day)
	}
	return model.Observation{ID: id, StationID: stationID, Date: day, Weather: weather}, nil
}

// HandlePostObservation handles POST /observations. New observations are
// answered with 202 since they are applied asynchronously.
func (h *ObservationHandler) HandlePostObservation(w http.ResponseWriter, r *http.Request) {
	const op = "observations"
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}

	var req observationRequest
	if err := decode(r, op, &req); err != nil {
		writeFailure(w, err)
		return
	}
	obs, err := req.toObservation(op)
	if err != nil {
		writeFailure(w, err)
		return
	}

	duplicate, err := h.deps.Submit(r.Context(), obs)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, observationResponse{Status: "duplicate", Duplicate: true, ID: obs.ID})
		return
	}
	writeJSON(w, http.StatusAccepted, observationResponse{Status: "accepted", ID: obs.ID})
}
