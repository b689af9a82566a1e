package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/fwi/internal/domain/fwi"
)

// maxSeriesDays caps a single series request.
const maxSeriesDays = 366

// CalculateDependencies evaluates days without touching station state.
type CalculateDependencies interface {
	Calculate(ctx context.Context, w fwi.Weather, prev fwi.Codes) (fwi.Result, error)
	Series(ctx context.Context, start fwi.Codes, days []fwi.Weather) ([]fwi.Result, error)
}

// CalculateHandler serves stateless evaluations.
type CalculateHandler struct {
	deps CalculateDependencies
}

// NewCalculateHandler creates a new calculate handler.
func NewCalculateHandler(deps CalculateDependencies) *CalculateHandler {
	return &CalculateHandler{deps: deps}
}

type calculateRequest struct {
	weatherRequest
	Prev *fwi.Codes `json:"prev,omitempty"`
}

type seriesRequest struct {
	Start *fwi.Codes       `json:"start,omitempty"`
	Days  []weatherRequest `json:"days"`
}

type seriesResponse struct {
	Results []fwi.Result `json:"results"`
	Final   fwi.Codes    `json:"final"`
}

// HandleCalculate handles POST /calculate. A missing prev starts from the
// default start-of-season codes.
func (h *CalculateHandler) HandleCalculate(w http.ResponseWriter, r *http.Request) {
	const op = "calculate"
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}

	var req calculateRequest
	if err := decode(r, op, &req); err != nil {
		writeFailure(w, err)
		return
	}
	weather, err := req.weather(op, true)
	if err != nil {
		writeFailure(w, err)
		return
	}
	prev := fwi.DefaultStartCodes
	if req.Prev != nil {
		prev = *req.Prev
	}

	res, err := h.deps.Calculate(r.Context(), weather, prev)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleSeries handles POST /calculate/series.
func (h *CalculateHandler) HandleSeries(w http.ResponseWriter, r *http.Request) {
	const op = "calculate_series"
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}

	var req seriesRequest
	if err := decode(r, op, &req); err != nil {
		writeFailure(w, err)
		return
	}
	switch {
	case len(req.Days) == 0:
		writeFailure(w, WrapKind(op, ErrBadRequest, errors.New("no days")))
		return
	case len(req.Days) > maxSeriesDays:
		writeFailure(w, WrapKind(op, ErrBadRequest, errors.New("too many days")))
		return
	}

	days := make([]fwi.Weather, len(req.Days))
	for i, d := range req.Days {
		weather, err := d.weather(op, true)
		if err != nil {
			writeFailure(w, err)
			return
		}
		days[i] = weather
	}
	start := fwi.DefaultStartCodes
	if req.Start != nil {
		start = *req.Start
	}

	out, err := h.deps.Series(r.Context(), start, days)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, seriesResponse{Results: out, Final: out[len(out)-1].Codes})
}
