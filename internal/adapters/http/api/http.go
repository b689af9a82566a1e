// Package api exposes the fire weather service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/fwi/internal/adapters/repository"
	service "github.com/okian/fwi/internal/app"
	"github.com/okian/fwi/internal/domain/fwi"
	"github.com/okian/fwi/internal/domain/model"
)

const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	StatsProvider
	CalculateDependencies
	ObservationDependencies
	StationDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	calculateHandler   *CalculateHandler
	observationHandler *ObservationHandler
	stationHandler     *StationHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		calculateHandler:   NewCalculateHandler(deps),
		observationHandler: NewObservationHandler(deps),
		stationHandler:     NewStationHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/calculate", MetricsMiddleware(s.calculateHandler.HandleCalculate, "calculate"))
	mux.HandleFunc("/calculate/series", MetricsMiddleware(s.calculateHandler.HandleSeries, "calculate_series"))
	mux.HandleFunc("/observations", MetricsMiddleware(s.observationHandler.HandlePostObservation, "observations"))
	mux.HandleFunc("/stations", MetricsMiddleware(s.stationHandler.HandleList, "stations"))
	mux.HandleFunc("/stations/", MetricsMiddleware(s.stationHandler.HandleStation, "station"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps err onto a status and error code.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, fwi.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidObservation),
		errors.Is(err, repository.ErrInvalidStation),
		errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, fwi.ErrNumericDomain):
		return http.StatusUnprocessableEntity, "numeric_domain"
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, repository.ErrOutOfOrder), errors.Is(err, repository.ErrDayGap):
		return http.StatusConflict, "out_of_sequence"
	case errors.Is(err, service.ErrBackpressure), errors.Is(err, ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// decode reads a single JSON object and rejects unknown fields.
func decode(r *http.Request, op string, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	if dec.More() {
		return WrapKind(op, ErrBadRequest, errors.New("trailing data after JSON object"))
	}
	return nil
}

// weatherRequest is one day's observation on the wire. Pointers tell a
// missing field from a zero reading.
type weatherRequest struct {
	Temp  *float64 `json:"temp"`
	RH    *float64 `json:"rh"`
	Wind  *float64 `json:"wind"`
	Rain  *float64 `json:"rain"`
	Month int      `json:"month,omitempty"`
}

func (req weatherRequest) weather(op string, needMonth bool) (fwi.Weather, error) {
	for _, f := range []struct {
		name string
		v    *float64
	}{{"temp", req.Temp}, {"rh", req.RH}, {"wind", req.Wind}, {"rain", req.Rain}} {
		if f.v == nil {
			return fwi.Weather{}, WrapKind(op, ErrBadRequest, fmt.Errorf("missing %s", f.name))
		}
	}
	if needMonth && req.Month == 0 {
		return fwi.Weather{}, WrapKind(op, ErrBadRequest, errors.New("missing month"))
	}
	return fwi.Weather{
		Temperature:      *req.Temp,
		RelativeHumidity: *req.RH,
		WindSpeed:        *req.Wind,
		Rainfall:         *req.Rain,
		Month:            time.Month(req.Month),
	}, nil
}

// stationView is the wire shape of a station.
type stationView struct {
	StationID    string          `json:"station_id"`
	LastDate     string          `json:"last_date,omitempty"`
	Codes        fwi.Codes       `json:"codes"`
	Indices      *fwi.Indices    `json:"indices,omitempty"`
	DSR          *float64        `json:"dsr,omitempty"`
	Class        fwi.DangerClass `json:"class,omitempty"`
	Observations int             `json:"observations"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func newStationView(st model.StationState) stationView { //nolint:gocritic // hugeParam: read-only copy
	v := stationView{
		StationID:    st.StationID,
		Codes:        st.Codes,
		Observations: st.Observations,
		UpdatedAt:    st.UpdatedAt,
	}
	if !st.LastDate.IsZero() {
		v.LastDate = st.LastDate.Format(model.DateLayout)
	}
	if st.Started() {
		indices, dsr := st.Indices, st.DSR
		v.Indices = &indices
		v.DSR = &dsr
		v.Class = st.Class
	}
	return v
}
