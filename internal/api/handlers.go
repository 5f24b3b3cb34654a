package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/market-notifier/internal/database"
	"github.com/trogers1052/market-notifier/internal/models"
	"github.com/trogers1052/market-notifier/internal/monitor"
	"github.com/trogers1052/market-notifier/internal/projection"
)

// Store is the record store surface the HTTP layer reads from
type Store interface {
	ListInvestments(ctx context.Context) ([]*database.Investment, error)
	GetInvestment(ctx context.Context, symbol string) (*database.Investment, error)
	NotificationsByRecipient(ctx context.Context, subscriberID int) ([]*models.Notification, error)
	MarkNotificationRead(ctx context.Context, id int) (bool, error)
}

// Ticker runs monitor cycles on demand
type Ticker interface {
	Tick(ctx context.Context) (monitor.TickReport, error)
	State() monitor.State
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	store     Store
	registry  *monitor.Registry
	monitor   Ticker
	listeners *monitor.Listeners
	log       zerolog.Logger
}

// NewHandler creates a new Handler
func NewHandler(store Store, registry *monitor.Registry, mon Ticker, listeners *monitor.Listeners, log zerolog.Logger) *Handler {
	return &Handler{
		store:     store,
		registry:  registry,
		monitor:   mon,
		listeners: listeners,
		log:       log.With().Str("component", "api").Logger(),
	}
}

// ProjectionRequest is the body of POST /projections
type ProjectionRequest struct {
	Symbol         string  `json:"symbol" validate:"required,max=16"`
	InitialCapital float64 `json:"initial_capital" validate:"gt=0"`
	HorizonYears   *int    `json:"horizon_years" default:"10" validate:"required,gte=1,lte=100"`
	Seed           *uint64 `json:"seed,omitempty"`
}

// ProjectionResponse carries a projection with its derived summaries
type ProjectionResponse struct {
	Projection *models.ProjectionResult `json:"projection"`
	Summary    models.ProjectionSummary `json:"summary"`
	Means      projection.ScenarioMeans `json:"means"`
}

// PreferenceRequest is the body of PUT /subscribers/{id}/preference
type PreferenceRequest struct {
	Preference string `json:"preference" validate:"required,oneof=ALL IMPORTANT NONE"`
}

// GetInvestments handles GET /investments
func (h *Handler) GetInvestments(w http.ResponseWriter, r *http.Request) {
	investments, err := h.store.ListInvestments(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}

	out := make([]investmentResponse, 0, len(investments))
	for _, inv := range investments {
		out = append(out, newInvestmentResponse(inv))
	}
	respondJSON(w, http.StatusOK, out)
}

// CreateProjection handles POST /projections
func (h *Handler) CreateProjection(w http.ResponseWriter, r *http.Request) {
	var req ProjectionRequest
	if errs := decodeAndValidate(r, &req); errs != nil {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": errs})
		return
	}

	inv, err := h.store.GetInvestment(r.Context(), strings.ToUpper(req.Symbol))
	if err != nil {
		h.respondError(w, err)
		return
	}

	var rng projection.RandomSource
	if req.Seed != nil {
		rng = projection.NewNormalSource(*req.Seed)
	}

	result, err := projection.Project(req.InitialCapital, *req.HorizonYears, inv.Model, rng)
	if err != nil {
		h.respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, ProjectionResponse{
		Projection: result,
		Summary:    result.Summary(),
		Means:      projection.SeriesMeans(result),
	})
}

// GetSubscribers handles GET /subscribers
func (h *Handler) GetSubscribers(w http.ResponseWriter, r *http.Request) {
	subscribers, err := h.registry.Subscribers(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	if subscribers == nil {
		subscribers = []*models.Subscriber{}
	}
	respondJSON(w, http.StatusOK, subscribers)
}

// GetSubscriber handles GET /subscribers/{id}
func (h *Handler) GetSubscriber(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	sub, err := h.registry.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sub)
}

// GetNotifications handles GET /subscribers/{id}/notifications
func (h *Handler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if _, err := h.registry.Get(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}

	notifications, err := h.store.NotificationsByRecipient(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if notifications == nil {
		notifications = []*models.Notification{}
	}
	respondJSON(w, http.StatusOK, notifications)
}

// UpdatePreference handles PUT /subscribers/{id}/preference
func (h *Handler) UpdatePreference(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req PreferenceRequest
	if errs := decodeAndValidate(r, &req); errs != nil {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": errs})
		return
	}

	if err := h.registry.UpdatePreference(r.Context(), id, models.Preference(req.Preference)); err != nil {
		h.respondError(w, err)
		return
	}

	sub, err := h.registry.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sub)
}

// MarkRead handles POST /notifications/{id}/read
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	found, err := h.store.MarkNotificationRead(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if !found {
		http.Error(w, "notification not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TriggerTick handles POST /monitor/tick
func (h *Handler) TriggerTick(w http.ResponseWriter, r *http.Request) {
	report, err := h.monitor.Tick(r.Context())
	if errors.Is(err, monitor.ErrStopped) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		h.log.Warn().Err(err).Str("tick_id", report.ID).Msg("Manual tick skipped")
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"monitor": h.monitor.State().String(),
	})
}

type investmentResponse struct {
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	CurrentPrice string  `json:"current_price"`
	Volatility   float64 `json:"volatility"`
	AnnualReturn float64 `json:"annual_return"`
}

func newInvestmentResponse(inv *database.Investment) investmentResponse {
	return investmentResponse{
		Symbol:       inv.Model.Symbol,
		Name:         inv.Model.DisplayName(),
		Type:         inv.Type,
		CurrentPrice: formatMoney(inv.Model.CurrentPrice),
		Volatility:   inv.Model.Volatility,
		AnnualReturn: inv.Model.AnnualReturn,
	}
}

// respondError maps domain errors onto status codes
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidArgument):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, models.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		h.log.Error().Err(err).Msg("Request failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func formatMoney(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id <= 0 {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
