package api

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures all API routes. A nil gatherer serves the default registry.
func SetupRoutes(handler *Handler, gatherer prometheus.Gatherer) *mux.Router {
	r := mux.NewRouter()

	// Health check and metrics
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	// Investments and projections
	api.HandleFunc("/investments", handler.GetInvestments).Methods("GET")
	api.HandleFunc("/projections", handler.CreateProjection).Methods("POST")

	// Subscribers and their notifications
	api.HandleFunc("/subscribers", handler.GetSubscribers).Methods("GET")
	api.HandleFunc("/subscribers/{id}", handler.GetSubscriber).Methods("GET")
	api.HandleFunc("/subscribers/{id}/notifications", handler.GetNotifications).Methods("GET")
	api.HandleFunc("/subscribers/{id}/preference", handler.UpdatePreference).Methods("PUT")
	api.HandleFunc("/subscribers/{id}/stream", handler.StreamNotifications).Methods("GET")
	api.HandleFunc("/notifications/{id}/read", handler.MarkRead).Methods("POST")

	// Monitor
	api.HandleFunc("/monitor/tick", handler.TriggerTick).Methods("POST")

	return r
}
