package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"cluster-nemesis/internal/logging"
)

// SetupRoutes configures the control API routes
func (h *RESTHandler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	router.Use(logging.LoggingMiddleware(h.logger))

	v1 := router.PathPrefix("/api/v1").Subrouter()

	v1.HandleFunc("/status", h.Status).Methods(http.MethodGet)
	v1.HandleFunc("/disrupt/{strategy}", h.Disrupt).Methods(http.MethodPost)
	v1.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	if h.journal != nil {
		v1.HandleFunc("/history", h.History).Methods(http.MethodGet)
	}

	if h.metrics != nil {
		router.Handle("/metrics", h.metrics).Methods(http.MethodGet)
	}

	return router
}
