package matching

import (
	"github.com/gorilla/mux"

	"github.com/imadgeboyega/kiekky-matching/internal/auth"
)

func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	api := router.PathPrefix("/api/v1/matching").Subrouter()
	api.Use(authMiddleware.Authenticate)

	api.HandleFunc("/compatibility/{userId:[0-9]+}", handler.GetCompatibility).Methods("GET")
	api.HandleFunc("/candidates", handler.GetCandidates).Methods("GET")
	api.HandleFunc("/users/{userId:[0-9]+}/changed", handler.ProfileChanged).Methods("POST")
}
