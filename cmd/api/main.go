package main

import (
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	journal "github.com/noddlecat/noddletrader/Internal/database"
	"github.com/noddlecat/noddletrader/cmd/api/internal"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../../.env")

	if err := journal.InitDatabase(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer journal.CloseDatabase()

	jwtManager := internal.NewJWTManager()
	apiServer := &internal.API{
		JWTManager: jwtManager,
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(internal.CorsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := journal.HealthCheck(); err != nil {
			internal.WriteError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		internal.WriteJSON(w, http.StatusOK, "healthy")
	})

	// Public routes
	r.Post("/api/auth/login", apiServer.HandleLogin)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(internal.JWTAuthMiddleware(jwtManager))
		r.Get("/api/plans", apiServer.HandleGetPlans)
		r.Get("/api/stats", apiServer.HandleGetStats)
		r.Put("/api/plans/{id}/status", apiServer.HandleUpdatePlanStatus)
	})

	port := os.Getenv("API_PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Monitoring API listening on :%s\n", port)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
