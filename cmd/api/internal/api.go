package internal

import (
	"crypto/subtle"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"

	journal "github.com/noddlecat/noddletrader/Internal/database"
)

type API struct {
	JWTManager *JWTManager
}

// HandleLogin issues a bearer token against the operator credentials
// from the environment.
func (api *API) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	wantUser := os.Getenv("API_USERNAME")
	wantPass := os.Getenv("API_PASSWORD")
	if wantUser == "" || wantPass == "" {
		WriteError(w, http.StatusServiceUnavailable, "API credentials not configured")
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(body.Username), []byte(wantUser)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(body.Password), []byte(wantPass)) == 1
	if !userOK || !passOK {
		WriteError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := api.JWTManager.GenerateToken(body.Username, 24)
	if err != nil {
		log.Printf("Error generating token: %v", err)
		WriteError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (api *API) HandleGetPlans(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	plans, err := journal.GetPlanHistory(r.Context(), symbol, limit)
	if err != nil {
		log.Printf("Error fetching plans: %v", err)
		WriteError(w, http.StatusInternalServerError, "Failed to fetch plans")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(plans),
		"plans": plans,
	})
}

func (api *API) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))

	stats, err := journal.GetStats(r.Context(), symbol, days)
	if err != nil {
		log.Printf("Error fetching stats: %v", err)
		WriteError(w, http.StatusInternalServerError, "Failed to fetch stats")
		return
	}

	WriteJSON(w, http.StatusOK, stats)
}

// HandleUpdatePlanStatus lets the execution side report a plan outcome
// (win/loss plus exit price).
func (api *API) HandleUpdatePlanStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid plan id")
		return
	}

	var body struct {
		Status    string  `json:"status"`
		ExitPrice float64 `json:"exit_price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.Status != journal.StatusWin && body.Status != journal.StatusLoss {
		WriteError(w, http.StatusBadRequest, "Status must be 'win' or 'loss'")
		return
	}

	if err := journal.UpdatePlanStatus(r.Context(), id, body.Status, body.ExitPrice); err != nil {
		log.Printf("Error updating plan %d: %v", id, err)
		WriteError(w, http.StatusInternalServerError, "Failed to update plan")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{"id": id, "status": body.Status})
}
