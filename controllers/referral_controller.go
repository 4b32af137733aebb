package controllers

import (
	"encoding/json"
	"log"
	"net/http"

	"skillswap_server/services"
	"skillswap_server/utils"
)

// ReferralController handles referral registration and points display.
type ReferralController struct {
	QuotaService *services.QuotaService
}

func NewReferralController(service *services.QuotaService) *ReferralController {
	return &ReferralController{QuotaService: service}
}

// HandleRegisterReferral - first sighting of a user, optionally via a
// referral link. Re-registration of a known user is a no-op.
func (c *ReferralController) HandleRegisterReferral(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID     string `json:"userId"`
		ReferrerID string `json:"referrerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UserID == "" {
		http.Error(w, `{"error": "userId is required"}`, http.StatusBadRequest)
		return
	}

	credited, err := c.QuotaService.RegisterReferral(r.Context(), body.UserID, body.ReferrerID)
	if err != nil {
		log.Printf("❌ Referral registration failed for %s: %v", body.UserID, err)
		http.Error(w, `{"error": "temporarily unavailable"}`, http.StatusInternalServerError)
		return
	}

	utils.WriteJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status":   "success",
		"credited": credited,
	})
}

// HandlePoints - referral points for display
func (c *ReferralController) HandlePoints(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, `{"error": "userId is required"}`, http.StatusBadRequest)
		return
	}

	points, err := c.QuotaService.Points(r.Context(), userID)
	if err != nil {
		log.Printf("❌ Failed to fetch points for %s: %v", userID, err)
		http.Error(w, `{"error": "temporarily unavailable"}`, http.StatusInternalServerError)
		return
	}

	utils.WriteJSONResponse(w, http.StatusOK, map[string]interface{}{
		"userId": userID,
		"points": points,
	})
}
