package controllers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"skillswap_server/models"
	"skillswap_server/services"
	"skillswap_server/utils"
)

// SwapController exposes the match-seeking flow to the conversational
// front-end: admission check, submit-and-match, usage recording.
type SwapController struct {
	SwapService *services.SwapService
}

func NewSwapController(service *services.SwapService) *SwapController {
	return &SwapController{SwapService: service}
}

// HandleTryAdmit - pre-dialog admission check
func (c *SwapController) HandleTryAdmit(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, `{"error": "userId is required"}`, http.StatusBadRequest)
		return
	}

	decision, err := c.SwapService.TryAdmit(r.Context(), userID)
	if err != nil {
		log.Printf("❌ Admission check failed for %s: %v", userID, err)
		http.Error(w, `{"error": "temporarily unavailable"}`, http.StatusInternalServerError)
		return
	}

	utils.WriteJSONResponse(w, http.StatusOK, decision)
}

// HandleSubmitAndMatch - append a completed request and look for a match
func (c *SwapController) HandleSubmitAndMatch(w http.ResponseWriter, r *http.Request) {
	var req models.SkillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}

	if req.UserID == "" || req.Name == "" {
		http.Error(w, `{"error": "Missing required fields: userId, name"}`, http.StatusBadRequest)
		return
	}
	if req.Skill == "" && req.Want == "" {
		http.Error(w, `{"error": "At least one of skill or want is required"}`, http.StatusBadRequest)
		return
	}

	outcome, err := c.SwapService.SubmitAndMatch(r.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrQuotaExceeded) {
			utils.WriteJSONResponse(w, http.StatusTooManyRequests, map[string]string{
				"error": models.ReasonQuotaExceeded,
			})
			return
		}
		log.Printf("❌ Submit failed for %s: %v", req.UserID, err)
		http.Error(w, `{"error": "temporarily unavailable"}`, http.StatusInternalServerError)
		return
	}

	utils.WriteJSONResponse(w, http.StatusOK, outcome)
}

// HandleRecordUse - count one request against the user's daily allowance
func (c *SwapController) HandleRecordUse(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UserID == "" {
		http.Error(w, `{"error": "userId is required"}`, http.StatusBadRequest)
		return
	}

	if err := c.SwapService.RecordUse(r.Context(), body.UserID); err != nil {
		log.Printf("❌ Failed to record use for %s: %v", body.UserID, err)
		http.Error(w, `{"error": "temporarily unavailable"}`, http.StatusInternalServerError)
		return
	}

	utils.WriteJSONResponse(w, http.StatusOK, map[string]string{"status": "success"})
}
