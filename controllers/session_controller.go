package controllers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"skillswap_server/models"
	"skillswap_server/services"
	"skillswap_server/utils"

	"github.com/gorilla/mux"
)

// SessionController exposes chat rooms to participants and the admin
// deletion path.
type SessionController struct {
	SessionService *services.SessionService
}

func NewSessionController(service *services.SessionService) *SessionController {
	return &SessionController{SessionService: service}
}

// HandleGetSession - participant-scoped view of a room
func (c *SessionController) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]
	me := r.URL.Query().Get("me")

	session, err := c.SessionService.GetSession(r.Context(), roomID)
	if errors.Is(err, services.ErrNotFound) {
		utils.WriteJSONResponse(w, http.StatusNotFound, map[string]string{"error": models.ReasonRoomNotFound})
		return
	}
	if err != nil {
		log.Printf("❌ Failed to fetch room %s: %v", roomID, err)
		http.Error(w, `{"error": "temporarily unavailable"}`, http.StatusInternalServerError)
		return
	}
	if services.IsExpired(session, c.SessionService.Now()) {
		utils.WriteJSONResponse(w, http.StatusGone, map[string]string{"error": models.ReasonRoomExpired})
		return
	}

	view := map[string]interface{}{
		"roomId":    session.RoomID,
		"createdAt": session.CreatedAt,
		"expiresAt": session.ExpiresAt,
	}
	if myName, ok := session.Participants[me]; ok {
		view["myName"] = myName
		for id, name := range session.Participants {
			if id != me {
				view["peerName"] = name
			}
		}
	}

	utils.WriteJSONResponse(w, http.StatusOK, view)
}

// HandleDeleteSession - explicit admin deletion
func (c *SessionController) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]

	if err := c.SessionService.DeleteSession(r.Context(), roomID); err != nil {
		log.Printf("❌ Failed to delete room %s: %v", roomID, err)
		http.Error(w, `{"error": "temporarily unavailable"}`, http.StatusInternalServerError)
		return
	}

	utils.WriteJSONResponse(w, http.StatusOK, map[string]string{"status": "success", "roomId": roomID})
}

// HandleSendMessage - append a message to a room's log
func (c *SessionController) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	var message models.Message
	if err := json.NewDecoder(r.Body).Decode(&message); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}
	if message.RoomID == "" || message.SenderID == "" || message.Content == "" {
		http.Error(w, `{"error": "Missing required fields: roomId, senderId, or content"}`, http.StatusBadRequest)
		return
	}

	err := c.SessionService.SendMessage(r.Context(), message)
	if errors.Is(err, services.ErrNotFound) {
		utils.WriteJSONResponse(w, http.StatusNotFound, map[string]string{"error": models.ReasonRoomNotFound})
		return
	}
	if errors.Is(err, services.ErrSessionExpired) {
		utils.WriteJSONResponse(w, http.StatusGone, map[string]string{"error": models.ReasonRoomExpired})
		return
	}
	if err != nil {
		log.Printf("❌ Failed to send message in room %s: %v", message.RoomID, err)
		http.Error(w, `{"error": "temporarily unavailable"}`, http.StatusInternalServerError)
		return
	}

	utils.WriteJSONResponse(w, http.StatusOK, map[string]string{"status": "success"})
}

// HandleUnreadCount - unread badge for one participant of a room
func (c *SessionController) HandleUnreadCount(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]
	me := r.URL.Query().Get("me")
	if me == "" {
		http.Error(w, `{"error": "me is required"}`, http.StatusBadRequest)
		return
	}

	session, err := c.SessionService.GetSession(r.Context(), roomID)
	if errors.Is(err, services.ErrNotFound) {
		utils.WriteJSONResponse(w, http.StatusNotFound, map[string]string{"error": models.ReasonRoomNotFound})
		return
	}
	if err != nil {
		log.Printf("❌ Failed to fetch room %s: %v", roomID, err)
		http.Error(w, `{"error": "temporarily unavailable"}`, http.StatusInternalServerError)
		return
	}
	if services.IsExpired(session, c.SessionService.Now()) {
		utils.WriteJSONResponse(w, http.StatusGone, map[string]string{"error": models.ReasonRoomExpired})
		return
	}

	count, err := c.SessionService.UnreadCountFor(r.Context(), roomID, me)
	if err != nil {
		log.Printf("❌ Failed to count unread messages for room %s: %v", roomID, err)
		http.Error(w, `{"error": "temporarily unavailable"}`, http.StatusInternalServerError)
		return
	}

	utils.WriteJSONResponse(w, http.StatusOK, map[string]interface{}{"roomId": roomID, "unread": count})
}

// HandleGetMessages - fetch a room's messages, oldest first
func (c *SessionController) HandleGetMessages(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("roomId")
	if roomID == "" {
		http.Error(w, `{"error": "roomId is required"}`, http.StatusBadRequest)
		return
	}

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 50
	}

	messages, err := c.SessionService.GetMessages(r.Context(), roomID, limit)
	if err != nil {
		log.Printf("❌ Failed to fetch messages for room %s: %v", roomID, err)
		http.Error(w, `{"error": "temporarily unavailable"}`, http.StatusInternalServerError)
		return
	}

	utils.WriteJSONResponse(w, http.StatusOK, messages)
}
