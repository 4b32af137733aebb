package routes

import (
	"skillswap_server/controllers"
	"skillswap_server/services"

	"github.com/gorilla/mux"
)

// RegisterSessionRoutes sets up chat session routes under /api/sessions
func RegisterSessionRoutes(r *mux.Router, sessionService *services.SessionService) {
	controller := controllers.NewSessionController(sessionService)

	sessionRouter := r.PathPrefix("/api/sessions").Subrouter()

	sessionRouter.HandleFunc("/message", controller.HandleSendMessage).Methods("POST")
	sessionRouter.HandleFunc("/messages", controller.HandleGetMessages).Methods("GET")
	sessionRouter.HandleFunc("/{roomId}/unread", controller.HandleUnreadCount).Methods("GET")
	sessionRouter.HandleFunc("/{roomId}", controller.HandleGetSession).Methods("GET")
	sessionRouter.HandleFunc("/{roomId}", controller.HandleDeleteSession).Methods("DELETE")
}
