package routes

import (
	"skillswap_server/controllers"
	"skillswap_server/services"

	"github.com/gorilla/mux"
)

// RegisterSwapRoutes sets up routes for the match-seeking flow under /api/swap
func RegisterSwapRoutes(r *mux.Router, swapService *services.SwapService) {
	controller := controllers.NewSwapController(swapService)

	swapRouter := r.PathPrefix("/api/swap").Subrouter()

	swapRouter.HandleFunc("/admit", controller.HandleTryAdmit).Methods("GET")
	swapRouter.HandleFunc("/request", controller.HandleSubmitAndMatch).Methods("POST")
	swapRouter.HandleFunc("/use", controller.HandleRecordUse).Methods("POST")
}
