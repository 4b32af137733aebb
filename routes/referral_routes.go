package routes

import (
	"skillswap_server/controllers"
	"skillswap_server/services"

	"github.com/gorilla/mux"
)

// RegisterReferralRoutes sets up referral routes under /api/referrals
func RegisterReferralRoutes(r *mux.Router, quotaService *services.QuotaService) {
	controller := controllers.NewReferralController(quotaService)

	referralRouter := r.PathPrefix("/api/referrals").Subrouter()

	referralRouter.HandleFunc("", controller.HandleRegisterReferral).Methods("POST")
	referralRouter.HandleFunc("/points", controller.HandlePoints).Methods("GET")
}
