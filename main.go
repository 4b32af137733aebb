package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"skillswap_server/models"
	"skillswap_server/routes"
	"skillswap_server/services"
	"skillswap_server/socket"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

func main() {
	// Initialize DynamoDB client and service
	log.Println("Initializing DynamoDB client...")
	dynamoClient := services.InitializeDynamoDBClient()
	dynamoService := &services.DynamoService{Client: dynamoClient}
	log.Println("DynamoDB client initialized.")

	chatBase := os.Getenv("WEB_CHAT_BASE")
	if chatBase == "" {
		chatBase = "http://localhost:8080"
	}

	// Initialize Services
	ledgerService := &services.RequestLedgerService{Dynamo: dynamoService}
	quotaService := services.NewQuotaService(dynamoService)
	sessionService := services.NewSessionService(dynamoService, chatBase)

	var notifier services.Notifier = services.LogNotifier{}
	if webhook := os.Getenv("NOTIFY_WEBHOOK_URL"); webhook != "" {
		notifier = services.NewWebhookNotifier(webhook)
	}

	swapService := &services.SwapService{
		Ledger:   ledgerService,
		Quota:    quotaService,
		Sessions: sessionService,
		Notifier: notifier,
	}

	// Start the periodic expiry sweep
	sweepInterval := models.SweepInterval
	if raw := os.Getenv("SWEEP_INTERVAL"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			log.Fatalf("Invalid SWEEP_INTERVAL %q: %v", raw, err)
		}
		sweepInterval = parsed
	}
	sweeper := services.NewSessionSweeper(sessionService, sweepInterval)
	sweeper.Start(context.Background())
	defer sweeper.Stop()

	// Set up the server port
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Using server port: %s\n", port)

	// Initialize the router
	r := mux.NewRouter()

	// Register a welcome route
	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "Welcome to SkillSwap")
	}).Methods("GET")

	// Register a health check endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		response := map[string]string{"status": "healthy"}
		json.NewEncoder(w).Encode(response)
	}).Methods("GET")

	// Register routes
	routes.RegisterSwapRoutes(r, swapService)
	routes.RegisterReferralRoutes(r, quotaService)
	routes.RegisterSessionRoutes(r, sessionService)

	// Socket.IO chat relay
	socketServer := socket.NewSocketServer(sessionService)
	go func() {
		if err := socketServer.Serve(); err != nil {
			log.Printf("❌ Socket.IO server error: %v", err)
		}
	}()
	defer socketServer.Close()
	r.Handle("/socket.io/", socketServer)

	// Add CORS middleware
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // Adjust for specific domains if needed
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(r)

	// Start the HTTP server
	log.Printf("Starting server on port %s...\n", port)
	log.Fatal(http.ListenAndServe(":"+port, corsHandler))
}
