package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"beam/internal/auth"
	"beam/internal/chat"
	"beam/internal/config"
	"beam/internal/database"
	"beam/internal/presence"
	postgresrepo "beam/internal/repository/postgres"
	"beam/internal/storage"
	"beam/internal/transport/http/handlers"
	"beam/internal/transport/http/middleware"
	"beam/internal/transport/ws"
)

func main() {
	cfg := config.Load()

	// Database
	if err := database.RunMigrations(context.Background(), cfg); err != nil {
		log.Fatal(err)
	}
	pool, err := database.Connect(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()
	log.Println("Connected to database")

	// Repositories
	userRepo := postgresrepo.NewUserRepo(pool)
	messageRepo := postgresrepo.NewMessageRepo(pool)

	// Image store
	uploader, err := storage.NewS3Store(cfg)
	if err != nil {
		log.Fatal(err)
	}

	// Presence + gateway
	registry := presence.NewRegistry(cfg.PresenceStrict)
	gateway := ws.NewGateway(registry)
	go gateway.Run()

	// Services
	authService := auth.NewService(userRepo, cfg.JWTSecret, uploader)
	chatService := chat.NewService(messageRepo, userRepo, uploader)
	chatService.SetNotifier(ws.NewPushNotifier(registry))

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, cfg)
	messageHandler := handlers.NewMessageHandler(chatService)

	// Session middleware
	session := middleware.Session(authService)

	// Routes
	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ok"}`))
	})
	mux.HandleFunc("POST /api/auth/signup", authHandler.Signup)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)

	// Protected - Auth
	mux.Handle("GET /api/auth/check", session(http.HandlerFunc(authHandler.Check)))
	mux.Handle("PUT /api/auth/update-profile", session(http.HandlerFunc(authHandler.UpdateProfile)))

	// Protected - Messages
	mux.Handle("GET /api/message/users", session(http.HandlerFunc(messageHandler.ListUsers)))
	mux.Handle("GET /api/message/{id}", session(http.HandlerFunc(messageHandler.History)))
	mux.Handle("POST /api/message/send/{id}", session(http.HandlerFunc(messageHandler.Send)))

	// Real-time channel
	mux.HandleFunc("GET /ws", ws.ServeWS(gateway))

	// Start server with CORS
	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("Starting server on %s", addr)
	log.Fatal(http.ListenAndServe(addr, middleware.CORS(cfg.CORSOrigin)(mux)))
}
