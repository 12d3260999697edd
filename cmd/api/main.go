package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud-backend/internal/config"
	"cloud-backend/internal/database"
	"cloud-backend/internal/handlers"
	"cloud-backend/internal/middleware"
	"cloud-backend/internal/services"
	"cloud-backend/internal/storage"

	"github.com/gorilla/sessions"
)

const sessionMaxAge = 14 * 24 * 60 * 60

func main() {
	cfg := config.Load()

	if err := database.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	db, err := database.Init(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	blobs := storage.NewLocalStorage(cfg.StorageRoot)
	if err := blobs.Init(); err != nil {
		log.Fatalf("Failed to initialize storage at %s: %v", cfg.StorageRoot, err)
	}

	if err := os.MkdirAll(cfg.SessionDir, 0700); err != nil {
		log.Fatalf("Failed to create session directory: %v", err)
	}
	sessionStore := sessions.NewFilesystemStore(cfg.SessionDir, []byte(cfg.SessionSecret))
	sessionStore.MaxAge(sessionMaxAge)
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.Secure = cfg.SecureCookies
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	authService := services.NewAuthService(db)
	userService := services.NewUserService(db, db, blobs)
	fileService := services.NewFileService(db, db, blobs, services.NewLinkKeyGenerator(db, nil))

	if cfg.BootstrapAdmin() {
		if err := authService.EnsureAdmin(context.Background(), cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Fatalf("Failed to bootstrap admin user: %v", err)
		}
	}

	sessionAuth := middleware.NewSessionAuth(sessionStore, authService)
	csrf := middleware.NewCSRF(cfg.CSRFSecret, cfg.SecureCookies)

	router := handlers.NewRouter(handlers.Routes{
		Sessions: sessionAuth,
		CSRF:     csrf,
		Auth:     handlers.NewAuthHandler(authService, sessionAuth, csrf),
		Users:    handlers.NewUserHandler(userService),
		Files:    handlers.NewFileHandler(fileService, cfg.MaxUploadBytes, cfg.DownloadLandingPath),
		Health:   handlers.NewHealthHandler(db),
	})

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://%s", cfg.Addr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("Received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	log.Println("Server stopped")
}
