package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"cloud-backend/utils/response"
)

// HealthChecker is implemented by *database.DB.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

type HealthHandler struct {
	db     HealthChecker
	logger *log.Logger
}

func NewHealthHandler(db HealthChecker) *HealthHandler {
	return &HealthHandler{
		db:     db,
		logger: log.New(log.Writer(), "[HealthHandler] ", log.LstdFlags),
	}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.CheckHealth(ctx); err != nil {
		h.logger.Printf("Database health check failed: %v", err)
		response.Error(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}
	response.Success(w, map[string]string{"status": "ok"}, "")
}
