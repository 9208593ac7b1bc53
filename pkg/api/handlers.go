package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"waiver-sync/pkg/clients/smartwaiver"
	"waiver-sync/pkg/middleware"
	"waiver-sync/pkg/models"
	"waiver-sync/pkg/services"
)

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	syncService   services.SyncService
	smartwaiver   smartwaiver.Client
	syncWindow    time.Duration
	webhookSecret string
}

// NewHandlers creates a new Handlers instance
func NewHandlers(syncService services.SyncService, smartwaiverClient smartwaiver.Client, syncWindow time.Duration, webhookSecret string) *Handlers {
	return &Handlers{
		syncService:   syncService,
		smartwaiver:   smartwaiverClient,
		syncWindow:    syncWindow,
		webhookSecret: webhookSecret,
	}
}

// Routes registers all API routes on the router. Only the push route is
// signature-checked; polling and queue pulls are operator-triggered.
func (h *Handlers) Routes(r *gin.Engine) {
	r.GET("/health", h.HealthCheck)
	r.GET("/sync", h.HandleWindowSync)
	r.POST("/sync/queue", h.HandleQueueSync)
	r.POST("/webhook/waiver", middleware.VerifySignature(h.webhookSecret), h.HandleWaiverWebhook)
}

// HealthCheck handler for monitoring
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// HandleWindowSync processes all waivers created within the trailing window.
func (h *Handlers) HandleWindowSync(c *gin.Context) {
	feed := services.NewWindowFeed(h.smartwaiver, h.syncWindow)
	h.runSync(c, feed)
}

// HandleQueueSync pulls at most one pending notification and processes it.
// An empty queue is a normal zero-processed invocation.
func (h *Handlers) HandleQueueSync(c *gin.Context) {
	feed := services.NewQueueFeed(h.smartwaiver)
	h.runSync(c, feed)
}

// HandleWaiverWebhook processes a single pushed waiver notification. A payload
// without a waiver identifier is the sender's error and touches neither
// external system.
func (h *Handlers) HandleWaiverWebhook(c *gin.Context) {
	var payload models.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format"})
		return
	}

	if payload.UniqueID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing unique_id"})
		return
	}

	h.runSync(c, services.NewPushFeed(payload.UniqueID))
}

func (h *Handlers) runSync(c *gin.Context, feed services.FeedReader) {
	report, err := h.syncService.Run(c.Request.Context(), feed)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error",
			"error":  err.Error(),
			"report": report,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": report.Summary(),
		"report":  report,
	})
}
