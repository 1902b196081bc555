// Package handler exposes the notification core over HTTP: one
// evaluation endpoint and a health probe, mirroring the teacher's
// gin + swagger wiring.
package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/Abhinay1073/cyepro-notification-engine/docs"
	"github.com/Abhinay1073/cyepro-notification-engine/internal/domain"
)

// Evaluator runs the notification pipeline.
type Evaluator interface {
	Evaluate(ctx context.Context, event *domain.Event) (domain.Decision, error)
}

// KVPinger checks reachability of the KV store backing dedup/fatigue.
type KVPinger interface {
	Ping(ctx context.Context) error
}

// AuditPinger checks reachability of the audit persistence sink.
type AuditPinger interface {
	Ping(ctx context.Context) error
}

// ErrorResponse is the standard error envelope for 4xx/5xx responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Handler wires the gin router to the pipeline orchestrator.
type Handler struct {
	evaluator Evaluator
	kv        KVPinger
	audit     AuditPinger
	router    *gin.Engine
	log       *zap.Logger
}

// NewHandler builds a Handler and registers its routes.
func NewHandler(evaluator Evaluator, kv KVPinger, audit AuditPinger, log *zap.Logger) *Handler {
	h := &Handler{
		evaluator: evaluator,
		kv:        kv,
		audit:     audit,
		router:    gin.Default(),
		log:       log,
	}

	h.registerRoutes()
	return h
}

// ServeHTTP lets Handler satisfy http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.router.GET("/health", h.healthCheck)
	h.router.POST("/v1/notifications/evaluate", h.evaluate)
	h.router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// healthCheck handles health check requests
// @Summary Health check
// @Description Check if the service is running, pinging the KV store and (best-effort) the audit sink
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.kv.Ping(ctx); err != nil {
		h.log.Error("health check: kv store unreachable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "kv": "unreachable"})
		return
	}

	status := gin.H{"status": "ok", "kv": "ok"}
	if err := h.audit.Ping(ctx); err != nil {
		h.log.Warn("health check: audit sink unreachable", zap.Error(err))
		status["audit"] = "unreachable"
	} else {
		status["audit"] = "ok"
	}

	c.JSON(http.StatusOK, status)
}

// evaluate handles POST /v1/notifications/evaluate
// @Summary Evaluate a notification candidate
// @Description Run the prioritization core against a single event and return its decision
// @Tags notifications
// @Accept json
// @Produce json
// @Param event body domain.Event true "Event to evaluate"
// @Success 200 {object} domain.Decision
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /v1/notifications/evaluate [post]
func (h *Handler) evaluate(c *gin.Context) {
	var event domain.Event
	if err := c.ShouldBindJSON(&event); err != nil {
		h.log.Warn("invalid evaluate request", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: err.Error()})
		return
	}

	decision, err := h.evaluator.Evaluate(c.Request.Context(), &event)
	if err != nil {
		h.log.Error("evaluation failed",
			zap.Error(err),
			zap.String("user_id", event.UserID),
			zap.String("event_type", event.EventType))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: err.Error()})
		return
	}

	h.log.Info("notification evaluated",
		zap.String("user_id", event.UserID),
		zap.String("decision", string(decision.DecisionKind)),
		zap.Int("score", decision.Score),
		zap.String("audit_id", decision.AuditID))

	c.JSON(http.StatusOK, decision)
}
