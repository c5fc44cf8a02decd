package notification

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/insideout-platform/notify-service/internal/handler"
	"github.com/insideout-platform/notify-service/internal/model"
	"github.com/insideout-platform/notify-service/internal/service/notification"
)

// FailedLister is the slice of the notification store the handler reads.
type FailedLister interface {
	ListFailed(ctx context.Context, limit int) ([]*model.EmailNotification, error)
}

type Handler struct {
	service notification.Service
	repo    FailedLister
}

func NewHandler(service notification.Service, repo FailedLister) *Handler {
	return &Handler{service: service, repo: repo}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	notifications := r.Group("/notifications")
	{
		notifications.POST("", h.Enqueue)
		notifications.GET("/failed", h.ListFailed)
	}
}

type enqueueRequest struct {
	Recipient string  `json:"recipient" binding:"required,email"`
	Subject   string  `json:"subject" binding:"required"`
	Body      string  `json:"body" binding:"required"`
	DedupKey  *string `json:"dedup_key,omitempty"`
}

// Enqueue accepts a notification from a producer flow and queues it for
// asynchronous delivery. With a dedup key the call is idempotent: a repeat
// returns 200 with the existing record instead of 201.
func (h *Handler) Enqueue(c *gin.Context) {
	var req enqueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	record, created, err := h.service.Enqueue(c.Request.Context(), req.Recipient, req.Subject, req.Body, req.DedupKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to enqueue notification"))
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, handler.NewSuccessResponse(record))
}

// ListFailed exposes terminally failed notifications for operator
// inspection; this service never retries or prunes them.
func (h *Handler) ListFailed(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("limit must be between 1 and 500"))
			return
		}
		limit = parsed
	}

	failed, err := h.repo.ListFailed(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to list notifications"))
		return
	}
	c.JSON(http.StatusOK, handler.NewListResponse(failed, len(failed)))
}
