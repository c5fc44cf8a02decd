package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insideout-platform/notify-service/internal/model"
	notificationsvc "github.com/insideout-platform/notify-service/internal/service/notification"
)

type stubService struct {
	record  *model.EmailNotification
	created bool
	err     error
}

func (s *stubService) Enqueue(ctx context.Context, recipient, subject, body string, dedupKey *string) (*model.EmailNotification, bool, error) {
	return s.record, s.created, s.err
}

func (s *stubService) NotifyPaymentConfirmed(ctx context.Context, student *model.User, courseTitle string) (int, error) {
	return 0, nil
}

func (s *stubService) NotifyScheduleCreated(ctx context.Context, student *model.User, courseTitle string, sessionCount int, firstDate *time.Time) (int, error) {
	return 0, nil
}

func (s *stubService) NotifyNewCoursePublished(ctx context.Context, courseTitle string) (int, error) {
	return 0, nil
}

type stubRepo struct {
	failed []*model.EmailNotification
	err    error

	gotLimit int
}

func (r *stubRepo) ListFailed(ctx context.Context, limit int) ([]*model.EmailNotification, error) {
	r.gotLimit = limit
	return r.failed, r.err
}

func newTestRouter(svc notificationsvc.Service, repo *stubRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	h := NewHandler(svc, repo)
	h.RegisterRoutes(engine.Group("/api/v1"))
	return engine
}

func TestEnqueue_CreatedReturns201(t *testing.T) {
	record := &model.EmailNotification{
		ID:        uuid.New(),
		Recipient: "student@example.com",
		Subject:   "subject",
		Body:      "body",
		Status:    model.NotificationStatusPending,
	}
	engine := newTestRouter(&stubService{record: record, created: true}, &stubRepo{})

	payload, _ := json.Marshal(map[string]string{
		"recipient": "student@example.com",
		"subject":   "subject",
		"body":      "body",
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestEnqueue_ExistingDedupReturns200(t *testing.T) {
	record := &model.EmailNotification{ID: uuid.New(), Status: model.NotificationStatusPending}
	engine := newTestRouter(&stubService{record: record, created: false}, &stubRepo{})

	payload, _ := json.Marshal(map[string]string{
		"recipient": "student@example.com",
		"subject":   "subject",
		"body":      "body",
		"dedup_key": "payment:42",
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestEnqueue_InvalidPayload(t *testing.T) {
	engine := newTestRouter(&stubService{}, &stubRepo{})

	payload, _ := json.Marshal(map[string]string{
		"recipient": "not-an-email",
		"subject":   "subject",
		"body":      "body",
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListFailed_DefaultLimit(t *testing.T) {
	repo := &stubRepo{failed: []*model.EmailNotification{
		{ID: uuid.New(), Status: model.NotificationStatusFailed},
	}}
	engine := newTestRouter(&stubService{}, repo)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications/failed", nil)
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 50, repo.gotLimit)

	var resp struct {
		Status string `json:"status"`
		Count  int    `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, 1, resp.Count)
}

func TestListFailed_LimitOutOfRange(t *testing.T) {
	engine := newTestRouter(&stubService{}, &stubRepo{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications/failed?limit=9999", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
