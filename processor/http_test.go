package processor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/threadlyhq/replybot/database"
	"github.com/threadlyhq/replybot/model"
)

type MockQueueAdmin struct {
	mock.Mock
}

func (m *MockQueueAdmin) CountRepliesByStatus(ctx context.Context) (map[model.ReplyStatus]int, error) {
	args := m.Called(ctx)
	return args.Get(0).(map[model.ReplyStatus]int), args.Error(1)
}

func (m *MockQueueAdmin) ResetFailedReply(ctx context.Context, itemID string, workspaceID string, maxRetries int) error {
	args := m.Called(ctx, itemID, workspaceID, maxRetries)
	return args.Error(0)
}

func (m *MockQueueAdmin) GetQueueItem(ctx context.Context, itemID string) (*model.QueueItem, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.QueueItem), args.Error(1)
}

func emptyProcessor() *Processor {
	store := new(MockQueueStore)
	store.On("ReleasePostponed", mock.Anything).Return(int64(0), nil)
	store.On("ClaimDueReplies", mock.Anything, mock.Anything, mock.Anything).Return([]model.PendingReply{}, nil)
	limiter := new(MockRateLimiter)
	return NewProcessor(store, new(MockPublisher), limiter, testQueueConfig(), false)
}

func TestHandleProcess(t *testing.T) {
	t.Run("rejects a missing or wrong bearer token", func(t *testing.T) {
		handler := NewHandler(emptyProcessor(), new(MockQueueAdmin), "cron-secret", 3)

		req := httptest.NewRequest(http.MethodPost, "/queue/process", nil)
		rec := httptest.NewRecorder()
		handler.HandleProcess(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		req = httptest.NewRequest(http.MethodPost, "/queue/process", nil)
		req.Header.Set("Authorization", "Bearer wrong")
		rec = httptest.NewRecorder()
		handler.HandleProcess(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("processes a batch and reports results", func(t *testing.T) {
		handler := NewHandler(emptyProcessor(), new(MockQueueAdmin), "cron-secret", 3)

		req := httptest.NewRequest(http.MethodPost, "/queue/process", nil)
		req.Header.Set("Authorization", "Bearer cron-secret")
		rec := httptest.NewRecorder()
		handler.HandleProcess(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Message string  `json:"message"`
			Results Results `json:"results"`
		}
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "queue processed", body.Message)
		assert.Equal(t, Results{}, body.Results)
	})

	t.Run("rejects non-POST methods", func(t *testing.T) {
		handler := NewHandler(emptyProcessor(), new(MockQueueAdmin), "cron-secret", 3)

		req := httptest.NewRequest(http.MethodGet, "/queue/process", nil)
		req.Header.Set("Authorization", "Bearer cron-secret")
		rec := httptest.NewRecorder()
		handler.HandleProcess(rec, req)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestHandleStats(t *testing.T) {
	t.Run("reports counts grouped by status", func(t *testing.T) {
		admin := new(MockQueueAdmin)
		admin.On("CountRepliesByStatus", mock.Anything).Return(map[model.ReplyStatus]int{
			model.ReplyStatusPending:   4,
			model.ReplyStatusCompleted: 12,
			model.ReplyStatusFailed:    1,
		}, nil)
		handler := NewHandler(emptyProcessor(), admin, "cron-secret", 3)

		req := httptest.NewRequest(http.MethodGet, "/queue/stats", nil)
		req.Header.Set("Authorization", "Bearer cron-secret")
		rec := httptest.NewRecorder()
		handler.HandleStats(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Counts map[string]int `json:"counts"`
		}
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, 4, body.Counts["pending"])
		assert.Equal(t, 12, body.Counts["completed"])
	})
}

func TestHandleRetry(t *testing.T) {
	t.Run("requeues an eligible failed item", func(t *testing.T) {
		admin := new(MockQueueAdmin)
		admin.On("ResetFailedReply", mock.Anything, "item_1", "ws_1", 3).Return(nil)
		admin.On("GetQueueItem", mock.Anything, "item_1").Return(&model.QueueItem{
			ID:         "item_1",
			Status:     model.ReplyStatusPending,
			RetryCount: 1,
		}, nil)
		handler := NewHandler(emptyProcessor(), admin, "cron-secret", 3)

		req := httptest.NewRequest(http.MethodPost, "/queue/retry", strings.NewReader(`{"itemId":"item_1"}`))
		req.Header.Set("Authorization", "Bearer cron-secret")
		req.Header.Set("X-Workspace-ID", "ws_1")
		rec := httptest.NewRecorder()
		handler.HandleRetry(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Message string `json:"message"`
			Item    struct {
				Status string `json:"status"`
			} `json:"item"`
		}
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "pending", body.Item.Status)
		admin.AssertExpectations(t)
	})

	t.Run("rejects an ineligible item", func(t *testing.T) {
		admin := new(MockQueueAdmin)
		admin.On("ResetFailedReply", mock.Anything, "item_1", "ws_1", 3).Return(database.ErrRetryNotAllowed)
		handler := NewHandler(emptyProcessor(), admin, "cron-secret", 3)

		req := httptest.NewRequest(http.MethodPost, "/queue/retry", strings.NewReader(`{"itemId":"item_1"}`))
		req.Header.Set("Authorization", "Bearer cron-secret")
		req.Header.Set("X-Workspace-ID", "ws_1")
		rec := httptest.NewRecorder()
		handler.HandleRetry(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("requires the workspace header", func(t *testing.T) {
		handler := NewHandler(emptyProcessor(), new(MockQueueAdmin), "cron-secret", 3)

		req := httptest.NewRequest(http.MethodPost, "/queue/retry", strings.NewReader(`{"itemId":"item_1"}`))
		req.Header.Set("Authorization", "Bearer cron-secret")
		rec := httptest.NewRecorder()
		handler.HandleRetry(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
