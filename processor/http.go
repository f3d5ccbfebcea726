package processor

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/threadlyhq/replybot/database"
	"github.com/threadlyhq/replybot/model"
)

type QueueAdmin interface {
	CountRepliesByStatus(ctx context.Context) (map[model.ReplyStatus]int, error)
	ResetFailedReply(ctx context.Context, itemID string, workspaceID string, maxRetries int) error
	GetQueueItem(ctx context.Context, itemID string) (*model.QueueItem, error)
}

// Handler exposes the scheduler-invoked and diagnostic queue endpoints.
type Handler struct {
	processor  *Processor
	admin      QueueAdmin
	cronSecret string
	maxRetries int
}

func NewHandler(processor *Processor, admin QueueAdmin, cronSecret string, maxRetries int) *Handler {
	return &Handler{
		processor:  processor,
		admin:      admin,
		cronSecret: cronSecret,
		maxRetries: maxRetries,
	}
}

// HandleProcess runs one processing pass. Invoked by the external scheduler
// with the shared cron secret.
func (h *Handler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	results, err := h.processor.ProcessBatch(r.Context())
	if err != nil {
		log.Errorf("error processing reply queue: %v", err)
		http.Error(w, "queue processing failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "queue processed",
		"results": results,
	})
}

// HandleStats reports queue item counts grouped by status.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	counts, err := h.admin.CountRepliesByStatus(r.Context())
	if err != nil {
		log.Errorf("error counting reply queue: %v", err)
		http.Error(w, "stats query failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"counts": counts,
	})
}

type retryRequest struct {
	ItemID string `json:"itemId"`
}

// HandleRetry resets a failed item back to pending, due immediately. Only
// failed items with retries remaining, scoped to the caller's workspace, are
// eligible.
func (h *Handler) HandleRetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	workspaceID := r.Header.Get("X-Workspace-ID")
	if workspaceID == "" {
		http.Error(w, "missing workspace header", http.StatusBadRequest)
		return
	}

	var req retryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ItemID == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	err := h.admin.ResetFailedReply(r.Context(), req.ItemID, workspaceID, h.maxRetries)
	if err != nil {
		if errors.Is(err, database.ErrRetryNotAllowed) {
			http.Error(w, "item is not eligible for retry", http.StatusConflict)
			return
		}
		log.WithField("itemId", req.ItemID).Errorf("error retrying reply: %v", err)
		http.Error(w, "retry failed", http.StatusInternalServerError)
		return
	}

	log.WithField("itemId", req.ItemID).WithField("workspaceId", workspaceID).Info("failed reply reset for retry")

	body := map[string]interface{}{
		"message": "item requeued",
	}
	if item, err := h.admin.GetQueueItem(r.Context(), req.ItemID); err != nil {
		log.WithField("itemId", req.ItemID).Warnf("error reading requeued item: %v", err)
	} else {
		body["item"] = map[string]interface{}{
			"id":          item.ID,
			"status":      item.Status,
			"scheduledAt": item.ScheduledAt,
			"retryCount":  item.RetryCount,
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *Handler) authorized(r *http.Request) bool {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.cronSecret)) == 1
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Errorf("error encoding response: %v", err)
	}
}
