// Package webhook receives inbound comment events from the platform,
// persists them and hands them to the rule selector.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/threadlyhq/replybot/model"
)

type CommentStore interface {
	GetAccountByExternalID(ctx context.Context, externalID string) (*model.SocialAccount, error)
	FindCommentByExternalID(ctx context.Context, accountID string, externalID string) (*model.Comment, error)
	InsertComment(ctx context.Context, c model.Comment) (string, error)
}

type RuleSelector interface {
	HandleComment(ctx context.Context, comment model.Comment) (*model.Rule, error)
}

// Deduper guards against redelivered webhook events; the platform retries
// aggressively and comment IDs are not unique-constrained in the database.
type Deduper interface {
	IsDuplicate(ctx context.Context, externalID string) (bool, error)
	MarkProcessed(ctx context.Context, externalID string) error
}

type Handler struct {
	store       CommentStore
	selector    RuleSelector
	dedupe      Deduper
	verifyToken string
	appSecret   string
	// In test mode deliveries are accepted without a signature
	testModeEnabled bool
}

func NewHandler(store CommentStore, selector RuleSelector, dedupe Deduper, verifyToken string, appSecret string, isTestMode bool) *Handler {
	return &Handler{
		store:           store,
		selector:        selector,
		dedupe:          dedupe,
		verifyToken:     verifyToken,
		appSecret:       appSecret,
		testModeEnabled: isTestMode,
	}
}

// HandleWebhook dispatches the single webhook path: GET is the subscription
// handshake, POST is an event delivery.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleVerify(w, r)
	case http.MethodPost:
		h.handleEvent(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken {
		log.Info("webhook subscription verified")
		fmt.Fprint(w, challenge)
		return
	}

	log.WithField("mode", mode).Warn("webhook verification failed")
	http.Error(w, "forbidden", http.StatusForbidden)
}

/*
handleEvent verifies the delivery signature, then processes each entry in
isolation: one malformed or failing entry is logged and skipped, never
surfaced as a non-2xx response. Returning an error status would only make the
platform redeliver the whole batch.
*/
func (h *Handler) handleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if !h.testModeEnabled {
		if !h.validSignature(body, r.Header.Get("x-hub-signature-256")) {
			log.Warn("webhook delivery with invalid signature rejected")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		log.Warnf("unparseable webhook payload: %v", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	for _, entry := range event.Entry {
		h.processEntry(r.Context(), entry)
	}

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"received":true}`)
}

func (h *Handler) processEntry(ctx context.Context, entry Entry) {
	account, err := h.store.GetAccountByExternalID(ctx, entry.ID)
	if err != nil {
		log.WithField("accountExternalId", entry.ID).Warnf("no workspace account for webhook entry: %v", err)
		return
	}

	for _, change := range entry.Changes {
		if change.Field != fieldComments {
			continue
		}

		var value CommentValue
		if err := json.Unmarshal(change.Value, &value); err != nil {
			log.WithField("accountExternalId", entry.ID).Warnf("malformed comment change: %v", err)
			continue
		}
		if value.ID == "" {
			log.WithField("accountExternalId", entry.ID).Warn("comment change missing id")
			continue
		}

		duplicate, err := h.dedupe.IsDuplicate(ctx, value.ID)
		if err != nil {
			// The cache is unavailable; fall back to the comments table
			// before treating the delivery as new.
			log.WithField("commentExternalId", value.ID).Warnf("dedupe check failed: %v", err)
			existing, lookupErr := h.store.FindCommentByExternalID(ctx, account.ID, value.ID)
			if lookupErr != nil {
				log.WithField("commentExternalId", value.ID).Warnf("duplicate lookup failed: %v", lookupErr)
			}
			duplicate = existing != nil
		}
		if duplicate {
			log.WithField("commentExternalId", value.ID).Debug("duplicate comment delivery skipped")
			continue
		}

		comment := model.Comment{
			WorkspaceID:            account.WorkspaceID,
			AccountID:              account.ID,
			ExternalID:             value.ID,
			ExternalPostID:         value.Media.ID,
			ExternalAuthorID:       value.From.ID,
			ExternalAuthorUsername: value.From.Username,
			Text:                   value.Text,
			RawPayload:             change.Value,
		}
		if value.RepliedTo != nil {
			comment.ParentExternalID = value.RepliedTo.ID
		}

		commentID, err := h.store.InsertComment(ctx, comment)
		if err != nil {
			log.WithField("commentExternalId", value.ID).Errorf("error persisting comment: %v", err)
			continue
		}
		comment.ID = commentID

		if err := h.dedupe.MarkProcessed(ctx, value.ID); err != nil {
			log.WithField("commentExternalId", value.ID).Warnf("error marking comment processed: %v", err)
		}

		// The comment is saved either way; a selector failure only skips
		// the auto-reply for it.
		if _, err := h.selector.HandleComment(ctx, comment); err != nil {
			log.WithField("commentId", commentID).Errorf("error selecting rule for comment: %v", err)
		}
	}
}

// validSignature checks x-hub-signature-256 ("sha256=<hex>") over the raw
// body. hmac.Equal keeps the comparison constant-time.
func (h *Handler) validSignature(body []byte, header string) bool {
	received, found := strings.CutPrefix(header, "sha256=")
	if !found {
		return false
	}

	mac := hmac.New(sha256.New, []byte(h.appSecret))
	mac.Write(body)
	computed := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(computed), []byte(received))
}
