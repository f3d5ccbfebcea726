// Package processor drains the reply queue. Each invocation is one bounded
// pass over the due items; an external scheduler drives repeated passes.
package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/lucsky/cuid"
	log "github.com/sirupsen/logrus"
	"github.com/threadlyhq/replybot/config"
	"github.com/threadlyhq/replybot/model"
)

type QueueStore interface {
	ReleasePostponed(ctx context.Context) (int64, error)
	ClaimDueReplies(ctx context.Context, batchSize int, maxRetries int) ([]model.PendingReply, error)
	CompleteReply(ctx context.Context, itemID string, externalReplyID string) error
	FailReply(ctx context.Context, itemID string, message string) error
	RescheduleRetry(ctx context.Context, itemID string, retryCount int, nextAt time.Time, message string) error
	PostponeReply(ctx context.Context, itemID string, nextAt time.Time) error
	MarkCommentReplied(ctx context.Context, commentID string) error
	SetCommentReplyError(ctx context.Context, commentID string, message string) error
	AddReplyLog(ctx context.Context, entry model.ReplyLog) error
}

type Publisher interface {
	PublishReply(ctx context.Context, accountExternalID string, replyToID string, text string) (string, error)
}

type RateLimiter interface {
	CheckRateLimit(ctx context.Context, scope model.RateScope) (bool, error)
}

// Results summarizes one processing pass.
type Results struct {
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	Retried    int `json:"retried"`
	Postponed  int `json:"postponed"`
}

type outcome int

const (
	outcomeCompleted outcome = iota
	outcomeRetried
	outcomePostponed
	outcomeFailed
)

type Processor struct {
	db              QueueStore
	publisher       Publisher
	limiter         RateLimiter
	queueConfig     config.Queue
	testModeEnabled bool
}

func NewProcessor(db QueueStore, publisher Publisher, limiter RateLimiter, queueConfig config.Queue, isTestMode bool) *Processor {
	return &Processor{
		db:              db,
		publisher:       publisher,
		limiter:         limiter,
		queueConfig:     queueConfig,
		testModeEnabled: isTestMode,
	}
}

/*
ProcessBatch claims one batch of due items and works through them
sequentially, pacing consecutive external calls. A failure on one item never
aborts the rest of the batch: every outcome, including a panic, is converted
into a state transition on that item alone.
*/
func (p *Processor) ProcessBatch(ctx context.Context) (Results, error) {
	var results Results

	released, err := p.db.ReleasePostponed(ctx)
	if err != nil {
		return results, err
	}
	if released > 0 {
		log.Infof("re-armed %d postponed replies", released)
	}

	items, err := p.db.ClaimDueReplies(ctx, p.queueConfig.BatchSize, p.queueConfig.MaxRetries)
	if err != nil {
		return results, err
	}
	if len(items) > 0 {
		log.Infof("claimed %d replies for processing", len(items))
	}

	for i, item := range items {
		if i > 0 && p.queueConfig.PacingDelay > 0 {
			// Deliberate throttle between consecutive external calls
			time.Sleep(p.queueConfig.PacingDelay)
		}
		switch p.processItem(ctx, item) {
		case outcomeCompleted:
			results.Successful++
		case outcomeRetried:
			results.Retried++
		case outcomePostponed:
			results.Postponed++
		case outcomeFailed:
			results.Failed++
		}
	}

	return results, nil
}

func (p *Processor) processItem(ctx context.Context, item model.PendingReply) (result outcome) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("itemId", item.ID).Errorf("panic processing reply: %v", r)
			if err := p.db.FailReply(ctx, item.ID, fmt.Sprintf("panic: %v", r)); err != nil {
				log.WithField("itemId", item.ID).Errorf("error failing panicked reply: %v", err)
			}
			result = outcomeFailed
		}
	}()

	allowed, err := p.limiter.CheckRateLimit(ctx, item.RateScopeFor())
	if err != nil {
		return p.handleFailure(ctx, item, err)
	}
	if !allowed {
		nextAt := time.Now().UTC().Add(p.queueConfig.PostponeDelay)
		log.WithField("itemId", item.ID).WithField("nextAt", nextAt).Info("reply rate limited, postponing")
		if err := p.db.PostponeReply(ctx, item.ID, nextAt); err != nil {
			log.WithField("itemId", item.ID).Errorf("error postponing reply: %v", err)
			return outcomeFailed
		}
		return outcomePostponed
	}

	var externalReplyID string
	if p.testModeEnabled {
		externalReplyID = cuid.New()
		log.WithField("itemId", item.ID).WithField("replyToID", item.CommentExternalID).Infof("Simulating reply with external ID %s", externalReplyID)
	} else {
		externalReplyID, err = p.publisher.PublishReply(ctx, item.AccountExternalID, item.CommentExternalID, item.ReplyText)
		if err != nil {
			return p.handleFailure(ctx, item, err)
		}
	}

	if err := p.db.CompleteReply(ctx, item.ID, externalReplyID); err != nil {
		log.Warnf("Reply %s was published but wasn't recorded in the database: %v", externalReplyID, err)
		return outcomeFailed
	}
	if err := p.db.MarkCommentReplied(ctx, item.CommentID); err != nil {
		log.WithField("commentId", item.CommentID).Warnf("error marking comment replied: %v", err)
	}
	if err := p.db.AddReplyLog(ctx, model.ReplyLog{
		WorkspaceID:     item.WorkspaceID,
		AccountID:       item.AccountID,
		RuleID:          item.RuleID,
		CommentID:       item.CommentID,
		ReplyQueueID:    item.ID,
		ExternalUserID:  item.ExternalAuthorID,
		ExternalReplyID: externalReplyID,
		Status:          model.LogStatusSent,
	}); err != nil {
		log.WithField("itemId", item.ID).Warnf("error appending reply log: %v", err)
	}

	log.WithField("itemId", item.ID).WithField("externalReplyId", externalReplyID).Info("reply published")
	return outcomeCompleted
}

// handleFailure applies the retry contract: transient failures are re-armed
// with exponential backoff while attempts remain, everything else is final.
func (p *Processor) handleFailure(ctx context.Context, item model.PendingReply, cause error) outcome {
	message := cause.Error()

	if IsTemporary(cause) && item.RetryCount < p.queueConfig.MaxRetries-1 {
		nextAt := time.Now().UTC().Add(p.backoff(item.RetryCount))
		log.WithField("itemId", item.ID).WithField("retryCount", item.RetryCount+1).WithField("nextAt", nextAt).Warnf("temporary publish failure, retrying: %v", cause)
		if err := p.db.RescheduleRetry(ctx, item.ID, item.RetryCount+1, nextAt, message); err != nil {
			log.WithField("itemId", item.ID).Errorf("error rescheduling reply: %v", err)
			return outcomeFailed
		}
		return outcomeRetried
	}

	log.WithField("itemId", item.ID).WithField("retryCount", item.RetryCount).Errorf("permanent publish failure: %v", cause)
	if err := p.db.FailReply(ctx, item.ID, message); err != nil {
		log.WithField("itemId", item.ID).Errorf("error failing reply: %v", err)
	}
	if err := p.db.SetCommentReplyError(ctx, item.CommentID, message); err != nil {
		log.WithField("commentId", item.CommentID).Warnf("error recording comment reply error: %v", err)
	}
	if err := p.db.AddReplyLog(ctx, model.ReplyLog{
		WorkspaceID:    item.WorkspaceID,
		AccountID:      item.AccountID,
		RuleID:         item.RuleID,
		CommentID:      item.CommentID,
		ReplyQueueID:   item.ID,
		ExternalUserID: item.ExternalAuthorID,
		Status:         model.LogStatusFailed,
		Detail:         message,
	}); err != nil {
		log.WithField("itemId", item.ID).Warnf("error appending reply log: %v", err)
	}
	return outcomeFailed
}

// backoff computes the delay before attempt retryCount+1: base * 2^(n+1).
func (p *Processor) backoff(retryCount int) time.Duration {
	return p.queueConfig.BackoffBase * time.Duration(1<<uint(retryCount+1))
}
