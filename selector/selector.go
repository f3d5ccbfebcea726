// Package selector picks the auto-reply rule for a newly ingested comment
// and enqueues the reply job.
package selector

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/threadlyhq/replybot/matcher"
	"github.com/threadlyhq/replybot/model"
	"github.com/threadlyhq/replybot/reply"
)

type RuleStore interface {
	GetActiveRules(ctx context.Context, workspaceID string, accountID string) ([]model.Rule, error)
	GetTemplateContent(ctx context.Context, templateID string) (string, error)
	GetWorkspaceLocale(ctx context.Context, workspaceID string) (string, error)
	EnqueueReply(ctx context.Context, commentID string, ruleID string, replyText string, scheduledAt time.Time) (string, error)
	SetMatchedRule(ctx context.Context, commentID string, ruleID string) error
}

type RateLimiter interface {
	CheckRateLimit(ctx context.Context, scope model.RateScope) (bool, error)
}

type Selector struct {
	db      RuleStore
	limiter RateLimiter
}

func NewSelector(db RuleStore, limiter RateLimiter) *Selector {
	return &Selector{
		db:      db,
		limiter: limiter,
	}
}

/*
HandleComment evaluates the workspace's active rules highest priority first
and stops at the first rule whose keywords match and whose rate limit allows
a reply. At most one queue item is enqueued per comment, scheduled after the
rule's reply delay. A nil rule result means no rule fired, which is the
expected outcome for most traffic.
*/
func (s *Selector) HandleComment(ctx context.Context, comment model.Comment) (*model.Rule, error) {
	rules, err := s.db.GetActiveRules(ctx, comment.WorkspaceID, comment.AccountID)
	if err != nil {
		return nil, err
	}

	for _, rule := range rules {
		if !matcher.Matches(comment.Text, rule.TriggerKeywords, rule.ExcludeKeywords, rule.MatchMode) {
			continue
		}

		allowed, err := s.limiter.CheckRateLimit(ctx, model.RateScope{
			WorkspaceID:       comment.WorkspaceID,
			AccountID:         comment.AccountID,
			RuleID:            rule.ID,
			ExternalUserID:    comment.ExternalAuthorID,
			MaxRepliesPerHour: rule.MaxRepliesPerHour,
			MaxRepliesPerUser: rule.MaxRepliesPerUser,
		})
		if err != nil {
			return nil, err
		}
		if !allowed {
			log.WithField("ruleId", rule.ID).WithField("commentId", comment.ID).Debug("rule matched but is rate limited, trying next rule")
			continue
		}

		var templateContent string
		if rule.TemplateID != "" {
			templateContent, err = s.db.GetTemplateContent(ctx, rule.TemplateID)
			if err != nil {
				// Fall back to the rule's inline content
				log.WithField("templateId", rule.TemplateID).Warnf("error loading template: %v", err)
				templateContent = ""
			}
		}

		locale, err := s.db.GetWorkspaceLocale(ctx, comment.WorkspaceID)
		if err != nil {
			log.WithField("workspaceId", comment.WorkspaceID).Warnf("error loading workspace locale: %v", err)
			locale = ""
		}

		replyText := reply.Resolve(rule, templateContent, comment, locale, time.Now().UTC())
		scheduledAt := time.Now().UTC().Add(rule.ReplyDelay)

		itemID, err := s.db.EnqueueReply(ctx, comment.ID, rule.ID, replyText, scheduledAt)
		if err != nil {
			return nil, err
		}

		if err := s.db.SetMatchedRule(ctx, comment.ID, rule.ID); err != nil {
			// The queue item is already in place, so don't fail the selection
			log.WithField("commentId", comment.ID).Warnf("error recording matched rule: %v", err)
		}

		log.WithField("ruleId", rule.ID).WithField("commentId", comment.ID).WithField("itemId", itemID).Info("enqueued auto-reply")
		return &rule, nil
	}

	return nil, nil
}
