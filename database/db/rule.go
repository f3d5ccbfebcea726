package db

import "time"

type Rule struct {
	ID                string    `db:"id"`
	WorkspaceID       string    `db:"workspace_id"`
	AccountID         string    `db:"account_id"`
	Name              string    `db:"name"`
	TriggerKeywords   []string  `db:"trigger_keywords"`
	ExcludeKeywords   []string  `db:"exclude_keywords"`
	MatchMode         string    `db:"match_mode"`
	ReplyContent      string    `db:"reply_content"`
	TemplateID        *string   `db:"template_id"`
	ReplyDelaySeconds int       `db:"reply_delay_seconds"`
	MaxRepliesPerHour int       `db:"max_replies_per_hour"`
	MaxRepliesPerUser int       `db:"max_replies_per_user"`
	IsActive          bool      `db:"is_active"`
	Priority          int       `db:"priority"`
	CreatedAt         time.Time `db:"created_at"`
}
