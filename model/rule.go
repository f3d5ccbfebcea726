package model

import (
	"time"

	"github.com/threadlyhq/replybot/database/db"
)

type Rule struct {
	ID                string
	WorkspaceID       string
	AccountID         string
	Name              string
	TriggerKeywords   []string
	ExcludeKeywords   []string
	MatchMode         MatchMode
	ReplyContent      string
	TemplateID        string
	ReplyDelay        time.Duration
	MaxRepliesPerHour int
	MaxRepliesPerUser int
	IsActive          bool
	Priority          int
	CreatedAt         time.Time
}

func RuleFromRow(row db.Rule) (*Rule, error) {
	mode, err := ParseMatchMode(row.MatchMode)
	if err != nil {
		return nil, err
	}
	r := &Rule{
		ID:                row.ID,
		WorkspaceID:       row.WorkspaceID,
		AccountID:         row.AccountID,
		Name:              row.Name,
		TriggerKeywords:   row.TriggerKeywords,
		ExcludeKeywords:   row.ExcludeKeywords,
		MatchMode:         mode,
		ReplyContent:      row.ReplyContent,
		ReplyDelay:        time.Duration(row.ReplyDelaySeconds) * time.Second,
		MaxRepliesPerHour: row.MaxRepliesPerHour,
		MaxRepliesPerUser: row.MaxRepliesPerUser,
		IsActive:          row.IsActive,
		Priority:          row.Priority,
		CreatedAt:         row.CreatedAt,
	}
	if row.TemplateID != nil {
		r.TemplateID = *row.TemplateID
	}
	return r, nil
}

// RateScope identifies the counter bucket a reply attempt is charged against.
// The per-hour bound applies to the whole bucket; the per-user bound applies
// to replies sent to ExternalUserID within the current day.
type RateScope struct {
	WorkspaceID       string
	AccountID         string
	RuleID            string
	ExternalUserID    string
	MaxRepliesPerHour int
	MaxRepliesPerUser int
}
