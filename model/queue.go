package model

import (
	"time"

	"github.com/threadlyhq/replybot/database/db"
)

type QueueItem struct {
	ID              string
	CommentID       string
	RuleID          string
	ReplyText       string
	Status          ReplyStatus
	ScheduledAt     time.Time
	ProcessedAt     time.Time
	RetryCount      int
	ErrorMessage    string
	ExternalReplyID string
	CreatedAt       time.Time
}

func QueueItemFromRow(row db.ReplyQueue) (*QueueItem, error) {
	status, err := ParseReplyStatus(row.Status)
	if err != nil {
		return nil, err
	}
	item := &QueueItem{
		ID:          row.ID,
		CommentID:   row.CommentID,
		RuleID:      row.RuleID,
		ReplyText:   row.ReplyText,
		Status:      status,
		ScheduledAt: row.ScheduledAt,
		RetryCount:  row.RetryCount,
		CreatedAt:   row.CreatedAt,
	}
	if row.ProcessedAt != nil {
		item.ProcessedAt = *row.ProcessedAt
	}
	if row.ErrorMessage != nil {
		item.ErrorMessage = *row.ErrorMessage
	}
	if row.ExternalReplyID != nil {
		item.ExternalReplyID = *row.ExternalReplyID
	}
	return item, nil
}

// PendingReply is a claimed queue item carrying the comment, rule and account
// context needed to publish it.
type PendingReply struct {
	ID                string
	CommentID         string
	RuleID            string
	ReplyText         string
	RetryCount        int
	WorkspaceID       string
	AccountID         string
	AccountExternalID string
	CommentExternalID string
	ExternalAuthorID  string
	MaxRepliesPerHour int
	MaxRepliesPerUser int
}

func PendingReplyFromRow(row db.PendingReply) *PendingReply {
	return &PendingReply{
		ID:                row.ID,
		CommentID:         row.CommentID,
		RuleID:            row.RuleID,
		ReplyText:         row.ReplyText,
		RetryCount:        row.RetryCount,
		WorkspaceID:       row.WorkspaceID,
		AccountID:         row.AccountID,
		AccountExternalID: row.AccountExternalID,
		CommentExternalID: row.CommentExternalID,
		ExternalAuthorID:  row.ExternalAuthorID,
		MaxRepliesPerHour: row.MaxRepliesPerHour,
		MaxRepliesPerUser: row.MaxRepliesPerUser,
	}
}

// RateScopeFor derives the rate-limit bucket for a claimed reply.
func (p *PendingReply) RateScopeFor() RateScope {
	return RateScope{
		WorkspaceID:       p.WorkspaceID,
		AccountID:         p.AccountID,
		RuleID:            p.RuleID,
		ExternalUserID:    p.ExternalAuthorID,
		MaxRepliesPerHour: p.MaxRepliesPerHour,
		MaxRepliesPerUser: p.MaxRepliesPerUser,
	}
}
