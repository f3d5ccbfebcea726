package db

import "time"

type ReplyQueue struct {
	ID              string     `db:"id"`
	CommentID       string     `db:"comment_id"`
	RuleID          string     `db:"rule_id"`
	ReplyText       string     `db:"reply_text"`
	Status          string     `db:"status"`
	ScheduledAt     time.Time  `db:"scheduled_at"`
	ProcessedAt     *time.Time `db:"processed_at"`
	RetryCount      int        `db:"retry_count"`
	ErrorMessage    *string    `db:"error_message"`
	ExternalReplyID *string    `db:"external_reply_id"`
	CreatedAt       time.Time  `db:"created_at"`
}

// PendingReply is the shape returned by the claim query: the claimed queue
// row joined with the comment, rule and account context the processor needs.
type PendingReply struct {
	ID                string `db:"id"`
	CommentID         string `db:"comment_id"`
	RuleID            string `db:"rule_id"`
	ReplyText         string `db:"reply_text"`
	RetryCount        int    `db:"retry_count"`
	WorkspaceID       string `db:"workspace_id"`
	AccountID         string `db:"account_id"`
	AccountExternalID string `db:"account_external_id"`
	CommentExternalID string `db:"comment_external_id"`
	ExternalAuthorID  string `db:"external_author_id"`
	MaxRepliesPerHour int    `db:"max_replies_per_hour"`
	MaxRepliesPerUser int    `db:"max_replies_per_user"`
}
