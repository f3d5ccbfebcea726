package db

import "time"

type ReplyLog struct {
	ID              string    `db:"id"`
	WorkspaceID     string    `db:"workspace_id"`
	AccountID       string    `db:"account_id"`
	RuleID          string    `db:"rule_id"`
	CommentID       string    `db:"comment_id"`
	ReplyQueueID    string    `db:"reply_queue_id"`
	ExternalUserID  string    `db:"external_user_id"`
	ExternalReplyID *string   `db:"external_reply_id"`
	Status          string    `db:"status"`
	Detail          *string   `db:"detail"`
	CreatedAt       time.Time `db:"created_at"`
}
