package model

// ReplyLog is one append-only audit record of a reply attempt outcome.
// Sent entries also feed the rate-limit counters.
type ReplyLog struct {
	WorkspaceID     string
	AccountID       string
	RuleID          string
	CommentID       string
	ReplyQueueID    string
	ExternalUserID  string
	ExternalReplyID string
	Status          LogStatus
	Detail          string
}
