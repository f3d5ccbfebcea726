package model

import (
	"fmt"
	"strings"
)

// ReplyStatus is the lifecycle state of a reply_queue item.
//
// pending → processing → {completed | failed | postponed}
// postponed → pending (re-armed with a new scheduled_at)
// failed → pending (manual retry only, while retries remain)
type ReplyStatus string

const (
	ReplyStatusPending    ReplyStatus = "pending"
	ReplyStatusProcessing ReplyStatus = "processing"
	ReplyStatusCompleted  ReplyStatus = "completed"
	ReplyStatusFailed     ReplyStatus = "failed"
	ReplyStatusPostponed  ReplyStatus = "postponed"
)

func ParseReplyStatus(s string) (ReplyStatus, error) {
	switch strings.ToLower(s) {
	case string(ReplyStatusPending):
		return ReplyStatusPending, nil
	case string(ReplyStatusProcessing):
		return ReplyStatusProcessing, nil
	case string(ReplyStatusCompleted):
		return ReplyStatusCompleted, nil
	case string(ReplyStatusFailed):
		return ReplyStatusFailed, nil
	case string(ReplyStatusPostponed):
		return ReplyStatusPostponed, nil
	default:
		return ReplyStatusPending, fmt.Errorf("unknown reply status: %s", s)
	}
}

// LogStatus records the outcome of an attempt in the auto-reply audit log.
type LogStatus string

const (
	LogStatusSent   LogStatus = "sent"
	LogStatusFailed LogStatus = "failed"
)
