package db

import "time"

type Comment struct {
	ID                     string     `db:"id"`
	WorkspaceID            string     `db:"workspace_id"`
	AccountID              string     `db:"account_id"`
	ExternalID             string     `db:"external_id"`
	ExternalPostID         string     `db:"external_post_id"`
	ExternalAuthorID       string     `db:"external_author_id"`
	ExternalAuthorUsername string     `db:"external_author_username"`
	Text                   string     `db:"text"`
	ParentExternalID       *string    `db:"parent_external_id"`
	RawPayload             []byte     `db:"raw_payload"`
	IsSpam                 bool       `db:"is_spam"`
	Replied                bool       `db:"replied"`
	MatchedRuleID          *string    `db:"matched_rule_id"`
	ReplySentAt            *time.Time `db:"reply_sent_at"`
	ReplyError             *string    `db:"reply_error"`
	CreatedAt              time.Time  `db:"created_at"`
}
