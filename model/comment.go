package model

import (
	"time"

	"github.com/threadlyhq/replybot/database/db"
)

type Comment struct {
	ID                     string
	WorkspaceID            string
	AccountID              string
	ExternalID             string
	ExternalPostID         string
	ExternalAuthorID       string
	ExternalAuthorUsername string
	Text                   string
	ParentExternalID       string
	RawPayload             []byte
	IsSpam                 bool
	Replied                bool
	MatchedRuleID          string
	CreatedAt              time.Time
}

func CommentFromRow(row db.Comment) *Comment {
	c := &Comment{
		ID:                     row.ID,
		WorkspaceID:            row.WorkspaceID,
		AccountID:              row.AccountID,
		ExternalID:             row.ExternalID,
		ExternalPostID:         row.ExternalPostID,
		ExternalAuthorID:       row.ExternalAuthorID,
		ExternalAuthorUsername: row.ExternalAuthorUsername,
		Text:                   row.Text,
		RawPayload:             row.RawPayload,
		IsSpam:                 row.IsSpam,
		Replied:                row.Replied,
		CreatedAt:              row.CreatedAt,
	}
	if row.ParentExternalID != nil {
		c.ParentExternalID = *row.ParentExternalID
	}
	if row.MatchedRuleID != nil {
		c.MatchedRuleID = *row.MatchedRuleID
	}
	return c
}

type SocialAccount struct {
	ID          string
	WorkspaceID string
	ExternalID  string
	Username    string
}

func SocialAccountFromRow(row db.SocialAccount) *SocialAccount {
	return &SocialAccount{
		ID:          row.ID,
		WorkspaceID: row.WorkspaceID,
		ExternalID:  row.ExternalID,
		Username:    row.Username,
	}
}
