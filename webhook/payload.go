package webhook

import "encoding/json"

// Event is the envelope the platform delivers webhook notifications in.
type Event struct {
	Entry []Entry `json:"entry"`
}

type Entry struct {
	// ID is the external identifier of the account the event belongs to
	ID      string   `json:"id"`
	Time    int64    `json:"time"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

// The change field carrying inbound comments.
const fieldComments = "comments"

// CommentValue is the payload of a comment-type change.
type CommentValue struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	From struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"from"`
	Media struct {
		ID string `json:"id"`
	} `json:"media"`
	RepliedTo *struct {
		ID string `json:"id"`
	} `json:"replied_to,omitempty"`
}
