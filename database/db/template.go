package db

type ReplyTemplate struct {
	ID          string `db:"id"`
	WorkspaceID string `db:"workspace_id"`
	Name        string `db:"name"`
	Content     string `db:"content"`
}
