package db

type SocialAccount struct {
	ID          string `db:"id"`
	WorkspaceID string `db:"workspace_id"`
	ExternalID  string `db:"external_id"`
	Username    string `db:"username"`
}
