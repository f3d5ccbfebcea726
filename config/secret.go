package config

type ThreadsSecretData struct {
	AccessToken string `json:"accessToken"`
}

type PostgresSecretData struct {
	ConnectionString string `json:"connectionString"`
}
