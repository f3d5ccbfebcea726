package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Threads Threads
	Webhook Webhook
	Queue   Queue

	PostgresURL        string
	PostgresSecretPath string
	RedisAddr          string

	ServerPort int
	CronSecret string

	LogLevel        log.Level
	LogFormat       LogFormat
	TestModeEnabled bool
}

type Threads struct {
	ApiURL         url.URL
	SecretPath     string
	PublishTimeout time.Duration
}

type Webhook struct {
	VerifyToken string
	AppSecret   string
	// How long a processed comment ID stays in the dedupe cache
	DedupeTTL time.Duration
}

// Queue holds the reply-queue processing knobs. The defaults encode the
// retry contract: up to MaxRetries attempts, backoff = BackoffBase * 2^(n+1).
type Queue struct {
	BatchSize     int
	MaxRetries    int
	BackoffBase   time.Duration
	PostponeDelay time.Duration
	PacingDelay   time.Duration
}

type LogFormat string

const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

const (
	// Postgres connection string to use for database connections
	EnvfileKeyPostgresURL = "POSTGRES_URL"
	// AWS Secrets Manager path where Postgres connection string can be found
	EnvfileKeyPostgresSecretsPath = "POSTGRES_SECRETS_PATH"

	// Redis address used for webhook deduplication
	EnvfileKeyRedisAddr = "REDIS_ADDR"

	// Base URL of the Threads Graph API, including the version segment
	EnvfileKeyThreadsAPI = "THREADS_API"
	// AWS Secrets Manager path where the Threads access token can be found
	EnvfileKeyThreadsSecretPath = "THREADS_SECRETS_PATH"
	// Timeout applied to each publish call to the Threads API, in seconds
	EnvfileKeyThreadsPublishTimeout = "THREADS_PUBLISH_TIMEOUT"

	// Token echoed back during webhook subscription verification
	EnvfileKeyWebhookVerifyToken = "WEBHOOK_VERIFY_TOKEN"
	// Shared secret used to verify x-hub-signature-256 on webhook deliveries
	EnvfileKeyWebhookAppSecret = "WEBHOOK_APP_SECRET"
	// Dedupe cache TTL for processed comment IDs, in seconds
	EnvfileKeyWebhookDedupeTTL = "WEBHOOK_DEDUPE_TTL"

	// Bearer token expected on scheduler-invoked queue endpoints
	EnvfileKeyCronSecret = "CRON_SECRET"
	// Port the HTTP server listens on
	EnvfileKeyServerPort = "SERVER_PORT"

	// Number of due reply-queue items claimed per processing pass
	EnvfileKeyQueueBatchSize = "QUEUE_BATCH_SIZE"
	// Maximum delivery attempts before an item fails permanently
	EnvfileKeyQueueMaxRetries = "QUEUE_MAX_RETRIES"
	// Backoff base for retry scheduling, in seconds
	EnvfileKeyQueueBackoffBase = "QUEUE_BACKOFF_BASE"
	// Reschedule delay when the internal rate limit denies an item, in seconds
	EnvfileKeyQueuePostponeDelay = "QUEUE_POSTPONE_DELAY"
	// Pause between consecutive external publish calls, in seconds
	EnvfileKeyQueuePacingDelay = "QUEUE_PACING_DELAY"

	// Log level (e.g. "debug", "info", "warn", "error")
	EnvfileKeyLogLevel = "LOG_LEVEL"
	// Log output format (e.g. "text", "json")
	EnvfileKeyLogFormat = "LOG_FORMAT"
	// Enables "test mode" (server simulates publishing, etc.)
	EnvfileKeyTestMode = "TEST_MODE"
)

const (
	defaultBatchSize      = 10
	defaultMaxRetries     = 3
	defaultBackoffBase    = 5 * time.Minute
	defaultPostponeDelay  = time.Hour
	defaultPacingDelay    = time.Second
	defaultPublishTimeout = 30 * time.Second
	defaultDedupeTTL      = 24 * time.Hour
	defaultServerPort     = 8080
)

func FromEnvfile() Config {
	viper.AddConfigPath(".")
	viper.SetConfigName(".env")
	viper.SetConfigType("dotenv")

	err := viper.ReadInConfig()
	if err != nil {
		log.Fatalf("error reading config: %v", err)
	}

	threadsURL, err := url.Parse(getConfigString(EnvfileKeyThreadsAPI))
	if err != nil {
		log.Fatalf("error parsing Threads API URL: %v", err)
	}

	logLevel, err := log.ParseLevel(getConfigString(EnvfileKeyLogLevel))
	if err != nil {
		// Default to info level but log a warning
		log.Warnf("unable to parse log level: %v", err)
		logLevel = log.InfoLevel
	}

	logFormat, err := parseLogFormat(getConfigString(EnvfileKeyLogFormat))
	if err != nil {
		// Default to text formatter but log a warning
		log.Warnf("unable to parse log format: %v", err)
		logFormat = LogFormatText
	}

	postgresURL := getConfigString(EnvfileKeyPostgresURL)
	postgresSecretsPath := getConfigString(EnvfileKeyPostgresSecretsPath)
	if postgresURL == "" && postgresSecretsPath == "" {
		log.Fatal("postgres not configured")
	}

	verifyToken := getConfigString(EnvfileKeyWebhookVerifyToken)
	if verifyToken == "" {
		log.Fatal("must supply webhook verify token")
	}
	appSecret := getConfigString(EnvfileKeyWebhookAppSecret)
	if appSecret == "" {
		log.Fatal("must supply webhook app secret")
	}
	cronSecret := getConfigString(EnvfileKeyCronSecret)
	if cronSecret == "" {
		log.Fatal("must supply cron secret")
	}

	return Config{
		Threads: Threads{
			ApiURL:         *threadsURL,
			SecretPath:     getConfigString(EnvfileKeyThreadsSecretPath),
			PublishTimeout: durationOrDefault(EnvfileKeyThreadsPublishTimeout, defaultPublishTimeout),
		},
		Webhook: Webhook{
			VerifyToken: verifyToken,
			AppSecret:   appSecret,
			DedupeTTL:   durationOrDefault(EnvfileKeyWebhookDedupeTTL, defaultDedupeTTL),
		},
		Queue: Queue{
			BatchSize:     intOrDefault(EnvfileKeyQueueBatchSize, defaultBatchSize),
			MaxRetries:    intOrDefault(EnvfileKeyQueueMaxRetries, defaultMaxRetries),
			BackoffBase:   durationOrDefault(EnvfileKeyQueueBackoffBase, defaultBackoffBase),
			PostponeDelay: durationOrDefault(EnvfileKeyQueuePostponeDelay, defaultPostponeDelay),
			PacingDelay:   durationOrDefault(EnvfileKeyQueuePacingDelay, defaultPacingDelay),
		},
		PostgresURL:        postgresURL,
		PostgresSecretPath: postgresSecretsPath,
		RedisAddr:          getConfigString(EnvfileKeyRedisAddr),
		ServerPort:         intOrDefault(EnvfileKeyServerPort, defaultServerPort),
		CronSecret:         cronSecret,
		LogLevel:           logLevel,
		LogFormat:          logFormat,
		TestModeEnabled:    viper.GetBool(EnvfileKeyTestMode),
	}
}

func parseLogFormat(raw string) (LogFormat, error) {
	switch strings.ToLower(raw) {
	case LogFormatJSON:
		return LogFormatJSON, nil
	case LogFormatText:
		return LogFormatText, nil
	default:
		return "", fmt.Errorf("unidentified log format: %s", raw)
	}
}

// Gets a config value as a string from env vars or a .env file
func getConfigString(key string) string {
	value := os.Getenv(key)
	if value == "" {
		value = viper.GetString(key)
	}
	return value
}

// Gets a config value as an int from env vars or a .env file
func getConfigInt(key string) int {
	envVarValue := os.Getenv(key)
	if envVarValue == "" {
		return viper.GetInt(key)
	}
	value, err := strconv.Atoi(envVarValue)
	if err != nil {
		return 0
	}
	return value
}

func intOrDefault(key string, fallback int) int {
	if v := getConfigInt(key); v > 0 {
		return v
	}
	return fallback
}

// Interval-style config values are given in whole seconds.
func durationOrDefault(key string, fallback time.Duration) time.Duration {
	if v := getConfigInt(key); v > 0 {
		return time.Duration(v) * time.Second
	}
	return fallback
}
