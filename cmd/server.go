package cmd

import (
	"context"
	"encoding/json"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/threadlyhq/replybot/config"
	"github.com/threadlyhq/replybot/database"
	"github.com/threadlyhq/replybot/processor"
	"github.com/threadlyhq/replybot/selector"
	"github.com/threadlyhq/replybot/service"
	"github.com/threadlyhq/replybot/webhook"
	"golang.org/x/sync/errgroup"
)

func init() {
	rootCmd.AddCommand(serverCmd)
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Runs the replybot server",
	Long:  `Runs the webhook receiver and the reply-queue processing endpoints`,
	Run: func(cmd *cobra.Command, args []string) {

		cfg := config.FromEnvfile()

		log.SetLevel(cfg.LogLevel)

		switch cfg.LogFormat {
		case config.LogFormatJSON:
			log.SetFormatter(&log.JSONFormatter{})
		default:
			log.SetFormatter(&log.TextFormatter{})
		}

		if cfg.TestModeEnabled {
			log.Info("TEST MODE ENABLED")
		}

		awsConfig, err := awsconfig.LoadDefaultConfig(context.Background())
		if err != nil {
			log.Fatal(err)
		}
		secretsManagerClient := secretsmanager.NewFromConfig(awsConfig)

		databaseURL := cfg.PostgresURL
		if databaseURL == "" {
			// Get the DB secrets from AWS Secrets Manager
			result, err := secretsManagerClient.GetSecretValue(context.Background(), &secretsmanager.GetSecretValueInput{SecretId: aws.String(cfg.PostgresSecretPath)})
			if err != nil {
				log.Fatal(err.Error())
			}
			var pgSecrets config.PostgresSecretData
			err = json.Unmarshal([]byte(*result.SecretString), &pgSecrets)
			if err != nil {
				log.Fatalf("postgres secrets read error: %v", err)
			}
			databaseURL = pgSecrets.ConnectionString
		}

		/*
			Graceful shutdown is possible with errgroup + signal.NotifyContext
			NotifyContext returns a context that will close on OS signals to terminate the process
			errgroup uses that context, and also closes it in case a goroutine errors out
		*/
		ctx, done := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer done()
		g, gCtx := errgroup.WithContext(ctx)

		threadsService := service.NewThreadsService(cfg, secretsManagerClient)

		db := database.NewDatabase(databaseURL)
		if err = db.Connect(gCtx); err != nil {
			log.Fatalf("error connecting to database: %v", err)
		}
		defer db.Disconnect()

		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		dedupe := service.NewDedupe(redisClient, cfg.Webhook.DedupeTTL)

		ruleSelector := selector.NewSelector(db, db)

		webhookHandler := webhook.NewHandler(db, ruleSelector, dedupe, cfg.Webhook.VerifyToken, cfg.Webhook.AppSecret, cfg.TestModeEnabled)

		queueProcessor := processor.NewProcessor(db, threadsService, db, cfg.Queue, cfg.TestModeEnabled)
		queueHandler := processor.NewHandler(queueProcessor, db, cfg.CronSecret, cfg.Queue.MaxRetries)

		api := service.NewAPI(cfg.ServerPort, webhookHandler, queueHandler)

		g.Go(func() error {
			log.Infof("listening on %s", api.Server.Addr)
			if err := api.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
		// ...and shut down the server if the bot needs to terminate
		g.Go(func() error {
			<-gCtx.Done()
			defer log.Info("exiting api server")
			return api.Server.Shutdown(context.Background())
		})

		err = g.Wait()
		if err != nil {
			log.Errorf("caught error: %v", err)
		}
	},
}
