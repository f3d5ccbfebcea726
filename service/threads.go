package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/threadlyhq/replybot/config"
	"github.com/threadlyhq/replybot/threads"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	log "github.com/sirupsen/logrus"
)

type ThreadsService struct {
	config config.Threads
	client *threads.Client
}

func NewThreadsService(cfg config.Config, secretsManagerClient *secretsmanager.Client) *ThreadsService {
	// Get the Threads secrets from AWS Secrets Manager
	result, err := secretsManagerClient.GetSecretValue(
		context.Background(),
		&secretsmanager.GetSecretValueInput{
			SecretId: aws.String(cfg.Threads.SecretPath),
		},
	)
	if err != nil {
		log.Fatal(err.Error())
	}
	var threadsSecrets config.ThreadsSecretData
	err = json.Unmarshal([]byte(*result.SecretString), &threadsSecrets)
	if err != nil {
		log.Panicf("threads secrets read error: %v", err)
	}

	client := threads.NewClient(threadsSecrets.AccessToken, cfg.Threads.ApiURL, cfg.Threads.PublishTimeout)
	log.Infof("Threads client initialized. Host: %s", cfg.Threads.ApiURL.String())

	return &ThreadsService{
		config: cfg.Threads,
		client: client,
	}
}

// PublishReply runs the two-step publish protocol: create a reply container,
// then publish it. A failure between the steps surfaces as a failure of the
// whole attempt; the unpublished container is left behind on the platform.
func (s *ThreadsService) PublishReply(ctx context.Context, accountExternalID string, replyToID string, text string) (string, error) {
	containerID, err := s.client.CreateReplyContainer(ctx, accountExternalID, replyToID, text)
	if err != nil {
		return "", fmt.Errorf("create reply container: %w", err)
	}

	replyID, err := s.client.PublishContainer(ctx, accountExternalID, containerID)
	if err != nil {
		return "", fmt.Errorf("publish container %s: %w", containerID, err)
	}

	return replyID, nil
}
