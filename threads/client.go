// Package threads is a minimal client for the pieces of the Threads Graph
// API the bot needs: publishing a reply to a comment.
//
// Publishing is a two-step protocol, not atomic: first a media container is
// created for the reply text, then the container is published by ID. A
// failure between the steps leaves an unpublished container behind on the
// platform.
package threads

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

type Client struct {
	baseURL     string
	accessToken string
	HTTPClient  *http.Client
}

func NewClient(accessToken string, baseURL url.URL, timeout time.Duration) *Client {
	return &Client{
		accessToken: accessToken,
		baseURL:     baseURL.String(),
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type publishResponse struct {
	ID string `json:"id"`
}

// CreateReplyContainer creates a text media container replying to an
// existing comment and returns the container ID.
func (c Client) CreateReplyContainer(ctx context.Context, accountID string, replyToID string, text string) (string, error) {
	params := url.Values{}
	params.Set("media_type", "TEXT")
	params.Set("text", text)
	params.Set("reply_to_id", replyToID)
	return c.post(ctx, fmt.Sprintf("%s/%s/threads", c.baseURL, accountID), params)
}

// PublishContainer publishes a previously created container and returns the
// external ID of the published reply.
func (c Client) PublishContainer(ctx context.Context, accountID string, containerID string) (string, error) {
	params := url.Values{}
	params.Set("creation_id", containerID)
	return c.post(ctx, fmt.Sprintf("%s/%s/threads_publish", c.baseURL, accountID), params)
}

func (c Client) post(ctx context.Context, endpoint string, params url.Values) (string, error) {
	params.Set("access_token", c.accessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var envelope errorEnvelope
		if err = json.Unmarshal(body, &envelope); err != nil {
			return "", &APIError{StatusCode: resp.StatusCode, Message: string(body)}
		}
		return "", &APIError{
			StatusCode: resp.StatusCode,
			Type:       envelope.Error.Type,
			Code:       envelope.Error.Code,
			Message:    envelope.Error.Message,
		}
	}

	var pr publishResponse
	if err = json.Unmarshal(body, &pr); err != nil {
		return "", err
	}
	if pr.ID == "" {
		return "", fmt.Errorf("threads API returned no id")
	}

	return pr.ID, nil
}
