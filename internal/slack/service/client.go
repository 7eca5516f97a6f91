package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

// ErrNotConfigured is returned when no bot token is present.
var ErrNotConfigured = errors.New("slack_not_configured")

const defaultAPIBaseURL = "https://slack.com/api"

// Client posts messages to Slack.
type Client interface {
	PostMessage(ctx context.Context, channel, text string) error
}

type postMessageRequest struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
}

type apiResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

type apiClient struct {
	token   string
	baseURL string
	client  *http.Client
}

// NewClient builds a Slack Web API client using a bot token.
func NewClient(token string) Client {
	return NewClientWithBaseURL(token, defaultAPIBaseURL)
}

// NewClientWithBaseURL exists for tests pointing at a local server.
func NewClientWithBaseURL(token, baseURL string) Client {
	return &apiClient{
		token:   strings.TrimSpace(token),
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *apiClient) PostMessage(ctx context.Context, channel, text string) error {
	if c.token == "" {
		return ErrNotConfigured
	}

	payload, err := json.Marshal(postMessageRequest{Channel: channel, Text: text})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat.postMessage", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return errors.New("slack_request_failed")
	}

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return err
	}
	if !apiResp.OK {
		message := strings.TrimSpace(apiResp.Error)
		if message == "" {
			message = "slack_request_failed"
		}
		return errors.New(message)
	}
	return nil
}
