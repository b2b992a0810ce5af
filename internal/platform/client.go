// Package platform is a minimal Sendbird Platform API client.
//
// The agent only needs one outbound operation: posting the bot's reply
// into a group channel. Webhook delivery is handled by internal/api; this
// package covers the other direction.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// defaultTimeout bounds every Platform API call. Outbound sends happen
// off the webhook path, so a slow platform must not pile up goroutines.
const defaultTimeout = 10 * time.Second

// messageTypeText is Sendbird's type tag for plain text messages.
const messageTypeText = "MESG"

// Client sends messages through the Sendbird Platform API.
type Client struct {
	baseURL    string
	apiToken   string
	botUserID  string
	httpClient *http.Client
	logger     *slog.Logger
}

// Config contains the required parameters for the client.
type Config struct {
	// BaseURL is the Platform API origin, e.g. "https://api-{app_id}.sendbird.com".
	BaseURL string
	// APIToken is the master or secondary API token, sent as Api-Token.
	APIToken string
	// BotUserID is the platform user the replies are posted as.
	BotUserID string
	// HTTPClient overrides the default client (tests). nil gets a
	// 10-second-timeout client.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// New creates a Platform API client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.APIToken == "" {
		return nil, fmt.Errorf("API token is required")
	}
	if cfg.BotUserID == "" {
		return nil, fmt.Errorf("bot user ID is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		apiToken:   cfg.APIToken,
		botUserID:  cfg.BotUserID,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}, nil
}

// sendMessageRequest is the Platform API body for message creation.
type sendMessageRequest struct {
	MessageType string `json:"message_type"`
	UserID      string `json:"user_id"`
	Message     string `json:"message"`
}

// SendMessage posts a text message into a group channel as the bot user.
func (c *Client) SendMessage(ctx context.Context, channelURL, text string) error {
	if channelURL == "" {
		return fmt.Errorf("channel URL is required")
	}
	if text == "" {
		return fmt.Errorf("message text is required")
	}

	endpoint := fmt.Sprintf("%s/v3/group_channels/%s/messages",
		c.baseURL, url.PathEscape(channelURL))

	body, err := json.Marshal(sendMessageRequest{
		MessageType: messageTypeText,
		UserID:      c.botUserID,
		Message:     text,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Api-Token", c.apiToken)
	req.Header.Set("Content-Type", "application/json; charset=utf8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Bounded read, the error body is only logged.
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("platform API error (status %d): %s", resp.StatusCode, respBody)
	}

	c.logger.Debug("message sent", "channel_url", channelURL, "bytes", len(text))
	return nil
}
