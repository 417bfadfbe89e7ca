package ai

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/network/standard"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/mbeoliero/uq/internal/config"
)

// ErrDisabled is returned when no API key is configured
var ErrDisabled = errors.New("ai: disabled")

// Completer turns a single user prompt into a text answer
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// AnthropicClient calls the Anthropic messages API
type AnthropicClient struct {
	cfg        config.AIConfig
	httpClient *client.Client
}

// NewAnthropicClient creates a client; TLS goes through the standard dialer
func NewAnthropicClient(cfg config.AIConfig) (*AnthropicClient, error) {
	httpClient, err := client.NewClient(
		client.WithDialer(standard.NewDialer()),
		client.WithTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12}),
		client.WithDialTimeout(cfg.Timeout),
		client.WithClientReadTimeout(cfg.Timeout),
		client.WithWriteTimeout(cfg.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}
	return &AnthropicClient{cfg: cfg, httpClient: httpClient}, nil
}

type messagesRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	Messages  []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends prompt as a single user message and joins the returned text blocks
func (c *AnthropicClient) Complete(ctx context.Context, prompt string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", ErrDisabled
	}

	body, err := json.Marshal(messagesRequest{
		Model:     c.cfg.Model,
		MaxTokens: c.cfg.MaxTokens,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req := &protocol.Request{}
	resp := &protocol.Response{}
	req.SetMethod(consts.MethodPost)
	req.SetRequestURI(strings.TrimRight(c.cfg.BaseURL, "/") + "/v1/messages")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("anthropic-version", c.cfg.APIVersion)
	req.SetBody(body)

	if err := c.httpClient.Do(ctx, req, resp); err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}

	var out messagesResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode(), err)
	}
	if resp.StatusCode() != consts.StatusOK {
		if out.Error != nil {
			return "", fmt.Errorf("ai: status %d: %s: %s", resp.StatusCode(), out.Error.Type, out.Error.Message)
		}
		return "", fmt.Errorf("ai: status %d", resp.StatusCode())
	}

	var sb strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
