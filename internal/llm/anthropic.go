// Package llm is a minimal client for the Anthropic Messages API, used
// by the agent executor's per-turn tool-calling loop.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client calls the Anthropic Messages API directly with an API key.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

func NewClient(apiKey, model, baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 90 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
	}
}

// Message is a single turn in the conversation sent to the model.
type Message struct {
	Role    string          `json:"role"`
	Content []ContentBlock  `json:"content"`
}

// ContentBlock is a single block of a message's content — text, a tool
// call the model made, or a tool result we're feeding back.
type ContentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

// Tool describes one function the model may call.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// StopReason mirrors the subset of Anthropic stop reasons the agent
// loop branches on.
type StopReason string

const (
	StopReasonEndTurn   StopReason = "end_turn"
	StopReasonToolUse   StopReason = "tool_use"
	StopReasonMaxTokens StopReason = "max_tokens"
	StopReasonOther     StopReason = "other"
)

// Usage is per-request token accounting, surfaced for observability.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Response is a single non-streaming turn result.
type Response struct {
	Content    []ContentBlock
	StopReason StopReason
	Usage      Usage
}

type wireRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
	Tools     []Tool    `json:"tools,omitempty"`
}

type wireResponse struct {
	Content    []ContentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type wireError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateMessage runs a single non-streaming Messages API turn, bounded
// by the caller's context deadline (the agent loop attaches
// PER_TURN_TIMEOUT).
func (c *Client) CreateMessage(ctx context.Context, system string, messages []Message, tools []Tool) (*Response, error) {
	body, err := json.Marshal(wireRequest{
		Model:     c.model,
		MaxTokens: 4096,
		System:    system,
		Messages:  messages,
		Tools:     tools,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llm: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("llm: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var wireErr wireError
		if json.Unmarshal(raw, &wireErr) == nil && wireErr.Error.Message != "" {
			return nil, fmt.Errorf("llm: anthropic error (%s): %s", wireErr.Error.Type, wireErr.Error.Message)
		}
		return nil, fmt.Errorf("llm: anthropic returned status %d", resp.StatusCode)
	}

	var wr wireResponse
	if err := json.Unmarshal(raw, &wr); err != nil {
		return nil, fmt.Errorf("llm: decode response: %w", err)
	}

	return &Response{
		Content:    wr.Content,
		StopReason: mapStopReason(wr.StopReason),
		Usage:      Usage{InputTokens: wr.Usage.InputTokens, OutputTokens: wr.Usage.OutputTokens},
	}, nil
}

func mapStopReason(reason string) StopReason {
	switch reason {
	case "end_turn":
		return StopReasonEndTurn
	case "tool_use":
		return StopReasonToolUse
	case "max_tokens":
		return StopReasonMaxTokens
	default:
		return StopReasonOther
	}
}
