package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/study-planner-api/internal/dto"
	"github.com/noah-isme/study-planner-api/pkg/config"
)

const systemPrompt = `You are a weekly study schedule assistant. You receive a JSON object with a committed skeleton, free time slots, and per-course minute targets. Respond with a single JSON object of the form {"blocks":[{"courseId":"...","dayOfWeek":0,"startTime":"HH:MM","endTime":"HH:MM"}]}. Days are 0 (Sunday) through 6 (Saturday). Place blocks only inside the provided free slots, never exceed a course's target minutes, and respond with JSON only.`

// Client calls an OpenAI-compatible chat completions endpoint to propose
// block placements. Responses are parsed strictly; anything that is not the
// expected JSON shape is an error, and callers fall back to deterministic
// placement.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	logger     *zap.Logger
}

// NewClient builds the oracle client, or nil when the oracle is disabled.
func NewClient(cfg config.OracleConfig, logger *zap.Logger) *Client {
	if !cfg.Enabled || cfg.BaseURL == "" {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		logger:     logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type placementResponse struct {
	Blocks []dto.PlacementCandidate `json:"blocks"`
}

// ProposePlacement asks the oracle for block placements.
func (c *Client) ProposePlacement(ctx context.Context, req dto.PlacementRequest) ([]dto.PlacementCandidate, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal placement request: %w", err)
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: string(payload)},
		},
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build oracle request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call oracle: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read oracle response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oracle returned status %d", resp.StatusCode)
	}

	var chat chatResponse
	if err := json.Unmarshal(raw, &chat); err != nil {
		return nil, fmt.Errorf("decode oracle response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("oracle response has no choices")
	}

	content := stripCodeFences(chat.Choices[0].Message.Content)
	var placement placementResponse
	if err := json.Unmarshal([]byte(content), &placement); err != nil {
		return nil, fmt.Errorf("oracle content is not valid placement JSON: %w", err)
	}
	c.logger.Sugar().Debugw("oracle proposed placements", "count", len(placement.Blocks))
	return placement.Blocks, nil
}

// stripCodeFences unwraps content some models insist on fencing.
func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
