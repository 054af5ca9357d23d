package text

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"writeflow/internal/domain"
)

const chatSystemPrompt = "You write high-quality academic assignments following strict constraints."

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature,omitempty"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message,omitempty"`
		Type    string `json:"type,omitempty"`
		Code    any    `json:"code,omitempty"`
	} `json:"error,omitempty"`
}

// chatClient is the shared OpenAI-compatible chat-completions transport used
// by the OpenRouter and OpenAI providers.
type chatClient struct {
	name       string
	apiKey     string
	endpoint   string
	model      string
	httpClient *http.Client
}

func (c *chatClient) generate(ctx context.Context, p domain.Payload) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%s: missing api key", c.name)
	}
	payload := chatCompletionRequest{
		Model:       c.model,
		Temperature: 0.5,
		Messages: []chatMessage{
			{Role: "system", Content: chatSystemPrompt},
			{Role: "user", Content: BuildPrompt(p)},
		},
		MaxTokens: 7000,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("invoke %s: %w", c.name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read %s response: %w", c.name, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var parsed chatCompletionResponse
		if err := json.Unmarshal(data, &parsed); err == nil && parsed.Error != nil && parsed.Error.Message != "" {
			return "", fmt.Errorf("%s status %d: %s", c.name, resp.StatusCode, parsed.Error.Message)
		}
		return "", fmt.Errorf("%s status %d: %s", c.name, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decode %s response: %w", c.name, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%s: empty response", c.name)
	}
	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%s: empty response", c.name)
	}
	return text, nil
}

// OpenRouterOptions controls how the OpenRouter client is configured.
type OpenRouterOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// OpenRouter calls the OpenRouter chat-completions API.
type OpenRouter struct {
	chat chatClient
}

var _ Provider = (*OpenRouter)(nil)

// NewOpenRouter constructs an OpenRouter text client.
func NewOpenRouter(opts OpenRouterOptions) *OpenRouter {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 70 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	model := opts.Model
	if model == "" {
		model = "anthropic/claude-sonnet-4.5"
	}
	return &OpenRouter{chat: chatClient{
		name:       ProviderOpenRouter,
		apiKey:     strings.TrimSpace(opts.APIKey),
		endpoint:   baseURL + "/chat/completions",
		model:      model,
		httpClient: client,
	}}
}

func (o *OpenRouter) Name() string    { return ProviderOpenRouter }
func (o *OpenRouter) Available() bool { return o.chat.apiKey != "" }

func (o *OpenRouter) Generate(ctx context.Context, p domain.Payload) (string, error) {
	return o.chat.generate(ctx, p)
}

// OpenAIOptions controls how the OpenAI client is configured.
type OpenAIOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// OpenAI calls the OpenAI chat-completions API.
type OpenAI struct {
	chat chatClient
}

var _ Provider = (*OpenAI)(nil)

// NewOpenAI constructs an OpenAI text client.
func NewOpenAI(opts OpenAIOptions) *OpenAI {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 70 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := opts.Model
	if model == "" {
		model = "gpt-4o"
	}
	return &OpenAI{chat: chatClient{
		name:       ProviderOpenAI,
		apiKey:     strings.TrimSpace(opts.APIKey),
		endpoint:   baseURL + "/chat/completions",
		model:      model,
		httpClient: client,
	}}
}

func (o *OpenAI) Name() string    { return ProviderOpenAI }
func (o *OpenAI) Available() bool { return o.chat.apiKey != "" }

func (o *OpenAI) Generate(ctx context.Context, p domain.Payload) (string, error) {
	return o.chat.generate(ctx, p)
}
