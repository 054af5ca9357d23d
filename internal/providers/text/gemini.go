package text

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"writeflow/internal/domain"
)

const (
	defaultGeminiBaseURL       = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiTextModel     = "gemini-1.5-pro-latest"
	defaultGeminiFallbackModel = "gemini-flash-latest"
)

// GeminiOptions controls how the Gemini text client is configured.
type GeminiOptions struct {
	APIKey        string
	BaseURL       string
	Model         string
	FallbackModel string
	HTTPClient    *http.Client
}

// Gemini calls the Gemini generateContent endpoint. On failure with the
// primary model it retries once with a cheaper fallback model.
type Gemini struct {
	apiKey        string
	baseURL       string
	model         string
	fallbackModel string
	httpClient    *http.Client
}

var _ Provider = (*Gemini)(nil)

// NewGemini constructs a Gemini text client with sane defaults.
func NewGemini(opts GeminiOptions) *Gemini {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 70 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	model := opts.Model
	if model == "" {
		model = defaultGeminiTextModel
	}
	fallback := opts.FallbackModel
	if fallback == "" {
		fallback = defaultGeminiFallbackModel
	}
	return &Gemini{
		apiKey:        strings.TrimSpace(opts.APIKey),
		baseURL:       baseURL,
		model:         model,
		fallbackModel: fallback,
		httpClient:    client,
	}
}

func (g *Gemini) Name() string { return ProviderGemini }

func (g *Gemini) Available() bool { return g.apiKey != "" }

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	TopP            float64 `json:"topP,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiGenerateRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiGenerateResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Status  string `json:"status,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// Generate produces assignment text, trying the fallback model when the
// primary model fails.
func (g *Gemini) Generate(ctx context.Context, p domain.Payload) (string, error) {
	if g.apiKey == "" {
		return "", fmt.Errorf("gemini: missing api key")
	}
	prompt := BuildPrompt(p)

	text, err := g.attempt(ctx, g.model, prompt)
	if err == nil {
		return text, nil
	}
	if g.fallbackModel == "" || g.fallbackModel == g.model || ctx.Err() != nil {
		return "", err
	}
	text, fbErr := g.attempt(ctx, g.fallbackModel, prompt)
	if fbErr != nil {
		return "", err
	}
	return text, nil
}

func (g *Gemini) attempt(ctx context.Context, model, prompt string) (string, error) {
	payload := geminiGenerateRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:     0.5,
			TopP:            0.95,
			MaxOutputTokens: 8192,
		},
	}
	var response geminiGenerateResponse
	if err := g.invoke(ctx, fmt.Sprintf("/models/%s:generateContent", url.PathEscape(model)), payload, &response); err != nil {
		return "", err
	}
	text := extractGeminiText(response)
	if text == "" {
		return "", fmt.Errorf("gemini: empty response from %s", model)
	}
	return text, nil
}

func (g *Gemini) invoke(ctx context.Context, path string, payload any, out any) error {
	endpoint := g.baseURL + path
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	q := req.URL.Query()
	q.Set("key", g.apiKey)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr geminiErrorResponse
		data, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		if len(data) > 0 {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return fmt.Errorf("gemini status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}

func extractGeminiText(resp geminiGenerateResponse) string {
	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		for _, part := range candidate.Content.Parts {
			sb.WriteString(part.Text)
		}
		if sb.Len() > 0 {
			break
		}
	}
	return strings.TrimSpace(sb.String())
}
