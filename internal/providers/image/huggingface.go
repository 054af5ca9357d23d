package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HuggingFaceOptions controls how the Hugging Face inference client is
// configured.
type HuggingFaceOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// HuggingFace generates images through the hosted inference router. The
// response body is the raw image, so the client base64-encodes it itself.
type HuggingFace struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

var _ Generator = (*HuggingFace)(nil)

// NewHuggingFace constructs a Hugging Face image client.
func NewHuggingFace(opts HuggingFaceOptions) *HuggingFace {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://router.huggingface.co/hf-inference/models"
	}
	model := opts.Model
	if model == "" {
		model = "black-forest-labs/FLUX.1-schnell"
	}
	return &HuggingFace{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: client,
	}
}

func (h *HuggingFace) Name() string { return ProviderHuggingFace }

type huggingFaceRequest struct {
	Inputs     string `json:"inputs"`
	Parameters struct {
		NegativePrompt string `json:"negative_prompt,omitempty"`
	} `json:"parameters"`
}

// Generate produces one image as a data URI.
func (h *HuggingFace) Generate(ctx context.Context, prompt, _ string) (string, error) {
	if h.apiKey == "" {
		return "", fmt.Errorf("huggingface image: missing api key")
	}
	payload := huggingFaceRequest{Inputs: prompt}
	payload.Parameters.NegativePrompt = "text, watermark, logo, bad quality, distorted, ugly"

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/"+h.model, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.apiKey)

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("invoke huggingface image: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read huggingface response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("huggingface image status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if len(data) == 0 {
		return "", fmt.Errorf("huggingface image: empty response")
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = "image/jpeg"
	}
	return dataURI(mime, base64.StdEncoding.EncodeToString(data)), nil
}
