package image

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultGoogleImageBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultImagenModel        = "imagen-4.0-generate-001"
	defaultGeminiImageModel   = "gemini-2.5-flash-image"
)

// GoogleOptions controls how the Google image client is configured.
type GoogleOptions struct {
	APIKey      string
	BaseURL     string
	ImagenModel string
	GeminiModel string
	HTTPClient  *http.Client
}

// Google generates images through the Imagen predict endpoint. Imagen is
// only available to billed projects, so when it rejects the key the client
// falls back to the Gemini image model on the same API surface.
type Google struct {
	apiKey      string
	baseURL     string
	imagenModel string
	geminiModel string
	httpClient  *http.Client
}

var _ Generator = (*Google)(nil)

// NewGoogle constructs a Google image client with sane defaults.
func NewGoogle(opts GoogleOptions) *Google {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultGoogleImageBaseURL
	}
	imagenModel := opts.ImagenModel
	if imagenModel == "" {
		imagenModel = defaultImagenModel
	}
	geminiModel := opts.GeminiModel
	if geminiModel == "" {
		geminiModel = defaultGeminiImageModel
	}
	return &Google{
		apiKey:      strings.TrimSpace(opts.APIKey),
		baseURL:     baseURL,
		imagenModel: imagenModel,
		geminiModel: geminiModel,
		httpClient:  client,
	}
}

func (g *Google) Name() string { return ProviderGoogle }

type imagenPredictRequest struct {
	Instances  []imagenInstance `json:"instances"`
	Parameters imagenParameters `json:"parameters"`
}

type imagenInstance struct {
	Prompt string `json:"prompt"`
}

type imagenParameters struct {
	SampleCount int    `json:"sampleCount"`
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type imagenPredictResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded,omitempty"`
		MimeType           string `json:"mimeType,omitempty"`
		Image              *struct {
			BytesBase64Encoded string `json:"bytesBase64Encoded,omitempty"`
			MimeType           string `json:"mimeType,omitempty"`
		} `json:"image,omitempty"`
	} `json:"predictions"`
}

type geminiImagePart struct {
	Text string `json:"text"`
}

type geminiImageContent struct {
	Parts []geminiImagePart `json:"parts"`
}

type geminiImageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type geminiImageGenerationConfig struct {
	ResponseModalities []string          `json:"responseModalities"`
	ImageConfig        geminiImageConfig `json:"imageConfig"`
}

type geminiImageRequest struct {
	Contents         []geminiImageContent        `json:"contents"`
	GenerationConfig geminiImageGenerationConfig `json:"generationConfig"`
}

type geminiImageResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				InlineData *struct {
					MimeType string `json:"mimeType,omitempty"`
					Data     string `json:"data,omitempty"`
				} `json:"inlineData,omitempty"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate produces one image as a data URI, routing around Imagen's billing
// restriction when necessary.
func (g *Google) Generate(ctx context.Context, prompt, aspectRatio string) (string, error) {
	if g.apiKey == "" {
		return "", fmt.Errorf("google image: missing api key")
	}
	uri, err := g.generateImagen(ctx, prompt, aspectRatio)
	if err == nil {
		return uri, nil
	}
	if !imagenBlocked(err.Error()) || ctx.Err() != nil {
		return "", err
	}
	uri, fbErr := g.generateGeminiImage(ctx, prompt, aspectRatio)
	if fbErr != nil {
		return "", err
	}
	return uri, nil
}

func imagenBlocked(reason string) bool {
	return strings.Contains(reason, "Imagen API is only accessible to billed users") ||
		strings.Contains(reason, "models/imagen") ||
		strings.Contains(reason, "NOT_FOUND") ||
		strings.Contains(reason, "PERMISSION_DENIED")
}

func (g *Google) generateImagen(ctx context.Context, prompt, aspectRatio string) (string, error) {
	payload := imagenPredictRequest{
		Instances:  []imagenInstance{{Prompt: prompt}},
		Parameters: imagenParameters{SampleCount: 1, AspectRatio: aspectRatio},
	}
	var response imagenPredictResponse
	endpoint := fmt.Sprintf("%s/models/%s:predict", g.baseURL, g.imagenModel)
	if err := g.invoke(ctx, endpoint, payload, &response); err != nil {
		return "", err
	}
	for _, prediction := range response.Predictions {
		b64 := prediction.BytesBase64Encoded
		mime := prediction.MimeType
		if b64 == "" && prediction.Image != nil {
			b64 = prediction.Image.BytesBase64Encoded
			mime = prediction.Image.MimeType
		}
		if b64 != "" {
			return dataURI(mime, b64), nil
		}
	}
	return "", fmt.Errorf("imagen: empty response")
}

func (g *Google) generateGeminiImage(ctx context.Context, prompt, aspectRatio string) (string, error) {
	payload := geminiImageRequest{
		Contents: []geminiImageContent{{Parts: []geminiImagePart{{Text: prompt}}}},
		GenerationConfig: geminiImageGenerationConfig{
			ResponseModalities: []string{"IMAGE"},
			ImageConfig:        geminiImageConfig{AspectRatio: aspectRatio},
		},
	}

	var response geminiImageResponse
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.geminiModel)
	if err := g.invoke(ctx, endpoint, payload, &response); err != nil {
		return "", err
	}
	for _, candidate := range response.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				return dataURI(part.InlineData.MimeType, part.InlineData.Data), nil
			}
		}
	}
	return "", fmt.Errorf("gemini image: empty response")
}

func (g *Google) invoke(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke google image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("google image status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode google image response: %w", err)
	}
	return nil
}
