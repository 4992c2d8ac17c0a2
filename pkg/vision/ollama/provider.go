package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ecospectre-be/pkg/scan"
	"ecospectre-be/pkg/vision"
)

const DefaultModel = "llava"

// Provider prompts a local multimodal model served by Ollama.
type Provider struct {
	BaseURL   string
	ModelName string
	Client    *http.Client
}

var _ vision.Provider = (*Provider)(nil)

func NewProvider(baseURL, modelName string) *Provider {
	if modelName == "" {
		modelName = DefaultModel
	}
	return &Provider{
		BaseURL:   baseURL,
		ModelName: modelName,
		Client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// --- Request/Response structs (Internal to this package) ---

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Images  []string        `json:"images,omitempty"`
	Stream  bool            `json:"stream"`
	Format  string          `json:"format"`
	Options *requestOptions `json:"options,omitempty"`
}

type requestOptions struct {
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (o *Provider) AnalyzeImage(ctx context.Context, imageRef string) (*scan.ScanContext, error) {
	data, _, err := vision.LoadImage(ctx, imageRef)
	if err != nil {
		return nil, err
	}
	text, err := o.generate(ctx, vision.ContextPrompt, base64.StdEncoding.EncodeToString(data))
	if err != nil {
		return nil, err
	}
	return vision.ParseContext(text)
}

func (o *Provider) ScoreContext(ctx context.Context, sc scan.ScanContext) (*scan.SustainabilityScore, error) {
	text, err := o.generate(ctx, vision.ScorePrompt(sc))
	if err != nil {
		return nil, err
	}
	return vision.ParseScore(text)
}

func (o *Provider) generate(ctx context.Context, prompt string, images ...string) (string, error) {
	payloadBytes, err := json.Marshal(generateRequest{
		Model:   o.ModelName,
		Prompt:  prompt,
		Images:  images,
		Stream:  false,
		Format:  "json",
		Options: &requestOptions{Temperature: 0.2},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+"/api/generate", bytes.NewBuffer(payloadBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var out generateResponse
	if err := json.Unmarshal(bodyBytes, &out); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	return out.Response, nil
}

func (o *Provider) Close() error { return nil }
