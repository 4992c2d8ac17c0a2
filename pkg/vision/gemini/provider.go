package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ecospectre-be/pkg/scan"
	"ecospectre-be/pkg/vision"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"
)

const DefaultModel = "gemini-1.5-flash-002"

type Config struct {
	ProjectID       string
	Location        string
	Model           string
	CredentialsFile string
}

// generator is the slice of *genai.GenerativeModel the provider needs.
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Provider talks to Gemini on Vertex AI.
type Provider struct {
	client *genai.Client
	model  generator
}

var _ vision.Provider = (*Provider)(nil)

func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("gemini: project id is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	opts := []option.ClientOption{}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := genai.NewClient(ctx, cfg.ProjectID, cfg.Location, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(0.2)
	model.ResponseMIMEType = "application/json"

	return &Provider{client: client, model: model}, nil
}

func (p *Provider) AnalyzeImage(ctx context.Context, imageRef string) (*scan.ScanContext, error) {
	data, mime, err := vision.LoadImage(ctx, imageRef)
	if err != nil {
		return nil, err
	}

	text, err := p.generate(ctx, genai.ImageData(strings.TrimPrefix(mime, "image/"), data), genai.Text(vision.ContextPrompt))
	if err != nil {
		return nil, err
	}
	return vision.ParseContext(text)
}

func (p *Provider) ScoreContext(ctx context.Context, sc scan.ScanContext) (*scan.SustainabilityScore, error) {
	text, err := p.generate(ctx, genai.Text(vision.ScorePrompt(sc)))
	if err != nil {
		return nil, err
	}
	return vision.ParseScore(text)
}

func (p *Provider) generate(ctx context.Context, parts ...genai.Part) (string, error) {
	resp, err := p.model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("failed to call ai: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: no candidates", vision.ErrMalformedResponse)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: no text content", vision.ErrMalformedResponse)
	}
	return sb.String(), nil
}

func (p *Provider) Close() error {
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}
