// Package syncclient talks to the ingestion service and pushes queued scans to it.
package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ecospectre-be/pkg/scan"
)

const (
	DefaultTimeout = 15 * time.Second

	idempotencyHeader    = "Idempotency-Key"
	fallbackErrorMessage = "Network error"
)

// TokenSource yields the bearer token for the signed-in user, or "" for anonymous calls.
type TokenSource interface {
	Token() (string, error)
}

type StaticToken string

func (t StaticToken) Token() (string, error) { return string(t), nil }

type TokenFunc func() (string, error)

func (f TokenFunc) Token() (string, error) { return f() }

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	Tokens     TokenSource
	HTTPClient *http.Client
}

type APIClient struct {
	baseURL string
	timeout time.Duration
	tokens  TokenSource
	http    *http.Client
}

func NewAPIClient(cfg Config) *APIClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Tokens == nil {
		cfg.Tokens = StaticToken("")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	return &APIClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		tokens:  cfg.Tokens,
		http:    cfg.HTTPClient,
	}
}

// --- Wire types ---

type scanPayload struct {
	UserID         string         `json:"userId,omitempty"`
	Score          float64        `json:"score"`
	Breakdown      scan.Breakdown `json:"breakdown"`
	DetectedLabels []string       `json:"detected_labels"`
	PackagingType  string         `json:"packaging_type"`
	MaterialHints  string         `json:"material_hints"`
	OcrText        *string        `json:"ocr_text,omitempty"`
	BrandText      *string        `json:"brand_text,omitempty"`
	ImageThumb     string         `json:"image_thumb,omitempty"`
	Action         scan.Action    `json:"action"`
}

// StorageMemory is reported when the server could only keep a scan in process memory.
const StorageMemory = "memory"

type CreateResult struct {
	ID      string `json:"id"`
	Storage string `json:"storage,omitempty"`
}

// Durable reports whether the server persisted the scan. Memory-only receipts do not
// survive a server restart, so the record stays pending and is resubmitted later.
func (r *CreateResult) Durable() bool {
	return r != nil && r.Storage != StorageMemory
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type HealthStatus struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}

// CreateScan submits one record. The key lets the server drop repeated submissions.
func (c *APIClient) CreateScan(ctx context.Context, rec scan.Record, idempotencyKey string) (*CreateResult, error) {
	labels := rec.Context.DetectedLabels
	if labels == nil {
		labels = []string{}
	}
	payload := scanPayload{
		Score:          rec.Score.Score,
		Breakdown:      rec.Score.Breakdown,
		DetectedLabels: labels,
		PackagingType:  rec.Context.PackagingType,
		MaterialHints:  rec.Context.MaterialHints,
		OcrText:        rec.Context.OcrText,
		BrandText:      rec.Context.BrandText,
		ImageThumb:     rec.Context.ImageThumb,
		Action:         rec.Action,
	}
	// Device-only owners mean nothing to the server.
	if rec.UserID != scan.LocalUserID {
		payload.UserID = rec.UserID
	}

	var out CreateResult
	if err := c.do(ctx, http.MethodPost, "/scans", nil, payload, &out, idempotencyKey); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListScans returns the caller's scans, newest first. Nil bounds are open.
func (c *APIClient) ListScans(ctx context.Context, start, end *time.Time) ([]scan.Record, error) {
	query := url.Values{}
	if start != nil {
		query.Set("startDate", start.UTC().Format(time.RFC3339))
	}
	if end != nil {
		query.Set("endDate", end.UTC().Format(time.RFC3339))
	}

	out := []scan.Record{}
	if err := c.do(ctx, http.MethodGet, "/scans", query, nil, &out, ""); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *APIClient) Register(ctx context.Context, email, password string) (*Session, error) {
	var out Session
	if err := c.do(ctx, http.MethodPost, "/auth/register", nil, credentials{Email: email, Password: password}, &out, ""); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) Login(ctx context.Context, email, password string) (*Session, error) {
	var out Session
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, credentials{Email: email, Password: password}, &out, ""); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) Health(ctx context.Context) (*HealthStatus, error) {
	var out HealthStatus
	if err := c.do(ctx, http.MethodGet, "/health", nil, nil, &out, ""); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, query url.Values, body, out interface{}, idempotencyKey string) error {
	op := method + " " + path

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payloadBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payloadBytes)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(reqCtx, method, target, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set(idempotencyHeader, idempotencyKey)
	}
	token, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("load token: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// A caller cancelling is not a network problem.
		if errors.Is(ctx.Err(), context.Canceled) {
			return ctx.Err()
		}
		return &scan.TransientNetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return &scan.TransientNetworkError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(bodyBytes)}
	}

	if out == nil || len(bytes.TrimSpace(bodyBytes)) == 0 {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Message == "" {
		return fallbackErrorMessage
	}
	return payload.Message
}
