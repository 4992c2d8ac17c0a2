package ollama

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"ecospectre-be/pkg/scan"
	"ecospectre-be/pkg/vision"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, reply string, seen *generateRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		_ = json.NewEncoder(w).Encode(generateResponse{Model: seen.Model, Response: reply, Done: true})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAnalyzeImage(t *testing.T) {
	gif := []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;")
	path := filepath.Join(t.TempDir(), "x.gif")
	require.NoError(t, os.WriteFile(path, gif, 0o644))

	var seen generateRequest
	srv := newServer(t, `{"detected_labels":["jar"],"packaging_type":"glass jar","material_hints":"glass","ocr_text":"null"}`, &seen)
	p := NewProvider(srv.URL, "")

	sc, err := p.AnalyzeImage(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "glass jar", sc.PackagingType)
	assert.Nil(t, sc.OcrText)

	assert.Equal(t, DefaultModel, seen.Model)
	assert.Equal(t, "json", seen.Format)
	require.Len(t, seen.Images, 1)
	assert.Equal(t, base64.StdEncoding.EncodeToString(gif), seen.Images[0])
}

func TestScoreContextRejectsIncompleteBreakdown(t *testing.T) {
	var seen generateRequest
	srv := newServer(t, `{"score":50,"breakdown":{"materials":10}}`, &seen)
	p := NewProvider(srv.URL, "llava:13b")

	_, err := p.ScoreContext(context.Background(), scan.ScanContext{PackagingType: "box", MaterialHints: "paper"})
	assert.ErrorIs(t, err, vision.ErrMalformedResponse)
	assert.Empty(t, seen.Images)
	assert.Contains(t, seen.Prompt, `"packaging_type":"box"`)
}

func TestServerErrorIsReported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewProvider(srv.URL, "missing").ScoreContext(context.Background(), scan.ScanContext{})
	assert.ErrorContains(t, err, "status 404")
}
