package factory

import (
	"context"
	"testing"

	"ecospectre-be/pkg/vision/ollama"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Provider: "ollama"})
	require.NoError(t, err)
	o, ok := p.(*ollama.Provider)
	require.True(t, ok)
	assert.Equal(t, "http://localhost:11434", o.BaseURL)

	_, err = NewProvider(context.Background(), Config{Provider: "openai"})
	assert.ErrorContains(t, err, "unsupported vision provider")

	_, err = NewProvider(context.Background(), Config{Provider: "gemini"})
	assert.ErrorContains(t, err, "project id")
}
