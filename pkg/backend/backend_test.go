package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/chunk-prompts/pkg/openaiimg"
	"github.com/go-go-golems/chunk-prompts/pkg/sdapi"
)

func TestNewSelectsBackend(t *testing.T) {
	ctx := context.Background()

	p, err := New(ctx, Settings{})
	require.NoError(t, err)
	assert.IsType(t, &sdapi.Client{}, p)

	p, err = New(ctx, Settings{Backend: "OpenAI", OpenAIAPIKey: "sk-test"})
	require.NoError(t, err)
	assert.IsType(t, &openaiimg.Generator{}, p)

	_, err = New(ctx, Settings{Backend: OpenAI})
	assert.Error(t, err, "missing api key")

	_, err = New(ctx, Settings{Backend: Gemini})
	assert.Error(t, err, "missing api key")

	_, err = New(ctx, Settings{Backend: "midjourney"})
	assert.ErrorContains(t, err, "unknown backend")

	_, err = New(ctx, Settings{SDAPIURL: "localhost:7860"})
	assert.Error(t, err)
}

func TestCredentialsPointAtSettings(t *testing.T) {
	s := Settings{}
	creds := s.Credentials()
	*creds["openai-api-key"] = "sk-1"
	*creds["sdapi-password"] = "pw"
	assert.Equal(t, "sk-1", s.OpenAIAPIKey)
	assert.Equal(t, "pw", s.SDAPIPassword)
}
