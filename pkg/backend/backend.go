// Package backend selects the image pipeline a run sends its jobs to.
package backend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-go-golems/chunk-prompts/pkg/gemini"
	"github.com/go-go-golems/chunk-prompts/pkg/openaiimg"
	"github.com/go-go-golems/chunk-prompts/pkg/processing"
	"github.com/go-go-golems/chunk-prompts/pkg/sdapi"
)

const (
	SDAPI  = "sdapi"
	OpenAI = "openai"
	Gemini = "gemini"
)

// Names lists the supported backends in flag-choice order.
var Names = []string{SDAPI, OpenAI, Gemini}

type Settings struct {
	Backend string

	SDAPIURL      string
	SDAPIUser     string
	SDAPIPassword string
	SDAPIRetries  int
	SDAPITimeout  time.Duration

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
}

// Credentials maps secret names to the fields they may fill.
func (s *Settings) Credentials() map[string]*string {
	return map[string]*string{
		"sdapi-user":     &s.SDAPIUser,
		"sdapi-password": &s.SDAPIPassword,
		"openai-api-key": &s.OpenAIAPIKey,
		"gemini-api-key": &s.GeminiAPIKey,
	}
}

// New builds the pipeline named by s.Backend. An empty name selects sdapi.
func New(ctx context.Context, s Settings) (processing.Pipeline, error) {
	switch strings.ToLower(strings.TrimSpace(s.Backend)) {
	case SDAPI, "":
		return sdapi.NewClient(sdapi.Options{
			URL:      s.SDAPIURL,
			Username: s.SDAPIUser,
			Password: s.SDAPIPassword,
			Retries:  s.SDAPIRetries,
			Timeout:  s.SDAPITimeout,
		})
	case OpenAI:
		return openaiimg.NewGenerator(s.OpenAIAPIKey, s.OpenAIBaseURL, s.OpenAIModel)
	case Gemini:
		return gemini.NewGenerator(ctx, s.GeminiAPIKey, s.GeminiBaseURL, s.GeminiModel)
	default:
		return nil, fmt.Errorf("unknown backend %q (%s)", s.Backend, strings.Join(Names, "|"))
	}
}
