package gemini

import (
	"context"
	"fmt"
	"math"
	"net/http"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/go-go-golems/chunk-prompts/pkg/processing"
)

const DefaultModel = "imagen-3.0-generate-002"

// aspectRatios are the ratios Imagen accepts.
var aspectRatios = []struct {
	name  string
	ratio float64
}{
	{"1:1", 1},
	{"3:4", 3.0 / 4.0},
	{"4:3", 4.0 / 3.0},
	{"9:16", 9.0 / 16.0},
	{"16:9", 16.0 / 9.0},
}

// ImageModel is the part of genai.Models the generator needs.
type ImageModel interface {
	GenerateImages(ctx context.Context, model, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
}

// Generator runs jobs against Imagen through the Gemini API.
type Generator struct {
	models ImageModel
	model  string
}

var _ processing.Pipeline = (*Generator)(nil)

// NewGenerator creates a Gemini API client for apiKey. A non-empty baseURL
// replaces the public endpoint.
func NewGenerator(ctx context.Context, apiKey, baseURL, model string) (*Generator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini backend requires an API key")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return NewGeneratorWithModels(client.Models, model), nil
}

// NewGeneratorWithModels wraps an existing models service.
func NewGeneratorWithModels(models ImageModel, model string) *Generator {
	if model == "" {
		model = DefaultModel
	}
	return &Generator{models: models, model: model}
}

// Process issues one GenerateImages call per iteration of cfg.
// The Gemini API rejects seed and negative prompt, so both are only
// recorded in the infotext.
func (g *Generator) Process(ctx context.Context, cfg *processing.Config) (*processing.Processed, error) {
	gc := &genai.GenerateImagesConfig{
		NumberOfImages: int32(cfg.ImagesPerIteration()),
		AspectRatio:    AspectRatio(cfg.Width, cfg.Height),
	}
	if cfg.NegativePrompt != "" {
		log.Debug().Msg("gemini: negative prompt is not supported and only recorded in the infotext")
	}

	proc := &processing.Processed{Seed: cfg.Seed.Int64()}
	for iter := 0; iter < cfg.Iterations(); iter++ {
		resp, err := g.models.GenerateImages(ctx, g.model, cfg.Prompt, gc)
		if err != nil {
			return nil, fmt.Errorf("imagen request failed: %w", err)
		}
		if resp == nil || len(resp.GeneratedImages) == 0 {
			return nil, fmt.Errorf("no image data returned")
		}
		for _, gi := range resp.GeneratedImages {
			if gi == nil || gi.Image == nil || len(gi.Image.ImageBytes) == 0 {
				reason := ""
				if gi != nil {
					reason = gi.RAIFilteredReason
				}
				log.Warn().Str("reason", reason).Msg("gemini: image filtered")
				continue
			}
			mime := gi.Image.MIMEType
			if mime == "" {
				mime = http.DetectContentType(gi.Image.ImageBytes)
			}
			prompt := cfg.Prompt
			if gi.EnhancedPrompt != "" {
				prompt = gi.EnhancedPrompt
			}
			proc.Images = append(proc.Images, processing.Image{Data: gi.Image.ImageBytes, MimeType: mime})
			proc.AllPrompts = append(proc.AllPrompts, prompt)
			proc.Infotexts = append(proc.Infotexts, processing.Infotext(cfg, prompt, -1,
				map[string]string{"Model": g.model, "Aspect ratio": gc.AspectRatio}, "Model", "Aspect ratio"))
		}
	}
	return proc, nil
}

// AspectRatio picks the supported ratio closest to width:height.
func AspectRatio(width, height int) string {
	if width <= 0 || height <= 0 {
		return "1:1"
	}
	want := float64(width) / float64(height)
	best := aspectRatios[0]
	for _, ar := range aspectRatios[1:] {
		if math.Abs(math.Log(ar.ratio/want)) < math.Abs(math.Log(best.ratio/want)) {
			best = ar
		}
	}
	return best.name
}
