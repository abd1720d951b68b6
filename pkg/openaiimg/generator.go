package openaiimg

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	"github.com/go-go-golems/chunk-prompts/pkg/processing"
)

const DefaultModel = openai.CreateImageModelDallE3

const gptImage1 = "gpt-image-1"

type imageSize struct{ w, h int }

// modelLimits are the sizes and per-request image count a model accepts.
type modelLimits struct {
	sizes []imageSize
	maxN  int
	// b64Only models always answer in base64 and reject response_format.
	b64Only bool
}

var limits = map[string]modelLimits{
	openai.CreateImageModelDallE2: {
		sizes: []imageSize{{256, 256}, {512, 512}, {1024, 1024}},
		maxN:  10,
	},
	openai.CreateImageModelDallE3: {
		sizes: []imageSize{{1024, 1024}, {1792, 1024}, {1024, 1792}},
		maxN:  1,
	},
	gptImage1: {
		sizes:   []imageSize{{1024, 1024}, {1536, 1024}, {1024, 1536}},
		maxN:    10,
		b64Only: true,
	},
}

// ImageCreator is the part of the OpenAI client the generator needs.
type ImageCreator interface {
	CreateImage(ctx context.Context, request openai.ImageRequest) (openai.ImageResponse, error)
}

// Generator runs jobs against the OpenAI images API.
type Generator struct {
	client ImageCreator
	model  string
}

var _ processing.Pipeline = (*Generator)(nil)

// NewGenerator builds a Generator talking to the public API, or to baseURL
// when it is set.
func NewGenerator(apiKey, baseURL, model string) (*Generator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai backend requires an API key")
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return NewGeneratorWithClient(openai.NewClientWithConfig(config), model), nil
}

// NewGeneratorWithClient wraps an existing client.
func NewGeneratorWithClient(client ImageCreator, model string) *Generator {
	if model == "" {
		model = DefaultModel
	}
	return &Generator{client: client, model: model}
}

// Process issues CreateImage requests until every iteration of cfg has its
// batch of images, splitting a batch when the model caps the request size.
func (g *Generator) Process(ctx context.Context, cfg *processing.Config) (*processing.Processed, error) {
	if cfg.NegativePrompt != "" {
		log.Debug().Msg("openai: negative prompt is not supported and only recorded in the infotext")
	}
	lim, known := limits[g.model]
	sz := size(g.model, cfg.Width, cfg.Height)
	proc := &processing.Processed{Seed: cfg.Seed.Int64()}
	for iter := 0; iter < cfg.Iterations(); iter++ {
		for remaining := cfg.ImagesPerIteration(); remaining > 0; {
			n := remaining
			if known && n > lim.maxN {
				n = lim.maxN
			}
			req := openai.ImageRequest{
				Prompt: cfg.Prompt,
				Model:  g.model,
				N:      n,
				Size:   sz,
			}
			if !lim.b64Only {
				req.ResponseFormat = openai.CreateImageResponseFormatB64JSON
			}
			resp, err := g.client.CreateImage(ctx, req)
			if err != nil {
				return nil, fmt.Errorf("openai image request failed: %w", err)
			}
			if len(resp.Data) == 0 {
				return nil, fmt.Errorf("no image data returned")
			}
			for i, d := range resp.Data {
				data, err := base64.StdEncoding.DecodeString(d.B64JSON)
				if err != nil {
					return nil, fmt.Errorf("failed to decode image %d: %w", i, err)
				}
				prompt := cfg.Prompt
				if d.RevisedPrompt != "" {
					prompt = d.RevisedPrompt
				}
				proc.Images = append(proc.Images, processing.Image{Data: data, MimeType: http.DetectContentType(data)})
				proc.AllPrompts = append(proc.AllPrompts, prompt)
				proc.Infotexts = append(proc.Infotexts, processing.Infotext(cfg, prompt, -1,
					map[string]string{"Model": g.model}, "Model"))
			}
			remaining -= n
		}
	}
	return proc, nil
}

// size picks the size the model supports closest to width x height, first
// by aspect ratio and then by area. Unknown models get the size as asked.
func size(model string, width, height int) string {
	if width <= 0 || height <= 0 {
		return openai.CreateImageSize1024x1024
	}
	lim, ok := limits[model]
	if !ok {
		return fmt.Sprintf("%dx%d", width, height)
	}
	want := float64(width) / float64(height)
	area := float64(width * height)
	best := lim.sizes[0]
	bestRatio, bestArea := math.Inf(1), math.Inf(1)
	for _, sz := range lim.sizes {
		r := math.Abs(math.Log(float64(sz.w) / float64(sz.h) / want))
		a := math.Abs(math.Log(float64(sz.w*sz.h) / area))
		if r < bestRatio-1e-9 || (math.Abs(r-bestRatio) <= 1e-9 && a < bestArea) {
			best, bestRatio, bestArea = sz, r, a
		}
	}
	return fmt.Sprintf("%dx%d", best.w, best.h)
}
