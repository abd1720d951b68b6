package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/go-go-golems/chunk-prompts/pkg/batch"
	"github.com/go-go-golems/chunk-prompts/pkg/processing"
)

type mockModels struct {
	prompts []string
	configs []*genai.GenerateImagesConfig
	resp    *genai.GenerateImagesResponse
	err     error
}

func (m *mockModels) GenerateImages(ctx context.Context, model, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
	m.prompts = append(m.prompts, prompt)
	m.configs = append(m.configs, config)
	return m.resp, m.err
}

func TestGeneratorProcess(t *testing.T) {
	m := &mockModels{resp: &genai.GenerateImagesResponse{GeneratedImages: []*genai.GeneratedImage{
		{Image: &genai.Image{ImageBytes: []byte("one"), MIMEType: "image/png"}},
		{RAIFilteredReason: "blocked"},
	}}}
	g := NewGeneratorWithModels(m, "")

	cfg := processing.DefaultConfig()
	cfg.Prompt = "a lighthouse"
	cfg.NegativePrompt = "people"
	cfg.Seed = processing.FixedSeed(1234)
	cfg.Width, cfg.Height = 1920, 1080

	proc, err := g.Process(context.Background(), cfg)
	require.NoError(t, err)

	require.Len(t, m.configs, 1)
	gc := m.configs[0]
	assert.Equal(t, int32(1), gc.NumberOfImages)
	assert.Empty(t, gc.NegativePrompt)
	assert.Nil(t, gc.Seed)
	assert.Equal(t, "16:9", gc.AspectRatio)

	require.Len(t, proc.Images, 1)
	assert.Equal(t, "image/png", proc.Images[0].MimeType)
	assert.Equal(t, []string{"a lighthouse"}, proc.AllPrompts)
	assert.Contains(t, proc.Infotexts[0], "Negative prompt: people")
	assert.NotContains(t, proc.Infotexts[0], "Seed:")
	assert.Equal(t, int64(1234), proc.Seed)
}

func TestGeneratorUnsetSeedAndErrors(t *testing.T) {
	m := &mockModels{err: errors.New("quota")}
	g := NewGeneratorWithModels(m, "imagen-x")
	_, err := g.Process(context.Background(), processing.DefaultConfig())
	require.Error(t, err)
	assert.Nil(t, m.configs[0].Seed)

	g = NewGeneratorWithModels(&mockModels{resp: &genai.GenerateImagesResponse{}}, "")
	_, err = g.Process(context.Background(), processing.DefaultConfig())
	assert.Error(t, err)

	_, err = NewGenerator(context.Background(), "", "", "")
	assert.Error(t, err)
}

func TestAspectRatio(t *testing.T) {
	assert.Equal(t, "1:1", AspectRatio(512, 512))
	assert.Equal(t, "1:1", AspectRatio(0, 0))
	assert.Equal(t, "3:4", AspectRatio(768, 1024))
	assert.Equal(t, "9:16", AspectRatio(1080, 1920))
	assert.Equal(t, "4:3", AspectRatio(1024, 768))
}

func TestBatchThroughGeminiAPIClient(t *testing.T) {
	var hits atomic.Int32
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		b, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		bodies = append(bodies, string(b))
		assert.True(t, strings.HasSuffix(r.URL.Path, DefaultModel+":predict"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"predictions": []map[string]any{
				{"bytesBase64Encoded": base64.StdEncoding.EncodeToString([]byte("png-bytes")), "mimeType": "image/png"},
			},
		})
	}))
	defer srv.Close()

	g, err := NewGenerator(context.Background(), "test-key", srv.URL, "")
	require.NoError(t, err)

	base := processing.DefaultConfig()
	base.NegativePrompt = "blurry"
	p := &batch.Processor{Pipeline: g}
	res, err := p.Run(context.Background(), base, []string{"a cat", "a dog"})
	require.NoError(t, err)

	assert.Equal(t, int32(2), hits.Load())
	require.Len(t, res.Images, 2)
	assert.Equal(t, []byte("png-bytes"), res.Images[0].Data)
	for _, body := range bodies {
		assert.NotContains(t, body, "seed")
		assert.NotContains(t, body, "negativePrompt")
	}
	assert.Contains(t, bodies[0], "a cat")
	assert.Contains(t, res.Infotexts[1], "Negative prompt: blurry")
}
