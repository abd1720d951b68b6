package batch

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/chunk-prompts/pkg/chunk"
	"github.com/go-go-golems/chunk-prompts/pkg/processing"
)

// --- Fakes ---

type fakePipeline struct {
	calls  []*processing.Config
	failAt int
}

func (f *fakePipeline) Process(ctx context.Context, cfg *processing.Config) (*processing.Processed, error) {
	f.calls = append(f.calls, cfg)
	if f.failAt > 0 && len(f.calls) == f.failAt {
		return nil, errors.New("pipeline exploded")
	}
	return &processing.Processed{
		Images:     []processing.Image{{Data: []byte(cfg.Prompt), MimeType: "image/png"}},
		AllPrompts: []string{cfg.Prompt},
		Infotexts:  []string{fmt.Sprintf("%s\nSeed: %d", cfg.Prompt, cfg.Seed.Int64())},
		Seed:       cfg.Seed.Int64(),
	}, nil
}

type recordingProgress struct {
	total   []int
	labels  []string
	prompts []string
}

func (r *recordingProgress) SetTotal(n int)          { r.total = append(r.total, n) }
func (r *recordingProgress) SetCurrent(label string) { r.labels = append(r.labels, label) }
func (r *recordingProgress) SetPrompt(prompt string) { r.prompts = append(r.prompts, prompt) }

type fixedRand struct {
	calls int
	value int64
}

func (f *fixedRand) Int64N(n int64) int64 {
	f.calls++
	return f.value % n
}

// --- Tests ---

func TestProcessEmptyInput(t *testing.T) {
	pipe := &fakePipeline{}
	p := &Processor{Pipeline: pipe}
	base := processing.DefaultConfig()

	res, err := p.Process(context.Background(), base, chunk.Input{})
	require.NoError(t, err)
	assert.Empty(t, res.Images)
	assert.Empty(t, res.AllPrompts)
	assert.Empty(t, res.Infotexts)
	assert.Equal(t, "", res.Info)
	assert.Same(t, base, res.Base)
	assert.Empty(t, pipe.calls)
}

func TestProcessTwoChunksSharesOneSeed(t *testing.T) {
	pipe := &fakePipeline{}
	rnd := &fixedRand{value: 123456}
	progress := &recordingProgress{}
	p := &Processor{Pipeline: pipe, Progress: progress, Rand: rnd}
	base := processing.DefaultConfig()

	res, err := p.Process(context.Background(), base, chunk.Input{Text: "# first\nfoo\n# second\nbar"})
	require.NoError(t, err)

	assert.Equal(t, 1, rnd.calls)
	require.Len(t, pipe.calls, 2)
	assert.Equal(t, "first,\nfoo", pipe.calls[0].Prompt)
	assert.Equal(t, "second,\nbar", pipe.calls[1].Prompt)
	for _, cfg := range pipe.calls {
		assert.Equal(t, processing.FixedSeed(123456), cfg.Seed)
		assert.True(t, cfg.DoNotSaveGrid)
	}

	assert.Equal(t, int64(123456), res.Seed)
	assert.Equal(t, []string{"first,\nfoo", "second,\nbar"}, res.AllPrompts)
	assert.Len(t, res.Images, 2)
	assert.Len(t, res.Infotexts, 2)
	assert.Equal(t, []int{2}, progress.total)
	assert.Equal(t, []string{"1 out of 2", "2 out of 2"}, progress.labels)
	assert.Equal(t, []string{"first,\nfoo", "second,\nbar"}, progress.prompts)

	// the caller's configuration is untouched
	assert.False(t, base.Seed.IsSet())
	assert.False(t, base.DoNotSaveGrid)
	assert.Same(t, base, res.Base)
}

func TestRunFixedSeedIsKept(t *testing.T) {
	pipe := &fakePipeline{}
	rnd := &fixedRand{value: 1}
	p := &Processor{Pipeline: pipe, Rand: rnd}
	base := processing.DefaultConfig()
	base.Seed = processing.FixedSeed(42)

	res, err := p.Run(context.Background(), base, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 0, rnd.calls)
	assert.Equal(t, int64(42), res.Seed)
	assert.Equal(t, processing.FixedSeed(42), pipe.calls[1].Seed)
}

func TestRunUsesDefaultRandWithinRange(t *testing.T) {
	pipe := &fakePipeline{}
	p := &Processor{Pipeline: pipe}

	res, err := p.Run(context.Background(), processing.DefaultConfig(), []string{"a"})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Seed, int64(0))
	assert.Less(t, res.Seed, seedRange)
}

func TestRunAcceptsStdlibRand(t *testing.T) {
	p := &Processor{Pipeline: &fakePipeline{}, Rand: rand.New(rand.NewPCG(1, 2))}
	res, err := p.Run(context.Background(), processing.DefaultConfig(), []string{"a"})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Seed, int64(0))
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	pipe := &fakePipeline{failAt: 2}
	p := &Processor{Pipeline: pipe}

	res, err := p.Run(context.Background(), processing.DefaultConfig(), []string{"a", "b", "c"})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "job 2 failed")
	assert.Contains(t, err.Error(), "pipeline exploded")
	assert.Len(t, pipe.calls, 2)
}

func TestRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pipe := &fakePipeline{}
	p := &Processor{Pipeline: pipe}

	_, err := p.Run(ctx, processing.DefaultConfig(), []string{"a"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, pipe.calls)
}

func TestRunStopsWhenCancelledMidBatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var prompts []string
	pipe := processing.PipelineFunc(func(ctx context.Context, cfg *processing.Config) (*processing.Processed, error) {
		prompts = append(prompts, cfg.Prompt)
		cancel()
		return &processing.Processed{}, nil
	})

	_, err := (&Processor{Pipeline: pipe}).Run(ctx, processing.DefaultConfig(), []string{"a", "b"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "before job 2")
	assert.Equal(t, []string{"a"}, prompts)
}

func TestRunWithoutPipeline(t *testing.T) {
	_, err := (&Processor{}).Run(context.Background(), processing.DefaultConfig(), []string{"a"})
	assert.Error(t, err)
}

func TestRunProgressCountsIterations(t *testing.T) {
	progress := &recordingProgress{}
	p := &Processor{Pipeline: &fakePipeline{}, Progress: progress}
	base := processing.DefaultConfig()
	base.NIter = 3

	_, err := p.Run(context.Background(), base, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []int{6}, progress.total)
	assert.Equal(t, []string{"1 out of 6", "4 out of 6"}, progress.labels)
}

func TestApplyPromptConcatenation(t *testing.T) {
	base := processing.DefaultConfig()
	base.Prompt = "masterpiece"
	base.NegativePrompt = "lowres"

	cfg := Apply(base, Job{Prompt: "1girl", NegativePrompt: "bad hands"})
	assert.Equal(t, "1girl masterpiece", cfg.Prompt)
	assert.Equal(t, "lowres bad hands", cfg.NegativePrompt)

	cfg = Apply(base, Job{Prompt: "1girl"})
	assert.Equal(t, "lowres", cfg.NegativePrompt)

	empty := processing.DefaultConfig()
	cfg = Apply(empty, Job{Prompt: "1girl", NegativePrompt: "bad hands"})
	assert.Equal(t, "1girl", cfg.Prompt)
	assert.Equal(t, "bad hands", cfg.NegativePrompt)

	// an empty chunk replaces the base prompt instead of inheriting it
	cfg = Apply(base, Job{})
	assert.Equal(t, "", cfg.Prompt)
	assert.Equal(t, "lowres", cfg.NegativePrompt)
}

func TestRunEmptyMarkerSectionSendsEmptyPrompt(t *testing.T) {
	pipe := &fakePipeline{}
	base := processing.DefaultConfig()
	base.Prompt = "masterpiece"

	_, err := (&Processor{Pipeline: pipe}).Process(context.Background(), base, chunk.Input{Text: "#\n# a\nfoo"})
	require.NoError(t, err)
	require.Len(t, pipe.calls, 2)
	assert.Equal(t, "", pipe.calls[0].Prompt)
	assert.Equal(t, "a,\nfoo masterpiece", pipe.calls[1].Prompt)
}

func TestApplyIsolatesJobs(t *testing.T) {
	base := processing.DefaultConfig()
	base.OverrideSettings = map[string]string{"CLIP_stop_at_last_layers": "2"}
	n := 4

	a := Apply(base, Job{Prompt: "a", SDModel: "anime.safetensors", NIter: &n})
	b := Apply(base, Job{Prompt: "b"})

	assert.Equal(t, "anime.safetensors", a.OverrideSettings[processing.SDModelCheckpointSetting])
	assert.Equal(t, 4, a.NIter)
	assert.NotContains(t, b.OverrideSettings, processing.SDModelCheckpointSetting)
	assert.NotContains(t, base.OverrideSettings, processing.SDModelCheckpointSetting)
	assert.Equal(t, 1, b.NIter)
}

func TestJobCount(t *testing.T) {
	base := processing.DefaultConfig()
	base.NIter = 2
	zero, five := 0, 5
	assert.Equal(t, 2, Job{}.Count(base))
	assert.Equal(t, 5, Job{NIter: &five}.Count(base))
	assert.Equal(t, 1, Job{NIter: &zero}.Count(base))
}

func TestBuildJobs(t *testing.T) {
	assert.Equal(t, []Job{{Prompt: "a"}, {Prompt: "b"}}, BuildJobs([]string{"a", "b"}))
	assert.Empty(t, BuildJobs(nil))
}
