package batch

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chunk-prompts/pkg/chunk"
	"github.com/go-go-golems/chunk-prompts/pkg/processing"
)

// seedRange bounds a randomly resolved seed, [0, seedRange).
const seedRange int64 = 4294967294

// Processor runs a batch of jobs against one Pipeline, strictly in order.
// A nil Progress discards updates and a nil Rand uses math/rand/v2.
type Processor struct {
	Pipeline processing.Pipeline
	Progress Progress
	Rand     Rand
}

// Process parses the input into prompts and runs one job per prompt.
// Empty input returns an empty result without calling the pipeline.
func (p *Processor) Process(ctx context.Context, base *processing.Config, in chunk.Input) (*Result, error) {
	if in.Empty() {
		log.Debug().Msg("batch: no input, nothing to do")
		return &Result{Base: base, Seed: base.Seed.Int64(), Images: []processing.Image{}, AllPrompts: []string{}, Infotexts: []string{}}, nil
	}
	return p.Run(ctx, base, chunk.Parse(in.Raw()))
}

// Run submits one job per prompt to the pipeline, strictly in order, and
// returns the combined result. The first pipeline error aborts the batch.
// base is never modified.
func (p *Processor) Run(ctx context.Context, base *processing.Config, prompts []string) (*Result, error) {
	if p.Pipeline == nil {
		return nil, fmt.Errorf("batch processor has no pipeline")
	}
	progress := p.Progress
	if progress == nil {
		progress = NopProgress{}
	}

	work := base.Clone()
	work.DoNotSaveGrid = true

	jobs := BuildJobs(prompts)
	jobCount := 0
	for _, job := range jobs {
		jobCount += job.Count(work)
	}
	log.Info().Int("lines", len(prompts)).Int("jobs", jobCount).
		Msgf("Will process %d lines in %d jobs.", len(prompts), jobCount)

	if !work.Seed.IsSet() {
		work.Seed = p.resolveSeed()
		log.Debug().Stringer("seed", work.Seed).Msg("batch: resolved random seed")
	}

	progress.SetTotal(jobCount)

	res := &Result{
		Base:       base,
		Seed:       work.Seed.Int64(),
		Images:     []processing.Image{},
		AllPrompts: []string{},
		Infotexts:  []string{},
	}
	done := 0
	for i, job := range jobs {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("batch interrupted before job %d: %w", i+1, err)
		}
		progress.SetCurrent(fmt.Sprintf("%d out of %d", done+1, jobCount))
		if pp, ok := progress.(PromptProgress); ok {
			pp.SetPrompt(job.Prompt)
		}
		log.Debug().Int("job", i+1).Str("prompt", job.Prompt).Msg("batch job start")

		proc, err := p.Pipeline.Process(ctx, Apply(work, job))
		if err != nil {
			return nil, fmt.Errorf("job %d failed: %w", i+1, err)
		}
		res.Images = append(res.Images, proc.Images...)
		res.AllPrompts = append(res.AllPrompts, proc.AllPrompts...)
		res.Infotexts = append(res.Infotexts, proc.Infotexts...)
		done += job.Count(work)
		log.Debug().Int("job", i+1).Int("images", len(proc.Images)).Msg("batch job done")
	}
	return res, nil
}

func (p *Processor) resolveSeed() processing.Seed {
	var n int64
	if p.Rand != nil {
		n = p.Rand.Int64N(seedRange)
	} else {
		n = rand.Int64N(seedRange)
	}
	return processing.SeedFromInt(n)
}

// BuildJobs turns prompts into jobs. No per-line arguments are parsed, so
// every job carries only its prompt.
func BuildJobs(prompts []string) []Job {
	jobs := make([]Job, 0, len(prompts))
	for _, prompt := range prompts {
		jobs = append(jobs, Job{Prompt: prompt})
	}
	return jobs
}

// Apply returns a clone of base with the job's overrides applied.
// The job prompt always replaces the base prompt and is joined in front of
// it when both are non-empty. The job negative prompt goes after the base
// negative prompt.
func Apply(base *processing.Config, job Job) *processing.Config {
	cfg := base.Clone()

	cfg.Prompt = job.Prompt
	if job.Prompt != "" && base.Prompt != "" {
		cfg.Prompt = job.Prompt + " " + base.Prompt
	}
	if job.NegativePrompt != "" {
		cfg.NegativePrompt = job.NegativePrompt
		if base.NegativePrompt != "" {
			cfg.NegativePrompt = base.NegativePrompt + " " + job.NegativePrompt
		}
	}
	if job.NIter != nil {
		cfg.NIter = *job.NIter
	}
	if job.SDModel != "" {
		if cfg.OverrideSettings == nil {
			cfg.OverrideSettings = map[string]string{}
		}
		cfg.OverrideSettings[processing.SDModelCheckpointSetting] = job.SDModel
	}
	return cfg
}
