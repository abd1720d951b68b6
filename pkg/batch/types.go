package batch

import (
	"github.com/go-go-golems/chunk-prompts/pkg/processing"
)

// Job is one pipeline invocation with its per-job overrides.
// Only Prompt is produced by the chunk parser; the other fields exist so a
// job list can be built by other front ends.
type Job struct {
	Prompt         string `yaml:"prompt" json:"prompt"`
	NegativePrompt string `yaml:"negative_prompt,omitempty" json:"negative_prompt,omitempty"`
	NIter          *int   `yaml:"n_iter,omitempty" json:"n_iter,omitempty"`
	SDModel        string `yaml:"sd_model,omitempty" json:"sd_model,omitempty"`
}

// Count is the job's contribution to the batch progress total.
func (j Job) Count(base *processing.Config) int {
	if j.NIter != nil {
		if *j.NIter < 1 {
			return 1
		}
		return *j.NIter
	}
	return base.Iterations()
}

// Result is the combined output of a batch.
type Result struct {
	Base       *processing.Config `yaml:"base" json:"base"`
	Images     []processing.Image `yaml:"images" json:"images"`
	Seed       int64              `yaml:"seed" json:"seed"`
	Info       string             `yaml:"info" json:"info"`
	AllPrompts []string           `yaml:"all_prompts" json:"all_prompts"`
	Infotexts  []string           `yaml:"infotexts" json:"infotexts"`
}

// Progress receives host progress updates.
type Progress interface {
	SetTotal(n int)
	SetCurrent(label string)
}

// PromptProgress is an optional Progress extension that is also told the
// prompt of every job as it starts.
type PromptProgress interface {
	SetPrompt(prompt string)
}

// NopProgress discards progress updates.
type NopProgress struct{}

func (NopProgress) SetTotal(int)      {}
func (NopProgress) SetCurrent(string) {}

// Rand is the source used to resolve an unset seed.
type Rand interface {
	Int64N(n int64) int64
}
