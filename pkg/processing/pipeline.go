package processing

import (
	"context"
)

// Image is one generated picture.
type Image struct {
	Data     []byte `json:"-" yaml:"-"`
	MimeType string `json:"mime_type" yaml:"mime_type"`
}

// Processed is what a single pipeline invocation returns.
type Processed struct {
	Images     []Image
	AllPrompts []string
	Infotexts  []string
	Seed       int64
}

// Pipeline is an image-generation entry point. Implementations run one
// job synchronously and must not modify cfg.
type Pipeline interface {
	Process(ctx context.Context, cfg *Config) (*Processed, error)
}

// PipelineFunc adapts a function to Pipeline.
type PipelineFunc func(ctx context.Context, cfg *Config) (*Processed, error)

func (f PipelineFunc) Process(ctx context.Context, cfg *Config) (*Processed, error) {
	return f(ctx, cfg)
}
