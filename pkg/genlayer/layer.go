package genlayer

import (
	"fmt"

	glzcms "github.com/go-go-golems/glazed/pkg/cmds"
	glzlayers "github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"

	"github.com/go-go-golems/chunk-prompts/pkg/processing"
)

const GenerationLayerSlug = "generation"

// GenerationSettings are command-line overrides for the base configuration.
// Zero values leave the configuration untouched; seed uses -1 for that.
type GenerationSettings struct {
	Prompt         string  `glazed.parameter:"prompt"`
	NegativePrompt string  `glazed.parameter:"negative-prompt"`
	Seed           int     `glazed.parameter:"seed"`
	Steps          int     `glazed.parameter:"steps"`
	CfgScale       float64 `glazed.parameter:"cfg-scale"`
	Width          int     `glazed.parameter:"width"`
	Height         int     `glazed.parameter:"height"`
	Sampler        string  `glazed.parameter:"sampler"`
	Scheduler      string  `glazed.parameter:"scheduler"`
	NIter          int     `glazed.parameter:"n-iter"`
	BatchSize      int     `glazed.parameter:"batch-size"`
	SDModel        string  `glazed.parameter:"sd-model"`
	RestoreFaces   bool    `glazed.parameter:"restore-faces"`
	SaveImages     bool    `glazed.parameter:"save-images"`
}

// NewGenerationLayer defines the generation parameters shared by run-like commands.
func NewGenerationLayer() (glzlayers.ParameterLayer, error) {
	return glzlayers.NewParameterLayer(
		GenerationLayerSlug,
		"Base generation settings",
		glzlayers.WithParameterDefinitions(
			parameters.NewParameterDefinition("prompt", parameters.ParameterTypeString, parameters.WithHelp("Base prompt appended after every chunk prompt")),
			parameters.NewParameterDefinition("negative-prompt", parameters.ParameterTypeString, parameters.WithHelp("Base negative prompt")),
			parameters.NewParameterDefinition("seed", parameters.ParameterTypeInteger, parameters.WithDefault(-1), parameters.WithHelp("Seed shared by the batch; -1 keeps the config value or picks one at random")),
			parameters.NewParameterDefinition("steps", parameters.ParameterTypeInteger, parameters.WithDefault(0), parameters.WithHelp("Sampling steps (0 = config value)")),
			parameters.NewParameterDefinition("cfg-scale", parameters.ParameterTypeFloat, parameters.WithDefault(0.0), parameters.WithHelp("CFG scale (0 = config value)")),
			parameters.NewParameterDefinition("width", parameters.ParameterTypeInteger, parameters.WithDefault(0), parameters.WithHelp("Image width (0 = config value)")),
			parameters.NewParameterDefinition("height", parameters.ParameterTypeInteger, parameters.WithDefault(0), parameters.WithHelp("Image height (0 = config value)")),
			parameters.NewParameterDefinition("sampler", parameters.ParameterTypeString, parameters.WithHelp("Sampler name")),
			parameters.NewParameterDefinition("scheduler", parameters.ParameterTypeString, parameters.WithHelp("Scheduler name")),
			parameters.NewParameterDefinition("n-iter", parameters.ParameterTypeInteger, parameters.WithDefault(0), parameters.WithHelp("Batch count per chunk (0 = config value)")),
			parameters.NewParameterDefinition("batch-size", parameters.ParameterTypeInteger, parameters.WithDefault(0), parameters.WithHelp("Images per batch (0 = config value)")),
			parameters.NewParameterDefinition("sd-model", parameters.ParameterTypeString, parameters.WithHelp("Checkpoint to switch to for the whole run")),
			parameters.NewParameterDefinition("restore-faces", parameters.ParameterTypeBool, parameters.WithDefault(false), parameters.WithHelp("Enable face restoration")),
			parameters.NewParameterDefinition("save-images", parameters.ParameterTypeBool, parameters.WithDefault(false), parameters.WithHelp("Ask the backend to keep its own copy of the samples")),
		),
	)
}

// AddGenerationLayerToCommand attaches the layer to a Glazed command description.
func AddGenerationLayerToCommand(c glzcms.Command) (glzcms.Command, error) {
	l, err := NewGenerationLayer()
	if err != nil {
		return nil, err
	}
	c.Description().Layers.Set(GenerationLayerSlug, l)
	return c, nil
}

// GetGenerationSettings returns parsed generation settings from the ParsedLayers.
func GetGenerationSettings(parsed *glzlayers.ParsedLayers) (*GenerationSettings, error) {
	var s GenerationSettings
	if err := parsed.InitializeStruct(GenerationLayerSlug, &s); err != nil {
		return nil, fmt.Errorf("failed to parse generation settings: %w", err)
	}
	return &s, nil
}

// ApplyTo copies every setting that was given onto cfg.
func (s *GenerationSettings) ApplyTo(cfg *processing.Config) {
	if s.Prompt != "" {
		cfg.Prompt = s.Prompt
	}
	if s.NegativePrompt != "" {
		cfg.NegativePrompt = s.NegativePrompt
	}
	if s.Seed >= 0 {
		cfg.Seed = processing.SeedFromInt(int64(s.Seed))
	}
	if s.Steps > 0 {
		cfg.Steps = s.Steps
	}
	if s.CfgScale > 0 {
		cfg.CfgScale = s.CfgScale
	}
	if s.Width > 0 {
		cfg.Width = s.Width
	}
	if s.Height > 0 {
		cfg.Height = s.Height
	}
	if s.Sampler != "" {
		cfg.SamplerName = s.Sampler
	}
	if s.Scheduler != "" {
		cfg.Scheduler = s.Scheduler
	}
	if s.NIter > 0 {
		cfg.NIter = s.NIter
	}
	if s.BatchSize > 0 {
		cfg.BatchSize = s.BatchSize
	}
	if s.SDModel != "" {
		if cfg.OverrideSettings == nil {
			cfg.OverrideSettings = map[string]string{}
		}
		cfg.OverrideSettings[processing.SDModelCheckpointSetting] = s.SDModel
	}
	if s.RestoreFaces {
		cfg.RestoreFaces = true
	}
	if s.SaveImages {
		cfg.SaveImages = true
	}
}
