package processing

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SDModelCheckpointSetting is the override-settings key a per-job model
// switch is written to.
const SDModelCheckpointSetting = "sd_model_checkpoint"

// Config is the base set of generation parameters supplied before any
// per-job override is applied.
type Config struct {
	Prompt           string            `yaml:"prompt,omitempty" json:"prompt"`
	NegativePrompt   string            `yaml:"negative_prompt,omitempty" json:"negative_prompt"`
	Seed             Seed              `yaml:"seed" json:"seed"`
	Subseed          Seed              `yaml:"subseed" json:"subseed"`
	SubseedStrength  float64           `yaml:"subseed_strength,omitempty" json:"subseed_strength"`
	Steps            int               `yaml:"steps,omitempty" json:"steps"`
	CfgScale         float64           `yaml:"cfg_scale,omitempty" json:"cfg_scale"`
	Width            int               `yaml:"width,omitempty" json:"width"`
	Height           int               `yaml:"height,omitempty" json:"height"`
	SamplerName      string            `yaml:"sampler_name,omitempty" json:"sampler_name"`
	Scheduler        string            `yaml:"scheduler,omitempty" json:"scheduler,omitempty"`
	NIter            int               `yaml:"n_iter,omitempty" json:"n_iter"`
	BatchSize        int               `yaml:"batch_size,omitempty" json:"batch_size"`
	RestoreFaces     bool              `yaml:"restore_faces,omitempty" json:"restore_faces"`
	DoNotSaveGrid    bool              `yaml:"do_not_save_grid,omitempty" json:"do_not_save_grid"`
	SaveImages       bool              `yaml:"save_images,omitempty" json:"save_images"`
	OverrideSettings map[string]string `yaml:"override_settings,omitempty" json:"override_settings,omitempty"`
}

// DefaultConfig mirrors the txt2img defaults of the web UI.
func DefaultConfig() *Config {
	return &Config{
		Seed:        UnsetSeed(),
		Subseed:     UnsetSeed(),
		Steps:       20,
		CfgScale:    7,
		Width:       512,
		Height:      512,
		SamplerName: "Euler a",
		NIter:       1,
		BatchSize:   1,
	}
}

// Clone returns a shallow copy. The override-settings map is copied so the
// clone can be changed without touching c.
func (c *Config) Clone() *Config {
	cp := *c
	if c.OverrideSettings != nil {
		cp.OverrideSettings = make(map[string]string, len(c.OverrideSettings))
		for k, v := range c.OverrideSettings {
			cp.OverrideSettings[k] = v
		}
	}
	return &cp
}

// Iterations is n_iter clamped to at least one.
func (c *Config) Iterations() int {
	if c.NIter < 1 {
		return 1
	}
	return c.NIter
}

// ImagesPerIteration is batch_size clamped to at least one.
func (c *Config) ImagesPerIteration() int {
	if c.BatchSize < 1 {
		return 1
	}
	return c.BatchSize
}

// LoadConfig reads a base configuration from a YAML file on top of
// DefaultConfig.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return cfg, nil
}
