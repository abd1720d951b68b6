package sdapi

import (
	"github.com/go-go-golems/chunk-prompts/pkg/processing"
)

// txt2imgRequest is the JSON body of POST /sdapi/v1/txt2img.
type txt2imgRequest struct {
	Prompt           string         `json:"prompt"`
	NegativePrompt   string         `json:"negative_prompt"`
	Seed             int64          `json:"seed"`
	Subseed          int64          `json:"subseed"`
	SubseedStrength  float64        `json:"subseed_strength"`
	Steps            int            `json:"steps"`
	CfgScale         float64        `json:"cfg_scale"`
	Width            int            `json:"width"`
	Height           int            `json:"height"`
	SamplerName      string         `json:"sampler_name"`
	Scheduler        string         `json:"scheduler,omitempty"`
	NIter            int            `json:"n_iter"`
	BatchSize        int            `json:"batch_size"`
	RestoreFaces     bool           `json:"restore_faces"`
	DoNotSaveGrid    bool           `json:"do_not_save_grid"`
	DoNotSaveSamples bool           `json:"do_not_save_samples"`
	OverrideSettings map[string]any `json:"override_settings,omitempty"`
	SendImages       bool           `json:"send_images"`
	SaveImages       bool           `json:"save_images"`
}

// txt2imgResponse is the web API reply. Info is itself a JSON document.
type txt2imgResponse struct {
	Images []string `json:"images"`
	Info   string   `json:"info"`
}

type generationInfo struct {
	Prompt     string   `json:"prompt"`
	AllPrompts []string `json:"all_prompts"`
	Seed       int64    `json:"seed"`
	AllSeeds   []int64  `json:"all_seeds"`
	Infotexts  []string `json:"infotexts"`
}

func newTxt2imgRequest(cfg *processing.Config) txt2imgRequest {
	req := txt2imgRequest{
		Prompt:           cfg.Prompt,
		NegativePrompt:   cfg.NegativePrompt,
		Seed:             cfg.Seed.Int64(),
		Subseed:          cfg.Subseed.Int64(),
		SubseedStrength:  cfg.SubseedStrength,
		Steps:            cfg.Steps,
		CfgScale:         cfg.CfgScale,
		Width:            cfg.Width,
		Height:           cfg.Height,
		SamplerName:      cfg.SamplerName,
		Scheduler:        cfg.Scheduler,
		NIter:            cfg.Iterations(),
		BatchSize:        cfg.ImagesPerIteration(),
		RestoreFaces:     cfg.RestoreFaces,
		DoNotSaveGrid:    cfg.DoNotSaveGrid,
		DoNotSaveSamples: !cfg.SaveImages,
		SendImages:       true,
		SaveImages:       cfg.SaveImages,
	}
	if len(cfg.OverrideSettings) > 0 {
		req.OverrideSettings = make(map[string]any, len(cfg.OverrideSettings))
		for k, v := range cfg.OverrideSettings {
			req.OverrideSettings[k] = v
		}
	}
	return req
}
