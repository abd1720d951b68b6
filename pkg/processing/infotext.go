package processing

import (
	"fmt"
	"strings"
)

// Infotext renders the generation parameters in the web UI's "parameters"
// text format. Backends that do not return one build it from the job
// configuration.
func Infotext(cfg *Config, prompt string, seed int64, extra map[string]string, extraOrder ...string) string {
	var b strings.Builder
	b.WriteString(prompt)
	if cfg.NegativePrompt != "" {
		b.WriteString("\nNegative prompt: ")
		b.WriteString(cfg.NegativePrompt)
	}

	params := []string{}
	if cfg.Steps > 0 {
		params = append(params, fmt.Sprintf("Steps: %d", cfg.Steps))
	}
	if cfg.SamplerName != "" {
		params = append(params, "Sampler: "+cfg.SamplerName)
	}
	if cfg.CfgScale > 0 {
		params = append(params, fmt.Sprintf("CFG scale: %g", cfg.CfgScale))
	}
	if seed >= 0 {
		params = append(params, fmt.Sprintf("Seed: %d", seed))
	}
	if cfg.Width > 0 && cfg.Height > 0 {
		params = append(params, fmt.Sprintf("Size: %dx%d", cfg.Width, cfg.Height))
	}
	for _, k := range extraOrder {
		if v, ok := extra[k]; ok && v != "" {
			params = append(params, k+": "+v)
		}
	}
	if len(params) > 0 {
		b.WriteString("\n")
		b.WriteString(strings.Join(params, ", "))
	}
	return b.String()
}
