package output

import (
	"github.com/go-go-golems/chunk-prompts/pkg/batch"
	"github.com/go-go-golems/chunk-prompts/pkg/processing"
)

type ManifestImage struct {
	Path     string `yaml:"path" json:"path"`
	Prompt   string `yaml:"prompt,omitempty" json:"prompt,omitempty"`
	Infotext string `yaml:"infotext,omitempty" json:"infotext,omitempty"`
}

// Manifest records what a run produced.
type Manifest struct {
	Seed   int64              `yaml:"seed" json:"seed"`
	Info   string             `yaml:"info,omitempty" json:"info,omitempty"`
	Base   *processing.Config `yaml:"base,omitempty" json:"base,omitempty"`
	Images []ManifestImage    `yaml:"images" json:"images"`
}

// NewManifest pairs saved image paths with the prompt and infotext of the
// same index. Missing entries stay empty.
func NewManifest(res *batch.Result, paths []string) *Manifest {
	m := &Manifest{Images: make([]ManifestImage, 0, len(paths))}
	if res == nil {
		return m
	}
	m.Seed = res.Seed
	m.Info = res.Info
	m.Base = res.Base
	for i, p := range paths {
		img := ManifestImage{Path: p}
		if i < len(res.AllPrompts) {
			img.Prompt = res.AllPrompts[i]
		}
		if i < len(res.Infotexts) {
			img.Infotext = res.Infotexts[i]
		}
		m.Images = append(m.Images, img)
	}
	return m
}
