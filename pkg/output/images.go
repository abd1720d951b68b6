package output

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chunk-prompts/pkg/processing"
)

var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// SaveImages writes images into dir as <index>-<seed><ext>, numbered from 1
// in result order, and returns the written paths. A non-empty infotext for
// an image is written next to it as a .txt file.
func SaveImages(dir string, images []processing.Image, seed int64, infotexts []string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create image directory %s: %w", dir, err)
	}
	paths := make([]string, 0, len(images))
	for i, img := range images {
		ext, ok := extensions[img.MimeType]
		if !ok {
			ext = ".bin"
		}
		base := fmt.Sprintf("%05d-%d", i+1, seed)
		p := filepath.Join(dir, base+ext)
		if err := os.WriteFile(p, img.Data, 0644); err != nil {
			return paths, fmt.Errorf("failed to write image %s: %w", p, err)
		}
		if i < len(infotexts) && infotexts[i] != "" {
			tp := filepath.Join(dir, base+".txt")
			if err := os.WriteFile(tp, []byte(infotexts[i]), 0644); err != nil {
				return paths, fmt.Errorf("failed to write infotext %s: %w", tp, err)
			}
		}
		paths = append(paths, p)
	}
	log.Debug().Str("dir", dir).Int("images", len(paths)).Msg("images saved")
	return paths, nil
}
