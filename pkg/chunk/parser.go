package chunk

import (
	"strings"
)

const markerPrefix = "#"

// Parse splits raw text into prompts, one per '#'-delimited section.
// Lines before the first marker are ignored. The result is recomputed on
// every call.
func Parse(raw string) []string {
	sections := Sections(raw)
	prompts := make([]string, 0, len(sections))
	for _, sec := range sections {
		prompts = append(prompts, Clean(sec))
	}
	return prompts
}

// Sections returns the raw line groups that Parse turns into prompts.
// The first entry of each group is the marker text (when non-empty),
// followed by every non-blank line up to the next marker.
func Sections(raw string) [][]string {
	lines := splitLines(raw)
	var sections [][]string
	i := 0
	for i < len(lines) {
		if !isMarker(lines[i]) {
			i++
			continue
		}
		sec := []string{}
		if text := markerText(lines[i]); text != "" {
			sec = append(sec, text)
		}
		i++
		for i < len(lines) && !isMarker(lines[i]) {
			if strings.TrimSpace(lines[i]) != "" {
				sec = append(sec, lines[i])
			}
			i++
		}
		// the next marker, if any, is picked up by the outer loop
		sections = append(sections, sec)
	}
	return sections
}

// Clean flattens a section into a single prompt string.
func Clean(section []string) string {
	s := strings.Join(section, ",\n")
	s = strings.ReplaceAll(s, ",,", ",")
	s = strings.ReplaceAll(s, ",  ", ", ")
	s = strings.TrimSpace(s)
	return strings.Trim(s, ",")
}

func isMarker(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), markerPrefix)
}

func markerText(line string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), markerPrefix))
}

func splitLines(raw string) []string {
	if raw == "" {
		return nil
	}
	lines := strings.Split(raw, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
