package chunk

import (
	"strings"
)

// Input is the single logical input channel of a batch: an uploaded blob
// or typed text. The upload wins when both carry content.
type Input struct {
	Upload []byte
	Text   string
}

// Raw returns the text the parser should see.
func (in Input) Raw() string {
	if len(in.Upload) > 0 {
		return Decode(in.Upload)
	}
	return in.Text
}

// Empty reports whether neither the upload nor the text carries anything.
func (in Input) Empty() bool {
	return in.Raw() == ""
}

// Decode converts a blob to a string, dropping invalid UTF-8 sequences.
func Decode(blob []byte) string {
	return strings.ToValidUTF8(string(blob), "")
}

// LoadFile decodes an uploaded chunk file and trims every line, the way a
// file dropped into the text box is normalised before editing.
func LoadFile(blob []byte) string {
	lines := strings.Split(Decode(blob), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.Join(lines, "\n")
}
