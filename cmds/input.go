package cmds

import (
	"fmt"
	"io"
	"os"

	"github.com/go-go-golems/chunk-prompts/pkg/chunk"
)

// readInput builds the batch input from --file and --text. The file is
// treated as an upload, so it wins over text when it has content. A file
// of "-" reads stdin.
func readInput(file, text string, stdin io.Reader) (chunk.Input, error) {
	in := chunk.Input{Text: text}
	if file == "" {
		return in, nil
	}
	var (
		b   []byte
		err error
	)
	if file == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(file)
	}
	if err != nil {
		return in, fmt.Errorf("failed to read chunk file %s: %w", file, err)
	}
	in.Upload = b
	return in, nil
}
