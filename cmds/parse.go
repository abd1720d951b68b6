package cmds

import (
	"context"
	"os"

	glzcli "github.com/go-go-golems/glazed/pkg/cli"
	gcmds "github.com/go-go-golems/glazed/pkg/cmds"
	glayers "github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"

	"github.com/go-go-golems/chunk-prompts/pkg/chunk"
)

type ParseCommand struct{ *gcmds.CommandDescription }

type ParseSettings struct {
	File      string `glazed.parameter:"file"`
	Text      string `glazed.parameter:"text"`
	TrimLines bool   `glazed.parameter:"trim-lines"`
}

func NewParseCommand() (*ParseCommand, error) {
	glazedLayers, err := settings.NewGlazedParameterLayers()
	if err != nil {
		return nil, err
	}
	commandLayer, err := glzcli.NewCommandSettingsLayer()
	if err != nil {
		return nil, err
	}
	cd := gcmds.NewCommandDescription(
		"parse",
		gcmds.WithShort("Show the prompts a chunk file turns into"),
		gcmds.WithFlags(
			parameters.NewParameterDefinition("file", parameters.ParameterTypeString, parameters.WithShortFlag("f"), parameters.WithHelp("Chunk file ('-' for stdin); wins over --text")),
			parameters.NewParameterDefinition("text", parameters.ParameterTypeString, parameters.WithHelp("Chunk text given inline")),
			parameters.NewParameterDefinition("trim-lines", parameters.ParameterTypeBool, parameters.WithDefault(false), parameters.WithHelp("Trim every line of the file before parsing")),
		),
		gcmds.WithLayersList(glazedLayers, commandLayer),
	)
	return &ParseCommand{cd}, nil
}

// GlazeCommand: one row per prompt
func (c *ParseCommand) RunIntoGlazeProcessor(ctx context.Context, parsed *glayers.ParsedLayers, gp middlewares.Processor) error {
	s := &ParseSettings{}
	if err := parsed.InitializeStruct(glayers.DefaultSlug, s); err != nil {
		return err
	}
	in, err := readInput(s.File, s.Text, os.Stdin)
	if err != nil {
		return err
	}
	raw := in.Raw()
	if s.TrimLines && len(in.Upload) > 0 {
		raw = chunk.LoadFile(in.Upload)
	}

	for i, sec := range chunk.Sections(raw) {
		row := types.NewRow(
			types.MRP("index", i+1),
			types.MRP("lines", len(sec)),
			types.MRP("prompt", chunk.Clean(sec)),
		)
		if err := gp.AddRow(ctx, row); err != nil {
			return err
		}
	}
	return nil
}
