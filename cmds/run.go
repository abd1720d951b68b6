package cmds

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	glzcli "github.com/go-go-golems/glazed/pkg/cli"
	gcmds "github.com/go-go-golems/glazed/pkg/cmds"
	glayers "github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/go-go-golems/chunk-prompts/pkg/backend"
	"github.com/go-go-golems/chunk-prompts/pkg/batch"
	"github.com/go-go-golems/chunk-prompts/pkg/chunk"
	"github.com/go-go-golems/chunk-prompts/pkg/genlayer"
	"github.com/go-go-golems/chunk-prompts/pkg/output"
	"github.com/go-go-golems/chunk-prompts/pkg/processing"
	"github.com/go-go-golems/chunk-prompts/pkg/sdapi"
	"github.com/go-go-golems/chunk-prompts/pkg/secrets"
)

const defaultOutputDir = "outputs"

type RunCommand struct{ *gcmds.CommandDescription }

type RunSettings struct {
	File           string `glazed.parameter:"file"`
	Text           string `glazed.parameter:"text"`
	Config         string `glazed.parameter:"config"`
	Backend        string `glazed.parameter:"backend"`
	SDAPIURL       string `glazed.parameter:"sdapi-url"`
	SDAPIUser      string `glazed.parameter:"sdapi-user"`
	SDAPIPassword  string `glazed.parameter:"sdapi-password"`
	SDAPIRetries   int    `glazed.parameter:"sdapi-retries"`
	SDAPITimeout   int    `glazed.parameter:"sdapi-timeout"`
	OpenAIAPIKey   string `glazed.parameter:"openai-api-key"`
	OpenAIModel    string `glazed.parameter:"openai-model"`
	OpenAIBaseURL  string `glazed.parameter:"openai-base-url"`
	GeminiAPIKey   string `glazed.parameter:"gemini-api-key"`
	GeminiModel    string `glazed.parameter:"gemini-model"`
	GeminiBaseURL  string `glazed.parameter:"gemini-base-url"`
	OutputDir      string `glazed.parameter:"output-dir"`
	Manifest       string `glazed.parameter:"manifest"`
	ManifestFormat string `glazed.parameter:"manifest-format"`
	DryRun         bool   `glazed.parameter:"dry-run"`
	NoColor        bool   `glazed.parameter:"no-color"`
}

func NewRunCommand() (*RunCommand, error) {
	layer, err := glzcli.NewCommandSettingsLayer()
	if err != nil {
		return nil, err
	}

	cd := gcmds.NewCommandDescription(
		"run",
		gcmds.WithShort("Generate images for every prompt of a chunk file"),
		gcmds.WithFlags(
			parameters.NewParameterDefinition("file", parameters.ParameterTypeString, parameters.WithShortFlag("f"), parameters.WithHelp("Chunk file ('-' for stdin); wins over --text")),
			parameters.NewParameterDefinition("text", parameters.ParameterTypeString, parameters.WithHelp("Chunk text given inline")),
			parameters.NewParameterDefinition("config", parameters.ParameterTypeString, parameters.WithShortFlag("c"), parameters.WithHelp("Base generation config YAML")),
			parameters.NewParameterDefinition("backend", parameters.ParameterTypeChoice, parameters.WithChoices(backend.Names...), parameters.WithDefault(backend.SDAPI), parameters.WithHelp("Image backend")),
			parameters.NewParameterDefinition("sdapi-url", parameters.ParameterTypeString, parameters.WithDefault(sdapi.DefaultURL), parameters.WithHelp("Web UI API address")),
			parameters.NewParameterDefinition("sdapi-user", parameters.ParameterTypeString, parameters.WithHelp("Web UI basic auth user")),
			parameters.NewParameterDefinition("sdapi-password", parameters.ParameterTypeString, parameters.WithHelp("Web UI basic auth password")),
			parameters.NewParameterDefinition("sdapi-retries", parameters.ParameterTypeInteger, parameters.WithDefault(0), parameters.WithHelp("Retries when the web UI cannot be reached; answered requests are never resent")),
			parameters.NewParameterDefinition("sdapi-timeout", parameters.ParameterTypeInteger, parameters.WithDefault(600), parameters.WithHelp("Per-request timeout in seconds")),
			parameters.NewParameterDefinition("openai-api-key", parameters.ParameterTypeString, parameters.WithHelp("OpenAI API key")),
			parameters.NewParameterDefinition("openai-model", parameters.ParameterTypeString, parameters.WithHelp("OpenAI image model")),
			parameters.NewParameterDefinition("openai-base-url", parameters.ParameterTypeString, parameters.WithHelp("OpenAI-compatible API base URL")),
			parameters.NewParameterDefinition("gemini-api-key", parameters.ParameterTypeString, parameters.WithHelp("Gemini API key")),
			parameters.NewParameterDefinition("gemini-model", parameters.ParameterTypeString, parameters.WithHelp("Gemini image model")),
			parameters.NewParameterDefinition("gemini-base-url", parameters.ParameterTypeString, parameters.WithHelp("Gemini API base URL")),
			parameters.NewParameterDefinition("output-dir", parameters.ParameterTypeString, parameters.WithShortFlag("o"), parameters.WithHelp("Directory for generated images (default output.dir or ./outputs)")),
			parameters.NewParameterDefinition("manifest", parameters.ParameterTypeString, parameters.WithHelp("Write a run manifest to this path; '-' for stdout")),
			parameters.NewParameterDefinition("manifest-format", parameters.ParameterTypeChoice, parameters.WithChoices("json", "yaml"), parameters.WithDefault("json"), parameters.WithHelp("Manifest format")),
			parameters.NewParameterDefinition("dry-run", parameters.ParameterTypeBool, parameters.WithDefault(false), parameters.WithHelp("Print the job configurations without generating")),
			parameters.NewParameterDefinition("no-color", parameters.ParameterTypeBool, parameters.WithDefault(false), parameters.WithHelp("Disable colored console output")),
		),
		gcmds.WithLayersList(layer),
	)
	if _, err := genlayer.AddGenerationLayerToCommand(cd); err != nil {
		return nil, err
	}
	if _, err := secrets.AddVaultLayerToCommand(cd); err != nil {
		return nil, err
	}
	return &RunCommand{cd}, nil
}

func (c *RunCommand) Run(ctx context.Context, parsed *glayers.ParsedLayers) error {
	s := &RunSettings{}
	if err := parsed.InitializeStruct(glayers.DefaultSlug, s); err != nil {
		return err
	}
	gs, err := genlayer.GetGenerationSettings(parsed)
	if err != nil {
		return err
	}
	vs, err := secrets.GetVaultSettings(parsed)
	if err != nil {
		return err
	}
	output.InitConsole(s.NoColor)

	base, err := loadBase(s.Config, gs)
	if err != nil {
		return err
	}
	in, err := readInput(s.File, s.Text, os.Stdin)
	if err != nil {
		return err
	}

	if s.DryRun {
		jobs := batch.BuildJobs(chunk.Parse(in.Raw()))
		configs := make([]*processing.Config, 0, len(jobs))
		for _, job := range jobs {
			configs = append(configs, batch.Apply(base, job))
		}
		return output.Write("-", configs, output.WriteOptions{Format: s.ManifestFormat})
	}

	bs := s.backendSettings()
	if err := secrets.Load(vs, bs.Credentials()); err != nil {
		return err
	}
	pipeline, err := backend.New(ctx, bs)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	p := &batch.Processor{Pipeline: pipeline, Progress: output.NewConsoleProgress()}
	res, err := p.Process(ctx, base, in)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			interrupt(pipeline)
		}
		return err
	}

	dir := outputDir(s.OutputDir)
	paths, err := output.SaveImages(dir, res.Images, res.Seed, res.Infotexts)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, saveSummary(len(chunk.Parse(in.Raw())), len(paths), dir))

	if s.Manifest != "" {
		m := output.NewManifest(res, paths)
		if err := output.Write(s.Manifest, m, output.WriteOptions{Format: s.ManifestFormat}); err != nil {
			return err
		}
	}
	return nil
}

func (s *RunSettings) backendSettings() backend.Settings {
	return backend.Settings{
		Backend:       s.Backend,
		SDAPIURL:      s.SDAPIURL,
		SDAPIUser:     s.SDAPIUser,
		SDAPIPassword: s.SDAPIPassword,
		SDAPIRetries:  s.SDAPIRetries,
		SDAPITimeout:  time.Duration(s.SDAPITimeout) * time.Second,
		OpenAIAPIKey:  s.OpenAIAPIKey,
		OpenAIModel:   s.OpenAIModel,
		OpenAIBaseURL: s.OpenAIBaseURL,
		GeminiAPIKey:  s.GeminiAPIKey,
		GeminiModel:   s.GeminiModel,
		GeminiBaseURL: s.GeminiBaseURL,
	}
}

// loadBase layers defaults, the config file and explicit flags.
func loadBase(path string, gs *genlayer.GenerationSettings) (*processing.Config, error) {
	base := processing.DefaultConfig()
	if path != "" {
		var err error
		base, err = processing.LoadConfig(path)
		if err != nil {
			return nil, err
		}
	}
	if gs != nil {
		gs.ApplyTo(base)
	}
	return base, nil
}

func outputDir(flag string) string {
	if flag != "" {
		return flag
	}
	if d := viper.GetString("output.dir"); d != "" {
		return d
	}
	return defaultOutputDir
}

// saveSummary reports the saved images, or warns when prompts produced none.
func saveSummary(prompts, saved int, dir string) string {
	if prompts > 0 && saved == 0 {
		return output.Warnf("backend returned no images for %d prompt(s)", prompts)
	}
	return output.SavedCount(saved, dir)
}

// interrupt asks a web UI to stop the generation that was in flight.
func interrupt(p any) {
	c, ok := p.(*sdapi.Client)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Interrupt(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to interrupt web UI")
	}
}
