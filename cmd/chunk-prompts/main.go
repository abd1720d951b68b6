package main

import (
	clay "github.com/go-go-golems/clay/pkg"
	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/logging"
	"github.com/go-go-golems/glazed/pkg/cmds/middlewares"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
	"github.com/go-go-golems/glazed/pkg/help"
	help_cmd "github.com/go-go-golems/glazed/pkg/help/cmd"
	"github.com/spf13/cobra"

	appcmds "github.com/go-go-golems/chunk-prompts/cmds"
	appdoc "github.com/go-go-golems/chunk-prompts/pkg/doc"
)

var version = "dev"

func getMiddlewares(parsedLayers *layers.ParsedLayers, cmd *cobra.Command, args []string) ([]middlewares.Middleware, error) {
	commandSettings := &cli.CommandSettings{}
	if err := parsedLayers.InitializeStruct(cli.CommandSettingsSlug, commandSettings); err != nil {
		return nil, err
	}

	return []middlewares.Middleware{
		middlewares.ParseFromCobraCommand(cmd,
			parameters.WithParseStepSource("cobra"),
		),
		middlewares.GatherArguments(args,
			parameters.WithParseStepSource("arguments"),
		),
		middlewares.GatherFlagsFromViper(parameters.WithParseStepSource("viper")),
		middlewares.SetFromDefaults(parameters.WithParseStepSource("defaults")),
	}, nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:     "chunk-prompts",
		Short:   "Turn '#'-delimited chunk files into batches of image generation jobs",
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cobra.CheckErr(logging.InitLoggerFromViper())
		},
	}

	clay.InitViper("chunk-prompts", rootCmd)

	hs := help.NewHelpSystem()
	cobra.CheckErr(appdoc.AddDocToHelpSystem(hs))
	help_cmd.SetupCobraRootCommand(hs, rootCmd)

	opts := []cli.CobraOption{
		cli.WithParserConfig(cli.CobraParserConfig{
			MiddlewaresFunc: getMiddlewares,
		}),
	}

	parseCmd, err := appcmds.NewParseCommand()
	cobra.CheckErr(err)
	runCmd, err := appcmds.NewRunCommand()
	cobra.CheckErr(err)

	for _, c := range []cmds.Command{parseCmd, runCmd} {
		cobraCmd, err := cli.BuildCobraCommand(c, opts...)
		cobra.CheckErr(err)
		rootCmd.AddCommand(cobraCmd)
	}

	cobra.CheckErr(rootCmd.Execute())
}
