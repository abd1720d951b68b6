package secrets

import (
	"fmt"

	glzcms "github.com/go-go-golems/glazed/pkg/cmds"
	glzlayers "github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
)

const VaultLayerSlug = "vault"

type VaultSettings struct {
	VaultAddr      string `glazed.parameter:"vault-addr"`
	VaultToken     string `glazed.parameter:"vault-token"`
	VaultTokenFile string `glazed.parameter:"vault-token-file"`
	VaultPath      string `glazed.parameter:"vault-path"`
}

// NewVaultLayer defines where backend credentials may be read from.
func NewVaultLayer() (glzlayers.ParameterLayer, error) {
	return glzlayers.NewParameterLayer(
		VaultLayerSlug,
		"Vault credential lookup",
		glzlayers.WithParameterDefinitions(
			parameters.NewParameterDefinition(
				"vault-addr",
				parameters.ParameterTypeString,
				parameters.WithHelp("Vault server address (default $VAULT_ADDR)"),
				parameters.WithDefault(""),
			),
			parameters.NewParameterDefinition(
				"vault-token",
				parameters.ParameterTypeString,
				parameters.WithHelp("Vault token (default $VAULT_TOKEN, then the token file)"),
				parameters.WithDefault(""),
			),
			parameters.NewParameterDefinition(
				"vault-token-file",
				parameters.ParameterTypeString,
				parameters.WithHelp("Path to token file (default ~/.vault-token)"),
				parameters.WithDefault(""),
			),
			parameters.NewParameterDefinition(
				"vault-path",
				parameters.ParameterTypeString,
				parameters.WithHelp("Secret path holding backend credentials; empty disables the lookup"),
				parameters.WithDefault(""),
			),
		),
	)
}

// AddVaultLayerToCommand attaches the layer to a Glazed command description.
func AddVaultLayerToCommand(c glzcms.Command) (glzcms.Command, error) {
	l, err := NewVaultLayer()
	if err != nil {
		return nil, err
	}
	c.Description().Layers.Set(VaultLayerSlug, l)
	return c, nil
}

// GetVaultSettings returns parsed vault settings from the ParsedLayers.
func GetVaultSettings(parsed *glzlayers.ParsedLayers) (*VaultSettings, error) {
	var s VaultSettings
	if err := parsed.InitializeStruct(VaultLayerSlug, &s); err != nil {
		return nil, fmt.Errorf("failed to parse vault settings: %w", err)
	}
	return &s, nil
}
