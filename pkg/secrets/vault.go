package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/vault/api"
	"github.com/rs/zerolog/log"
)

// Client reads key/value secrets from Vault.
type Client struct {
	client *api.Client
}

// NewClient creates a Vault client. An empty address falls back to
// VAULT_ADDR through the Vault default configuration.
func NewClient(address, token string) (*Client, error) {
	config := api.DefaultConfig()
	if address != "" {
		config.Address = address
	}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	client.SetToken(token)

	return &Client{client: client}, nil
}

// GetSecrets reads a secret, trying KV v2 first and falling back to KV v1.
func (c *Client) GetSecrets(path string) (map[string]interface{}, error) {
	mountPath, secretPath := splitPath(path)

	if secretPath != "" {
		secret, err := c.client.Logical().Read(fmt.Sprintf("%s/data/%s", mountPath, secretPath))
		if err == nil && secret != nil {
			if data, ok := secret.Data["data"].(map[string]interface{}); ok {
				return data, nil
			}
		}
	}

	secret, err := c.client.Logical().Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret from path %s: %w", path, err)
	}
	if secret == nil {
		return nil, fmt.Errorf("no secret found at path %s", path)
	}
	return secret.Data, nil
}

// ResolveToken picks the explicit token, then VAULT_TOKEN, then the token file.
func ResolveToken(explicitToken, tokenFilePath string) (string, error) {
	if explicitToken != "" {
		return explicitToken, nil
	}
	if t := os.Getenv("VAULT_TOKEN"); t != "" {
		return t, nil
	}
	if tokenFilePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("unable to resolve Vault token: %w", err)
		}
		tokenFilePath = filepath.Join(home, ".vault-token")
	} else if strings.HasPrefix(tokenFilePath, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			tokenFilePath = filepath.Join(home, strings.TrimPrefix(tokenFilePath, "~"))
		}
	}
	data, err := os.ReadFile(tokenFilePath)
	if err != nil {
		return "", fmt.Errorf("failed to read token file %s: %w", tokenFilePath, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Fill copies string secrets into every target that is still empty.
// Targets are keyed by secret name.
func Fill(secrets map[string]interface{}, targets map[string]*string) int {
	filled := 0
	for key, dst := range targets {
		if dst == nil || *dst != "" {
			continue
		}
		v, ok := secrets[key].(string)
		if !ok || v == "" {
			continue
		}
		*dst = v
		filled++
		log.Debug().Str("key", key).Msg("credential loaded from vault")
	}
	return filled
}

// Load resolves settings into a client, reads the configured path and fills
// the empty targets. It is a no-op when no vault path is configured.
func Load(s *VaultSettings, targets map[string]*string) error {
	if s == nil || strings.TrimSpace(s.VaultPath) == "" {
		return nil
	}
	token, err := ResolveToken(s.VaultToken, s.VaultTokenFile)
	if err != nil {
		return err
	}
	client, err := NewClient(s.VaultAddr, token)
	if err != nil {
		return err
	}
	data, err := client.GetSecrets(strings.TrimSpace(s.VaultPath))
	if err != nil {
		return fmt.Errorf("failed to retrieve credentials: %w", err)
	}
	n := Fill(data, targets)
	log.Info().Str("path", s.VaultPath).Int("credentials", n).Msg("vault: credentials resolved")
	return nil
}

func splitPath(path string) (string, string) {
	parts := strings.SplitN(strings.Trim(path, "/"), "/", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}
