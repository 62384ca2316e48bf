package vault

import (
	"context"
	"fmt"
	"strings"

	"crypto-trading-bot/config"

	"github.com/hashicorp/vault/api"
)

// Client reads exchange credentials from a Vault KV v2 secret.
type Client struct {
	client *api.Client
	config config.VaultConfig
}

// NewClient creates a new Vault client
func NewClient(cfg config.VaultConfig) (*Client, error) {
	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = cfg.Address

	if cfg.CACert != "" {
		if err := vaultConfig.ConfigureTLS(&api.TLSConfig{CACert: cfg.CACert}); err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
	}

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	return &Client{client: client, config: cfg}, nil
}

func (c *Client) secretPath() string {
	return fmt.Sprintf("%s/data/%s", strings.Trim(c.config.MountPath, "/"), strings.Trim(c.config.SecretPath, "/"))
}

// ReadSecrets returns the secret's string fields keyed by variable name, for use as a
// config.Source layer. Non-string fields are ignored.
func (c *Client) ReadSecrets(ctx context.Context) (config.MapSource, error) {
	secret, err := c.client.Logical().ReadWithContext(ctx, c.secretPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read secrets from vault: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("secret %s not found", c.secretPath())
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid secret format")
	}

	out := make(config.MapSource, len(data))
	for k, v := range data {
		if s, ok := v.(string); ok {
			out[strings.ToUpper(k)] = s
		}
	}
	return out, nil
}

// Load reads the overlay when the Vault settings in src enable it. A disabled overlay
// yields a nil source.
func Load(ctx context.Context, src config.Source) (config.Source, error) {
	cfg := config.LoadVault(src)
	if !cfg.Enabled {
		return nil, nil
	}
	c, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return c.ReadSecrets(ctx)
}
