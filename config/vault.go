package config

// VaultConfig holds HashiCorp Vault settings for the credential overlay.
type VaultConfig struct {
	Enabled    bool
	Address    string
	Token      string
	MountPath  string // KV v2 secrets engine mount
	SecretPath string // secret holding the credential variables
	CACert     string
}

// LoadVault reads the Vault overlay settings. The overlay is enabled when both
// VAULT_ADDR and VAULT_TOKEN are set.
func LoadVault(src Source) VaultConfig {
	r := &reader{src: src}
	cfg := VaultConfig{
		Address:    r.str("VAULT_ADDR", ""),
		Token:      r.str("VAULT_TOKEN", ""),
		MountPath:  r.str("VAULT_MOUNT_PATH", "secret"),
		SecretPath: r.str("VAULT_SECRET_PATH", "trading-bot/exchange-keys"),
		CACert:     r.str("VAULT_CACERT", ""),
	}
	if cfg.MountPath == "" {
		cfg.MountPath = "secret"
	}
	if cfg.SecretPath == "" {
		cfg.SecretPath = "trading-bot/exchange-keys"
	}
	cfg.Enabled = cfg.Address != "" && cfg.Token != ""
	return cfg
}
