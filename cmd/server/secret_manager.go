package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kevin07696/lawdesk/internal/adapters/secrets"
	"github.com/kevin07696/lawdesk/internal/config"
	"github.com/kevin07696/lawdesk/internal/domain/ports"
)

// initSecretSource selects the backend named by SECRET_MANAGER:
//   - env (default): NAME or NAME_FILE from the process environment
//   - aws: AWS Secrets Manager in AWS_REGION
//   - vault: HashiCorp Vault KV at VAULT_ADDR (token or AppRole auth)
func initSecretSource(ctx context.Context, cfg config.SecretsConfig, logger *zap.Logger) (ports.SecretSource, error) {
	switch cfg.Manager {
	case "aws":
		awsCfg := secrets.DefaultAWSSecretsManagerConfig(cfg.AWSRegion)
		awsCfg.Profile = cfg.AWSProfile
		return secrets.NewAWSSecretsManagerAdapter(ctx, awsCfg, logger)

	case "vault":
		vaultCfg := secrets.DefaultVaultConfig(cfg.VaultAddr)
		vaultCfg.Token = cfg.VaultToken
		if cfg.VaultRoleID != "" {
			vaultCfg.AuthMethod = "approle"
			vaultCfg.RoleID = cfg.VaultRoleID
			vaultCfg.SecretID = cfg.VaultSecretID
		}
		return secrets.NewVaultAdapter(ctx, vaultCfg, logger)

	case "env", "":
		return secrets.NewEnvSecretSource(logger), nil

	default:
		return nil, fmt.Errorf("unknown secret manager %q", cfg.Manager)
	}
}

// resolveDatabasePassword returns DB_PASSWORD, or reads DB_PASSWORD_SECRET
// from the secret backend. DATABASE_URL carries its own credentials.
func resolveDatabasePassword(ctx context.Context, cfg *config.Config, logger *zap.Logger) (string, error) {
	if cfg.Database.URL != "" || cfg.Database.Password != "" {
		return cfg.Database.Password, nil
	}

	source, err := initSecretSource(ctx, cfg.Secrets, logger)
	if err != nil {
		return "", fmt.Errorf("init secret manager: %w", err)
	}

	secret, err := source.GetSecret(ctx, cfg.Database.PasswordSecret)
	if err != nil {
		return "", fmt.Errorf("read database password: %w", err)
	}

	logger.Info("Database password loaded from secret manager",
		zap.String("secret_manager", cfg.Secrets.Manager),
		zap.String("version", secret.Version),
	)
	return secret.Value, nil
}
