package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/kevin07696/lawdesk/internal/domain/ports"
)

// envSource reads secrets from environment variables. For a path NAME the
// variable NAME wins; otherwise NAME_FILE may point to a file holding the
// value (Docker and Kubernetes secret mounts).
// For development and container platforms that inject secrets as env.
type envSource struct {
	lookup func(string) (string, bool)
	logger *zap.Logger
}

// NewEnvSecretSource creates a secret source backed by the process environment
func NewEnvSecretSource(logger *zap.Logger) ports.SecretSource {
	return &envSource{lookup: os.LookupEnv, logger: logger}
}

// GetSecret implements ports.SecretSource
func (s *envSource) GetSecret(ctx context.Context, name string) (*ports.Secret, error) {
	if value, ok := s.lookup(name); ok && value != "" {
		return &ports.Secret{Value: value, Version: "env"}, nil
	}

	if filePath, ok := s.lookup(name + "_FILE"); ok && filePath != "" {
		s.logger.Debug("Reading secret from file", zap.String("name", name))

		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read secret file for %s: %w", name, err)
		}
		value := strings.TrimRight(string(data), "\r\n")
		if value == "" {
			return nil, fmt.Errorf("secret file for %s is empty", name)
		}
		return &ports.Secret{Value: value, Version: "file"}, nil
	}

	return nil, fmt.Errorf("secret not found: %s", name)
}
