package ports

import "context"

// Secret represents a retrieved secret with metadata
type Secret struct {
	Value     string // The secret value (e.g., database password)
	Version   string // Secret version identifier
	CreatedAt string // When this version was created
}

// SecretSource resolves infrastructure credentials at startup.
// Path format depends on the backend:
//   - env:   "DB_PASSWORD" (or DB_PASSWORD_FILE pointing to a file)
//   - AWS:   "lawdesk/production/db" or a full ARN
//   - Vault: "lawdesk/db" under the configured KV mount
type SecretSource interface {
	GetSecret(ctx context.Context, path string) (*Secret, error)
}
