package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"scenegen/internal/infra"
	"scenegen/internal/sqlinline"
)

// Providers whose API keys can be stored in integration_tokens.
const (
	ProviderGemini     = "gemini"
	ProviderElevenLabs = "elevenlabs"
)

// Providers lists the accepted provider names.
var Providers = []string{ProviderGemini, ProviderElevenLabs}

// Store reads and writes provider API keys kept in the database, used when
// the key is absent from the environment.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// IsProvider reports whether name is a supported provider.
func IsProvider(name string) bool {
	for _, p := range Providers {
		if p == name {
			return true
		}
	}
	return false
}

// Token returns the stored key for provider, or "" when none is stored.
func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

// Resolve returns fromEnv when set, otherwise the stored key.
func (s *Store) Resolve(ctx context.Context, provider, fromEnv string) (string, error) {
	if key := strings.TrimSpace(fromEnv); key != "" {
		return key, nil
	}
	if s == nil {
		return "", nil
	}
	return s.Token(ctx, provider)
}

// SetToken stores key for provider, replacing any existing one.
func (s *Store) SetToken(ctx context.Context, provider, key string) error {
	if !IsProvider(provider) {
		return fmt.Errorf("unsupported provider %q", provider)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("%s api key is required", provider)
	}
	raw, err := json.Marshal(map[string]any{"source": "cli"})
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, key, raw)
	return err
}
