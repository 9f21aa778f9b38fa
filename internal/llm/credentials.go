package llm

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNotConfigured is returned when no credentials exist for a profile.
var ErrNotConfigured = errors.New("completion provider not configured")

// Credentials identify one provider/model pair plus its API key.
type Credentials struct {
	Provider string
	APIKey   string
	Model    string
}

// Resolver supplies credentials for a named model profile. The vault and
// its encryption live outside this module; this is an opaque lookup that
// may answer "not configured".
type Resolver interface {
	Resolve(profile string) (Credentials, error)
}

// Profile is one resolvable provider/model entry. The API key is read
// from the named environment variable so key material never sits in
// config files.
type Profile struct {
	Provider  string `mapstructure:"provider"`
	Model     string `mapstructure:"model"`
	APIKeyEnv string `mapstructure:"api_key_env"`
}

// EnvResolver resolves profiles declared in configuration against the
// process environment.
type EnvResolver struct {
	profiles map[string]Profile
}

// NewEnvResolver builds a resolver from configured profiles.
func NewEnvResolver(profiles map[string]Profile) *EnvResolver {
	return &EnvResolver{profiles: profiles}
}

// Resolve returns credentials for profile, or ErrNotConfigured when the
// profile or its key is absent.
func (r *EnvResolver) Resolve(profile string) (Credentials, error) {
	p, ok := r.profiles[profile]
	if !ok {
		return Credentials{}, fmt.Errorf("profile %q: %w", profile, ErrNotConfigured)
	}
	keyEnv := p.APIKeyEnv
	if keyEnv == "" {
		keyEnv = defaultKeyEnv(p.Provider)
	}
	key := strings.TrimSpace(os.Getenv(keyEnv))
	if key == "" {
		return Credentials{}, fmt.Errorf("profile %q: %s is empty: %w", profile, keyEnv, ErrNotConfigured)
	}
	return Credentials{Provider: p.Provider, APIKey: key, Model: p.Model}, nil
}

func defaultKeyEnv(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderGoogle:
		return "GOOGLE_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}
