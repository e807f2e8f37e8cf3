package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Where an API key was found.
const (
	SourceSecrets = "secrets"
	SourceEnv     = "env"
	SourceConfig  = "config"
)

var ErrNoAPIKey = errors.New("no api key configured")

// ResolveAPIKey looks for the remote model key in the secrets file, then the
// environment, then the config file, and reports which one supplied it.
func ResolveAPIKey(cfg *Config) (key, source string, err error) {
	name := cfg.LLM.APIKeyEnv
	if name == "" {
		name = "GEMINI_API_KEY"
	}

	if cfg.Secrets.Path != "" {
		key, err := readSecret(cfg.Secrets.Path, name)
		if err != nil {
			return "", "", err
		}
		if key != "" {
			return key, SourceSecrets, nil
		}
	}
	if key := strings.TrimSpace(os.Getenv(name)); key != "" {
		return key, SourceEnv, nil
	}
	if key := strings.TrimSpace(cfg.LLM.APIKey); key != "" {
		return key, SourceConfig, nil
	}
	return "", "", fmt.Errorf("%w: set %s in %s, the environment or llm.api_key", ErrNoAPIKey, name, cfg.Secrets.Path)
}

// readSecret returns name from the top level of a TOML secrets file or from
// its [general] table. A missing file yields an empty key.
func readSecret(path, name string) (string, error) {
	var doc map[string]any
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read secrets %s: %w", path, err)
	}
	if v, ok := doc[name].(string); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v), nil
	}
	if general, ok := doc["general"].(map[string]any); ok {
		if v, ok := general[name].(string); ok {
			return strings.TrimSpace(v), nil
		}
	}
	return "", nil
}
