package auth

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// Config mirrors the on-disk config.json. Field names keep the
// historical upper-case keys so existing config files keep working.
type Config struct {
	SpotifyClientID     string `json:"SPOTIPY_CLIENT_ID"`
	SpotifyClientSecret string `json:"SPOTIPY_CLIENT_SECRET"`
	DABAPIBase          string `json:"DAB_API_BASE"`
	MatchMode           string `json:"MATCH_MODE"`
	FuzzyThreshold      int    `json:"FUZZY_THRESHOLD"`
	DABAuthToken        string `json:"DAB_AUTH_TOKEN,omitempty"`
	DABEmail            string `json:"DAB_EMAIL,omitempty"`
	DABPassword         string `json:"DAB_PASSWORD,omitempty"`
}

func defaults() Config {
	return Config{
		DABAPIBase:     "https://dabmusic.xyz/api",
		MatchMode:      "lenient",
		FuzzyThreshold: 80,
	}
}

// ConfigPath returns the config file location under the user config
// directory.
func ConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "dabhounds", "config.json")
}

// LoadConfig reads the config file, creating it with defaults when
// missing and filling in any fields a previous version left out.
func LoadConfig() (*Config, error) {
	return loadConfigFrom(ConfigPath())
}

func loadConfigFrom(path string) (*Config, error) {
	def := defaults()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := saveConfigTo(path, &def); err != nil {
			return nil, err
		}
		return &def, nil
	}
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Merge defaults into fields older configs are missing; the API
	// base is force-updated when it drifted from the current endpoint.
	updated := false
	if cfg.DABAPIBase != def.DABAPIBase {
		cfg.DABAPIBase = def.DABAPIBase
		updated = true
	}
	if cfg.MatchMode == "" {
		cfg.MatchMode = def.MatchMode
		updated = true
	}
	if cfg.FuzzyThreshold == 0 {
		cfg.FuzzyThreshold = def.FuzzyThreshold
		updated = true
	}
	if updated {
		if err := saveConfigTo(path, &cfg); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// SaveConfig persists the config file.
func SaveConfig(cfg *Config) error {
	return saveConfigTo(ConfigPath(), cfg)
}

func saveConfigTo(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
