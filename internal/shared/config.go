package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Paths    PathsConfig    `toml:"paths"`
	Rules    RulesConfig    `toml:"rules"`
	API      APIConfig      `toml:"api"`
	GitHub   GitHubConfig   `toml:"github"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
}

// PathsConfig locates the flat files that make up the curator's state.
type PathsConfig struct {
	Channels    string `toml:"channels"`
	Playlists   string `toml:"playlists"`
	AddOn       string `toml:"addon"`
	Stats       string `toml:"stats"`
	Archive     string `toml:"archive"`
	Ledger      string `toml:"ledger"`
	TokensDir   string `toml:"tokens_dir"`
	OAuthClient string `toml:"oauth_client"`
	HistoryLog  string `toml:"history_log"`
	LastExeLog  string `toml:"last_exe_log"`
}

// RulesConfig holds the thresholds that drive classification, eviction and refill.
type RulesConfig struct {
	MaxDurationMinutes  int      `toml:"max_duration_minutes"`
	MinDurationMinutes  int      `toml:"min_duration_minutes"`
	EvictAfterDays      int      `toml:"evict_after_days"`
	EvictRoles          []string `toml:"evict_roles"`
	RadarLimit          int      `toml:"radar_limit"`
	RelistenMinAgeDays  int      `toml:"relisten_min_age_days"`
	DiscoveryDays       int      `toml:"discovery_days"`
	MusicCategories     []string `toml:"music_categories"`
	OtherCategories     []string `toml:"other_categories"`
	SkipSortCategoryTag string   `toml:"skip_sort_category_tag"`
}

// APIConfig contains YouTube Data API client settings.
type APIConfig struct {
	RequestsPerSecond float64 `toml:"requests_per_second"`
	PageSize          int64   `toml:"page_size"`
	ShortsBaseURL     string  `toml:"shorts_base_url"`
}

// GitHubConfig contains the settings used to push refreshed credentials to a repository secret.
type GitHubConfig struct {
	Repository string `toml:"repository"`
	TokenEnv   string `toml:"token_env"`
	SecretName string `toml:"secret_name"`
	CredsEnv   string `toml:"creds_env"`
}

// DatabaseConfig contains run history database settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains the local OAuth callback listener settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// MaxDuration is the length above which a music upload is not treated as a release.
func (r RulesConfig) MaxDuration() time.Duration {
	return time.Duration(r.MaxDurationMinutes) * time.Minute
}

// MinDuration is the shortest candidate accepted by a general playlist update.
func (r RulesConfig) MinDuration() time.Duration {
	return time.Duration(r.MinDurationMinutes) * time.Minute
}

// EvictAfter is the age past which general playlist items are evicted.
func (r RulesConfig) EvictAfter() time.Duration {
	return time.Duration(r.EvictAfterDays) * 24 * time.Hour
}

// RelistenMinAge is how long an item must have sat in the re-listening queue before a refill may pull it.
func (r RulesConfig) RelistenMinAge() time.Duration {
	return time.Duration(r.RelistenMinAgeDays) * 24 * time.Hour
}

// Evicts reports whether eviction is enabled for the given playlist role.
func (r RulesConfig) Evicts(role string) bool {
	for _, evictRole := range r.EvictRoles {
		if evictRole == role {
			return true
		}
	}
	return false
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys absent from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if repo := os.Getenv("GITHUB_REPOSITORY"); repo != "" {
		config.GitHub.Repository = repo
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig encodes the configuration as TOML and writes it to path.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
