package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the complete engram configuration: index weights,
// chunking defaults, prune policy, and crypto settings.
type Config struct {
	Version   int             `yaml:"version" json:"version"`
	Index     IndexConfig     `yaml:"index" json:"index"`
	Chunking  ChunkingConfig  `yaml:"chunking" json:"chunking"`
	Prune     PruneConfig     `yaml:"prune" json:"prune"`
	Crypto    CryptoConfig    `yaml:"crypto" json:"crypto"`
	Synonyms  SynonymsConfig  `yaml:"synonyms" json:"synonyms"`
}

// IndexConfig configures BM25 scoring and the recency/synonym/importance blend.
type IndexConfig struct {
	// K1 is the BM25 term-frequency saturation parameter. Default: 1.2.
	K1 float64 `yaml:"k1" json:"k1"`
	// B is the BM25 document-length normalization parameter. Default: 0.75.
	B float64 `yaml:"b" json:"b"`
	// RecencyWeight blends BM25 score against recency. Default: 0.3.
	RecencyWeight float64 `yaml:"recency_weight" json:"recency_weight"`
	// RecencyLambda is the exponential recency decay rate. Default: 0.1.
	RecencyLambda float64 `yaml:"recency_lambda" json:"recency_lambda"`
	// SynonymWeight blends synonym-expanded BM25 score into the total. Default: 0.5.
	SynonymWeight float64 `yaml:"synonym_weight" json:"synonym_weight"`
	// SupersededPenalty multiplies the score of superseded episodes. Default: 0.3.
	SupersededPenalty float64 `yaml:"superseded_penalty" json:"superseded_penalty"`
	// DefaultLimit is the default result count for recall(). Default: 10.
	DefaultLimit int `yaml:"default_limit" json:"default_limit"`
}

// ChunkingConfig configures the ingestion pipeline's text splitting.
type ChunkingConfig struct {
	// Mode selects the chunking strategy: "paragraph", "sentence", or "fixed".
	Mode string `yaml:"mode" json:"mode"`
	// MaxTokens is the target chunk size in tokens for "sentence" and "fixed" modes.
	MaxTokens int `yaml:"max_tokens" json:"max_tokens"`
	// OverlapTokens is the token overlap between consecutive "fixed" chunks.
	OverlapTokens int `yaml:"overlap_tokens" json:"overlap_tokens"`
}

// PruneConfig configures the default retention policy for prune().
type PruneConfig struct {
	// Keep is the number of highest-ranked episodes always retained.
	Keep int `yaml:"keep" json:"keep"`
	// MaxAgeDays is the age past which a low-importance episode is eligible for pruning.
	MaxAgeDays int `yaml:"max_age_days" json:"max_age_days"`
	// MinImportance is the effective-importance floor below which an aged episode is pruned.
	MinImportance float64 `yaml:"min_importance" json:"min_importance"`
}

// CryptoConfig configures encryption-at-rest for episode text and tags.
type CryptoConfig struct {
	// Enabled turns on AEAD encryption of text and tags at rest.
	Enabled bool `yaml:"enabled" json:"enabled"`
	// KeyFile is a key file path read from config and merged across
	// layers. Key resolution does not read it: the lowest-priority key
	// source is always <store>/engram.key.
	KeyFile string `yaml:"key_file" json:"key_file"`
}

// SynonymsConfig configures the layered synonym table.
type SynonymsConfig struct {
	// Path is an explicit synonym config file, merged after the
	// ENGRAM_SYNONYMS file and the per-store synonyms.json overlay. A
	// non-empty ENGRAM_SYNONYMS replaces this value in applyEnvOverrides, so
	// a configured path is then not loaded.
	Path string `yaml:"path" json:"path"`
}

// NewConfig creates a new Config with the defaults specified for engram's
// scoring and retention behavior.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Index: IndexConfig{
			K1:                1.2,
			B:                 0.75,
			RecencyWeight:     0.3,
			RecencyLambda:     0.1,
			SynonymWeight:     0.5,
			SupersededPenalty: 0.3,
			DefaultLimit:      10,
		},
		Chunking: ChunkingConfig{
			Mode:          "paragraph",
			MaxTokens:     200,
			OverlapTokens: 20,
		},
		Prune: PruneConfig{
			Keep:          1000,
			MaxAgeDays:    90,
			MinImportance: 0.05,
		},
		Crypto: CryptoConfig{
			Enabled: false,
			KeyFile: "",
		},
		Synonyms: SynonymsConfig{
			Path: "",
		},
	}
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/engram/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/engram/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "engram", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "engram", "config.yaml")
	}
	return filepath.Join(home, ".config", "engram", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig loads the user/global configuration file if it exists.
// Returns nil config and nil error if the file doesn't exist (that's OK).
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()

	if !fileExists(configPath) {
		return nil, nil // No user config is fine
	}

	cfg := NewConfig()
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}

	return cfg, nil
}

// Load loads configuration for a store rooted at storePath. It applies
// configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/engram/config.yaml)
//  3. Per-store config (<storePath>/engram.yaml)
//  4. Environment variables (ENGRAM_*)
func Load(storePath string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(storePath); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load configuration from <storePath>/engram.yaml.
func (c *Config) loadFromFile(storePath string) error {
	path := filepath.Join(storePath, "engram.yaml")
	if _, err := os.Stat(path); err == nil {
		return c.loadYAML(path)
	}
	return nil // No per-store config is fine - use defaults
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	// Index weights
	if other.Index.K1 != 0 {
		c.Index.K1 = other.Index.K1
	}
	if other.Index.B != 0 {
		c.Index.B = other.Index.B
	}
	if other.Index.RecencyWeight != 0 {
		c.Index.RecencyWeight = other.Index.RecencyWeight
	}
	if other.Index.RecencyLambda != 0 {
		c.Index.RecencyLambda = other.Index.RecencyLambda
	}
	if other.Index.SynonymWeight != 0 {
		c.Index.SynonymWeight = other.Index.SynonymWeight
	}
	if other.Index.SupersededPenalty != 0 {
		c.Index.SupersededPenalty = other.Index.SupersededPenalty
	}
	if other.Index.DefaultLimit != 0 {
		c.Index.DefaultLimit = other.Index.DefaultLimit
	}

	// Chunking
	if other.Chunking.Mode != "" {
		c.Chunking.Mode = other.Chunking.Mode
	}
	if other.Chunking.MaxTokens != 0 {
		c.Chunking.MaxTokens = other.Chunking.MaxTokens
	}
	if other.Chunking.OverlapTokens != 0 {
		c.Chunking.OverlapTokens = other.Chunking.OverlapTokens
	}

	// Prune
	if other.Prune.Keep != 0 {
		c.Prune.Keep = other.Prune.Keep
	}
	if other.Prune.MaxAgeDays != 0 {
		c.Prune.MaxAgeDays = other.Prune.MaxAgeDays
	}
	if other.Prune.MinImportance != 0 {
		c.Prune.MinImportance = other.Prune.MinImportance
	}

	// Crypto
	if other.Crypto.Enabled {
		c.Crypto.Enabled = other.Crypto.Enabled
	}
	if other.Crypto.KeyFile != "" {
		c.Crypto.KeyFile = other.Crypto.KeyFile
	}

	// Synonyms
	if other.Synonyms.Path != "" {
		c.Synonyms.Path = other.Synonyms.Path
	}
}

// applyEnvOverrides applies ENGRAM_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ENGRAM_RECENCY_WEIGHT"); v != "" {
		if w, err := parseFloat64(v); err == nil && w >= 0 && w <= 1 {
			c.Index.RecencyWeight = w
		}
	}
	if v := os.Getenv("ENGRAM_SYNONYM_WEIGHT"); v != "" {
		if w, err := parseFloat64(v); err == nil && w >= 0 {
			c.Index.SynonymWeight = w
		}
	}
	if v := os.Getenv("ENGRAM_RECENCY_LAMBDA"); v != "" {
		if l, err := parseFloat64(v); err == nil && l >= 0 {
			c.Index.RecencyLambda = l
		}
	}
	if v := os.Getenv("ENGRAM_CHUNK_MODE"); v != "" {
		c.Chunking.Mode = v
	}
	if v := os.Getenv("ENGRAM_CHUNK_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Chunking.MaxTokens = n
		}
	}
	if v := os.Getenv("ENGRAM_SYNONYMS"); v != "" {
		c.Synonyms.Path = v
	}
	// ENGRAM_KEY (raw 64-hex key material) is consumed directly by
	// internal/crypto's key resolver, not mirrored into Config.
}

// parseFloat64 parses a string to float64, used for config parsing.
func parseFloat64(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(strings.TrimSpace(s), "%f", &f)
	return f, err
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Index.RecencyWeight < 0 || c.Index.RecencyWeight > 1 {
		return fmt.Errorf("index.recency_weight must be between 0 and 1, got %f", c.Index.RecencyWeight)
	}
	if c.Index.K1 <= 0 {
		return fmt.Errorf("index.k1 must be positive, got %f", c.Index.K1)
	}
	if c.Index.B < 0 || c.Index.B > 1 {
		return fmt.Errorf("index.b must be between 0 and 1, got %f", c.Index.B)
	}
	if c.Index.SynonymWeight < 0 {
		return fmt.Errorf("index.synonym_weight must be non-negative, got %f", c.Index.SynonymWeight)
	}
	if c.Index.DefaultLimit < 0 {
		return fmt.Errorf("index.default_limit must be non-negative, got %d", c.Index.DefaultLimit)
	}

	validModes := map[string]bool{"paragraph": true, "sentence": true, "fixed": true}
	if !validModes[strings.ToLower(c.Chunking.Mode)] {
		return fmt.Errorf("chunking.mode must be 'paragraph', 'sentence', or 'fixed', got %s", c.Chunking.Mode)
	}
	if c.Chunking.MaxTokens < 0 {
		return fmt.Errorf("chunking.max_tokens must be non-negative, got %d", c.Chunking.MaxTokens)
	}

	if c.Prune.Keep < 0 {
		return fmt.Errorf("prune.keep must be non-negative, got %d", c.Prune.Keep)
	}
	if c.Prune.MinImportance < 0 || c.Prune.MinImportance > 1 {
		return fmt.Errorf("prune.min_importance must be between 0 and 1, got %f", c.Prune.MinImportance)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file. An existing file at
// path is backed up first (see backupFile), so a bad rewrite never loses
// the previous working config.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if fileExists(path) {
		if _, err := backupFile(path); err != nil {
			return err
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadUserConfig loads the user configuration file.
// Returns nil config and nil error if the file doesn't exist.
func LoadUserConfig() (*Config, error) {
	return loadUserConfig()
}

// MergeNewDefaults adds new default fields while preserving existing values.
// Returns a list of field names that were added with their default values.
func (c *Config) MergeNewDefaults() []string {
	defaults := NewConfig()
	var added []string

	if c.Index.K1 == 0 {
		c.Index.K1 = defaults.Index.K1
		added = append(added, "index.k1")
	}
	if c.Index.B == 0 {
		c.Index.B = defaults.Index.B
		added = append(added, "index.b")
	}
	if c.Index.RecencyWeight == 0 {
		c.Index.RecencyWeight = defaults.Index.RecencyWeight
		added = append(added, "index.recency_weight")
	}
	if c.Index.SynonymWeight == 0 {
		c.Index.SynonymWeight = defaults.Index.SynonymWeight
		added = append(added, "index.synonym_weight")
	}
	if c.Prune.Keep == 0 {
		c.Prune.Keep = defaults.Prune.Keep
		added = append(added, "prune.keep")
	}

	return added
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
