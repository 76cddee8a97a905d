// Package config provides configuration management for the dexmerge tool.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Merge    MergeConfig    `mapstructure:"merge"`
	Models   []ModelConfig  `mapstructure:"models"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Log      LogConfig      `mapstructure:"log"`
}

// MergeConfig holds pipeline-wide settings.
type MergeConfig struct {
	Version string `mapstructure:"version"`
	// DataDir is where run artifacts (plans, stats dumps) are written.
	DataDir string `mapstructure:"data_dir"`
	// MaxWorker bounds the number of models built concurrently.
	MaxWorker int `mapstructure:"max_worker"`
	// OrderFile is the interdex class-load order file, optional.
	OrderFile string `mapstructure:"order_file"`
}

// GeneratedConfig is the file form of a model's generated-set spec.
type GeneratedConfig struct {
	// SameNamespace assumes cross references within a generated root's
	// namespace are safe, skipping the reference exclusion check there.
	SameNamespace bool `mapstructure:"namespace"`
	// OtherRoots name additional bases whose subtypes belong to the
	// generated set.
	OtherRoots []string `mapstructure:"other_roots"`
}

// ApproxConfig holds approximate shaping settings for one model.
type ApproxConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxFieldDelta int  `mapstructure:"max_field_delta"`
}

// ModelConfig is the file form of one model spec. String-valued enum
// fields are parsed when the spec is materialized against a loaded image.
type ModelConfig struct {
	Name            string   `mapstructure:"name"`
	ClassNamePrefix string   `mapstructure:"class_name_prefix"`
	Roots           []string `mapstructure:"roots"`
	MergingTargets  []string `mapstructure:"merging_targets"`
	Exclude         []string `mapstructure:"exclude"`
	ExcludePrefixes []string `mapstructure:"exclude_prefixes"`

	TypeTagConfig string `mapstructure:"type_tag_config"`
	TypeTagField  string `mapstructure:"type_tag_field"`

	MinCount int    `mapstructure:"min_count"`
	MaxCount int    `mapstructure:"max_count"`
	Strategy string `mapstructure:"strategy"`

	InterdexGrouping      string `mapstructure:"interdex_grouping"`
	InterdexInferringMode string `mapstructure:"interdex_grouping_inferring_mode"`

	PerDexGrouping    bool `mapstructure:"per_dex_grouping"`
	IncludePrimaryDex bool `mapstructure:"include_primary_dex"`

	IsGeneratedCode bool            `mapstructure:"is_generated_code"`
	GenAnnos        []string        `mapstructure:"gen_annos"`
	Generated       GeneratedConfig `mapstructure:"generated"`

	MergeTypesWithStaticFields bool `mapstructure:"merge_types_with_static_fields"`
	KeepDebugInfo              bool `mapstructure:"keep_debug_info"`
	// DedupFillInStackTrace defaults to true when unset.
	DedupFillInStackTrace *bool  `mapstructure:"dedup_fill_in_stack_trace"`
	TypeLikeStrings       string `mapstructure:"type_like_strings"`

	ApproximateShaping ApproxConfig `mapstructure:"approximate_shaping"`

	MaxNumDispatchTargets int `mapstructure:"max_num_dispatch_targets"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Type     string `mapstructure:"type"` // postgres or mysql
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	MaxConns int    `mapstructure:"max_conns"`
	// Enabled toggles run persistence; local invocations usually leave it
	// off.
	Enabled bool `mapstructure:"enabled"`
}

// StorageConfig holds object storage configuration for plan artifacts and
// remotely hosted order files.
type StorageConfig struct {
	Type      string `mapstructure:"type"` // cos or local
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
	Domain    string `mapstructure:"domain"` // e.g., "myqcloud.com"
	Scheme    string `mapstructure:"scheme"` // e.g., "https" or "http"
	LocalPath string `mapstructure:"local_path"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"` // json or text
}

// Load reads configuration from the specified file path.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/dexmerge")
	}

	if err := v.ReadInConfig(); err != nil {
		// Missing files fall back to defaults; anything else is fatal.
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("Config file not found, using defaults")
		} else if os.IsNotExist(err) {
			fmt.Printf("Config file %s not found, using defaults\n", configPath)
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("DEXMERGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadFromReader loads configuration from raw content (useful for testing).
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Merge defaults
	v.SetDefault("merge.version", "1.0.0")
	v.SetDefault("merge.data_dir", "./data")
	v.SetDefault("merge.max_worker", 4)

	// Database defaults
	v.SetDefault("database.type", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.max_conns", 10)

	// Storage defaults
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "./storage")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.output_path", "./logs")
	v.SetDefault("log.format", "text")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Merge.MaxWorker < 1 {
		return fmt.Errorf("merge worker count must be at least 1")
	}

	if c.Database.Enabled {
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.Type != "postgres" && c.Database.Type != "mysql" {
			return fmt.Errorf("unsupported database type: %s", c.Database.Type)
		}
	}

	names := make(map[string]bool)
	for i := range c.Models {
		m := &c.Models[i]
		if m.Name == "" {
			return fmt.Errorf("model %d has no name", i)
		}
		if names[m.Name] {
			return fmt.Errorf("duplicate model name: %s", m.Name)
		}
		names[m.Name] = true
		if len(m.Roots) == 0 {
			return fmt.Errorf("model %s has no roots", m.Name)
		}
	}

	return nil
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *Config) EnsureDataDir() error {
	if c.Merge.DataDir == "" {
		return nil
	}
	return os.MkdirAll(c.Merge.DataDir, 0755)
}

// GetRunDir returns the run-specific artifact directory path.
func (c *Config) GetRunDir(runUUID string) string {
	return filepath.Join(c.Merge.DataDir, runUUID)
}
