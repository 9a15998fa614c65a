// Package config loads and validates the application configuration file.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/newthinker/rewind/internal/archive"
	"github.com/newthinker/rewind/internal/backtest"
	"github.com/newthinker/rewind/internal/core"
	"github.com/newthinker/rewind/internal/walkforward"
)

type Config struct {
	Engine      backtest.Config    `mapstructure:"engine"`
	Sweep       SweepConfig        `mapstructure:"sweep"`
	WalkForward walkforward.Config `mapstructure:"walkforward"`
	Archive     ArchiveConfig      `mapstructure:"archive"`
	Logging     LoggingConfig      `mapstructure:"logging"`
	Metrics     MetricsConfig      `mapstructure:"metrics"`
}

// SweepConfig holds parameter-search settings. Params carries the domain
// tokens (key=lo:hi:step, key=a,b,c, key=*) exactly as written in the file.
type SweepConfig struct {
	Strategy  string   `mapstructure:"strategy"`
	Objective string   `mapstructure:"objective"`
	Mode      string   `mapstructure:"mode"`
	Params    []string `mapstructure:"params"`

	Samples int   `mapstructure:"samples"`
	Seed    int64 `mapstructure:"seed"`
	Workers int   `mapstructure:"workers"`

	MaxGridSize int `mapstructure:"max_grid_size"`
	MaxEvals    int `mapstructure:"max_evals"`
}

// ArchiveConfig selects the artifact storage backend.
type ArchiveConfig struct {
	Type string   `mapstructure:"type"` // "localfs" or "s3"
	Path string   `mapstructure:"path"` // for localfs
	S3   S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load reads configuration from file. Values of the form ${ENV_VAR} are
// expanded from the environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Engine:      backtest.DefaultConfig(),
		WalkForward: walkforward.DefaultConfig(),
		Sweep: SweepConfig{
			Mode:        "grid",
			Samples:     100,
			MaxGridSize: 100_000,
		},
		Archive: ArchiveConfig{
			Type: "localfs",
			Path: "artifacts",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return err
	}
	if err := c.WalkForward.Validate(); err != nil {
		return err
	}

	switch c.Sweep.Mode {
	case "grid", "random":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("sweep mode must be grid or random, got %q", c.Sweep.Mode))
	}
	if c.Sweep.Mode == "random" && c.Sweep.Samples <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("random sweep needs a positive sample count, got %d", c.Sweep.Samples))
	}
	if c.Sweep.Workers < 0 || c.Sweep.MaxGridSize < 0 || c.Sweep.MaxEvals < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("sweep limits cannot be negative"))
	}

	switch c.Archive.Type {
	case "localfs":
		if c.Archive.Path == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("archive path required for localfs"))
		}
	case "s3":
		if c.Archive.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("s3 bucket required when archive type is s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("archive type must be localfs or s3, got %q", c.Archive.Type))
	}

	return nil
}

// OpenArchive builds the storage backend the config selects.
func (c *Config) OpenArchive() (archive.Storage, error) {
	switch c.Archive.Type {
	case "localfs":
		return archive.NewLocalFS(c.Archive.Path)
	case "s3":
		return archive.NewS3(archive.S3Config{
			Bucket:    c.Archive.S3.Bucket,
			Endpoint:  c.Archive.S3.Endpoint,
			Region:    c.Archive.S3.Region,
			AccessKey: c.Archive.S3.AccessKey,
			SecretKey: c.Archive.S3.SecretKey,
			Prefix:    c.Archive.S3.Prefix,
		})
	default:
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("archive type must be localfs or s3, got %q", c.Archive.Type))
	}
}
