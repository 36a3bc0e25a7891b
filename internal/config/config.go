// Package config loads settings for prompt generation from defaults, an
// optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "GIT_COMMIT_AI"
	AppName   = "git-commit-ai"

	DefaultMaxInputTokens = 10000
	DefaultEncoding       = "cl100k_base"
	DefaultLogLevel       = "info"
)

// EncodingEstimate skips BPE encodings and estimates token counts.
const EncodingEstimate = "estimate"

var (
	ErrInvalidTokenBudget = errors.New("max_input_tokens must be positive")
	ErrInvalidLogLevel    = errors.New("invalid log level")
	ErrEmptyEncoding      = errors.New("encoding cannot be empty")
)

type Config struct {
	LogLevel       string   `mapstructure:"log_level"`
	Debug          bool     `mapstructure:"debug"`
	Emoji          bool     `mapstructure:"emoji"`
	DisableEmoji   bool     `mapstructure:"disable_emoji"`
	MaxInputTokens int      `mapstructure:"max_input_tokens"`
	Encoding       string   `mapstructure:"encoding"`
	TemplateDirs   []string `mapstructure:"template_dirs"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

// DefaultSearchPaths returns the config file search order.
func DefaultSearchPaths() []string {
	paths := []string{"." + AppName + ".yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", AppName, "config.yaml"))
	}
	return paths
}

// DefaultTemplateDirs returns the template override directories: project
// local first, then the user config directory.
func DefaultTemplateDirs() []string {
	dirs := []string{filepath.Join("."+AppName, "prompts")}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", AppName, "prompts"))
	}
	return dirs
}

func Default() *Config {
	return &Config{
		LogLevel:       DefaultLogLevel,
		MaxInputTokens: DefaultMaxInputTokens,
		Encoding:       DefaultEncoding,
		TemplateDirs:   DefaultTemplateDirs(),
	}
}

// Load reads configuration. An explicit path must exist; otherwise the first
// file found in DefaultSearchPaths is used, if any. Environment variables
// override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	def := Default()
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("debug", false)
	v.SetDefault("emoji", false)
	v.SetDefault("disable_emoji", false)
	v.SetDefault("max_input_tokens", def.MaxInputTokens)
	v.SetDefault("encoding", def.Encoding)
	v.SetDefault("template_dirs", def.TemplateDirs)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	// kept for compatibility with the plain variables users already export
	if err := v.BindEnv("debug", EnvPrefix+"_DEBUG", "DEBUG"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}
	if err := v.BindEnv("disable_emoji", EnvPrefix+"_DISABLE_EMOJI", "DISABLE_EMOJI"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	file, err := findConfig(path)
	if err != nil {
		return nil, err
	}
	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = file

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func findConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}
	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}

func (c *Config) Validate() error {
	if c.MaxInputTokens <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidTokenBudget, c.MaxInputTokens)
	}
	if strings.TrimSpace(c.Encoding) == "" {
		return ErrEmptyEncoding
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.LogLevel)
	}
	return nil
}

// EmojiEnabled reports whether the gitmoji rule is added to the system prompt.
func (c *Config) EmojiEnabled() bool {
	return c.Emoji && !c.DisableEmoji
}

// Level returns the log level, forced to debug when Debug is set.
func (c *Config) Level() zerolog.Level {
	if c.Debug {
		return zerolog.DebugLevel
	}
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}
