// Package config provides configuration management for Quill using Viper,
// loading from .quill.yml, QUILL_-prefixed environment variables, and
// command-line flags.
//
// The configuration covers the HTTP server, the posts directory and cache
// TTLs, static build output, the view-count store, and the syndication
// service. Load applies defaults, then validates paths and values before the
// configuration reaches any service.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Site        SiteConfig        `mapstructure:"site"`
	Server      ServerConfig      `mapstructure:"server"`
	Content     ContentConfig     `mapstructure:"content"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Build       BuildConfig       `mapstructure:"build"`
	Analytics   AnalyticsConfig   `mapstructure:"analytics"`
	Syndication SyndicationConfig `mapstructure:"syndication"`
	LogLevel    string            `mapstructure:"log_level"`
	LogFormat   string            `mapstructure:"log_format"`
}

type SiteConfig struct {
	Title       string `mapstructure:"title"`
	Description string `mapstructure:"description"`
	BaseURL     string `mapstructure:"base_url"`
	Author      string `mapstructure:"author"`
	Language    string `mapstructure:"language"`
}

type ServerConfig struct {
	Port        int    `mapstructure:"port"`
	Host        string `mapstructure:"host"`
	Environment string `mapstructure:"environment"` // "development" or "production"
	LiveReload  bool   `mapstructure:"live_reload"`
}

type ContentConfig struct {
	PostsDir        string        `mapstructure:"posts_dir"`
	WatchEnabled    bool          `mapstructure:"watch"`
	DebounceDelay   time.Duration `mapstructure:"debounce_delay"`
	WarmOnStart     bool          `mapstructure:"warm_on_start"`
	ExcludePatterns []string      `mapstructure:"exclude_patterns"`
	// HighlightStyle is a chroma style name; empty picks the default.
	HighlightStyle string `mapstructure:"highlight_style"`
	// AllowRawHTML keeps raw HTML in post bodies. Posts are author-owned,
	// so this defaults to true.
	AllowRawHTML bool `mapstructure:"allow_raw_html"`
}

type CacheConfig struct {
	// Zero TTL means entries never expire; invalidation is watch-driven.
	PostsTTL    time.Duration `mapstructure:"posts_ttl"`
	MetadataTTL time.Duration `mapstructure:"metadata_ttl"`
	PostTTL     time.Duration `mapstructure:"post_ttl"`
}

type BuildConfig struct {
	OutputDir string `mapstructure:"output_dir"`
	Clean     bool   `mapstructure:"clean"`
}

type AnalyticsConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	DatabasePath string `mapstructure:"database_path"`
}

type SyndicationConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ServiceURL string `mapstructure:"service_url"`
	DID        string `mapstructure:"did"`
	Collection string `mapstructure:"collection"`
	// AccessToken is sent as a bearer token; usually supplied via
	// QUILL_SYNDICATION_ACCESS_TOKEN rather than the config file.
	AccessToken string        `mapstructure:"access_token"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Site defaults
	if config.Site.Title == "" {
		config.Site.Title = viper.GetString("site.title")
	}
	if config.Site.Language == "" {
		config.Site.Language = "en"
	}

	// Server defaults
	if config.Server.Port == 0 {
		config.Server.Port = viper.GetInt("server.port")
	}
	if config.Server.Port == 0 {
		config.Server.Port = 3000
	}
	if config.Server.Host == "" {
		config.Server.Host = "localhost"
	}
	if config.Server.Environment == "" {
		config.Server.Environment = "development"
	}

	// Handle live reload set via viper (workaround for viper bool handling)
	if viper.IsSet("server.live_reload") {
		config.Server.LiveReload = viper.GetBool("server.live_reload")
	} else {
		config.Server.LiveReload = config.Server.Environment == "development"
	}

	// Content defaults
	if config.Content.PostsDir == "" {
		config.Content.PostsDir = "content/posts"
	}
	if config.Content.DebounceDelay == 0 {
		config.Content.DebounceDelay = 300 * time.Millisecond
	}
	if viper.IsSet("content.watch") {
		config.Content.WatchEnabled = viper.GetBool("content.watch")
	} else {
		config.Content.WatchEnabled = config.Server.Environment == "production"
	}
	if !viper.IsSet("content.warm_on_start") {
		config.Content.WarmOnStart = true
	}
	if !viper.IsSet("content.allow_raw_html") {
		config.Content.AllowRawHTML = true
	}
	if len(config.Content.ExcludePatterns) == 0 {
		config.Content.ExcludePatterns = []string{"*.draft.md", "README.md"}
	}

	// Build defaults
	if config.Build.OutputDir == "" {
		config.Build.OutputDir = "dist"
	}

	// Analytics defaults
	if config.Analytics.DatabasePath == "" {
		config.Analytics.DatabasePath = ".quill/views.db"
	}

	// Syndication defaults
	if config.Syndication.Collection == "" {
		config.Syndication.Collection = "com.whtwnd.blog.entry"
	}
	if config.Syndication.Timeout == 0 {
		config.Syndication.Timeout = 10 * time.Second
	}

	// Logging defaults
	if config.LogLevel == "" {
		config.LogLevel = viper.GetString("log-level")
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogFormat == "" {
		config.LogFormat = viper.GetString("log-format")
	}
	if config.LogFormat == "" {
		config.LogFormat = "text"
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := validatePath(config.Content.PostsDir); err != nil {
		return fmt.Errorf("content config: posts_dir: %w", err)
	}

	if err := validateRelativePath(config.Build.OutputDir); err != nil {
		return fmt.Errorf("build config: output_dir: %w", err)
	}

	if config.Syndication.Enabled {
		if config.Syndication.ServiceURL == "" {
			return fmt.Errorf("syndication config: service_url is required when enabled")
		}
		if config.Syndication.DID == "" {
			return fmt.Errorf("syndication config: did is required when enabled")
		}
	}

	return nil
}

// validateServerConfig validates server configuration values
func validateServerConfig(config *ServerConfig) error {
	// Allow 0 for system-assigned ports in testing
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}

	if config.Host != "" {
		dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
		for _, char := range dangerousChars {
			if strings.Contains(config.Host, char) {
				return fmt.Errorf("host contains dangerous character: %s", char)
			}
		}
	}

	switch config.Environment {
	case "development", "production":
	default:
		return fmt.Errorf("environment must be development or production, got %q", config.Environment)
	}

	return nil
}

// validateRelativePath rejects absolute paths and traversal in output paths
func validateRelativePath(path string) error {
	if err := validatePath(path); err != nil {
		return err
	}

	if filepath.IsAbs(filepath.Clean(path)) {
		return fmt.Errorf("should be relative path: %s", path)
	}

	return nil
}

// validatePath validates a file path for security
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	cleanPath := filepath.Clean(path)

	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path contains traversal: %s", path)
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'"}
	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %s", path)
		}
	}

	return nil
}
