package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"
)

type Config struct {
	Port string

	// Auth
	PagedecoAPIKey string

	// Content sources; ContentDir wins when both are set.
	ContentDir   string
	OriginURL    string
	OriginAPIKey string
	WatchContent bool

	// Page load settings
	CodeBasePath  string
	RUMGeneration string
	RUMWeight     int
	LCPBlocks     []string
	PageLang      string
	DelayedAfter  time.Duration

	// Upload limits
	MaxUploadBytes int64

	// Session state
	SessionTTL      time.Duration
	CleanupInterval time.Duration
}

// LoadEnvFile loads variables from a .env file without overriding ones
// already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		PagedecoAPIKey: os.Getenv("PAGEDECO_API_KEY"),

		ContentDir:   os.Getenv("CONTENT_DIR"),
		OriginURL:    os.Getenv("ORIGIN_URL"),
		OriginAPIKey: os.Getenv("ORIGIN_API_KEY"),
		WatchContent: envBool("WATCH_CONTENT", true),

		CodeBasePath:  os.Getenv("CODE_BASE_PATH"),
		RUMGeneration: os.Getenv("RUM_GENERATION"),
		RUMWeight:     envInt("RUM_WEIGHT", 100),
		LCPBlocks:     envList("LCP_BLOCKS"),
		PageLang:      envOr("PAGE_LANG", "en"),
		DelayedAfter:  envDuration("DELAYED_AFTER", 3*time.Second),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 10485760), // 10MB

		SessionTTL:      envDuration("SESSION_TTL", 30*time.Minute),
		CleanupInterval: envDuration("SESSION_CLEANUP_INTERVAL", time.Minute),
	}

	if cfg.RUMWeight <= 0 {
		cfg.RUMWeight = 100
	}
	if cfg.DelayedAfter <= 0 {
		cfg.DelayedAfter = 3 * time.Second
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10485760
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}

	return cfg
}

func (c Config) Validate() error {
	if c.ContentDir == "" && c.OriginURL == "" {
		return fmt.Errorf("CONTENT_DIR or ORIGIN_URL is required")
	}
	if c.ContentDir == "" {
		u, err := url.Parse(c.OriginURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("ORIGIN_URL must be an http(s) URL, got %q", c.OriginURL)
		}
	}
	if _, err := language.Parse(c.PageLang); err != nil {
		return fmt.Errorf("PAGE_LANG %q is not a language tag: %w", c.PageLang, err)
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORT must be numeric, got %q", c.Port)
	}
	return nil
}

// Lang returns the canonical form of PageLang.
func (c Config) Lang() string {
	tag, err := language.Parse(c.PageLang)
	if err != nil {
		return c.PageLang
	}
	return tag.String()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envList splits a comma-separated variable, dropping empty items.
func envList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
