package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port string

	// Content directory the structure document is built from. Empty disables
	// building; the server then only loads from StructureURL.
	ContentDir string
	DocsPrefix string

	// Where the store fetches the structure document from. Empty means this
	// server's own /docs-structure.json.
	StructureURL      string
	StructureAPIKey   string
	FetchTimeout      time.Duration
	FetchRetries      int // extra attempts on transient transport errors; 0 disables
	MaxStructureBytes int64

	// Auth for POST /api/structure/refetch. Empty leaves it open.
	APIKey string

	// Content watching
	Watch         bool
	WatchDebounce time.Duration

	BuildWorkers int
	LogLevel     string
}

// Load reads configuration from DOCNAV_* environment variables and, when
// configFile is non-empty, from that YAML file. Environment wins.
func Load(configFile string) (Config, error) {
	v := viper.New()
	v.SetDefault("port", "8090")
	v.SetDefault("content_dir", "")
	v.SetDefault("docs_prefix", "/docs/")
	v.SetDefault("structure_url", "")
	v.SetDefault("structure_api_key", "")
	v.SetDefault("fetch_timeout", 30*time.Second)
	v.SetDefault("fetch_retries", 0)
	v.SetDefault("max_structure_bytes", int64(16<<20)) // 16MB
	v.SetDefault("api_key", "")
	v.SetDefault("watch", true)
	v.SetDefault("watch_debounce", 300*time.Millisecond)
	v.SetDefault("build_workers", 4)
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("DOCNAV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	cfg := Config{
		Port:              v.GetString("port"),
		ContentDir:        v.GetString("content_dir"),
		DocsPrefix:        v.GetString("docs_prefix"),
		StructureURL:      v.GetString("structure_url"),
		StructureAPIKey:   v.GetString("structure_api_key"),
		FetchTimeout:      v.GetDuration("fetch_timeout"),
		FetchRetries:      v.GetInt("fetch_retries"),
		MaxStructureBytes: v.GetInt64("max_structure_bytes"),
		APIKey:            v.GetString("api_key"),
		Watch:             v.GetBool("watch"),
		WatchDebounce:     v.GetDuration("watch_debounce"),
		BuildWorkers:      v.GetInt("build_workers"),
		LogLevel:          strings.ToLower(v.GetString("log_level")),
	}

	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	if cfg.MaxStructureBytes <= 0 {
		cfg.MaxStructureBytes = 16 << 20
	}
	if cfg.WatchDebounce <= 0 {
		cfg.WatchDebounce = 300 * time.Millisecond
	}
	if cfg.BuildWorkers <= 0 {
		cfg.BuildWorkers = 4
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.ContentDir == "" && c.StructureURL == "" {
		return fmt.Errorf("one of DOCNAV_CONTENT_DIR or DOCNAV_STRUCTURE_URL is required")
	}
	if !strings.HasPrefix(c.DocsPrefix, "/") || !strings.HasSuffix(c.DocsPrefix, "/") {
		return fmt.Errorf("DOCNAV_DOCS_PREFIX must start and end with /, got %q", c.DocsPrefix)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("DOCNAV_LOG_LEVEL must be debug, info, warn or error, got %q", c.LogLevel)
	}
	return nil
}

// StructureBaseURL returns the base URL the store fetches from.
func (c Config) StructureBaseURL() string {
	if c.StructureURL != "" {
		return c.StructureURL
	}
	return "http://localhost:" + c.Port
}
