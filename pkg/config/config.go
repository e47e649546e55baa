package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const (
	configFileEnv     = "CONFIG_FILE"
	defaultConfigFile = "/config/ludotheque.yaml"
)

type Config struct {
	DatabaseBusyTimeout       time.Duration `koanf:"database_busy_timeout"`
	DatabaseConnectRetryCount int           `koanf:"database_connect_retry_count"`
	DatabaseConnectRetryDelay time.Duration `koanf:"database_connect_retry_delay"`
	DatabaseDebug             bool          `koanf:"database_debug"`
	DatabaseFilePath          string        `koanf:"database_file_path"`
	Environment               string        `koanf:"environment"`
	DatabaseMaxRetries        int           `koanf:"database_max_retries"`
	Hostname                  string        `koanf:"-"`
	ServerHost                string        `koanf:"server_host"`
	ServerPort                int           `koanf:"server_port"`
	WorkerProcesses           int           `koanf:"worker_processes"`
	JobRetention              time.Duration `koanf:"job_retention"`

	JWTSecret        string `koanf:"jwt_secret"`
	CredentialSecret string `koanf:"credential_secret"`

	IGDBClientID     string `koanf:"igdb_client_id"`
	IGDBClientSecret string `koanf:"igdb_client_secret"`
	IGDBBaseURL      string `koanf:"igdb_base_url"`
	IGDBTokenURL     string `koanf:"igdb_token_url"`

	CatalogSyncEnabled         bool          `koanf:"catalog_sync_enabled"`
	CatalogSyncInterval        time.Duration `koanf:"catalog_sync_interval"`
	CatalogSyncLookbackDays    int           `koanf:"catalog_sync_lookback_days"`
	CatalogSyncPageSize        int           `koanf:"catalog_sync_page_size"`
	CatalogSyncMaxPages        int           `koanf:"catalog_sync_max_pages"`
	CatalogSyncRequestInterval time.Duration `koanf:"catalog_sync_request_interval"`
	CatalogSyncBackoff         time.Duration `koanf:"catalog_sync_backoff"`
	CatalogSyncErrorThreshold  int           `koanf:"catalog_sync_error_threshold"`

	SteamAPIKey              string        `koanf:"steam_api_key"`
	SteamBaseURL             string        `koanf:"steam_base_url"`
	XboxBaseURL              string        `koanf:"xbox_base_url"`
	RetroAchievementsBaseURL string        `koanf:"retroachievements_base_url"`
	SourceRequestTimeout     time.Duration `koanf:"source_request_timeout"`
}

// requiredField maps a koanf key to the env var that can provide it.
type requiredField struct {
	key string
	env string
	get func(cfg *Config) string
}

var requiredFields = []requiredField{
	{"database_file_path", "DATABASE_FILE_PATH", func(cfg *Config) string { return cfg.DatabaseFilePath }},
	{"jwt_secret", "JWT_SECRET", func(cfg *Config) string { return cfg.JWTSecret }},
}

func defaults() *Config {
	return &Config{
		DatabaseBusyTimeout:       5 * time.Second,
		DatabaseConnectRetryCount: 5,
		DatabaseConnectRetryDelay: 2 * time.Second,
		DatabaseMaxRetries:        5,
		ServerHost:                "0.0.0.0",
		ServerPort:                3689,
		WorkerProcesses:           2,
		JobRetention:              30 * 24 * time.Hour,

		IGDBBaseURL:  "https://api.igdb.com/v4",
		IGDBTokenURL: "https://id.twitch.tv/oauth2/token",

		CatalogSyncEnabled:         true,
		CatalogSyncInterval:        24 * time.Hour,
		CatalogSyncLookbackDays:    365,
		CatalogSyncPageSize:        500,
		CatalogSyncMaxPages:        200,
		CatalogSyncRequestInterval: time.Second,
		CatalogSyncBackoff:         5 * time.Second,
		CatalogSyncErrorThreshold:  5,

		SteamBaseURL:             "https://api.steampowered.com",
		XboxBaseURL:              "https://xbl.io/api/v2",
		RetroAchievementsBaseURL: "https://retroachievements.org/API",
		SourceRequestTimeout:     15 * time.Second,
	}
}

// New loads the config in layers: built-in defaults, then the YAML file named
// by CONFIG_FILE (if it exists), then environment variables.
func New() (*Config, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	k := koanf.New(".")

	path := os.Getenv(configFileEnv)
	if path == "" {
		path = defaultConfigFile
	}
	if _, statErr := os.Stat(path); statErr == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "failed to load config file %s", path)
		}
	}

	// SERVER_PORT -> server_port
	err = k.Load(env.Provider("", ".", strings.ToLower), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load environment variables")
	}

	cfg := defaults()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	cfg.Hostname = hostname

	if cfg.CredentialSecret == "" {
		cfg.CredentialSecret = cfg.JWTSecret
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (cfg *Config) validate() error {
	missing := []string{}
	for _, f := range requiredFields {
		if f.get(cfg) == "" {
			missing = append(missing, f.env+" ("+f.key+")")
		}
	}
	if len(missing) > 0 {
		return errors.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	if cfg.CatalogSyncErrorThreshold < 1 {
		return errors.New("catalog_sync_error_threshold must be at least 1")
	}
	if cfg.CatalogSyncPageSize < 1 || cfg.CatalogSyncPageSize > 500 {
		return errors.New("catalog_sync_page_size must be between 1 and 500")
	}
	return nil
}

// CatalogSyncLookback is the window used when the catalog sync has no usable
// watermark.
func (cfg *Config) CatalogSyncLookback() time.Duration {
	return time.Duration(cfg.CatalogSyncLookbackDays) * 24 * time.Hour
}

// IGDBCredentialsPresent reports whether both halves of the metadata
// provider's client credentials are configured.
func (cfg *Config) IGDBCredentialsPresent() bool {
	return cfg.IGDBClientID != "" && cfg.IGDBClientSecret != ""
}

// IsTest reports whether the process runs under ENVIRONMENT=test, which
// enables the /test fixture routes.
func (cfg *Config) IsTest() bool {
	return cfg.Environment == "test"
}

// NewForTest returns a config with defaults suitable for tests.
func NewForTest() *Config {
	cfg := defaults()
	cfg.DatabaseFilePath = ":memory:"
	cfg.Environment = "test"
	cfg.JWTSecret = "test-secret"
	cfg.CredentialSecret = "test-secret"
	cfg.WorkerProcesses = 1
	cfg.CatalogSyncRequestInterval = 0
	cfg.CatalogSyncBackoff = 0
	return cfg
}
