package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone    = "UTC"
	configPathEnv      = "TOPARTISTS_CONFIG"
	logLevelEnv        = "TOPARTISTS_LOG_LEVEL"
	storageDirEnv      = "TOPARTISTS_STORAGE_DIR"
	spotifyClientIDEnv = "SPOTIFY_CLIENT_ID"
	spotifySecretEnv   = "SPOTIFY_SECRET_ID"
	spotifyTokenEnv    = "SPOTIFY_TOKEN_FILE"
	telegramTokenEnv   = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv  = "TELEGRAM_CHAT_ID"
)

// Source kinds understood by the scanner registry.
const (
	SourceSpotify = "spotify"
	SourceHTML    = "html"
)

// Storage drivers.
const (
	StorageCSV    = "csv"
	StorageSQLite = "sqlite"
)

// Render orders.
const (
	OrderRank   = "rank"
	OrderChange = "change"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging" toml:"logging"`
	Source        SourceConfig       `yaml:"source" toml:"source"`
	Storage       StorageConfig      `yaml:"storage" toml:"storage"`
	Scheduler     SchedulerConfig    `yaml:"scheduler" toml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications" toml:"notifications"`
	Render        RenderConfig       `yaml:"render" toml:"render"`
	Server        ServerConfig       `yaml:"server" toml:"server"`
}

// LoggingConfig selects log verbosity and handler.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// SourceConfig picks the upstream ranking provider.
type SourceConfig struct {
	Kind    string        `yaml:"kind" toml:"kind"`
	Spotify SpotifyConfig `yaml:"spotify" toml:"spotify"`
	HTML    HTMLConfig    `yaml:"html" toml:"html"`
}

// SpotifyConfig describes the Web API client and its OAuth application.
type SpotifyConfig struct {
	ClientID          string  `yaml:"clientId" toml:"client_id"`
	ClientSecret      string  `yaml:"clientSecret" toml:"client_secret"`
	RedirectURL       string  `yaml:"redirectUrl" toml:"redirect_url"`
	APIBaseURL        string  `yaml:"apiBaseUrl" toml:"api_base_url"`
	AuthURL           string  `yaml:"authUrl" toml:"auth_url"`
	TokenURL          string  `yaml:"tokenUrl" toml:"token_url"`
	TokenFile         string  `yaml:"tokenFile" toml:"token_file"`
	TimeRange         string  `yaml:"timeRange" toml:"time_range"`
	PageSize          int     `yaml:"pageSize" toml:"page_size"`
	RequestsPerSecond float64 `yaml:"requestsPerSecond" toml:"requests_per_second"`
	TimeoutSeconds    int     `yaml:"timeoutSeconds" toml:"timeout_seconds"`
}

// Timeout returns the per-request timeout.
func (s SpotifyConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// HTMLConfig describes a paginated HTML chart page.
type HTMLConfig struct {
	URL          string `yaml:"url" toml:"url"`
	ItemSelector string `yaml:"itemSelector" toml:"item_selector"`
	NameSelector string `yaml:"nameSelector" toml:"name_selector"`
	IDAttr       string `yaml:"idAttr" toml:"id_attr"`
	NextSelector string `yaml:"nextSelector" toml:"next_selector"`
	UserAgent    string `yaml:"userAgent" toml:"user_agent"`
}

// StorageConfig selects where snapshots live.
type StorageConfig struct {
	Driver string `yaml:"driver" toml:"driver"`
	Dir    string `yaml:"dir" toml:"dir"`
	DSN    string `yaml:"dsn" toml:"dsn"`
}

// SchedulerConfig defines when the capture should run.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression" toml:"cron_expression"`
	Timezone       string         `yaml:"timezone" toml:"timezone"`
	location       *time.Location `yaml:"-" toml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram" toml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken" toml:"bot_token"`
	ChatID   string `yaml:"chatId" toml:"chat_id"`
	BaseURL  string `yaml:"baseUrl" toml:"base_url"`
}

// Enabled reports whether both credentials are present.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// RenderConfig controls console output.
type RenderConfig struct {
	Order  string `yaml:"order" toml:"order"`
	Format string `yaml:"format" toml:"format"`
}

// ServerConfig configures the read-only HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr" toml:"addr"`
}

// Load reads the configuration file (if any) over defaults and applies
// environment overrides. An empty path falls back to TOPARTISTS_CONFIG.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		fileCfg, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg = mergeConfig(cfg, fileCfg)
	}

	cfg.applyEnvOverrides()
	if err := cfg.bindTimezone(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var fileCfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(raw, &fileCfg)
	default:
		err = yaml.Unmarshal(raw, &fileCfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return fileCfg, nil
}

// Validate rejects values no component can serve.
func (c Config) Validate() error {
	switch c.Source.Kind {
	case SourceSpotify, SourceHTML:
	default:
		return fmt.Errorf("config: unknown source kind %q", c.Source.Kind)
	}
	switch c.Storage.Driver {
	case StorageCSV, StorageSQLite:
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Render.Order {
	case OrderRank, OrderChange:
	default:
		return fmt.Errorf("config: unknown render order %q", c.Render.Order)
	}
	switch c.Render.Format {
	case "table", "json":
	default:
		return fmt.Errorf("config: unknown render format %q", c.Render.Format)
	}
	if c.Source.Kind == SourceHTML && c.Source.HTML.URL == "" {
		return fmt.Errorf("config: source.html.url is required for the html source")
	}
	if c.Source.Spotify.PageSize < 1 || c.Source.Spotify.PageSize > 50 {
		return fmt.Errorf("config: spotify page size must be within 1..50, got %d", c.Source.Spotify.PageSize)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(storageDirEnv); v != "" {
		c.Storage.Dir = v
	}

	if v := os.Getenv(spotifyClientIDEnv); v != "" {
		c.Source.Spotify.ClientID = v
	}

	if v := os.Getenv(spotifySecretEnv); v != "" {
		c.Source.Spotify.ClientSecret = v
	}

	if v := os.Getenv(spotifyTokenEnv); v != "" {
		c.Source.Spotify.TokenFile = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func (c *Config) bindTimezone() error {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("config: unknown timezone %s: %w", tz, err)
	}
	c.Scheduler.location = loc
	return nil
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Source.Kind != "" {
		base.Source.Kind = override.Source.Kind
	}
	base.Source.Spotify = mergeSpotify(base.Source.Spotify, override.Source.Spotify)
	base.Source.HTML = mergeHTML(base.Source.HTML, override.Source.HTML)

	if override.Storage.Driver != "" {
		base.Storage.Driver = override.Storage.Driver
	}
	if override.Storage.Dir != "" {
		base.Storage.Dir = override.Storage.Dir
	}
	if override.Storage.DSN != "" {
		base.Storage.DSN = override.Storage.DSN
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}
	if override.Notifications.Telegram.BaseURL != "" {
		base.Notifications.Telegram.BaseURL = override.Notifications.Telegram.BaseURL
	}

	if override.Render.Order != "" {
		base.Render.Order = override.Render.Order
	}
	if override.Render.Format != "" {
		base.Render.Format = override.Render.Format
	}

	if override.Server.Addr != "" {
		base.Server.Addr = override.Server.Addr
	}

	return base
}

func mergeSpotify(base, override SpotifyConfig) SpotifyConfig {
	if override.ClientID != "" {
		base.ClientID = override.ClientID
	}
	if override.ClientSecret != "" {
		base.ClientSecret = override.ClientSecret
	}
	if override.RedirectURL != "" {
		base.RedirectURL = override.RedirectURL
	}
	if override.APIBaseURL != "" {
		base.APIBaseURL = override.APIBaseURL
	}
	if override.AuthURL != "" {
		base.AuthURL = override.AuthURL
	}
	if override.TokenURL != "" {
		base.TokenURL = override.TokenURL
	}
	if override.TokenFile != "" {
		base.TokenFile = override.TokenFile
	}
	if override.TimeRange != "" {
		base.TimeRange = override.TimeRange
	}
	if override.PageSize != 0 {
		base.PageSize = override.PageSize
	}
	if override.RequestsPerSecond != 0 {
		base.RequestsPerSecond = override.RequestsPerSecond
	}
	if override.TimeoutSeconds != 0 {
		base.TimeoutSeconds = override.TimeoutSeconds
	}
	return base
}

func mergeHTML(base, override HTMLConfig) HTMLConfig {
	if override.URL != "" {
		base.URL = override.URL
	}
	if override.ItemSelector != "" {
		base.ItemSelector = override.ItemSelector
	}
	if override.NameSelector != "" {
		base.NameSelector = override.NameSelector
	}
	if override.IDAttr != "" {
		base.IDAttr = override.IDAttr
	}
	if override.NextSelector != "" {
		base.NextSelector = override.NextSelector
	}
	if override.UserAgent != "" {
		base.UserAgent = override.UserAgent
	}
	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Source: SourceConfig{
			Kind: SourceSpotify,
			Spotify: SpotifyConfig{
				RedirectURL:       "http://localhost:4002/callback",
				APIBaseURL:        "https://api.spotify.com",
				AuthURL:           "https://accounts.spotify.com/authorize",
				TokenURL:          "https://accounts.spotify.com/api/token",
				TokenFile:         "spotify-token.json",
				TimeRange:         "short_term",
				PageSize:          50,
				RequestsPerSecond: 5,
				TimeoutSeconds:    20,
			},
			HTML: HTMLConfig{
				ItemSelector: "ol.chart > li",
				NameSelector: ".name",
				IDAttr:       "data-id",
				NextSelector: "a[rel=next]",
				UserAgent:    "TopArtistsTracker/1.0",
			},
		},
		Storage:   StorageConfig{Driver: StorageCSV, Dir: "top_artist_history", DSN: "top_artists.db"},
		Scheduler: SchedulerConfig{CronExpression: "0 6 * * *", Timezone: defaultTimezone, location: tz},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{BaseURL: "https://api.telegram.org"},
		},
		Render: RenderConfig{Order: OrderRank, Format: "table"},
		Server: ServerConfig{Addr: "127.0.0.1:8080"},
	}
}
