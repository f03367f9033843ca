// Package config loads the gateway configuration from an optional YAML file
// plus environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults for the tunable knobs.
const (
	DefaultQuietPeriodSeconds   = 8
	DefaultHistoryLimit         = 10
	DefaultGroupCacheTTLMinutes = 60
	DefaultMaxConcurrentTurns   = 5
	DefaultTurnDeadlineSeconds  = 60
	DefaultMaxToolIterations    = 6
	DefaultLLMModel             = "gpt-4.1-mini"
	DefaultListenAddr           = ":8080"
)

// Config is the full gateway configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Redis     RedisConfig     `yaml:"redis"`
	Mongo     MongoConfig     `yaml:"mongo"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Evolution EvolutionConfig `yaml:"evolution"`
	Serper    SerperConfig    `yaml:"serper"`
	Calendar  CalendarConfig  `yaml:"calendar"`
	Turns     TurnsConfig     `yaml:"turns"`
}

// ServerConfig configures the webhook HTTP server.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig configures the optional OTLP trace exporter.
type TracingConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	Insecure     bool   `yaml:"insecure"`
}

// RedisConfig locates the fragment cache.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// MongoConfig locates the context and group-membership stores.
type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// OpenAIConfig configures the LLM and transcription provider.
type OpenAIConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// EvolutionConfig configures the WhatsApp chat provider (Evolution API).
type EvolutionConfig struct {
	BaseURL  string `yaml:"base_url"`
	Instance string `yaml:"instance"`
	APIKey   string `yaml:"api_key"`
}

// SerperConfig configures the web-search provider.
type SerperConfig struct {
	APIKey string `yaml:"api_key"`
}

// CalendarConfig configures the Google Calendar client.
type CalendarConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	CalendarID      string `yaml:"calendar_id"`
}

// TurnsConfig holds the conversation-turn tunables.
type TurnsConfig struct {
	QuietPeriodSeconds   int      `yaml:"quiet_period_seconds"`
	HistoryLimit         int      `yaml:"history_limit"`
	GroupCacheTTLMinutes int      `yaml:"group_cache_ttl_minutes"`
	AuthorizedGroupIDs   []string `yaml:"authorized_group_ids"`
	MaxConcurrentTurns   int      `yaml:"max_concurrent_turns"`
	TurnDeadlineSeconds  int      `yaml:"turn_deadline_seconds"`
	MaxToolIterations    int      `yaml:"max_tool_iterations"`
}

// QuietPeriod returns the debounce window as a duration.
func (t TurnsConfig) QuietPeriod() time.Duration {
	return time.Duration(t.QuietPeriodSeconds) * time.Second
}

// GroupCacheTTL returns the membership snapshot TTL as a duration.
func (t TurnsConfig) GroupCacheTTL() time.Duration {
	return time.Duration(t.GroupCacheTTLMinutes) * time.Minute
}

// TurnDeadline returns the per-turn wall-clock ceiling as a duration.
func (t TurnsConfig) TurnDeadline() time.Duration {
	return time.Duration(t.TurnDeadlineSeconds) * time.Second
}

// Load reads the configuration. The YAML file at path (if non-empty) is read
// first with ${VAR} environment expansion, then environment variables
// override individual options, then defaults fill the gaps.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Server.ListenAddr, "LISTEN_ADDR")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")
	setString(&c.Tracing.OTLPEndpoint, "OTLP_ENDPOINT")

	setString(&c.Redis.URL, "REDIS_URL")
	setString(&c.Mongo.URI, "MONGODB_URI")
	setString(&c.Mongo.Database, "MONGODB_DB_NAME")

	setString(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&c.OpenAI.Model, "LLM_MODEL")

	setString(&c.Evolution.BaseURL, "EVOLUTION_URL")
	setString(&c.Evolution.Instance, "EVOLUTION_INSTANCE")
	setString(&c.Evolution.APIKey, "EVOLUTION_API_KEY")

	setString(&c.Serper.APIKey, "SERPER_API_KEY")
	setString(&c.Calendar.CredentialsFile, "GOOGLE_CREDENTIALS_FILE")
	setString(&c.Calendar.CalendarID, "GOOGLE_CALENDAR_ID")

	setInt(&c.Turns.QuietPeriodSeconds, "QUIET_PERIOD_SECONDS")
	setInt(&c.Turns.HistoryLimit, "HISTORY_LIMIT")
	setInt(&c.Turns.GroupCacheTTLMinutes, "GROUP_CACHE_TTL_MINUTES")
	setInt(&c.Turns.MaxConcurrentTurns, "MAX_CONCURRENT_TURNS")
	setInt(&c.Turns.TurnDeadlineSeconds, "TURN_DEADLINE_SECONDS")
	setInt(&c.Turns.MaxToolIterations, "MAX_TOOL_ITERATIONS")

	if v, ok := os.LookupEnv("AUTHORIZED_GROUP_IDS"); ok {
		c.Turns.AuthorizedGroupIDs = splitCSV(v)
	}
}

func (c *Config) applyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = DefaultListenAddr
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = "jarbas"
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = DefaultLLMModel
	}
	if c.Calendar.CalendarID == "" {
		c.Calendar.CalendarID = "primary"
	}
	if c.Turns.QuietPeriodSeconds <= 0 {
		c.Turns.QuietPeriodSeconds = DefaultQuietPeriodSeconds
	}
	if c.Turns.HistoryLimit <= 0 {
		c.Turns.HistoryLimit = DefaultHistoryLimit
	}
	if c.Turns.GroupCacheTTLMinutes <= 0 {
		c.Turns.GroupCacheTTLMinutes = DefaultGroupCacheTTLMinutes
	}
	if c.Turns.MaxConcurrentTurns <= 0 {
		c.Turns.MaxConcurrentTurns = DefaultMaxConcurrentTurns
	}
	if c.Turns.TurnDeadlineSeconds <= 0 {
		c.Turns.TurnDeadlineSeconds = DefaultTurnDeadlineSeconds
	}
	if c.Turns.MaxToolIterations <= 0 {
		c.Turns.MaxToolIterations = DefaultMaxToolIterations
	}
}

// Validate checks for configuration mistakes that would only surface later
// at an awkward time.
func (c *Config) Validate() error {
	for _, id := range c.Turns.AuthorizedGroupIDs {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("authorized_group_ids contains an empty entry")
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return
	}
	*dst = n
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
