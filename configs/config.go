package configs

import (
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config struct
type Config struct {
	App          `mapstructure:"app"`
	Session      `mapstructure:"session"`
	Redis        `mapstructure:"redis"`
	Postgres     `mapstructure:"postgres"`
	Line         `mapstructure:"line"`
	Extraction   `mapstructure:"extraction"`
	LMStudio     `mapstructure:"lmstudio"`
	Gemini       `mapstructure:"gemini"`
	FlightSearch `mapstructure:"flight_search"`
	Circuit      `mapstructure:"circuit"`
	Conversation `mapstructure:"conversation"`
	RateLimit    `mapstructure:"rate_limit"`
	Sentry       `mapstructure:"sentry"`
}

// App struct
type App struct {
	Debug bool   `mapstructure:"debug"`
	Env   string `mapstructure:"env"`
	Port  string `mapstructure:"port"`
}

// Session struct - TTL is in seconds, Store is "memory" or "redis"
type Session struct {
	TTL         int    `mapstructure:"ttl"`
	Store       string `mapstructure:"store"`
	MaxMessages int    `mapstructure:"max_messages"`
}

// Redis struct
type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Postgres struct - airport directory; the static list is used when disabled
type Postgres struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DbName   string `mapstructure:"database"`
	SSLMode  bool   `mapstructure:"sslmode"`
}

// Line struct
type Line struct {
	Enabled       bool   `mapstructure:"enabled"`
	ChannelSecret string `mapstructure:"channel_secret"`
	ChannelToken  string `mapstructure:"channel_token"`
}

// Extraction struct - Provider is "lmstudio" or "gemini", Timeout is per attempt in seconds
type Extraction struct {
	Provider    string `mapstructure:"provider"`
	Timeout     int    `mapstructure:"timeout"`
	MaxAttempts int    `mapstructure:"max_attempts"`
	BaseDelayMs int    `mapstructure:"base_delay_ms"`
}

// LMStudio struct
type LMStudio struct {
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
	Timeout int    `mapstructure:"timeout"`
}

// Gemini struct
type Gemini struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// FlightSearch struct - Amadeus self-service credentials and retry policy
type FlightSearch struct {
	BaseURL      string `mapstructure:"base_url"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	Timeout      int    `mapstructure:"timeout"`
	MaxAttempts  int    `mapstructure:"max_attempts"`
	BaseDelayMs  int    `mapstructure:"base_delay_ms"`
	Currency     string `mapstructure:"currency"`
	MaxResults   int    `mapstructure:"max_results"`
}

// Circuit struct - Cooldown is in seconds
type Circuit struct {
	FailureThreshold int `mapstructure:"failure_threshold"`
	Cooldown         int `mapstructure:"cooldown"`
}

// Conversation struct
type Conversation struct {
	ConfidenceThreshold    float64 `mapstructure:"confidence_threshold"`
	FailClosedBelow        float64 `mapstructure:"fail_closed_below"`
	MaxClarificationRounds int     `mapstructure:"max_clarification_rounds"`
	MaxTurns               int     `mapstructure:"max_turns"`
	ContextWindow          int     `mapstructure:"context_window"`
	PruneRatio             float64 `mapstructure:"prune_ratio"`
	KeepRecent             int     `mapstructure:"keep_recent"`
	MaxMessageLength       int     `mapstructure:"max_message_length"`
}

// RateLimit struct - OriginWindow is in seconds
type RateLimit struct {
	SessionsPerOrigin int `mapstructure:"sessions_per_origin"`
	OriginWindow      int `mapstructure:"origin_window"`
}

// Sentry struct
type Sentry struct {
	DSN              string  `mapstructure:"dsn"`
	Release          string  `mapstructure:"release"`
	TracesSampleRate float64 `mapstructure:"traces_sample_rate"`
}

var config Config

// InitViper func
func InitViper(path, env string) {
	getConfig(path, env)
}

// GetViper func
func GetViper() *Config {
	return &config
}

func setDefaults() {
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.port", "8080")

	viper.SetDefault("session.ttl", 3600)
	viper.SetDefault("session.store", "memory")
	viper.SetDefault("session.max_messages", 100)

	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("postgres.enabled", false)
	viper.SetDefault("postgres.port", "5432")

	viper.SetDefault("line.enabled", false)

	viper.SetDefault("extraction.provider", "lmstudio")
	viper.SetDefault("extraction.timeout", 30)
	viper.SetDefault("extraction.max_attempts", 3)
	viper.SetDefault("extraction.base_delay_ms", 500)

	viper.SetDefault("lmstudio.base_url", "http://localhost:1234")
	viper.SetDefault("lmstudio.model", "")
	viper.SetDefault("lmstudio.timeout", 60)

	viper.SetDefault("gemini.api_key", "")
	viper.SetDefault("gemini.model", "gemini-2.5-flash")
	viper.SetDefault("gemini.base_url", "")

	viper.SetDefault("flight_search.base_url", "https://test.api.amadeus.com")
	viper.SetDefault("flight_search.client_id", "")
	viper.SetDefault("flight_search.client_secret", "")
	viper.SetDefault("flight_search.timeout", 10)
	viper.SetDefault("flight_search.max_attempts", 3)
	viper.SetDefault("flight_search.base_delay_ms", 500)
	viper.SetDefault("flight_search.currency", "USD")
	viper.SetDefault("flight_search.max_results", 20)

	viper.SetDefault("circuit.failure_threshold", 5)
	viper.SetDefault("circuit.cooldown", 30)

	viper.SetDefault("conversation.confidence_threshold", 0.7)
	viper.SetDefault("conversation.fail_closed_below", 0.1)
	viper.SetDefault("conversation.max_clarification_rounds", 2)
	viper.SetDefault("conversation.max_turns", 40)
	viper.SetDefault("conversation.context_window", 8000)
	viper.SetDefault("conversation.prune_ratio", 0.8)
	viper.SetDefault("conversation.keep_recent", 6)
	viper.SetDefault("conversation.max_message_length", 2000)

	viper.SetDefault("rate_limit.sessions_per_origin", 20)
	viper.SetDefault("rate_limit.origin_window", 3600)

	viper.SetDefault("sentry.dsn", "")
	viper.SetDefault("sentry.release", "")
	viper.SetDefault("sentry.traces_sample_rate", 0.0)
}

func getConfig(path, env string) {
	setDefaults()
	viper.SetConfigName("config")
	viper.AddConfigPath(path)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	err := viper.ReadInConfig()
	if err != nil {
		panic(err)
	}
	viper.WatchConfig()
	viper.OnConfigChange(func(e fsnotify.Event) {
		logrus.Infof("Config file has changed: %s", e.Name)
	})
	err = viper.Unmarshal(&config)
	if err != nil {
		logrus.Fatalln(err)
	}
	if env != "" {
		config.App.Env = env
	}
}
