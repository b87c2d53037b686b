package config

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/caarlos0/env/v11"
)

const (
	EngineOpenAI = "openai"
	EngineCohere = "cohere"
	EngineGemini = "gemini"

	SourceReddit = "reddit"
	SourceRSS    = "rss"

	NotifierSlack    = "slack"
	NotifierWebhook  = "webhook"
	NotifierTelegram = "telegram"

	DefaultConversationLength = 15
	DefaultTimeWindow         = "week"
)

var (
	ErrUnsupportedEngine   = errors.New("unsupported AI engine")
	ErrUnsupportedSource   = errors.New("unsupported content source")
	ErrUnsupportedNotifier = errors.New("unsupported notifier")

	timeWindows = []string{"hour", "day", "week", "month", "year", "all"}

	periodLabels = map[string]string{
		"hour":  "この 1 時間の",
		"day":   "今日の",
		"week":  "今週の",
		"month": "今月の",
		"year":  "今年の",
		"all":   "歴代の",
	}

	defaultModels = map[string]string{
		EngineOpenAI: "gpt-4o-mini",
		EngineCohere: "command-r-plus",
		EngineGemini: "gemini-2.0-flash",
	}
)

type Config struct {
	AI       AIConfig
	Reddit   RedditConfig   `envPrefix:"REDDIT_"`
	Slack    SlackConfig    `envPrefix:"SLACK_"`
	Telegram TelegramConfig `envPrefix:"TELEGRAM_"`

	ContentSource string `env:"CONTENT_SOURCE" envDefault:"reddit"`
	TimeWindow    string `env:"TIME_WINDOW"    envDefault:"week"`
	Notifier      string `env:"NOTIFIER"       envDefault:"slack"`
	LogLevel      string `env:"LOG_LEVEL"      envDefault:"info"`

	// Schedule is a five-field cron spec (UTC). When set the process stays
	// up and posts a digest on every tick instead of once.
	Schedule string `env:"SCHEDULE"`

	// DryRun prints messages instead of sending them, so notifier
	// credentials are not required.
	DryRun bool `env:"DRY_RUN"`
}

type AIConfig struct {
	Engine             string `env:"AI_ENGINE"           envDefault:"openai"`
	Model              string `env:"AI_MODEL"`
	ConversationLength int    `env:"CONVERSATION_LENGTH" envDefault:"15"`
	StructuredOutput   bool   `env:"STRUCTURED_OUTPUT"   envDefault:"true"`
	OpenAIAPIKey       string `env:"OPENAI_API_KEY"`
	CohereAPIKey       string `env:"COHERE_API_KEY"`
	GoogleAPIKey       string `env:"GOOGLE_API_KEY"`
}

type RedditConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	UserAgent    string `env:"USER_AGENT" envDefault:"reddigest/1.0"`
}

type SlackConfig struct {
	BotToken   string `env:"BOT_TOKEN"`
	Channel    string `env:"CHANNEL"`
	WebhookURL string `env:"WEBHOOK_URL"`
}

type TelegramConfig struct {
	Token  string `env:"TOKEN"`
	ChatID int64  `env:"CHAT_ID"`
}

// Load parses the process environment, with overrides taking precedence,
// and validates the result.
func Load(overrides map[string]string) (Config, error) {
	if len(overrides) == 0 {
		return parse(env.Options{})
	}

	environ := env.ToMap(os.Environ())
	maps.Copy(environ, overrides)

	return parse(env.Options{Environment: environ})
}

// LoadFrom is Load over an explicit key/value set instead of the process
// environment.
func LoadFrom(environ map[string]string) (Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) normalize() {
	c.AI.Engine = strings.ToLower(strings.TrimSpace(c.AI.Engine))
	c.AI.Model = strings.TrimSpace(c.AI.Model)
	if c.AI.Model == "" {
		c.AI.Model = defaultModels[c.AI.Engine]
	}

	c.ContentSource = strings.ToLower(strings.TrimSpace(c.ContentSource))
	c.TimeWindow = strings.ToLower(strings.TrimSpace(c.TimeWindow))
	c.Notifier = strings.ToLower(strings.TrimSpace(c.Notifier))
	c.Schedule = strings.TrimSpace(c.Schedule)
}

// Validate rejects selector values and missing credentials before any
// component is constructed.
func (c Config) Validate() error {
	var errs []error

	switch c.AI.Engine {
	case EngineOpenAI:
		errs = append(errs, required("OPENAI_API_KEY", c.AI.OpenAIAPIKey))
	case EngineCohere:
		errs = append(errs, required("COHERE_API_KEY", c.AI.CohereAPIKey))
	case EngineGemini:
		errs = append(errs, required("GOOGLE_API_KEY", c.AI.GoogleAPIKey))
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnsupportedEngine, c.AI.Engine))
	}

	if c.AI.ConversationLength <= 0 {
		errs = append(errs, fmt.Errorf("CONVERSATION_LENGTH must be positive (got %d)", c.AI.ConversationLength))
	}

	switch c.ContentSource {
	case SourceReddit:
		errs = append(errs,
			required("REDDIT_CLIENT_ID", c.Reddit.ClientID),
			required("REDDIT_CLIENT_SECRET", c.Reddit.ClientSecret))
	case SourceRSS:
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnsupportedSource, c.ContentSource))
	}

	if err := ValidateTimeWindow(c.TimeWindow); err != nil {
		errs = append(errs, err)
	}

	switch {
	case c.DryRun:
		if !slices.Contains([]string{NotifierSlack, NotifierWebhook, NotifierTelegram}, c.Notifier) {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnsupportedNotifier, c.Notifier))
		}
	case c.Notifier == NotifierSlack:
		errs = append(errs,
			required("SLACK_BOT_TOKEN", c.Slack.BotToken),
			required("SLACK_CHANNEL", c.Slack.Channel))
	case c.Notifier == NotifierWebhook:
		errs = append(errs, required("SLACK_WEBHOOK_URL", c.Slack.WebhookURL))
	case c.Notifier == NotifierTelegram:
		errs = append(errs, required("TELEGRAM_TOKEN", c.Telegram.Token))
		if c.Telegram.ChatID == 0 {
			errs = append(errs, errors.New("TELEGRAM_CHAT_ID is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnsupportedNotifier, c.Notifier))
	}

	return errors.Join(errs...)
}

func ValidateTimeWindow(window string) error {
	if !slices.Contains(timeWindows, window) {
		return fmt.Errorf("time window must be one of %s (got %q)", strings.Join(timeWindows, ", "), window)
	}

	return nil
}

// PeriodLabel names the time window in message headers. Unknown or empty
// windows read as the default week.
func PeriodLabel(window string) string {
	if label, ok := periodLabels[strings.ToLower(strings.TrimSpace(window))]; ok {
		return label
	}

	return periodLabels[DefaultTimeWindow]
}

// LogLevelValue maps LOG_LEVEL to a slog level. Unknown strings fall back to
// info.
func (c Config) LogLevelValue() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func required(key, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", key)
	}

	return nil
}
