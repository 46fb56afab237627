// Package config loads service configuration from defaults, an optional
// YAML file and environment variables. A key "a.b" is read from env "A_B".
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Configuration is the full service configuration.
type Configuration struct {
	Env        string
	Service    ServiceConfig
	Log        LogConfig
	Transport  string // telegram, discord, none
	Telegram   TelegramConfig
	Discord    DiscordConfig
	OpenAI     OpenAIConfig
	Classifier ClassifierConfig
	Contract   ContractConfig
	STT        STTConfig
	Google     GoogleConfig
	Store      StoreConfig
	Tabs       TabsConfig
	Timezone   string
	Staging    StagingConfig
	Pipeline   PipelineConfig
	Breaker    BreakerConfig
	Kafka      KafkaConfig
}

type ServiceConfig struct {
	Principal string
	Port      string
}

type LogConfig struct {
	Level  string
	Format string
}

type TelegramConfig struct {
	Token string
}

type DiscordConfig struct {
	Token     string
	ChannelID string
}

type OpenAIConfig struct {
	APIKey          string
	BaseURL         string
	ChatModel       string
	TranscribeModel string
}

type ClassifierConfig struct {
	Provider    string // openai, mock
	Temperature float64
}

type ContractConfig struct {
	Version string // v1, v2
}

type STTConfig struct {
	Provider string // openai, google, mock
	Language string
}

type GoogleConfig struct {
	CredentialsJSON string
	CredentialsFile string
	STTLanguageCode string
	STTSampleRateHz int32
	STTEncoding     string
}

type StoreConfig struct {
	Backend         string // sheets, sqlite, memory
	SpreadsheetID   string
	SpreadsheetName string
	SQLitePath      string
}

type TabsConfig struct {
	Notes   string
	Records string
}

type StagingConfig struct {
	Dir           string
	MaxAudioBytes int64
}

type PipelineConfig struct {
	MinTranscriptChars int
	StageTimeout       time.Duration
	MaxConcurrentRuns  int
}

type BreakerConfig struct {
	MaxFailures uint32
	Cooldown    time.Duration
}

type KafkaConfig struct {
	Enabled           bool
	Brokers           []string
	TopicTransactions string
	TopicNotes        string
	Principal         string
}

var defaults = map[string]any{
	"env":                           "prod",
	"port":                          "8080",
	"log.level":                     "info",
	"log.format":                    "json",
	"service.principal":             "svc-voice-ledger",
	"transport":                     "telegram",
	"telegram.token":                "",
	"discord.token":                 "",
	"discord.channel_id":            "",
	"openai.api_key":                "",
	"openai.base_url":               "",
	"openai.chat_model":             "gpt-4o-mini",
	"openai.transcribe_model":       "whisper-1",
	"classifier.provider":           "openai",
	"classifier.temperature":        0.0,
	"contract.version":              "v2",
	"stt.provider":                  "openai",
	"stt.language":                  "es",
	"google.credentials_json":       "",
	"google.credentials_file":       "credenciales_google.json",
	"google.stt_language_code":      "es-CO",
	"google.stt_sample_rate_hz":     48000,
	"google.stt_encoding":           "OGG_OPUS",
	"store.backend":                 "sheets",
	"spreadsheet.id":                "",
	"spreadsheet.name":              "FinanzasBot",
	"sqlite.path":                   "voice-ledger.db",
	"tabs.notes":                    "Notas",
	"tabs.records":                  "Registros",
	"timezone":                      "America/Bogota",
	"staging.dir":                   "",
	"staging.max_audio_bytes":       int64(20 * 1024 * 1024),
	"pipeline.min_transcript_chars": 2,
	"pipeline.stage_timeout":        60 * time.Second,
	"pipeline.max_concurrent_runs":  8,
	"breaker.max_failures":          5,
	"breaker.cooldown":              30 * time.Second,
	"kafka.enabled":                 false,
	"kafka.brokers":                 "localhost:9092",
	"kafka.topic_transactions":      "ledger.transactions.v1",
	"kafka.topic_notes":             "ledger.notes.v1",
	"kafka.principal":               "",
}

// Load reads configuration from defaults and the environment.
func Load() *Configuration {
	cfg, _ := LoadFile("")
	return cfg
}

// LoadFile reads configuration from defaults, the YAML file at path (when
// non-empty) and the environment, in increasing priority.
func LoadFile(path string) (*Configuration, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fromViper(v), fmt.Errorf("config: read %s: %w", path, err)
		}
		log.Debug().Str("file", v.ConfigFileUsed()).Msg("Config file loaded")
	}
	return fromViper(v), nil
}

func newViper() *viper.Viper {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func fromViper(v *viper.Viper) *Configuration {
	r := reader{v: v}

	principal := r.str("service.principal")
	kafkaPrincipal := r.str("kafka.principal")
	if kafkaPrincipal == "" {
		kafkaPrincipal = principal
	}

	return &Configuration{
		Env: r.str("env"),
		Service: ServiceConfig{
			Principal: principal,
			Port:      r.str("port"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(r.str("log.level")),
			Format: strings.ToLower(r.str("log.format")),
		},
		Transport: strings.ToLower(r.str("transport")),
		Telegram:  TelegramConfig{Token: r.str("telegram.token")},
		Discord: DiscordConfig{
			Token:     r.str("discord.token"),
			ChannelID: r.str("discord.channel_id"),
		},
		OpenAI: OpenAIConfig{
			APIKey:          r.str("openai.api_key"),
			BaseURL:         r.str("openai.base_url"),
			ChatModel:       r.str("openai.chat_model"),
			TranscribeModel: r.str("openai.transcribe_model"),
		},
		Classifier: ClassifierConfig{
			Provider:    strings.ToLower(r.str("classifier.provider")),
			Temperature: r.float("classifier.temperature"),
		},
		Contract: ContractConfig{Version: strings.ToLower(r.str("contract.version"))},
		STT: STTConfig{
			Provider: strings.ToLower(r.str("stt.provider")),
			Language: r.str("stt.language"),
		},
		Google: GoogleConfig{
			CredentialsJSON: r.str("google.credentials_json"),
			CredentialsFile: r.str("google.credentials_file"),
			STTLanguageCode: r.str("google.stt_language_code"),
			STTSampleRateHz: int32(r.int("google.stt_sample_rate_hz")),
			STTEncoding:     r.str("google.stt_encoding"),
		},
		Store: StoreConfig{
			Backend:         strings.ToLower(r.str("store.backend")),
			SpreadsheetID:   r.str("spreadsheet.id"),
			SpreadsheetName: r.str("spreadsheet.name"),
			SQLitePath:      r.str("sqlite.path"),
		},
		Tabs: TabsConfig{
			Notes:   r.str("tabs.notes"),
			Records: r.str("tabs.records"),
		},
		Timezone: r.str("timezone"),
		Staging: StagingConfig{
			Dir:           r.str("staging.dir"),
			MaxAudioBytes: r.int64("staging.max_audio_bytes"),
		},
		Pipeline: PipelineConfig{
			MinTranscriptChars: r.int("pipeline.min_transcript_chars"),
			StageTimeout:       r.duration("pipeline.stage_timeout"),
			MaxConcurrentRuns:  r.int("pipeline.max_concurrent_runs"),
		},
		Breaker: BreakerConfig{
			MaxFailures: uint32(r.int("breaker.max_failures")),
			Cooldown:    r.duration("breaker.cooldown"),
		},
		Kafka: KafkaConfig{
			Enabled:           r.bool("kafka.enabled"),
			Brokers:           r.list("kafka.brokers"),
			TopicTransactions: r.str("kafka.topic_transactions"),
			TopicNotes:        r.str("kafka.topic_notes"),
			Principal:         kafkaPrincipal,
		},
	}
}

// Location returns the configured time zone, or UTC when it cannot be loaded.
func (c *Configuration) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate checks the provider-specific requirements.
func (c *Configuration) Validate() error {
	var errs []error

	switch c.Transport {
	case "telegram":
		if c.Telegram.Token == "" {
			errs = append(errs, errors.New("TELEGRAM_TOKEN is required for the telegram transport"))
		}
	case "discord":
		if c.Discord.Token == "" {
			errs = append(errs, errors.New("DISCORD_TOKEN is required for the discord transport"))
		}
	case "none":
	default:
		errs = append(errs, fmt.Errorf("unknown transport %q", c.Transport))
	}

	switch c.STT.Provider {
	case "openai":
		if c.OpenAI.APIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai STT provider"))
		}
	case "google", "mock":
	default:
		errs = append(errs, fmt.Errorf("unknown STT provider %q", c.STT.Provider))
	}

	switch c.Classifier.Provider {
	case "openai":
		if c.OpenAI.APIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai classifier"))
		}
	case "mock":
	default:
		errs = append(errs, fmt.Errorf("unknown classifier provider %q", c.Classifier.Provider))
	}

	switch c.Contract.Version {
	case "v1", "v2":
	default:
		errs = append(errs, fmt.Errorf("unknown contract version %q", c.Contract.Version))
	}

	switch c.Store.Backend {
	case "sheets":
		if c.Store.SpreadsheetID == "" && c.Store.SpreadsheetName == "" {
			errs = append(errs, errors.New("SPREADSHEET_ID or SPREADSHEET_NAME is required for the sheets backend"))
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite backend"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}

	if c.Tabs.Notes == "" || c.Tabs.Records == "" {
		errs = append(errs, errors.New("TABS_NOTES and TABS_RECORDS must not be empty"))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err))
	}
	if c.Pipeline.MaxConcurrentRuns < 1 {
		errs = append(errs, errors.New("PIPELINE_MAX_CONCURRENT_RUNS must be at least 1"))
	}

	return errors.Join(errs...)
}

// reader converts viper values with cast, falling back to the registered
// default when a value cannot be parsed.
type reader struct {
	v *viper.Viper
}

func (r reader) fallback(key string, err error) {
	log.Warn().Err(err).Str("key", key).Interface("default", defaults[key]).Msg("Invalid config value, using default")
}

func (r reader) str(key string) string {
	return strings.TrimSpace(cast.ToString(r.v.Get(key)))
}

func (r reader) int(key string) int {
	n, err := cast.ToIntE(r.v.Get(key))
	if err != nil {
		r.fallback(key, err)
		return cast.ToInt(defaults[key])
	}
	return n
}

func (r reader) int64(key string) int64 {
	n, err := cast.ToInt64E(r.v.Get(key))
	if err != nil {
		r.fallback(key, err)
		return cast.ToInt64(defaults[key])
	}
	return n
}

func (r reader) float(key string) float64 {
	f, err := cast.ToFloat64E(r.v.Get(key))
	if err != nil {
		r.fallback(key, err)
		return cast.ToFloat64(defaults[key])
	}
	return f
}

func (r reader) bool(key string) bool {
	b, err := cast.ToBoolE(r.v.Get(key))
	if err != nil {
		r.fallback(key, err)
		return cast.ToBool(defaults[key])
	}
	return b
}

func (r reader) duration(key string) time.Duration {
	d, err := cast.ToDurationE(r.v.Get(key))
	if err != nil || d <= 0 {
		if err == nil {
			err = fmt.Errorf("non-positive duration %v", d)
		}
		r.fallback(key, err)
		return cast.ToDuration(defaults[key])
	}
	return d
}

// list accepts a comma-separated string or a YAML sequence.
func (r reader) list(key string) []string {
	var raw []string
	switch val := r.v.Get(key).(type) {
	case string:
		raw = strings.Split(val, ",")
	default:
		raw = cast.ToStringSlice(val)
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
