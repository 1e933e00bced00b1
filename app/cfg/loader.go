package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	Store         string `long:"store" env:"STORE" default:"sqlite" choice:"sqlite" choice:"redis" description:"Document store backend"`
	DBPath        string `long:"db-path" env:"DB_PATH" default:"./data/digest.db" description:"SQLite database file"`
	RedisAddr     string `long:"redis-addr" env:"REDIS_ADDR" default:"localhost:6379" description:"Redis address"`
	RedisPassword string `long:"redis-password" env:"REDIS_PASSWORD" description:"Redis password"`
	RedisDB       int    `long:"redis-db" env:"REDIS_DB" default:"0" description:"Redis database number"`

	// Application configuration
	SourcesDir        string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing seed source files"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl           string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://digest.example.com)"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background workers"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"60" description:"Scheduler interval in seconds"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Pipeline configuration
	Parser           string `long:"parser" env:"PARSER" default:"pattern" choice:"pattern" choice:"gofeed" description:"Feed parser backend"`
	SplitHeading     string `long:"split-heading" env:"SPLIT_HEADING" default:"h3" description:"Heading tag that separates sections of a compound entry"`
	FetchTimeout     int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30" description:"Per-source fetch timeout in seconds"`
	RevalidateWindow int    `long:"revalidate" env:"REVALIDATE_INTERVAL" default:"3600" description:"Snapshot staleness window in seconds"`
	RetentionDays    int    `long:"retention-days" env:"RETENTION_DAYS" default:"14" description:"Days of items kept in the snapshot"`

	// Summarization configuration
	LLMProvider        string  `long:"llm-provider" env:"LLM_PROVIDER" default:"none" choice:"openai" choice:"ollama" choice:"none" description:"Summarization backend"`
	LLMModel           string  `long:"llm-model" env:"LLM_MODEL" description:"Model name passed to the summarization backend"`
	LLMBaseURL         string  `long:"llm-base-url" env:"LLM_BASE_URL" description:"Base URL of the summarization backend"`
	OpenAIAPIKey       string  `long:"openai-api-key" env:"OPENAI_API_KEY" description:"OpenAI API key"`
	SummaryTimeout     int     `long:"summary-timeout" env:"SUMMARY_TIMEOUT" default:"60" description:"Per-item summarization timeout in seconds"`
	SummaryMinLength   int     `long:"summary-min-length" env:"SUMMARY_MIN_LENGTH" default:"100" description:"Stripped text shorter than this skips summarization"`
	SummaryRate        float64 `long:"summary-rate" env:"SUMMARY_RATE" default:"2" description:"Summarization calls per second"`
	SummaryConcurrency int     `long:"summary-concurrency" env:"SUMMARY_CONCURRENCY" default:"4" description:"Concurrent summarization calls"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"RSS Digest/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
	LogFile   string `long:"log-file" env:"LOG_FILE" description:"Also write logs to this file, rotated by size"`
}

// Load reads an optional .env file, then flags and environment. It returns
// nil, nil when help was requested.
func Load(args []string) (*Cfg, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		Store:              raw.Store,
		DBPath:             raw.DBPath,
		RedisAddr:          raw.RedisAddr,
		RedisPassword:      raw.RedisPassword,
		RedisDB:            raw.RedisDB,
		SourcesDir:         raw.SourcesDir,
		Port:               raw.Port,
		BaseUrl:            raw.BaseUrl,
		WorkerCount:        raw.WorkerCount,
		SchedulerInterval:  raw.SchedulerInterval,
		APIAccessKey:       raw.APIAccessKey,
		Parser:             raw.Parser,
		SplitHeading:       raw.SplitHeading,
		FetchTimeout:       seconds(raw.FetchTimeout),
		RevalidateWindow:   seconds(raw.RevalidateWindow),
		RetentionWindow:    time.Duration(raw.RetentionDays) * 24 * time.Hour,
		LLMProvider:        raw.LLMProvider,
		LLMModel:           raw.LLMModel,
		LLMBaseURL:         raw.LLMBaseURL,
		OpenAIAPIKey:       raw.OpenAIAPIKey,
		SummaryTimeout:     seconds(raw.SummaryTimeout),
		SummaryMinLength:   raw.SummaryMinLength,
		SummaryRate:        raw.SummaryRate,
		SummaryConcurrency: raw.SummaryConcurrency,
		UserAgent:          raw.UserAgent,
		Timezone:           raw.Timezone,
		Debug:              raw.Debug,
		LogFile:            raw.LogFile,
		Version:            GetVersion(),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		slog.Warn("Invalid timezone, using system default", "timezone", cfg.Timezone, "error", err)
	}

	return cfg, nil
}

// PublicURL is the externally visible base of the service.
func (c *Cfg) PublicURL() string {
	if c.BaseUrl != "" {
		return c.BaseUrl
	}
	return fmt.Sprintf("http://localhost:%s", c.Port)
}

func (c *Cfg) validate() error {
	if c.WorkerCount < 1 {
		return fmt.Errorf("worker count must be at least 1, got %d", c.WorkerCount)
	}
	if c.SchedulerInterval < 1 {
		return fmt.Errorf("scheduler interval must be at least 1 second, got %d", c.SchedulerInterval)
	}
	if c.FetchTimeout <= 0 || c.SummaryTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.RetentionWindow <= 0 {
		return fmt.Errorf("retention days must be positive")
	}
	if c.SummaryConcurrency < 1 {
		return fmt.Errorf("summary concurrency must be at least 1, got %d", c.SummaryConcurrency)
	}
	if c.SummaryRate <= 0 {
		return fmt.Errorf("summary rate must be positive, got %v", c.SummaryRate)
	}
	if c.LLMProvider == "openai" && c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER is openai")
	}
	return nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		loc, err := time.LoadLocation(timezone)
		if err != nil {
			return err
		}
		time.Local = loc
		slog.Debug("Timezone configured", "timezone", timezone)
	}
	return nil
}
