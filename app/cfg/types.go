package cfg

import "time"

type Cfg struct {
	// Storage configuration
	Store         string
	DBPath        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Application configuration
	SourcesDir        string
	Port              string
	BaseUrl           string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string

	// Pipeline configuration
	Parser           string
	SplitHeading     string
	FetchTimeout     time.Duration
	RevalidateWindow time.Duration
	RetentionWindow  time.Duration

	// Summarization configuration
	LLMProvider        string
	LLMModel           string
	LLMBaseURL         string
	OpenAIAPIKey       string
	SummaryTimeout     time.Duration
	SummaryMinLength   int
	SummaryRate        float64
	SummaryConcurrency int

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	LogFile   string
	Version   string
}
