package config

// Config represents the full application configuration.
type Config struct {
	Server        ServerConfig              `yaml:"server"`
	Providers     map[string]ProviderConfig `yaml:"providers"`
	HTTP          HTTPConfig                `yaml:"http"`
	Guard         GuardConfig               `yaml:"guard"`
	Fetch         FetchConfig               `yaml:"fetch"`
	Chain         ChainConfig               `yaml:"chain"`
	Redis         RedisConfig               `yaml:"redis"`
	Credentials   map[string]string         `yaml:"credentials"`
	Store         StoreConfig               `yaml:"store"`
	Observability ObservabilityConfig       `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string `yaml:"addr"`
	ReadTimeout     string `yaml:"readTimeout"`
	WriteTimeout    string `yaml:"writeTimeout"`
	ShutdownTimeout string `yaml:"shutdownTimeout"`
}

// ProviderConfig configures a single LLM provider.
type ProviderConfig struct {
	Enabled bool   `yaml:"enabled"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"apiKey"`
	Host    string `yaml:"host"` // ollama only

	// HTTP overrides (optional, use global HTTP config if not set)
	Timeout        *string `yaml:"timeout,omitempty"`
	MaxRetries     *int    `yaml:"maxRetries,omitempty"`
	InitialBackoff *string `yaml:"initialBackoff,omitempty"`
	MaxBackoff     *string `yaml:"maxBackoff,omitempty"`
}

// HTTPConfig holds global outbound HTTP client settings.
type HTTPConfig struct {
	Timeout           string  `yaml:"timeout"`
	MaxRetries        int     `yaml:"maxRetries"`
	InitialBackoff    string  `yaml:"initialBackoff"`
	MaxBackoff        string  `yaml:"maxBackoff"`
	BackoffMultiplier float64 `yaml:"backoffMultiplier"`
}

// GuardConfig configures the input guard that screens untrusted quiz
// text before it is forwarded to an LLM provider.
type GuardConfig struct {
	Enabled         bool     `yaml:"enabled"`
	CodeWords       []string `yaml:"codeWords"`       // protected values, never forwarded
	DenyPatterns    []string `yaml:"denyPatterns"`    // extra rejection regexes
	MaxPromptTokens int      `yaml:"maxPromptTokens"` // token budget for forwarded text
}

// FetchConfig configures the quiz page / data source fetcher.
type FetchConfig struct {
	Timeout      string `yaml:"timeout"`
	MaxBodyBytes int64  `yaml:"maxBodyBytes"`
	UserAgent    string `yaml:"userAgent"`
}

// ChainConfig configures chain solving.
type ChainConfig struct {
	MaxQuestions    int    `yaml:"maxQuestions"`
	QuestionTimeout string `yaml:"questionTimeout"`
	Delay           string `yaml:"delay"`
}

// RedisConfig configures the optional Redis credential store.
// When Addr is empty the in-memory store seeded from Credentials is used.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// StoreConfig configures the attempt persistence layer.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// ObservabilityConfig configures logging and metrics.
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures request/response logging.
type LoggingConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Level         string `yaml:"level"`  // debug, info, error
	Format        string `yaml:"format"` // json, human, or empty for tty detection
	RedactAPIKeys bool   `yaml:"redactAPIKeys"`
}

// MetricsConfig configures performance and cost metrics tracking.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}
