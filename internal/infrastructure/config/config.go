package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration. It is constructed once at
// process start and passed down explicitly; nothing reads it through a
// global.
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Stripe    StripeConfig
	LLM       LLMConfig
	Prompts   PromptsConfig
	Storage   StorageConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds JWT settings
type JWTConfig struct {
	Secret                 string
	RefreshSecret          string
	AccessTokenExpiration  time.Duration
	RefreshTokenExpiration time.Duration
	Issuer                 string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout          time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	MaxHeaderBytes       int
	MaxBodySize          int64
	CORSAllowOrigins     []string
	CORSAllowMethods     []string
	CORSAllowHeaders     []string
	TrustedProxies       []string
	DemoRateLimitPerHour int // unauthenticated demo calls per client IP
}

// StripeConfig holds payment provider settings
type StripeConfig struct {
	SecretKey       string
	WebhookSecret   string
	PriceIDs        map[string]string // plan id -> Stripe price id
	CheckoutSuccess string
	CheckoutCancel  string
	PortalReturnURL string
}

// PlanForPrice resolves a Stripe price id back to a plan id
func (s *StripeConfig) PlanForPrice(priceID string) (string, bool) {
	for plan, price := range s.PriceIDs {
		if price == priceID {
			return plan, true
		}
	}
	return "", false
}

// LLMConfig holds text-generation service settings
type LLMConfig struct {
	BaseURL       string
	APIKey        string
	Model         string
	FallbackModel string // used once on permission-class errors
	Timeout       time.Duration
	MaxTokens     int
	DemoMaxTokens int
}

// PromptConfig is the instructional preamble and sampling settings for one
// capability. Templates are configuration data, not code branches.
type PromptConfig struct {
	System      string
	Temperature float64
	MaxTokens   int
}

// PromptsConfig maps capabilities and document Q&A modes to prompts
type PromptsConfig struct {
	Analyze  PromptConfig
	Redact   PromptConfig
	Report   PromptConfig
	Drill    PromptConfig
	AskModes map[string]PromptConfig // policy_audit, drill_extractor, red_flag_finder
}

// StorageConfig holds object storage settings for uploaded documents
type StorageConfig struct {
	Bucket          string
	Region          string
	Endpoint        string // optional, for S3-compatible stores
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	MaxUploadBytes  int64
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
	DBTraceEnabled    bool
}

// Load loads configuration from TOML file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with THREAT_ prefix (e.g. THREAT_STRIPE_SECRET_KEY)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file is fine, defaults and env vars take over
	}

	v.SetEnvPrefix("THREAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:                 v.GetString("jwt.secret"),
			RefreshSecret:          v.GetString("jwt.refresh_secret"),
			AccessTokenExpiration:  v.GetDuration("jwt.access_token_expiration"),
			RefreshTokenExpiration: v.GetDuration("jwt.refresh_token_expiration"),
			Issuer:                 v.GetString("jwt.issuer"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:          v.GetDuration("http.read_timeout"),
			WriteTimeout:         v.GetDuration("http.write_timeout"),
			IdleTimeout:          v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:       v.GetInt("http.max_header_bytes"),
			MaxBodySize:          v.GetInt64("http.max_body_size"),
			CORSAllowOrigins:     v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:     v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:     v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:       v.GetStringSlice("http.trusted_proxies"),
			DemoRateLimitPerHour: v.GetInt("http.demo_rate_limit_per_hour"),
		},
		Stripe: StripeConfig{
			SecretKey:       v.GetString("stripe.secret_key"),
			WebhookSecret:   v.GetString("stripe.webhook_secret"),
			PriceIDs:        v.GetStringMapString("stripe.price_ids"),
			CheckoutSuccess: v.GetString("stripe.checkout_success_url"),
			CheckoutCancel:  v.GetString("stripe.checkout_cancel_url"),
			PortalReturnURL: v.GetString("stripe.portal_return_url"),
		},
		LLM: LLMConfig{
			BaseURL:       v.GetString("llm.base_url"),
			APIKey:        v.GetString("llm.api_key"),
			Model:         v.GetString("llm.model"),
			FallbackModel: v.GetString("llm.fallback_model"),
			Timeout:       v.GetDuration("llm.timeout"),
			MaxTokens:     v.GetInt("llm.max_tokens"),
			DemoMaxTokens: v.GetInt("llm.demo_max_tokens"),
		},
		Prompts: PromptsConfig{
			Analyze:  loadPrompt(v, "prompts.analyze"),
			Redact:   loadPrompt(v, "prompts.redact"),
			Report:   loadPrompt(v, "prompts.report"),
			Drill:    loadPrompt(v, "prompts.drill"),
			AskModes: loadAskModes(v),
		},
		Storage: StorageConfig{
			Bucket:          v.GetString("storage.bucket"),
			Region:          v.GetString("storage.region"),
			Endpoint:        v.GetString("storage.endpoint"),
			AccessKeyID:     v.GetString("storage.access_key_id"),
			SecretAccessKey: v.GetString("storage.secret_access_key"),
			UsePathStyle:    v.GetBool("storage.use_path_style"),
			MaxUploadBytes:  v.GetInt64("storage.max_upload_bytes"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadPrompt(v *viper.Viper, key string) PromptConfig {
	return PromptConfig{
		System:      v.GetString(key + ".system"),
		Temperature: v.GetFloat64(key + ".temperature"),
		MaxTokens:   v.GetInt(key + ".max_tokens"),
	}
}

func loadAskModes(v *viper.Viper) map[string]PromptConfig {
	modes := make(map[string]PromptConfig)
	sub := v.GetStringMap("prompts.ask")
	for mode := range sub {
		modes[mode] = loadPrompt(v, "prompts.ask."+mode)
	}
	return modes
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "threatalytics-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "threatalytics"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.AccessTokenExpiration == 0 {
		cfg.JWT.AccessTokenExpiration = 15 * time.Minute
	}
	if cfg.JWT.RefreshTokenExpiration == 0 {
		cfg.JWT.RefreshTokenExpiration = 168 * time.Hour
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "threatalytics"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		// Generation calls can take a while; the write timeout has to cover them
		cfg.HTTP.WriteTimeout = 120 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20
	}
	// CORS origins deliberately have no wildcard fallback: an empty list
	// rejects cross-origin requests until origins are configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.HTTP.DemoRateLimitPerHour == 0 {
		cfg.HTTP.DemoRateLimitPerHour = 10
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o"
	}
	if cfg.LLM.FallbackModel == "" {
		cfg.LLM.FallbackModel = "gpt-4o-mini"
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 90 * time.Second
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 2000
	}
	if cfg.LLM.DemoMaxTokens == 0 {
		cfg.LLM.DemoMaxTokens = 200
	}
	applyPromptDefaults(&cfg.Prompts)
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.MaxUploadBytes == 0 {
		cfg.Storage.MaxUploadBytes = 8 << 20
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Stripe.WebhookSecret == "" {
			return fmt.Errorf("stripe.webhook_secret is required in production")
		}
		if c.LLM.APIKey == "" {
			return fmt.Errorf("llm.api_key is required in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the host:port address for the Redis client
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
