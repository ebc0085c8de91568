// Package config loads and validates the registration service configuration using Viper.
//
// Configuration is layered: built-in defaults < YAML config file < environment
// variables. Environment variables use the REG_ prefix (e.g., REG_PLATFORM_URL
// overrides platform.url in the YAML).
//
// The ENCRYPTION_KEY variable has no REG_ prefix because it may be injected by
// infrastructure tooling (e.g., Kubernetes secrets, Vault agent) that does not
// know the application-specific prefix.
package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Platform      PlatformConfig      `mapstructure:"platform"`
	Study         StudyConfig         `mapstructure:"study"`
	Languages     []LanguageConfig    `mapstructure:"languages"`
	Content       ContentConfig       `mapstructure:"content"`
	Recorder      RecorderConfig      `mapstructure:"recorder"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Security      SecurityConfig      `mapstructure:"security"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Telemetry     TelemetryConfig     `mapstructure:"telemetry"`
	Wizard        WizardConfig        `mapstructure:"wizard"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	BaseURL      string        `mapstructure:"base_url"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database connection configuration. The database is only
// contacted when the postgres recorder sink is enabled.
type DatabaseConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	Name               string `mapstructure:"name"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode"`
	MaxConnections     int    `mapstructure:"max_connections"`
	MinIdleConnections int    `mapstructure:"min_idle_connections"`
}

// PlatformConfig holds the INCEpTION remote API connection settings
type PlatformConfig struct {
	// URL is the INCEpTION base URL shown to registrants and used for API calls
	URL string `mapstructure:"url"`
	// AdminUser and AdminPassword authenticate every remote API call (HTTP basic auth).
	// The account needs ROLE_ADMIN and ROLE_REMOTE on the platform.
	AdminUser     string `mapstructure:"admin_user"`
	AdminPassword string `mapstructure:"admin_password"`
	// PingTimeout bounds the reachability probe
	PingTimeout time.Duration `mapstructure:"ping_timeout"`
	// RequestTimeout bounds every other remote API call
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	// UsernamePrefix is prepended to the six random characters of generated usernames
	UsernamePrefix string `mapstructure:"username_prefix"`
	// MemberRole is the project role granted to new accounts
	MemberRole string `mapstructure:"member_role"`
}

// StudyConfig holds study metadata and the demographic option lists
type StudyConfig struct {
	Title           string   `mapstructure:"title"`
	AdminEmail      string   `mapstructure:"admin_email"`
	MinAge          int      `mapstructure:"min_age"`
	MaxAge          int      `mapstructure:"max_age"`
	Nationalities   []string `mapstructure:"nationalities"`
	NativeLanguages []string `mapstructure:"native_languages"`
	EducationLevels []string `mapstructure:"education_levels"`
}

// LanguageConfig maps a display name to its ISO code and platform project
type LanguageConfig struct {
	Name    string `mapstructure:"name"`
	Code    string `mapstructure:"code"`
	Project string `mapstructure:"project"`
}

// ContentConfig holds instruction and quiz content settings
type ContentConfig struct {
	// Dir contains annotation_setup_<code>.json or .yaml files
	Dir string `mapstructure:"dir"`
	// Watch reloads content when files in Dir change
	Watch    bool          `mapstructure:"watch"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	// PassThreshold is the number of correct quiz answers required to proceed
	PassThreshold int `mapstructure:"pass_threshold"`
	// SkipSections lists instruction section headings (case-insensitive) that are never served
	SkipSections []string `mapstructure:"skip_sections"`
}

// RecorderConfig holds the registration record sinks. Sinks are tried in the
// listed order and the first successful write wins.
type RecorderConfig struct {
	Sinks       []string              `mapstructure:"sinks"`
	CSV         CSVSinkConfig         `mapstructure:"csv"`
	Sheets      SheetsSinkConfig      `mapstructure:"sheets"`
	Webhook     WebhookSinkConfig     `mapstructure:"webhook"`
	ObjectStore ObjectStoreSinkConfig `mapstructure:"objectstore"`
	Timeout     time.Duration         `mapstructure:"timeout"`
}

// CSVSinkConfig holds the local CSV file sink configuration
type CSVSinkConfig struct {
	Path string `mapstructure:"path"`
}

// SheetsSinkConfig holds Google Sheets sink configuration
type SheetsSinkConfig struct {
	SpreadsheetID string `mapstructure:"spreadsheet_id"`
	// SheetName is the tab the rows are appended to
	SheetName string `mapstructure:"sheet_name"`
	// CredentialsFile is the path to a service account JSON key file
	CredentialsFile string `mapstructure:"credentials_file"`
	// CredentialsJSON is the service account JSON key as a string
	// (alternative to credentials_file, useful for environment variables)
	CredentialsJSON string `mapstructure:"credentials_json"`
}

// WebhookSinkConfig holds webhook sink configuration
type WebhookSinkConfig struct {
	URL         string            `mapstructure:"url"`
	Headers     map[string]string `mapstructure:"headers"`
	TimeoutSecs int               `mapstructure:"timeout_secs"`
}

// ObjectStoreSinkConfig holds object storage sink configuration. The backend
// itself is selected by storage.default_backend.
type ObjectStoreSinkConfig struct {
	Prefix string `mapstructure:"prefix"`
}

// StorageConfig holds storage backend configuration
type StorageConfig struct {
	DefaultBackend string             `mapstructure:"default_backend"`
	Azure          AzureStorageConfig `mapstructure:"azure"`
	S3             S3StorageConfig    `mapstructure:"s3"`
	GCS            GCSStorageConfig   `mapstructure:"gcs"`
	Local          LocalStorageConfig `mapstructure:"local"`
}

// AzureStorageConfig holds Azure Blob Storage configuration
type AzureStorageConfig struct {
	AccountName   string `mapstructure:"account_name"`
	AccountKey    string `mapstructure:"account_key"`
	ContainerName string `mapstructure:"container_name"`
}

// S3StorageConfig holds S3-compatible storage configuration
type S3StorageConfig struct {
	// Endpoint is the S3-compatible endpoint URL (optional, for MinIO, DigitalOcean Spaces, etc.)
	Endpoint string `mapstructure:"endpoint"`
	Region   string `mapstructure:"region"`
	Bucket   string `mapstructure:"bucket"`

	// Authentication method: "default", "static", "oidc", "assume_role"
	AuthMethod string `mapstructure:"auth_method"`

	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`

	RoleARN         string `mapstructure:"role_arn"`
	RoleSessionName string `mapstructure:"role_session_name"`
	ExternalID      string `mapstructure:"external_id"`

	// WebIdentityTokenFile is the path to the OIDC token file (when auth_method is "oidc")
	WebIdentityTokenFile string `mapstructure:"web_identity_token_file"`
}

// GCSStorageConfig holds Google Cloud Storage configuration
type GCSStorageConfig struct {
	Bucket    string `mapstructure:"bucket"`
	ProjectID string `mapstructure:"project_id"`

	// Authentication method: "default", "service_account", "workload_identity"
	AuthMethod      string `mapstructure:"auth_method"`
	CredentialsFile string `mapstructure:"credentials_file"`
	CredentialsJSON string `mapstructure:"credentials_json"`

	// Endpoint is an optional custom endpoint (for GCS emulators)
	Endpoint string `mapstructure:"endpoint"`
}

// LocalStorageConfig holds local filesystem storage configuration
type LocalStorageConfig struct {
	BasePath string `mapstructure:"base_path"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	CORS         CORSConfig         `mapstructure:"cors"`
	RateLimiting RateLimitingConfig `mapstructure:"rate_limiting"`
	TLS          TLSConfig          `mapstructure:"tls"`
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
}

// RateLimitingConfig holds rate limiting configuration. When RedisAddr is set
// the limit is shared across replicas through Redis.
type RateLimitingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
	Burst             int    `mapstructure:"burst"`
	RedisAddr         string `mapstructure:"redis_addr"`
	RedisPassword     string `mapstructure:"redis_password"`
	RedisDB           int    `mapstructure:"redis_db"`
}

// TLSConfig holds TLS/HTTPS configuration
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds observability configuration
type TelemetryConfig struct {
	ServiceName string          `mapstructure:"service_name"`
	Metrics     MetricsConfig   `mapstructure:"metrics"`
	Profiling   ProfilingConfig `mapstructure:"profiling"`
}

// MetricsConfig holds Prometheus metrics configuration
type MetricsConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	PrometheusPort int  `mapstructure:"prometheus_port"`
}

// ProfilingConfig holds profiling configuration
type ProfilingConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// WizardConfig holds the step token settings
type WizardConfig struct {
	// TokenSecret signs the step tokens handed out between wizard steps
	TokenSecret string        `mapstructure:"token_secret"`
	TokenTTL    time.Duration `mapstructure:"token_ttl"`
}

// NotificationsConfig holds settings for outbound notification emails
type NotificationsConfig struct {
	// Enabled toggles the admin e-mail sent when an account needs manual setup
	Enabled bool       `mapstructure:"enabled"`
	SMTP    SMTPConfig `mapstructure:"smtp"`
}

// SMTPConfig holds outbound mail server configuration for notification emails
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	// UseTLS enables STARTTLS (port 587) or implicit TLS (port 465); false = plain SMTP
	UseTLS bool `mapstructure:"use_tls"`
}

// bindEnvVars explicitly binds environment variables to config keys.
// This is necessary because AutomaticEnv() doesn't work well with nested structs during Unmarshal.
func bindEnvVars(v *viper.Viper) error {
	keys := []string{
		// Database
		"database.host",
		"database.port",
		"database.name",
		"database.user",
		"database.password",
		"database.ssl_mode",
		"database.max_connections",
		"database.min_idle_connections",

		// Server
		"server.host",
		"server.port",
		"server.base_url",
		"server.read_timeout",
		"server.write_timeout",

		// Platform
		"platform.url",
		"platform.admin_user",
		"platform.admin_password",
		"platform.ping_timeout",
		"platform.request_timeout",
		"platform.username_prefix",
		"platform.member_role",

		// Study
		"study.title",
		"study.admin_email",
		"study.min_age",
		"study.max_age",

		// Content
		"content.dir",
		"content.watch",
		"content.cache_ttl",
		"content.pass_threshold",

		// Recorder
		"recorder.sinks",
		"recorder.timeout",
		"recorder.csv.path",
		"recorder.sheets.spreadsheet_id",
		"recorder.sheets.sheet_name",
		"recorder.sheets.credentials_file",
		"recorder.sheets.credentials_json",
		"recorder.webhook.url",
		"recorder.webhook.timeout_secs",
		"recorder.objectstore.prefix",

		// Storage
		"storage.default_backend",
		"storage.azure.account_name",
		"storage.azure.account_key",
		"storage.azure.container_name",
		"storage.s3.endpoint",
		"storage.s3.region",
		"storage.s3.bucket",
		"storage.s3.auth_method",
		"storage.s3.access_key_id",
		"storage.s3.secret_access_key",
		"storage.s3.role_arn",
		"storage.s3.role_session_name",
		"storage.s3.external_id",
		"storage.s3.web_identity_token_file",
		"storage.gcs.bucket",
		"storage.gcs.project_id",
		"storage.gcs.auth_method",
		"storage.gcs.credentials_file",
		"storage.gcs.credentials_json",
		"storage.gcs.endpoint",
		"storage.local.base_path",

		// Security
		"security.cors.allowed_origins",
		"security.cors.allowed_methods",
		"security.rate_limiting.enabled",
		"security.rate_limiting.requests_per_minute",
		"security.rate_limiting.burst",
		"security.rate_limiting.redis_addr",
		"security.rate_limiting.redis_password",
		"security.rate_limiting.redis_db",
		"security.tls.enabled",
		"security.tls.cert_file",
		"security.tls.key_file",

		// Logging
		"logging.level",
		"logging.format",

		// Telemetry
		"telemetry.service_name",
		"telemetry.metrics.enabled",
		"telemetry.metrics.prometheus_port",
		"telemetry.profiling.enabled",
		"telemetry.profiling.port",

		// Wizard
		"wizard.token_secret",
		"wizard.token_ttl",

		// Notifications / SMTP
		"notifications.enabled",
		"notifications.smtp.host",
		"notifications.smtp.port",
		"notifications.smtp.username",
		"notifications.smtp.password",
		"notifications.smtp.from",
		"notifications.smtp.use_tls",
	}
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind env var %q: %w", key, err)
		}
	}
	return nil
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/annotation-registration")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; use defaults and environment variables
	}

	v.SetEnvPrefix("REG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Expand environment variables in sensitive fields
	cfg.Database.Password = expandEnv(cfg.Database.Password)
	cfg.Platform.AdminPassword = expandEnv(cfg.Platform.AdminPassword)
	cfg.Storage.Azure.AccountKey = expandEnv(cfg.Storage.Azure.AccountKey)
	cfg.Storage.S3.AccessKeyID = expandEnv(cfg.Storage.S3.AccessKeyID)
	cfg.Storage.S3.SecretAccessKey = expandEnv(cfg.Storage.S3.SecretAccessKey)
	cfg.Recorder.Sheets.CredentialsJSON = expandEnv(cfg.Recorder.Sheets.CredentialsJSON)
	cfg.Security.RateLimiting.RedisPassword = expandEnv(cfg.Security.RateLimiting.RedisPassword)
	cfg.Wizard.TokenSecret = expandEnv(cfg.Wizard.TokenSecret)
	cfg.Notifications.SMTP.Password = expandEnv(cfg.Notifications.SMTP.Password)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.base_url", "http://localhost:8000")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "annotation_registration")
	v.SetDefault("database.user", "registration")
	v.SetDefault("database.ssl_mode", "require")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.min_idle_connections", 2)

	// Platform defaults
	v.SetDefault("platform.url", "http://localhost:8080")
	v.SetDefault("platform.admin_user", "admin")
	v.SetDefault("platform.admin_password", "admin")
	v.SetDefault("platform.ping_timeout", "5s")
	v.SetDefault("platform.request_timeout", "10s")
	v.SetDefault("platform.username_prefix", "anno_")
	v.SetDefault("platform.member_role", "ANNOTATOR")

	// Study defaults
	v.SetDefault("study.title", "Wikipedia Narrative Annotation Study")
	v.SetDefault("study.admin_email", "admin@example.com")
	v.SetDefault("study.min_age", 18)
	v.SetDefault("study.max_age", 100)
	v.SetDefault("study.nationalities", DefaultNationalities)
	v.SetDefault("study.native_languages", DefaultNativeLanguages)
	v.SetDefault("study.education_levels", DefaultEducationLevels)

	// Languages offered for annotation, in display order
	v.SetDefault("languages", []map[string]any{
		{"name": "Ukrainian", "code": "uk", "project": "ukrainian"},
		{"name": "Russian", "code": "ru", "project": "russian"},
		{"name": "English", "code": "en", "project": "english"},
		{"name": "Irish", "code": "ga", "project": "irish"},
		{"name": "German", "code": "de", "project": "german"},
		{"name": "Czech", "code": "cs", "project": "czech"},
	})

	// Content defaults
	v.SetDefault("content.dir", "./data")
	v.SetDefault("content.watch", true)
	v.SetDefault("content.cache_ttl", "1h")
	v.SetDefault("content.pass_threshold", 3)
	v.SetDefault("content.skip_sections", []string{"quality standards", "qualitätsstandards"})

	// Recorder defaults
	v.SetDefault("recorder.sinks", []string{"csv"})
	v.SetDefault("recorder.timeout", "15s")
	v.SetDefault("recorder.csv.path", "registrations.csv")
	v.SetDefault("recorder.sheets.sheet_name", "Sheet1")
	v.SetDefault("recorder.webhook.timeout_secs", 10)
	v.SetDefault("recorder.objectstore.prefix", "registrations")

	// Storage defaults
	v.SetDefault("storage.default_backend", "local")
	v.SetDefault("storage.local.base_path", "./storage")

	// Security defaults
	v.SetDefault("security.cors.allowed_origins", []string{"*"})
	v.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("security.rate_limiting.enabled", true)
	v.SetDefault("security.rate_limiting.requests_per_minute", 30)
	v.SetDefault("security.rate_limiting.burst", 10)
	v.SetDefault("security.tls.enabled", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Telemetry defaults
	v.SetDefault("telemetry.service_name", "annotation-registration")
	v.SetDefault("telemetry.metrics.enabled", true)
	v.SetDefault("telemetry.metrics.prometheus_port", 9090)
	v.SetDefault("telemetry.profiling.enabled", false)
	v.SetDefault("telemetry.profiling.port", 6060)

	// Wizard defaults
	v.SetDefault("wizard.token_ttl", "2h")

	// Notifications defaults
	v.SetDefault("notifications.enabled", false)
	v.SetDefault("notifications.smtp.port", 587)
	v.SetDefault("notifications.smtp.use_tls", true)
}

// expandEnv expands environment variables in the format ${VAR_NAME}
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

var validSinks = []string{"sheets", "postgres", "objectstore", "webhook", "csv"}

// HasSink reports whether the named recorder sink is enabled
func (c *RecorderConfig) HasSink(name string) bool {
	return slices.Contains(c.Sinks, name)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.BaseURL == "" {
		return fmt.Errorf("server.base_url is required")
	}

	// Validate platform
	if c.Platform.URL == "" {
		return fmt.Errorf("platform.url is required")
	}
	if c.Platform.AdminUser == "" {
		return fmt.Errorf("platform.admin_user is required")
	}
	if c.Platform.PingTimeout <= 0 || c.Platform.RequestTimeout <= 0 {
		return fmt.Errorf("platform.ping_timeout and platform.request_timeout must be positive")
	}
	if c.Platform.MemberRole == "" {
		return fmt.Errorf("platform.member_role is required")
	}

	// Validate study
	if c.Study.MinAge < 1 || c.Study.MaxAge < c.Study.MinAge {
		return fmt.Errorf("invalid study age range: %d-%d", c.Study.MinAge, c.Study.MaxAge)
	}
	if len(c.Languages) == 0 {
		return fmt.Errorf("at least one language must be configured")
	}

	// Validate content
	if c.Content.PassThreshold < 1 {
		return fmt.Errorf("content.pass_threshold must be at least 1")
	}

	// Validate recorder sinks
	if len(c.Recorder.Sinks) == 0 {
		return fmt.Errorf("recorder.sinks must list at least one sink")
	}
	for _, s := range c.Recorder.Sinks {
		if !slices.Contains(validSinks, s) {
			return fmt.Errorf("invalid recorder sink: %s (must be one of %s)", s, strings.Join(validSinks, ", "))
		}
	}
	if c.Recorder.HasSink("csv") && c.Recorder.CSV.Path == "" {
		return fmt.Errorf("recorder.csv.path is required when the csv sink is enabled")
	}
	if c.Recorder.HasSink("sheets") {
		if c.Recorder.Sheets.SpreadsheetID == "" {
			return fmt.Errorf("recorder.sheets.spreadsheet_id is required when the sheets sink is enabled")
		}
		if c.Recorder.Sheets.CredentialsFile == "" && c.Recorder.Sheets.CredentialsJSON == "" {
			return fmt.Errorf("recorder.sheets.credentials_file or recorder.sheets.credentials_json is required when the sheets sink is enabled")
		}
	}
	if c.Recorder.HasSink("webhook") && c.Recorder.Webhook.URL == "" {
		return fmt.Errorf("recorder.webhook.url is required when the webhook sink is enabled")
	}

	// Validate database when the postgres sink is enabled
	if c.Recorder.HasSink("postgres") {
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database.name is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database.user is required")
		}
	}

	// Validate storage backend when the objectstore sink is enabled
	if c.Recorder.HasSink("objectstore") {
		if err := c.Storage.validate(); err != nil {
			return err
		}
	}

	// Validate TLS if enabled
	if c.Security.TLS.Enabled {
		if c.Security.TLS.CertFile == "" {
			return fmt.Errorf("security.tls.cert_file is required when TLS is enabled")
		}
		if c.Security.TLS.KeyFile == "" {
			return fmt.Errorf("security.tls.key_file is required when TLS is enabled")
		}
	}

	// Validate notifications
	if c.Notifications.Enabled {
		if c.Notifications.SMTP.Host == "" {
			return fmt.Errorf("notifications.smtp.host is required when notifications are enabled")
		}
		if c.Notifications.SMTP.From == "" {
			return fmt.Errorf("notifications.smtp.from is required when notifications are enabled")
		}
	}

	// Validate logging level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}

func (s *StorageConfig) validate() error {
	switch s.DefaultBackend {
	case "azure":
		if s.Azure.AccountName == "" {
			return fmt.Errorf("storage.azure.account_name is required when using Azure backend")
		}
		if s.Azure.AccountKey == "" {
			return fmt.Errorf("storage.azure.account_key is required when using Azure backend")
		}
		if s.Azure.ContainerName == "" {
			return fmt.Errorf("storage.azure.container_name is required when using Azure backend")
		}
	case "s3":
		if s.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when using S3 backend")
		}
		if s.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when using S3 backend")
		}
	case "gcs":
		if s.GCS.Bucket == "" {
			return fmt.Errorf("storage.gcs.bucket is required when using GCS backend")
		}
	case "local":
		if s.Local.BasePath == "" {
			return fmt.Errorf("storage.local.base_path is required when using local backend")
		}
	default:
		return fmt.Errorf("invalid storage backend: %s (must be azure, s3, gcs, or local)", s.DefaultBackend)
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// GetAddress returns the server address in host:port format
func (c *ServerConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
