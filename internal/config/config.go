package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	goIAM "github.com/MrEthical07/goIAM"
	"github.com/MrEthical07/goIAM/mail"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

type HTTPConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"readtimeout"`
	WriteTimeout time.Duration `mapstructure:"writetimeout"`
	IdleTimeout  time.Duration `mapstructure:"idletimeout"`
}

type StoreConfig struct {
	Driver   string `mapstructure:"driver"`
	MongoURI string `mapstructure:"mongouri"`
	MongoDB  string `mapstructure:"mongodb"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
	Issuer string        `mapstructure:"issuer"`
}

type MailConfig struct {
	User        string `mapstructure:"user"`
	AppPassword string `mapstructure:"apppassword"`
	From        string `mapstructure:"from"`
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	AppURL      string `mapstructure:"appurl"`
}

type AuditConfig struct {
	RetentionDays int `mapstructure:"retentiondays"`
	Buffer        int `mapstructure:"buffer"`
}

type AppConfig struct {
	Environment      string        `mapstructure:"environment"`
	HTTP             HTTPConfig    `mapstructure:"http"`
	Store            StoreConfig   `mapstructure:"store"`
	Redis            RedisConfig   `mapstructure:"redis"`
	JWT              JWTConfig     `mapstructure:"jwt"`
	Mail             MailConfig    `mapstructure:"mail"`
	Audit            AuditConfig   `mapstructure:"audit"`
	CORSOrigins      []string      `mapstructure:"corsorigins"`
	DisableAuth      bool          `mapstructure:"disableauth"`
	SuperadminEmails []string      `mapstructure:"superadminemails"`
	ParamCacheTTL    time.Duration `mapstructure:"paramcachettl"`
	MetricsEnabled   bool          `mapstructure:"metricsenabled"`
}

// envBindings maps config keys to the environment names the service has
// always used. When a key lists several names the first one set wins.
var envBindings = map[string][]string{
	"environment":         {"ENVIRONMENT"},
	"http.host":           {"API_HOST"},
	"http.port":           {"API_PORT"},
	"http.readtimeout":    {"HTTP_READ_TIMEOUT"},
	"http.writetimeout":   {"HTTP_WRITE_TIMEOUT"},
	"http.idletimeout":    {"HTTP_IDLE_TIMEOUT"},
	"store.driver":        {"STORE_DRIVER"},
	"store.mongouri":      {"MONGODB_URI", "MONGO_URI"},
	"store.mongodb":       {"MONGODB_DB"},
	"redis.addr":          {"REDIS_ADDR"},
	"redis.password":      {"REDIS_PASSWORD"},
	"redis.db":            {"REDIS_DB"},
	"jwt.secret":          {"JWT_SECRET", "APP_JWT_SECRET"},
	"jwt.ttl":             {"JWT_EXPIRES_IN"},
	"jwt.issuer":          {"JWT_ISSUER"},
	"mail.user":           {"GMAIL_USER"},
	"mail.apppassword":    {"GMAIL_APP_PASSWORD"},
	"mail.from":           {"MAIL_FROM"},
	"mail.host":           {"SMTP_HOST"},
	"mail.port":           {"SMTP_PORT"},
	"mail.appurl":         {"APP_URL"},
	"audit.retentiondays": {"AUDIT_RETENTION_DAYS"},
	"audit.buffer":        {"AUDIT_BUFFER"},
	"corsorigins":         {"CORS_ORIGIN"},
	"disableauth":         {"DISABLE_AUTH"},
	"superadminemails":    {"SUPERADMIN_EMAIL"},
	"paramcachettl":       {"PARAM_CACHE_TTL"},
	"metricsenabled":      {"METRICS_ENABLED"},
}

// dotenvPaths are tried in order; missing files are skipped and variables
// already present in the environment are never overridden.
var dotenvPaths = []string{".env", "../.env"}

// Load reads and validates the service configuration.
func Load() (*AppConfig, error) {
	cfg, err := Read()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read loads the configuration without validating it. Tools that only need
// the store settings use it directly.
func Read() (*AppConfig, error) {
	for _, p := range dotenvPaths {
		_ = godotenv.Load(p)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	for key, names := range envBindings {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.normalize()
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", EnvDevelopment)

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 4000)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("store.driver", DriverMongo)
	v.SetDefault("store.mongodb", "iam")

	v.SetDefault("redis.db", 0)

	v.SetDefault("jwt.ttl", "8h")

	v.SetDefault("mail.host", "smtp.gmail.com")
	v.SetDefault("mail.port", 587)

	v.SetDefault("audit.retentiondays", 0)
	v.SetDefault("audit.buffer", 1024)

	v.SetDefault("paramcachettl", "5m")
	v.SetDefault("metricsenabled", true)
}

func (c *AppConfig) normalize() {
	c.Environment = strings.ToLower(strings.TrimSpace(c.Environment))
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	c.CORSOrigins = trimList(c.CORSOrigins)
	c.SuperadminEmails = trimList(c.SuperadminEmails)
	for i, e := range c.SuperadminEmails {
		c.SuperadminEmails[i] = strings.ToLower(e)
	}
}

func trimList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Production reports whether the service runs with production hardening.
func (c *AppConfig) Production() bool {
	return c.Environment == EnvProduction
}

// Validate rejects configurations the service must not start with.
func (c *AppConfig) Validate() error {
	switch c.Environment {
	case EnvDevelopment, EnvProduction, "test":
	default:
		return fmt.Errorf("config: unknown ENVIRONMENT %q", c.Environment)
	}
	if c.DisableAuth && c.Production() {
		return errors.New("config: DISABLE_AUTH is not allowed in production")
	}
	if c.JWT.Secret == "" && !c.DisableAuth {
		return errors.New("config: JWT_SECRET is required")
	}
	if c.JWT.TTL <= 0 {
		return errors.New("config: JWT_EXPIRES_IN must be positive")
	}
	switch c.Store.Driver {
	case DriverMongo:
		if c.Store.MongoURI == "" {
			return errors.New("config: MONGODB_URI is required for the mongo store")
		}
	case DriverMemory:
		if c.Production() {
			return errors.New("config: the memory store is not allowed in production")
		}
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.Store.Driver)
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("config: invalid API_PORT %d", c.HTTP.Port)
	}
	if c.Audit.RetentionDays < 0 {
		return errors.New("config: AUDIT_RETENTION_DAYS must be >= 0")
	}
	if c.Production() && !c.SMTPConfig().Configured() {
		return errors.New("config: GMAIL_USER and GMAIL_APP_PASSWORD are required in production")
	}
	return nil
}

// AuditRetention is zero when cleanup is disabled.
func (c *AppConfig) AuditRetention() time.Duration {
	return time.Duration(c.Audit.RetentionDays) * 24 * time.Hour
}

// EngineConfig derives the engine configuration from the service settings.
func (c *AppConfig) EngineConfig() goIAM.Config {
	cfg := goIAM.DefaultConfig()
	cfg.JWT.Secret = []byte(c.JWT.Secret)
	cfg.JWT.TTL = c.JWT.TTL
	cfg.JWT.Issuer = c.JWT.Issuer
	cfg.Params.CacheTTL = c.ParamCacheTTL
	if c.Audit.Buffer > 0 {
		cfg.Audit.BufferSize = c.Audit.Buffer
	}
	cfg.Audit.Retention = c.AuditRetention()
	cfg.Metrics.Enabled = c.MetricsEnabled
	cfg.Access.SuperadminEmails = append([]string(nil), c.SuperadminEmails...)
	cfg.Access.DevBypass = c.DisableAuth
	cfg.Access.ProductionMode = c.Production()
	cfg.Mail.LoginURL = strings.TrimRight(c.Mail.AppURL, "/")
	if cfg.Mail.LoginURL != "" {
		cfg.Mail.LoginURL += "/login"
	}
	return cfg
}

// SMTPConfig returns the relay settings. From defaults to the account.
func (c *AppConfig) SMTPConfig() mail.SMTPConfig {
	from := c.Mail.From
	if from == "" {
		from = c.Mail.User
	}
	return mail.SMTPConfig{
		Host:     c.Mail.Host,
		Port:     c.Mail.Port,
		Username: c.Mail.User,
		Password: c.Mail.AppPassword,
		From:     from,
		FromName: "IAM",
		Timeout:  15 * time.Second,
	}
}
