package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	BucketAvatars string
	UseSSL        bool
	Region        string
}

type SecurityConfig struct {
	JWTSecret      string
	JWTAccessTTL   time.Duration
	JWTRefreshTTL  time.Duration
	EncryptionKey  string
	MaxLoginFails  int
	LockoutWindow  time.Duration
	VerifyTokenTTL time.Duration
	ResetTokenTTL  time.Duration
}

type BreachConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

type RateLimitConfig struct {
	Window      time.Duration
	MaxAttempts int
}

type GoogleOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type MailConfig struct {
	FromAddress string
	BaseURL     string
}

type PersonaConfig struct {
	WebhookTimeout time.Duration
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	Breach           BreachConfig
	RateLimit        RateLimitConfig
	Google           GoogleOAuthConfig
	Mail             MailConfig
	Persona          PersonaConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("PERSONAHUB")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
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

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.bucketavatars", "personahub-avatars")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("security.jwtaccessttl", "1h")
	v.SetDefault("security.jwtrefreshttl", "168h") // 7 days
	v.SetDefault("security.maxloginfails", 5)
	v.SetDefault("security.lockoutwindow", "15m")
	v.SetDefault("security.verifytokenttl", "24h")
	v.SetDefault("security.resettokenttl", "1h")

	v.SetDefault("breach.baseurl", "https://api.pwnedpasswords.com")
	v.SetDefault("breach.useragent", "personahub-api")
	v.SetDefault("breach.timeout", "5s")

	v.SetDefault("ratelimit.window", "1m")
	v.SetDefault("ratelimit.maxattempts", 10)

	v.SetDefault("mail.fromaddress", "no-reply@personahub.local")
	v.SetDefault("mail.baseurl", "http://localhost:8080")

	v.SetDefault("persona.webhooktimeout", "30s")
}
