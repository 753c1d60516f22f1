package config

import (
	"errors"
	"fmt"
	"strings"
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
	AutoMigrate     bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Endpoint     string
	AccessKey    string
	SecretKey    string
	BucketPhotos string
	PublicURL    string
	UseSSL       bool
	Region       string
	MaxPhotoSize int64
}

// SecurityConfig holds the session parameters. SessionTTL bounds how long a
// signed-out token stays usable, since there is no revocation list.
type SecurityConfig struct {
	TokenSecret        string
	TokenIssuer        string
	SessionTTL         time.Duration
	RefreshWindow      time.Duration
	StoreTimeout       time.Duration
	ProviderLinkPolicy string
	CookieName         string
	CookieDomain       string
	CookieSecure       bool
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Issuer       string
}

func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

type AuthConfig struct {
	PostLoginRedirect string
	SignInPath        string
	StateTTL          time.Duration
}

type AdminConfig struct {
	Name     string
	Email    string
	Password string
}

type RateLimitConfig struct {
	Window  time.Duration
	SignIn  int
	SignUp  int
	Contact int
}

type ContactsConfig struct {
	Retention     time.Duration
	PurgeSchedule string
}

type WorkerConfig struct {
	Stream        string
	Group         string
	Consumer      string
	ClaimInterval time.Duration
}

type LoggingConfig struct {
	Level string
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	Google           GoogleConfig
	Auth             AuthConfig
	Admin            AdminConfig
	RateLimit        RateLimitConfig
	Contacts         ContactsConfig
	Worker           WorkerConfig
	Logging          LoggingConfig
	AllowCORSOrigins []string
}

const (
	LinkPolicyAllow  = "allow"
	LinkPolicyReject = "reject"

	minTokenSecretLen = 32
)

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("SITE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
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

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *AppConfig) Validate() error {
	if len(c.Security.TokenSecret) < minTokenSecretLen {
		return fmt.Errorf("security.tokensecret must be at least %d bytes", minTokenSecretLen)
	}
	if c.Security.SessionTTL <= 0 {
		return errors.New("security.sessionttl must be positive")
	}
	if c.Security.RefreshWindow < 0 || c.Security.RefreshWindow >= c.Security.SessionTTL {
		return errors.New("security.refreshwindow must be shorter than security.sessionttl")
	}
	switch c.Security.ProviderLinkPolicy {
	case LinkPolicyAllow, LinkPolicyReject:
	default:
		return fmt.Errorf("security.providerlinkpolicy %q is not one of allow, reject", c.Security.ProviderLinkPolicy)
	}
	if c.Admin.Email != "" && len(c.Admin.Password) < 12 {
		return errors.New("admin.password must be at least 12 characters when admin.email is set")
	}
	return nil
}

func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.dsn", "postgres://localhost:5432/shree_laxmi_finance?sslmode=disable")
	v.SetDefault("postgres.maxopen", 20)
	v.SetDefault("postgres.maxidle", 2)
	v.SetDefault("postgres.connmaxlifetime", "30m")
	v.SetDefault("postgres.automigrate", true)

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.accesskey", "")
	v.SetDefault("storage.secretkey", "")
	v.SetDefault("storage.publicurl", "")
	v.SetDefault("storage.bucketphotos", "site-team-photos")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.maxphotosize", 5<<20)

	// Keys without a meaningful default still need registering so that
	// AutomaticEnv overrides reach Unmarshal.
	v.SetDefault("security.tokensecret", "")
	v.SetDefault("security.cookiedomain", "")
	v.SetDefault("security.tokenissuer", "shree-laxmi-finance")
	v.SetDefault("security.sessionttl", "1h")
	v.SetDefault("security.refreshwindow", "30m")
	v.SetDefault("security.storetimeout", "3s")
	v.SetDefault("security.providerlinkpolicy", LinkPolicyAllow)
	v.SetDefault("security.cookiename", "session_token")
	v.SetDefault("security.cookiesecure", true)

	v.SetDefault("google.clientid", "")
	v.SetDefault("google.clientsecret", "")
	v.SetDefault("google.issuer", "https://accounts.google.com")
	v.SetDefault("google.redirecturl", "http://localhost:8080/api/auth/callback/google")

	v.SetDefault("auth.postloginredirect", "/")
	v.SetDefault("auth.signinpath", "/auth/signin")
	v.SetDefault("auth.statettl", "10m")

	v.SetDefault("admin.name", "Admin User")
	v.SetDefault("admin.email", "")
	v.SetDefault("admin.password", "")

	v.SetDefault("ratelimit.window", "1m")
	v.SetDefault("ratelimit.signin", 10)
	v.SetDefault("ratelimit.signup", 5)
	v.SetDefault("ratelimit.contact", 5)

	v.SetDefault("contacts.retention", "2160h") // 90 days
	v.SetDefault("contacts.purgeschedule", "0 0 3 * * *")

	v.SetDefault("worker.stream", "site:tasks")
	v.SetDefault("worker.group", "site-workers")
	v.SetDefault("worker.consumer", "worker-1")
	v.SetDefault("worker.claiminterval", "30s")

	v.SetDefault("logging.level", "")
	v.SetDefault("allowcorsorigins", []string{})
}
