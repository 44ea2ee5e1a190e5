package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	Billing      BillingConfig
	Mpesa        MpesaConfig
	Card         CardConfig
	SMTP         SMTPConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"VIRTUCLOUD_APP_ENV" required:"true"`
	Port         string `envconfig:"VIRTUCLOUD_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VIRTUCLOUD_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VIRTUCLOUD_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"VIRTUCLOUD_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"VIRTUCLOUD_DB_DSN"`
	Driver string `envconfig:"VIRTUCLOUD_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VIRTUCLOUD_DB_HOST"`
	LegacyPort     int    `envconfig:"VIRTUCLOUD_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VIRTUCLOUD_DB_USER"`
	LegacyPassword string `envconfig:"VIRTUCLOUD_DB_PASSWORD"`
	LegacyName     string `envconfig:"VIRTUCLOUD_DB_NAME"`
	LegacySSLMode  string `envconfig:"VIRTUCLOUD_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VIRTUCLOUD_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VIRTUCLOUD_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VIRTUCLOUD_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VIRTUCLOUD_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VIRTUCLOUD_REDIS_URL" required:"true"`
	Address      string        `envconfig:"VIRTUCLOUD_REDIS_ADDR"`
	Password     string        `envconfig:"VIRTUCLOUD_REDIS_PASSWORD"`
	DB           int           `envconfig:"VIRTUCLOUD_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VIRTUCLOUD_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VIRTUCLOUD_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VIRTUCLOUD_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VIRTUCLOUD_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VIRTUCLOUD_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"VIRTUCLOUD_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"VIRTUCLOUD_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"VIRTUCLOUD_JWT_EXPIRATION_MINUTES" required:"true"`
}

// AccessTokenTTL returns the access token TTL configured in minutes.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"VIRTUCLOUD_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"VIRTUCLOUD_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"VIRTUCLOUD_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"VIRTUCLOUD_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"VIRTUCLOUD_ARGON_KEY_LEN" default:"32"`
}

type BillingConfig struct {
	// ActivateOnInitiation grants the subscription as soon as a payment is
	// recorded instead of waiting for provider confirmation.
	ActivateOnInitiation bool `envconfig:"VIRTUCLOUD_BILLING_ACTIVATE_ON_INITIATION" default:"true"`
	SubscriptionMonths   int  `envconfig:"VIRTUCLOUD_BILLING_SUBSCRIPTION_MONTHS" default:"1"`
}

type MpesaConfig struct {
	BaseURL        string        `envconfig:"VIRTUCLOUD_MPESA_BASE_URL" default:"https://sandbox.safaricom.co.ke"`
	ConsumerKey    string        `envconfig:"VIRTUCLOUD_MPESA_CONSUMER_KEY"`
	ConsumerSecret string        `envconfig:"VIRTUCLOUD_MPESA_CONSUMER_SECRET"`
	ShortCode      string        `envconfig:"VIRTUCLOUD_MPESA_SHORT_CODE"`
	Passkey        string        `envconfig:"VIRTUCLOUD_MPESA_PASSKEY"`
	CallbackURL    string        `envconfig:"VIRTUCLOUD_MPESA_CALLBACK_URL"`
	Timeout        time.Duration `envconfig:"VIRTUCLOUD_MPESA_TIMEOUT" default:"30s"`
}

// Configured reports whether the Daraja credentials are present.
func (m MpesaConfig) Configured() bool {
	return m.ConsumerKey != "" && m.ConsumerSecret != "" && m.ShortCode != "" && m.Passkey != ""
}

type CardConfig struct {
	AccessToken string `envconfig:"VIRTUCLOUD_CARD_ACCESS_TOKEN"`
	Env         string `envconfig:"VIRTUCLOUD_CARD_ENV" default:"sandbox"`
	LocationID  string `envconfig:"VIRTUCLOUD_CARD_LOCATION_ID"`
}

// Environment returns the normalized card gateway environment (sandbox/production).
func (c CardConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(c.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type SMTPConfig struct {
	Host     string `envconfig:"VIRTUCLOUD_SMTP_HOST"`
	Port     int    `envconfig:"VIRTUCLOUD_SMTP_PORT" default:"587"`
	Username string `envconfig:"VIRTUCLOUD_SMTP_USERNAME"`
	Password string `envconfig:"VIRTUCLOUD_SMTP_PASSWORD"`
	From     string `envconfig:"VIRTUCLOUD_SMTP_FROM"`
}

// Configured reports whether outbound mail can be sent.
func (s SMTPConfig) Configured() bool {
	return s.Host != "" && s.From != ""
}

type CronConfig struct {
	ExpirySweepInterval time.Duration `envconfig:"VIRTUCLOUD_CRON_EXPIRY_SWEEP_INTERVAL" default:"24h"`
	LockTTL             time.Duration `envconfig:"VIRTUCLOUD_CRON_LOCK_TTL" default:"10m"`
	SweepBatchSize      int           `envconfig:"VIRTUCLOUD_CRON_SWEEP_BATCH_SIZE" default:"500"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"VIRTUCLOUD_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"VIRTUCLOUD_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
