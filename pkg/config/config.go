package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
	Outbox       OutboxConfig
	Sendgrid     SendgridConfig
	Commission   CommissionConfig
	Orders       OrdersConfig
	Availability AvailabilityConfig
	Cron         CronConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = "sqlite"
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Availability.validate(); err != nil {
		return nil, err
	}
	if _, err := cfg.Commission.Rate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"VOLTLINE_APP_ENV" required:"true"`
	Port         string `envconfig:"VOLTLINE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VOLTLINE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VOLTLINE_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"VOLTLINE_LOG_FORMAT" default:"json"`
	CORSOrigins  string `envconfig:"VOLTLINE_CORS_ALLOWED_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev) || strings.EqualFold(a.Env, "development")
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

// AllowedOrigins splits the comma separated CORS origin list.
func (a AppConfig) AllowedOrigins() []string {
	out := []string{}
	for _, origin := range strings.Split(a.CORSOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

type ServiceConfig struct {
	Kind string `envconfig:"VOLTLINE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"VOLTLINE_DB_DSN"`
	Driver string `envconfig:"VOLTLINE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VOLTLINE_DB_HOST"`
	LegacyPort     int    `envconfig:"VOLTLINE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VOLTLINE_DB_USER"`
	LegacyPassword string `envconfig:"VOLTLINE_DB_PASSWORD"`
	LegacyName     string `envconfig:"VOLTLINE_DB_NAME"`
	LegacySSLMode  string `envconfig:"VOLTLINE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VOLTLINE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VOLTLINE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VOLTLINE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VOLTLINE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VOLTLINE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"VOLTLINE_REDIS_ADDR"`
	Password     string        `envconfig:"VOLTLINE_REDIS_PASSWORD"`
	DB           int           `envconfig:"VOLTLINE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VOLTLINE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VOLTLINE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VOLTLINE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VOLTLINE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VOLTLINE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"VOLTLINE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"VOLTLINE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"VOLTLINE_JWT_EXPIRATION_MINUTES" default:"60"`
}

// RateLimitConfig throttles the public lead form per client IP and per email.
type RateLimitConfig struct {
	LeadWindow     time.Duration `envconfig:"VOLTLINE_RATE_LIMIT_LEAD_WINDOW" default:"1h"`
	LeadIPLimit    int           `envconfig:"VOLTLINE_RATE_LIMIT_LEAD_IP_LIMIT" default:"20"`
	LeadEmailLimit int           `envconfig:"VOLTLINE_RATE_LIMIT_LEAD_EMAIL_LIMIT" default:"5"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"VOLTLINE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"VOLTLINE_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"VOLTLINE_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	HTTPIdempotencyTTL   time.Duration `envconfig:"VOLTLINE_HTTP_IDEMPOTENCY_TTL" default:"24h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"VOLTLINE_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"VOLTLINE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"VOLTLINE_GOOGLE_APPLICATION_CREDENTIALS"`
}

// PubSubConfig names the single domain topic and the subscriptions attached to it.
type PubSubConfig struct {
	DomainTopic              string `envconfig:"VOLTLINE_PUBSUB_DOMAIN_TOPIC" default:"voltline-domain-events"`
	NotificationSubscription string `envconfig:"VOLTLINE_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
	AnalyticsSubscription    string `envconfig:"VOLTLINE_PUBSUB_ANALYTICS_SUBSCRIPTION" required:"true"`
}

type BigQueryConfig struct {
	Dataset           string `envconfig:"VOLTLINE_BIGQUERY_DATASET" default:"voltline"`
	DealerEventsTable string `envconfig:"VOLTLINE_BIGQUERY_DEALER_EVENTS_TABLE" default:"dealer_events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"VOLTLINE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"VOLTLINE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"VOLTLINE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type SendgridConfig struct {
	APIKey                string `envconfig:"VOLTLINE_SENDGRID_API_KEY"`
	DefaultFrom           string `envconfig:"VOLTLINE_SENDGRID_FROM_EMAIL" default:"no-reply@voltline.local"`
	BaseURL               string `envconfig:"VOLTLINE_SENDGRID_BASE_URL" default:"https://api.sendgrid.com"`
	LeadAssignedTemplate  string `envconfig:"VOLTLINE_SENDGRID_LEAD_ASSIGNED_TEMPLATE"`
	PayoutCreatedTemplate string `envconfig:"VOLTLINE_SENDGRID_PAYOUT_CREATED_TEMPLATE"`
	PayoutStatusTemplate  string `envconfig:"VOLTLINE_SENDGRID_PAYOUT_STATUS_TEMPLATE"`
	TestRideTemplate      string `envconfig:"VOLTLINE_SENDGRID_TEST_RIDE_TEMPLATE"`
}

// Enabled reports whether transactional email should go through SendGrid.
func (s SendgridConfig) Enabled() bool {
	return strings.TrimSpace(s.APIKey) != ""
}

type CommissionConfig struct {
	DefaultRate string `envconfig:"VOLTLINE_COMMISSION_DEFAULT_RATE" default:"10.00"`
}

// Rate parses the default commission percentage and checks it lies in [0,100].
func (c CommissionConfig) Rate() (decimal.Decimal, error) {
	raw := strings.TrimSpace(c.DefaultRate)
	if raw == "" {
		return decimal.NewFromInt(10), nil
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing %s: %w", EnvCommissionDefaultRate, err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.Zero, fmt.Errorf("%s must be between 0 and 100", EnvCommissionDefaultRate)
	}
	return rate, nil
}

type OrdersConfig struct {
	TaxRate string `envconfig:"VOLTLINE_ORDERS_TAX_RATE" default:"0"`
}

// Tax parses the order tax percentage; invalid values fall back to zero.
func (o OrdersConfig) Tax() decimal.Decimal {
	rate, err := decimal.NewFromString(strings.TrimSpace(o.TaxRate))
	if err != nil || rate.IsNegative() {
		return decimal.Zero
	}
	return rate
}

type AvailabilityConfig struct {
	DefaultSlotDuration int `envconfig:"VOLTLINE_AVAILABILITY_DEFAULT_SLOT_MINUTES" default:"30"`
	MinSlotDuration     int `envconfig:"VOLTLINE_AVAILABILITY_MIN_SLOT_MINUTES" default:"15"`
	MaxSlotDuration     int `envconfig:"VOLTLINE_AVAILABILITY_MAX_SLOT_MINUTES" default:"120"`
}

func (a AvailabilityConfig) validate() error {
	if a.MinSlotDuration <= 0 || a.MaxSlotDuration < a.MinSlotDuration {
		return fmt.Errorf("availability slot bounds are invalid: min=%d max=%d", a.MinSlotDuration, a.MaxSlotDuration)
	}
	if a.DefaultSlotDuration < a.MinSlotDuration || a.DefaultSlotDuration > a.MaxSlotDuration {
		return fmt.Errorf("default slot duration %d outside [%d,%d]", a.DefaultSlotDuration, a.MinSlotDuration, a.MaxSlotDuration)
	}
	return nil
}

type CronConfig struct {
	NotificationRetention time.Duration `envconfig:"VOLTLINE_CRON_NOTIFICATION_RETENTION" default:"720h"`
	OutboxRetention       time.Duration `envconfig:"VOLTLINE_CRON_OUTBOX_RETENTION" default:"720h"`
	StalePayoutAfter      time.Duration `envconfig:"VOLTLINE_CRON_STALE_PAYOUT_AFTER" default:"168h"`
	Interval              time.Duration `envconfig:"VOLTLINE_CRON_INTERVAL" default:"1h"`
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
