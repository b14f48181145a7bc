package config

import (
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type HTTPServer struct {
	Addr            string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"15s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"5s"`
}

type Database struct {
	Host            string        `yaml:"PG_HOST" env:"PG_HOST" env-default:"localhost"`
	Port            string        `yaml:"PG_PORT" env:"PG_PORT" env-default:"5432"`
	User            string        `yaml:"PG_USER" env:"PG_USER" env-required:"true"`
	Password        string        `yaml:"PG_PASSWORD" env:"PG_PASSWORD" env-required:"true"`
	Name            string        `yaml:"PG_DBNAME" env:"PG_DBNAME" env-required:"true"`
	SSLMode         string        `yaml:"PG_SSLMODE" env:"PG_SSLMODE" env-default:"require"`
	MaxOpenConns    int           `yaml:"MAX_OPEN_CONNS" env:"PG_MAX_OPEN_CONNS" env-default:"25"`
	MaxIdleConns    int           `yaml:"MAX_IDLE_CONNS" env:"PG_MAX_IDLE_CONNS" env-default:"25"`
	ConnMaxLifetime time.Duration `yaml:"CONN_MAX_LIFETIME" env:"PG_CONN_MAX_LIFETIME" env-default:"5m"`
	ConnMaxIdleTime time.Duration `yaml:"CONN_MAX_IDLE_TIME" env:"PG_CONN_MAX_IDLE_TIME" env-default:"1m"`
	MigrateOnStart  bool          `yaml:"MIGRATE_ON_START" env:"PG_MIGRATE_ON_START" env-default:"false"`
}

type RedisConnect struct {
	Host     string `yaml:"REDIS_HOST" env:"REDIS_HOST" env-default:"localhost"`
	Port     string `yaml:"REDIS_PORT" env:"REDIS_PORT" env-default:"6379"`
	Username string `yaml:"REDIS_USER" env:"REDIS_USER"`
	Password string `yaml:"REDIS_PASSWORD" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"REDIS_DB" env:"REDIS_DB" env-default:"0"`
}

// Session controls the cookie that scopes a cart and its lifetime in redis.
type Session struct {
	CookieName string        `yaml:"cookie_name" env:"SESSION_COOKIE_NAME" env-default:"storefront_session"`
	TTL        time.Duration `yaml:"ttl" env:"SESSION_TTL" env-default:"120m"`
	Secure     bool          `yaml:"secure" env:"SESSION_SECURE" env-default:"true"`
}

type Checkout struct {
	Currency       string        `yaml:"currency" env:"CHECKOUT_CURRENCY" env-default:"usd"`
	SuccessURL     string        `yaml:"success_url" env:"CHECKOUT_SUCCESS_URL" env-required:"true"`
	CancelURL      string        `yaml:"cancel_url" env:"CHECKOUT_CANCEL_URL" env-required:"true"`
	RecencyWindow  time.Duration `yaml:"recency_window" env:"CHECKOUT_RECENCY_WINDOW" env-default:"10m"`
	GatewayTimeout time.Duration `yaml:"gateway_timeout" env:"CHECKOUT_GATEWAY_TIMEOUT" env-default:"10s"`
	SessionExpiry  time.Duration `yaml:"session_expiry" env:"CHECKOUT_SESSION_EXPIRY" env-default:"1h"`
	ExpireAfter    time.Duration `yaml:"expire_after" env:"CHECKOUT_EXPIRE_AFTER" env-default:"24h"`
	SweepBatchSize int           `yaml:"sweep_batch_size" env:"CHECKOUT_SWEEP_BATCH_SIZE" env-default:"100"`
	// StartWindow and MaxStarts bound how many checkouts one session may open.
	StartWindow time.Duration `yaml:"start_window" env:"CHECKOUT_START_WINDOW" env-default:"10m"`
	MaxStarts   int           `yaml:"max_starts" env:"CHECKOUT_MAX_STARTS" env-default:"5"`
}

type Stripe struct {
	APIKey        string `yaml:"STRIPE_API_KEY" env:"STRIPE_API_KEY" env-default:""`
	WebhookSecret string `yaml:"STRIPE_WEBHOOK_SECRET" env:"STRIPE_WEBHOOK_SECRET" env-default:""`
	BackendURL    string `yaml:"STRIPE_BACKEND_URL" env:"STRIPE_BACKEND_URL" env-default:""`
}

type SendGrid struct {
	APIKey    string `yaml:"API_KEY" env:"SENDGRID_API_KEY" env-default:""`
	FromEmail string `yaml:"FROM_EMAIL" env:"SENDGRID_FROM_EMAIL" env-default:"orders@example.com"`
	FromName  string `yaml:"FROM_NAME" env:"SENDGRID_FROM_NAME" env-default:"Storefront"`
}

type Kafka struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
	Topic   string   `yaml:"topic" env:"KAFKA_ORDERS_TOPIC" env-default:"orders.events"`
}

type Security struct {
	JWTKey string `yaml:"JWT_KEY" env:"JWT_KEY" env-required:"true"`
}

type Tracing struct {
	Enabled      bool    `yaml:"enabled" env:"TRACING_ENABLED" env-default:"false"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT" env-default:"localhost:4318"`
	SampleRate   float64 `yaml:"sample_rate" env:"TRACING_SAMPLE_RATE" env-default:"1.0"`
}

type Config struct {
	Env          string       `yaml:"env" env:"ENV" env-required:"true"`
	LogLevel     string       `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	HTTPServer   HTTPServer   `yaml:"http_server"`
	Database     Database     `yaml:"database"`
	RedisConnect RedisConnect `yaml:"redis"`
	Session      Session      `yaml:"session"`
	Checkout     Checkout     `yaml:"checkout"`
	Stripe       Stripe       `yaml:"stripe"`
	SendGrid     SendGrid     `yaml:"sendgrid"`
	Kafka        Kafka        `yaml:"kafka"`
	Security     Security     `yaml:"security"`
	Tracing      Tracing      `yaml:"tracing"`
}

// Load reads the YAML file at configPath and overlays environment variables.
func Load(configPath string) (*Config, error) {

	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}

	if configPath == "" {
		return nil, fmt.Errorf("config path is not set")
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("can not read config file: %w", err)
	}

	if cfg.Checkout.RecencyWindow <= 0 {
		return nil, fmt.Errorf("checkout.recency_window must be positive")
	}

	return &cfg, nil
}

func MustLoad(configPath string) *Config {

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	return cfg

}

func (d *Database) GetDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, d.Port),
		Path:     d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}

	return u.String()
}

func (r *RedisConnect) GetDSN() string {
	u := url.URL{
		Scheme: "redis",
		Host:   net.JoinHostPort(r.Host, r.Port),
		Path:   fmt.Sprintf("%d", r.DB),
	}

	if r.Username != "" || r.Password != "" {
		u.User = url.UserPassword(r.Username, r.Password)
	}

	return u.String()
}
