package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const minProductionSecretLen = 16

// Driver names for the optional event and archive backends.
const (
	DriverNone     = "none"
	DriverRabbitMQ = "rabbitmq"
	DriverPubSub   = "pubsub"
	DriverMinio    = "minio"
	DriverGCS      = "gcs"
)

type Config struct {
	Env        string `env:"ENV" envDefault:"dev"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	ServerPort int    `env:"SERVER_PORT" envDefault:"8080"`
	BcryptCost int    `env:"BCRYPT_COST" envDefault:"10"`

	Database DatabaseConfig `envPrefix:"DB_"`
	JWT      JWTConfig      `envPrefix:"JWT_"`
	CORS     CORSConfig     `envPrefix:"CORS_"`

	Events   EventsConfig   `envPrefix:"EVENTS_"`
	RabbitMQ RabbitMQConfig `envPrefix:"RABBITMQ_"`
	PubSub   PubSubConfig   `envPrefix:"PUBSUB_"`

	Archive ArchiveConfig `envPrefix:"ARCHIVE_"`
	Minio   MinioConfig   `envPrefix:"MINIO_"`
	GCS     GCSConfig     `envPrefix:"GCS_"`
}

type DatabaseConfig struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     int    `env:"PORT" envDefault:"5432"`
	User     string `env:"USER" envDefault:"resume"`
	Password string `env:"PASSWORD" envDefault:"password"`
	DBName   string `env:"NAME" envDefault:"resume_db"`
	UseSSL   bool   `env:"USE_SSL" envDefault:"false"`
}

// JWTConfig controls access token signing and the cookie that carries it.
type JWTConfig struct {
	Secret       string        `env:"SECRET"`
	TTL          time.Duration `env:"TTL" envDefault:"15m"`
	CookieName   string        `env:"COOKIE_NAME" envDefault:"access_token"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"true"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"https://fron-api.onrender.com,https://fastapi-auth-crud-haf0.onrender.com"`
}

type EventsConfig struct {
	Driver  string `env:"DRIVER" envDefault:"none"`
	Channel string `env:"CHANNEL" envDefault:"resume-events"`
}

type RabbitMQConfig struct {
	URL             string `env:"URL"`
	QueueDurable    bool   `env:"QUEUE_DURABLE" envDefault:"true"`
	QueueAutoDelete bool   `env:"QUEUE_AUTO_DELETE" envDefault:"false"`
}

type PubSubConfig struct {
	ProjectID       string `env:"PROJECT_ID"`
	CredentialsFile string `env:"CREDENTIALS_FILE"`
}

type ArchiveConfig struct {
	Driver string `env:"DRIVER" envDefault:"none"`
}

type MinioConfig struct {
	Endpoint  string `env:"ENDPOINT"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	Bucket    string `env:"BUCKET" envDefault:"resume-revisions"`
	UseSSL    bool   `env:"USE_SSL" envDefault:"false"`
}

type GCSConfig struct {
	ProjectID       string `env:"PROJECT_ID"`
	Bucket          string `env:"BUCKET" envDefault:"resume-revisions"`
	CredentialsFile string `env:"CREDENTIALS_FILE"`
}

// LoadConfig reads configuration from the environment. In dev, or when
// explicit env files are passed, those files are loaded first; variables
// already present in the environment win.
func LoadConfig(envFiles ...string) (Config, error) {
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return Config{}, fmt.Errorf("load env files: %w", err)
		}
	} else if os.Getenv("ENV") == "dev" {
		_ = godotenv.Load()
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.Events.Driver = normalizeDriver(cfg.Events.Driver)
	cfg.Archive.Driver = normalizeDriver(cfg.Archive.Driver)
	cfg.CORS.AllowedOrigins = trimAll(cfg.CORS.AllowedOrigins)
	return cfg, nil
}

// Validate reports configuration that would make the server unusable.
func (c Config) Validate() error {
	var errs []error

	secret := strings.TrimSpace(c.JWT.Secret)
	switch {
	case secret == "":
		errs = append(errs, errors.New("JWT_SECRET is required"))
	case c.IsProduction() && len(secret) < minProductionSecretLen:
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes in production", minProductionSecretLen))
	}
	if c.JWT.TTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}
	if strings.TrimSpace(c.JWT.CookieName) == "" {
		errs = append(errs, errors.New("JWT_COOKIE_NAME is required"))
	}
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid SERVER_PORT %d", c.ServerPort))
	}

	switch c.Events.Driver {
	case DriverNone, DriverRabbitMQ, DriverPubSub:
	default:
		errs = append(errs, fmt.Errorf("unknown EVENTS_DRIVER %q", c.Events.Driver))
	}
	switch c.Archive.Driver {
	case DriverNone, DriverMinio, DriverGCS:
	default:
		errs = append(errs, fmt.Errorf("unknown ARCHIVE_DRIVER %q", c.Archive.Driver))
	}

	return errors.Join(errs...)
}

func (c Config) IsProduction() bool {
	switch strings.ToLower(strings.TrimSpace(c.Env)) {
	case "production", "prod":
		return true
	}
	return false
}

// URL builds the postgres connection string.
func (d DatabaseConfig) URL() string {
	sslmode := "disable"
	if d.UseSSL {
		sslmode = "require"
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		User:   url.UserPassword(d.User, d.Password),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", sslmode)
	u.RawQuery = q.Encode()
	return u.String()
}

func normalizeDriver(raw string) string {
	driver := strings.ToLower(strings.TrimSpace(raw))
	if driver == "" {
		return DriverNone
	}
	return driver
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
