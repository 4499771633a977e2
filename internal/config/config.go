package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"orderdesk/internal/entity"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
)

type (
	Config struct {
		App      App      `env-prefix:"APP_"`
		Logger   Logger   `env-prefix:"LOGGER_"`
		Postgres Postgres `env-prefix:"DB_"`
		HTTP     HTTP     `env-prefix:"HTTP_"`
		CORS     CORS     `env-prefix:"CORS_"`
		Auth     Auth     `env-prefix:"AUTH_"`
		Cache    Cache    `env-prefix:"CACHE_"`
		Kafka    Kafka    `env-prefix:"KAFKA_"`
		DLQ      DLQ      `env-prefix:"DLQ_"`
		Metrics  Metrics  `env-prefix:"METRICS_"`
		Export   Export   `env-prefix:"EXPORT_"`
		Env      string   `                      env:"ENV" env-default:"local" validate:"oneof=local dev staging prod"`
	}

	App struct {
		Port    int    `env:"PORT"    validate:"gte=1,lte=65535" env-default:"8080"`
		Name    string `env:"NAME"    validate:"required"`
		Version string `env:"VERSION" validate:"required"`
	}

	Postgres struct {
		Host           string        `env:"HOST"             validate:"required"`
		Port           string        `env:"PORT"             validate:"required,gte=1,lte=65535"`
		Name           string        `env:"NAME"             validate:"required"`
		User           string        `env:"USER"             validate:"required"`
		Password       string        `env:"PASSWORD"         validate:"required"`
		SSLMode        string        `env:"SSL_MODE"         validate:"required"`
		PoolMax        int32         `env:"POOL_MAX"         validate:"min=1,max=100"                             env-default:"20"`
		ConnAttempts   int           `env:"CONN_ATTEMPTS"    validate:"min=1,max=10"                              env-default:"5"`
		BaseRetryDelay time.Duration `env:"BASE_RETRY_DELAY" validate:"gte=10ms,lte=10s"                          env-default:"100ms"`
		MaxRetryDelay  time.Duration `env:"MAX_RETRY_DELAY"  validate:"gte=100ms,lte=30s,gtefield=BaseRetryDelay" env-default:"5s"`
		AutoMigrate    bool          `env:"AUTO_MIGRATE"                                                          env-default:"true"`
		Tx             Tx            `env-prefix:"TX_"`
	}

	// Tx tunes transaction retries. A single attempt disables them.
	Tx struct {
		MaxAttempts    int           `env:"MAX_ATTEMPTS"     validate:"min=1,max=10"                              env-default:"1"`
		BaseRetryDelay time.Duration `env:"BASE_RETRY_DELAY" validate:"gte=1ms,lte=1s"                            env-default:"10ms"`
		MaxRetryDelay  time.Duration `env:"MAX_RETRY_DELAY"  validate:"gte=1ms,lte=5s,gtefield=BaseRetryDelay"    env-default:"100ms"`
		Isolation      string        `env:"ISOLATION"        validate:"oneof=read_committed repeatable_read serializable" env-default:"read_committed"`
	}

	HTTP struct {
		Host              string        `env:"HOST"                validate:"required"                 env-default:"0.0.0.0"`
		Port              string        `env:"PORT"                validate:"required,gte=1,lte=65535" env-default:"8080"`
		ReadTimeout       time.Duration `env:"READ_TIMEOUT"        validate:"gte=10ms,lte=30s"         env-default:"5s"`
		WriteTimeout      time.Duration `env:"WRITE_TIMEOUT"       validate:"gte=10ms,lte=30s"         env-default:"5s"`
		IdleTimeout       time.Duration `env:"IDLE_TIMEOUT"        validate:"gte=10ms,lte=30s"         env-default:"60s"`
		ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT"    validate:"gte=10ms,lte=30s"         env-default:"10s"`
		ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" validate:"gte=10ms,lte=30s"         env-default:"5s"`
		RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT"     validate:"gte=10ms,lte=30s"         env-default:"3s"`
	}

	CORS struct {
		AllowOrigins []string      `env:"ALLOW_ORIGINS" validate:"min=1"           env-separator:"," env-default:"http://localhost:3000"`
		MaxAge       time.Duration `env:"MAX_AGE"       validate:"gte=0s,lte=24h"                    env-default:"12h"`
	}

	Auth struct {
		AccessKey  string        `env:"ACCESS_KEY"  validate:"required,min=8"`
		SessionTTL time.Duration `env:"SESSION_TTL" validate:"gt=0s,lte=720h" env-default:"12h"`
	}

	Cache struct {
		Capacity        int           `env:"CAPACITY"         validate:"required,min=1,max=1000000"`
		TTL             time.Duration `env:"TTL"              validate:"required,gt=0s,lte=24h"     env-default:"5m"`
		CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" validate:"gt=0s,lte=24h"              env-default:"10s"`
	}

	Kafka struct {
		Enabled bool     `env:"ENABLED"                                      env-default:"true"`
		GroupID string   `env:"GROUP_ID" validate:"required"`
		Brokers []string `env:"BROKERS"  validate:"min=1,dive,hostname_port" env-separator:","`
		Topic   string   `env:"TOPIC"    validate:"required"`
	}

	DLQ struct {
		GroupID       string        `env:"GROUP_ID"        validate:"required"`
		Brokers       []string      `env:"BROKERS"         validate:"min=1,dive,hostname_port" env-separator:","`
		Topic         string        `env:"TOPIC"           validate:"required"`
		BatchSize     int           `env:"BATCH_SIZE"      validate:"required,min=1,max=1000"                    env-default:"100"`
		BatchTimeout  time.Duration `env:"BATCH_TIMEOUT"   validate:"required,gte=1ms,lte=30s"                   env-default:"1s"`
		WriteTimeout  time.Duration `env:"WRITE_TIMEOUT"   validate:"required,gte=1ms,lte=30s"                   env-default:"2s"`
		ReadTimeout   time.Duration `env:"READ_TIMEOUT"    validate:"required,gte=1ms,lte=30s"                   env-default:"2s"`
		MaxRetryCount int           `env:"MAX_RETRY_COUNT" validate:"min=1,max=20"                               env-default:"5"`
		RetryDelay    time.Duration `env:"RETRY_DELAY"     validate:"gte=10ms,lte=30s"                           env-default:"100ms"`
		MaxRetryDelay time.Duration `env:"MAX_RETRY_DELAY" validate:"gte=10ms,lte=1m,gtefield=RetryDelay"        env-default:"5s"`
		PollInterval  time.Duration `env:"POLL_INTERVAL"   validate:"gte=100ms,lte=1h"                           env-default:"30s"`
	}

	Metrics struct {
		Host              string        `env:"HOST"                validate:"required"                 env-default:"0.0.0.0"`
		Port              string        `env:"PORT"                validate:"required,gte=1,lte=65535" env-default:"9090"`
		ReadTimeout       time.Duration `env:"READ_TIMEOUT"        validate:"gte=10ms,lte=30s"         env-default:"5s"`
		WriteTimeout      time.Duration `env:"WRITE_TIMEOUT"       validate:"gte=10ms,lte=30s"         env-default:"5s"`
		ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" validate:"gte=10ms,lte=30s"         env-default:"5s"`
	}

	Export struct {
		Timezone string `env:"TIMEZONE" validate:"required,timezone" env-default:"Asia/Kolkata"`
	}

	Logger struct {
		Level      string `env:"LEVEL"       env-default:"info"                validate:"oneof=debug info warn error"`
		Filename   string `env:"FILENAME"    env-default:"./logs/orderdesk.log"`
		MaxSize    int    `env:"MAX_SIZE"    env-default:"100"                 validate:"min=1,max=1000"`
		MaxBackups int    `env:"MAX_BACKUPS" env-default:"3"                   validate:"min=0,max=20"`
		MaxAge     int    `env:"MAX_AGE"     env-default:"28"                  validate:"min=1,max=365"`
	}
)

// Load reads the file named by -config or CONFIG_PATH, overlays the
// environment and validates the result.
func Load() (*Config, error) {
	path := configPath(os.Args[1:])
	if path == "" {
		return nil, entity.ErrConfigPathNotSet
	}
	return LoadPath(path)
}

func LoadPath(path string) (*Config, error) {
	const op = "config.LoadPath"

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%s: config file does not exist: %s", op, path)
	case err != nil:
		return nil, fmt.Errorf("%s: checking config file: %w", op, err)
	case info.IsDir():
		return nil, fmt.Errorf("%s: config path is a directory: %s", op, path)
	}

	var cfg Config
	if err = cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("%s: read config: %w", op, err)
	}

	if err = cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: config validation: %w", op, err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	err := validator.New(validator.WithRequiredStructEnabled()).Struct(c)

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, fmt.Sprintf("%s=%v must satisfy '%s'", fieldPath(fe.Namespace()), fe.Value(), fe.Tag()))
	}
	return errors.New(strings.Join(problems, "; "))
}

// fieldPath drops the root type name, "Config.Postgres.Tx.MaxAttempts"
// becomes "Postgres.Tx.MaxAttempts".
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

// configPath reads -config without touching the global flag set, so the
// binary's own flags stay free.
func configPath(args []string) string {
	flags := flag.NewFlagSet("config", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	path := flags.String("config", "", "path to config file")
	_ = flags.Parse(args)

	if *path != "" {
		return *path
	}
	return os.Getenv("CONFIG_PATH")
}
