// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"golang.org/x/mod/semver"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	AppVersion              string `yaml:"app_version" env-default:"v1.0.0"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	GRPCAddress             string `yaml:"grpc_address" env-default:":50051"`
	HTTPServer              `yaml:"http_server"`
	RedisConnection         `yaml:"redis_connection"`
	JWTToken                `yaml:"jwttoken"`
	RabbitMQ                `yaml:"rabbitmq"`
	Outbox                  `yaml:"outbox"`
	SMTP                    `yaml:"smtp"`
	RateLimit               `yaml:"rate_limit"`
	Enrollment              `yaml:"enrollment"`
	Tracing                 `yaml:"tracing"`
	BootstrapAdmin          `yaml:"bootstrap_admin"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis  string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	PasswordRedis string        `yaml:"password" env:"REDIS_PASSWORD"`
	UserRedis     string        `yaml:"user"`
	DBRedis       int           `yaml:"db"`
	MaxRetries    int           `yaml:"max_retries"`
	DialTimeout   time.Duration `yaml:"dial_timeout"`
	TimeoutRedis  time.Duration `yaml:"timeoutredis"`
}

// JWTToken структура для работы с jwt-токенами
type JWTToken struct {
	JWTSecretKey    string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env-default:"15m"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env-default:"168h"`
}

// RabbitMQ настройки брокера сообщений
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"3s"`
	Exchange           string        `yaml:"exchange" env-default:"gym.events"`
}

// Outbox настройки ретранслятора событий и обработчика активаций
type Outbox struct {
	RelayInterval time.Duration `yaml:"relay_interval" env-default:"5s"`
	BatchSize     int           `yaml:"batch_size" env-default:"50"`
	MaxAttempts   int           `yaml:"max_attempts" env-default:"5"`
}

// SMTP настройки почтового сервера
type SMTP struct {
	SMTPHost string `yaml:"host" env:"SMTP_HOST"`
	SMTPPort string `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	SMTPUser string `yaml:"user" env:"SMTP_USER"`
	SMTPPass string `yaml:"password" env:"SMTP_PASSWORD"`
}

// RateLimit ограничение частоты запросов на один IP
type RateLimit struct {
	RPS   float64 `yaml:"rps" env-default:"10"`
	Burst int     `yaml:"burst" env-default:"20"`
}

// Enrollment правила записи на занятия
type Enrollment struct {
	RequireActiveMembership bool `yaml:"require_active_membership"`
}

// Tracing настройки экспорта трейсов
type Tracing struct {
	TracingEnabled bool   `yaml:"enabled"`
	OTLPEndpoint   string `yaml:"otlp_endpoint" env-default:"localhost:4318"`
}

// BootstrapAdmin учётная запись администратора, создаваемая при старте
type BootstrapAdmin struct {
	AdminUsername string `yaml:"username" env:"ADMIN_USERNAME"`
	AdminEmail    string `yaml:"email" env:"ADMIN_EMAIL"`
	AdminPassword string `yaml:"password" env:"ADMIN_PASSWORD"`
}

// MustLoad функция для загрузки конфига из файла, путь к которому лежит в CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// Load читает конфиг из файла и проверяет его.
func Load(path string) (*Config, error) {
	const op = "config.Load"
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

// Validate проверяет обязательные поля и корректность значений.
func (c *Config) Validate() error {
	if c.StorageConnectionString == "" {
		return fmt.Errorf("storage_connection_string is required")
	}
	if c.JWTSecretKey == "" {
		return fmt.Errorf("jwttoken.jwt_secret_key is required")
	}
	if !semver.IsValid(c.AppVersion) {
		return fmt.Errorf("app_version %q is not a valid semantic version", c.AppVersion)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("outbox.max_attempts must be positive")
	}
	return nil
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"AppVersion: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"GRPCAddress: %s\n"+
			"Redis: %s (db %d)\n"+
			"RabbitMQ exchange: %s\n"+
			"Outbox: every %s, batch %d, max attempts %d\n"+
			"RequireActiveMembership: %t\n",
		c.Env,
		c.AppVersion,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.GRPCAddress,
		c.AddressRedis,
		c.DBRedis,
		c.Exchange,
		c.RelayInterval,
		c.BatchSize,
		c.MaxAttempts,
		c.RequireActiveMembership,
	)
}
