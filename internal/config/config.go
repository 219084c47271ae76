// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	PaymentProvider         `yaml:"payment_provider"`
	RateLimit               `yaml:"rate_limit"`
	WorkerPool              `yaml:"worker_pool"`
	RabbitConnection        `yaml:"rabbit_connection"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"30s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"5s"`
}

// JWTToken структура для проверки токенов read-API
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// PaymentProvider структура для настройки клиента платежного провайдера
// и проверки подписи webhook-уведомлений.
type PaymentProvider struct {
	APIKey             string        `yaml:"api_key" env:"PROVIDER_API_KEY"`
	WebhookSecret      string        `yaml:"webhook_secret" env:"PROVIDER_WEBHOOK_SECRET"`
	APIBaseURL         string        `yaml:"api_base_url" env-default:"https://api.stripe.com/v1"`
	RequestTimeout     time.Duration `yaml:"request_timeout" env-default:"10s"`
	SignatureTolerance time.Duration `yaml:"signature_tolerance" env-default:"5m"`
}

// RateLimit параметры окна допуска на webhook-эндпоинте.
type RateLimit struct {
	Requests int           `yaml:"requests" env-default:"100"`
	Window   time.Duration `yaml:"window" env-default:"60s"`
}

// WorkerPool параметры фонового пула сверки.
type WorkerPool struct {
	Workers   int `yaml:"workers" env-default:"4"`
	QueueSize int `yaml:"queue_size" env-default:"64"`
}

// RabbitConnection структура для настройки подключения к rabbitmq
type RabbitConnection struct {
	URL      string `yaml:"url" env:"RABBITMQ_URL"`
	Exchange string `yaml:"exchange" env-default:"billing.alerts"`
}

// MustLoad функция для загрузки конфига, путь берется из CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}
