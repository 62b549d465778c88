package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/corray333/backend-labs/shop/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "SHOP"

// MustInit loads .env when present, then config.yaml from /etc/shop-svc or
// the working directory. Every key can be overridden by SHOP_<KEY> with dots
// replaced by underscores.
func MustInit() {
	if err := godotenv.Load("./.env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic("error while loading .env file: " + err.Error())
	}

	SetDefaults()
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/shop-svc")
	viper.AddConfigPath(".")
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			panic("error while reading config file: " + err.Error())
		}
	}
	SetupLogger()
}

// SetDefaults registers the value of every key the service reads.
func SetDefaults() {
	viper.SetDefault("server.http.port", "8080")
	viper.SetDefault("server.http.read_timeout", 10*time.Second)
	viper.SetDefault("server.http.write_timeout", 30*time.Second)
	viper.SetDefault("server.http.cors.allowed_origins", []string{"*"})
	viper.SetDefault("server.http.cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	viper.SetDefault("server.http.cors.allowed_headers", []string{"Accept", "Content-Type", "X-Request-Id"})
	viper.SetDefault("server.http.cors.max_age", 300)
	viper.SetDefault("server.grpc.enabled", true)
	viper.SetDefault("server.grpc.port", "9090")

	viper.SetDefault("storage.driver", "memory")
	viper.SetDefault("postgres.max_conns", 10)
	viper.SetDefault("postgres.migrations_path", "migrations")

	viper.SetDefault("rabbitmq.enabled", false)
	viper.SetDefault("rabbitmq.host", "rabbitmq")
	viper.SetDefault("rabbitmq.port", 5672)
	viper.SetDefault("rabbitmq.exchange", "shop.orders")
	viper.SetDefault("rabbitmq.queue", "shop.orders.audit")
	viper.SetDefault("rabbitmq.outbox.poll_interval_seconds", 10)
	viper.SetDefault("rabbitmq.outbox.batch_size", 100)
	viper.SetDefault("rabbitmq.outbox.max_retries", 5)
	viper.SetDefault("rabbitmq.outbox.concurrency", 8)

	viper.SetDefault("cache.ttl.default", 5*time.Minute)
	viper.SetDefault("cache.ttl.tracking", 15*time.Minute)
	viper.SetDefault("cache.ttl.recommendations", time.Hour)
	viper.SetDefault("cache.sweep_interval", 10*time.Minute)

	viper.SetDefault("providers.shipping.latency", 100*time.Millisecond)
	viper.SetDefault("providers.shipping.failure_rate", 0.05)
	viper.SetDefault("providers.shipping.timeout", 5*time.Second)
	viper.SetDefault("providers.recommendation.latency", 200*time.Millisecond)
	viper.SetDefault("providers.recommendation.failure_rate", 0.05)
	viper.SetDefault("providers.recommendation.timeout", 5*time.Second)

	viper.SetDefault("catalog.currency", "USD")

	viper.SetDefault("graphql.batch_wait", 2*time.Millisecond)

	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.service_name", "shop-svc")
	viper.SetDefault("tracing.jaeger_endpoint", "http://jaeger:14268/api/traces")

	viper.SetDefault("logger.level", "info")
}

func SetupLogger() {
	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString("logger.level"))); err != nil {
		level = slog.LevelInfo
	}

	handler := logger.NewHandler(&slog.HandlerOptions{Level: level})
	log := slog.New(handler)
	slog.SetDefault(log)
}
