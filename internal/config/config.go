package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Env          string             `yaml:"env" env-default:"development"` // environment
	HTTPServer   HTTPServerConfig   `yaml:"http_server"`
	Database     DatabaseConfig     `yaml:"database"`
	JWT          JWTConfig          `yaml:"jwt"`
	Redis        RedisConfig        `yaml:"redis"`
	Kafka        KafkaConfig        `yaml:"kafka"`
	Verification VerificationConfig `yaml:"verification"`
	Checkout     CheckoutConfig     `yaml:"checkout"`
	Migrations   MigrationsConfig   `yaml:"migrations"`
}

// HTTPServerConfig структура http сервера
type HTTPServerConfig struct {
	Address     string        `yaml:"address" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// DatabaseConfig структура по работе с БД
type DatabaseConfig struct {
	Host     string `yaml:"host" env-default:"localhost"`
	Port     int    `yaml:"port" env-default:"5432"`
	User     string `yaml:"user" env-required:"true"`
	Password string `yaml:"-" env:"DB_PASSWORD" env-required:"true"`
	Name     string `yaml:"name" env-required:"true"`
}

// DSN - строка подключения для lib/pq
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable", c.User, c.Password, c.Host, c.Port, c.Name)
}

// JWTConfig настройка jwt
type JWTConfig struct {
	Secret     string        `yaml:"-" env:"JWT_SECRET" env-required:"true"`
	AccessTTL  time.Duration `yaml:"access_ttl" env-default:"60m"`
	RefreshTTL time.Duration `yaml:"refresh_ttl" env-default:"168h"`
}

// RedisConfig - хранилище кодов подтверждения
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env-default:"0"`
}

// KafkaConfig - брокеры через запятую; пустой список отключает отправку в kafka
type KafkaConfig struct {
	Brokers            string `yaml:"brokers" env:"KAFKA_BROKERS"`
	NotificationsTopic string `yaml:"notifications_topic" env-default:"notifications"`
}

type VerificationConfig struct {
	CodeTTL time.Duration `yaml:"code_ttl" env-default:"10m"`
}

// CheckoutConfig - денежные значения строками, чтобы не терять точность
type CheckoutConfig struct {
	ShippingCost string `yaml:"shipping_cost" env-default:"0"`
	TaxRate      string `yaml:"tax_rate" env-default:"0"`
}

// Amounts разбирает стоимость доставки и ставку налога
func (c CheckoutConfig) Amounts() (shipping, taxRate decimal.Decimal, err error) {
	shipping, err = decimal.NewFromString(c.ShippingCost)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("invalid checkout.shipping_cost %q: %w", c.ShippingCost, err)
	}
	taxRate, err = decimal.NewFromString(c.TaxRate)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("invalid checkout.tax_rate %q: %w", c.TaxRate, err)
	}
	if shipping.IsNegative() || taxRate.IsNegative() {
		return decimal.Zero, decimal.Zero, fmt.Errorf("checkout amounts must not be negative")
	}
	return shipping, taxRate, nil
}

type MigrationsConfig struct {
	Path string `yaml:"path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
}

// MustLoad - если не загружаем - паникуем
func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		log.Fatal("CONFIG_PATH not exists")
	}
	return MustLoadByPath(configPath)
}

func fetchConfigPath() string {
	var path string

	flag.StringVar(&path, "config", "", "path to config file")
	flag.Parse()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	return path
}

func MustLoadByPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file not found: " + configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("can't read config file %s: %v", configPath, err)
	}

	return &cfg
}
