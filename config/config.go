package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"storefront/internal/service"
	"storefront/pkg/database"

	"go.uber.org/zap"
)

type Config struct {
	Port  string
	DB    DB
	Redis Redis
	JWT   JWT
	Kafka Kafka

	// Значения по умолчанию для site_settings, если в таблице ключа нет.
	FreeShippingThreshold string
	FlatShippingFee       string
	Steadfast             Steadfast
}

type DB struct {
	database.Config
}

type Redis struct {
	Addr        string
	Password    string
	DB          int
	CartTTL     time.Duration
	SettingsTTL time.Duration
}

type JWT struct {
	Secret string
	Issuer string
}

type Kafka struct {
	Enabled bool
	Brokers []string
	Topic   string
}

type Steadfast struct {
	BaseURL   string
	APIKey    string
	SecretKey string
	Timeout   time.Duration
}

func Load(log *zap.Logger) *Config {
	c := &Config{
		Port: getEnv("APP_PORT", log),
		DB:   *LoadDB(log),
		Redis: Redis{
			Addr:        getEnv("REDIS_ADDR", log),
			Password:    os.Getenv("REDIS_PASSWORD"),
			DB:          atoiDefault(os.Getenv("REDIS_DB"), 0),
			CartTTL:     durationDefault(os.Getenv("CART_TTL"), 30*24*time.Hour),
			SettingsTTL: durationDefault(os.Getenv("SETTINGS_CACHE_TTL"), time.Minute),
		},
		JWT: JWT{
			Secret: getEnv("JWT_SECRET", log),
			Issuer: getEnvDefault("JWT_ISSUER", "storefront"),
		},
		Kafka: Kafka{
			Enabled: os.Getenv("KAFKA_ENABLED") == "true",
			Brokers: splitAndTrim(os.Getenv("KAFKA_BROKERS")),
			Topic:   getEnvDefault("KAFKA_TOPIC_ORDERS", "orders.events"),
		},
		FreeShippingThreshold: os.Getenv("FREE_SHIPPING_THRESHOLD"),
		FlatShippingFee:       os.Getenv("FLAT_SHIPPING_FEE"),
		Steadfast: Steadfast{
			BaseURL:   os.Getenv("STEADFAST_BASE_URL"),
			APIKey:    os.Getenv("STEADFAST_API_KEY"),
			SecretKey: os.Getenv("STEADFAST_SECRET_KEY"),
			Timeout:   durationDefault(os.Getenv("COURIER_TIMEOUT"), 15*time.Second),
		},
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		log.Error("KAFKA_ENABLED=true, но KAFKA_BROKERS пуст")
		panic("missing required environment variable: KAFKA_BROKERS")
	}
	return c
}

// LoadDB reads only the database keys; cmd/migrate needs nothing else.
func LoadDB(log *zap.Logger) *DB {
	return &DB{
		Config: database.Config{
			Host:     getEnv("DB_HOST", log),
			Port:     getEnv("DB_PORT", log),
			User:     getEnv("DB_USER", log),
			Password: getEnv("DB_PASSWORD", log),
			Name:     getEnv("DB_NAME", log),
			SSLMode:  getEnv("DB_SSLMODE", log),
		},
	}
}

// SeedSettings are the rows written to site_settings on migration when absent.
func SeedSettings() map[string]string {
	return map[string]string{
		service.SettingFreeShippingThreshold: getEnvDefault("FREE_SHIPPING_THRESHOLD", service.DefaultFreeShippingThreshold.String()),
		service.SettingFlatShippingFee:       getEnvDefault("FLAT_SHIPPING_FEE", service.DefaultFlatShippingFee.String()),
		service.SettingMaxLineQuantity:       strconv.Itoa(int(service.DefaultMaxLineQuantity)),
		service.SettingSteadfastBaseURL:      getEnvDefault("STEADFAST_BASE_URL", "https://portal.packzy.com/api/v1"),
	}
}

// SettingDefaults maps env values onto site setting keys. Blank values are dropped by
// the settings service.
func (c *Config) SettingDefaults() map[string]string {
	return map[string]string{
		service.SettingFreeShippingThreshold: c.FreeShippingThreshold,
		service.SettingFlatShippingFee:       c.FlatShippingFee,
		service.SettingSteadfastBaseURL:      c.Steadfast.BaseURL,
		service.SettingSteadfastAPIKey:       c.Steadfast.APIKey,
		service.SettingSteadfastSecretKey:    c.Steadfast.SecretKey,
	}
}

// Notifier is the configuration of cmd/notifier.
type Notifier struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
	SMTPSSL      bool

	TMPLDir string

	KafkaBrokers []string
	KafkaGroupID string
	KafkaTopic   string
}

func LoadNotifier(log *zap.Logger) *Notifier {
	return &Notifier{
		SMTPHost:     getEnv("SMTP_HOST", log),
		SMTPPort:     getEnvInt("SMTP_PORT", log),
		SMTPUser:     getEnv("SMTP_USER", log),
		SMTPPassword: getEnv("SMTP_PASSWORD", log),
		SMTPFrom:     getEnv("SMTP_FROM", log),
		SMTPSSL:      getEnvDefault("SMTP_SSL", "true") == "true",
		TMPLDir:      getEnvDefault("TMPL_DIR", "templates"),
		KafkaBrokers: splitAndTrim(os.Getenv("KAFKA_BROKERS")),
		KafkaGroupID: getEnvDefault("KAFKA_GROUP_ID", "storefront-notifier"),
		KafkaTopic:   getEnvDefault("KAFKA_TOPIC_ORDERS", "orders.events"),
	}
}

func getEnv(key string, log *zap.Logger) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	log.Error("Обязательная переменная окружения не установлена", zap.String("key", key))
	panic("missing required environment variable: " + key)
}

func getEnvDefault(key, def string) string {
	if val, ok := os.LookupEnv(key); ok && strings.TrimSpace(val) != "" {
		return val
	}
	return def
}

func getEnvInt(key string, log *zap.Logger) int {
	valStr := getEnv(key, log)
	val, err := strconv.Atoi(valStr)
	if err != nil {
		log.Error("Ошибка преобразования переменной окружения в int", zap.String("key", key), zap.Error(err))
		panic("invalid int value for environment variable: " + key)
	}
	return val
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}

func durationDefault(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := []string{}
	for _, p := range strings.Split(s, ",") {
		pt := strings.TrimSpace(p)
		if pt != "" {
			parts = append(parts, pt)
		}
	}
	return parts
}
