package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Postmon  PostmonConfig  `yaml:"postmon"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type KafkaConfig struct {
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port"`
	ParcelUpdatedTopicName string `yaml:"parcel_updated_topic_name"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type PostmonConfig struct {
	HTTPAddr           string `yaml:"http_addr"`
	KafkaConsumerGroup string `yaml:"kafka_consumer_group"`

	// Freshness windows. Not-found records are retried quickly; valid
	// addresses live half a year. Dev configs shrink these.
	NotFoundTTLSeconds int `yaml:"not_found_ttl_seconds"`
	FoundTTLSeconds    int `yaml:"found_ttl_seconds"`

	// Redis front cache for fresh address hits.
	AddressCacheTTLSeconds int `yaml:"address_cache_ttl_seconds"`

	// CEP providers in priority order ("viacep", "republicavirtual",
	// "correiosweb"); later entries are last resort.
	Providers              []string `yaml:"providers"`
	ProviderTimeoutSeconds int      `yaml:"provider_timeout_seconds"`

	ViaCEPBaseURL           string `yaml:"viacep_base_url"`
	RepublicaVirtualBaseURL string `yaml:"republicavirtual_base_url"`
	CorreiosWebBaseURL      string `yaml:"correiosweb_base_url"`
	CorreiosTrackerBaseURL  string `yaml:"correios_tracker_base_url"`
	CorreiosTrackerMode     string `yaml:"correios_tracker_mode"` // "sro" | "fake"

	WorkerHTTPAddr            string `yaml:"worker_http_addr"`
	WorkerPollIntervalSeconds int    `yaml:"worker_poll_interval_seconds"`
	WorkerBatchSize           int    `yaml:"worker_batch_size"`
	WorkerConcurrency         int    `yaml:"worker_concurrency"`
	WorkerLeaseSeconds        int    `yaml:"worker_lease_seconds"`
	WorkerRateLimitPerMinute  int    `yaml:"worker_rate_limit_per_minute"`

	// Worker scheduling. Delivered parcels back off to a long delay;
	// failed polls climb the backoff ladder.
	WorkerNextCheckSeconds int `yaml:"worker_next_check_seconds"`
	WorkerBackoff1Seconds  int `yaml:"worker_backoff_1_seconds"`
	WorkerBackoff2Seconds  int `yaml:"worker_backoff_2_seconds"`
	WorkerBackoff3Seconds  int `yaml:"worker_backoff_3_seconds"`
	WorkerBackoff4Seconds  int `yaml:"worker_backoff_4_seconds"`

	WebhookTimeoutSeconds int `yaml:"webhook_timeout_seconds"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}

// ConnString builds the Postgres DSN, defaulting sslmode to disable.
func (c *Config) ConnString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.Username, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.DBName, sslMode)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func (c *Config) KafkaBrokers() []string {
	return []string{fmt.Sprintf("%s:%d", c.Kafka.Host, c.Kafka.Port)}
}
