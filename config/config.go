package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Storage   StorageConfig   `yaml:"storage"`
	PickupBox PickupBoxConfig `yaml:"pickupbox"`
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
	NewDatesTopicName      string `yaml:"new_dates_topic_name"`
	NotificationsTopicName string `yaml:"notifications_topic_name"`
	SettingsTopicName      string `yaml:"settings_topic_name"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type StorageConfig struct {
	Driver         string `yaml:"driver"` // "postgres" | "redis" | "sqlite" | "memory"
	SQLitePath     string `yaml:"sqlite_path"`
	RedisKeyPrefix string `yaml:"redis_key_prefix"`
}

type PickupBoxConfig struct {
	HTTPAddr           string `yaml:"http_addr"`
	KafkaConsumerGroup string `yaml:"kafka_consumer_group"`

	APIBaseURL string `yaml:"api_base_url"`

	// Timezone is used for the 06:00 pickup cutoff and the poll schedule.
	Timezone string `yaml:"timezone"`
	Language string `yaml:"language"` // "sv" | "en"

	PollSchedule       string `yaml:"poll_schedule"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`

	LogLevel string `yaml:"log_level"`
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
