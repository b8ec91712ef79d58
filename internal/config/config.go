package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database      DatabaseConfig      `yaml:"database"`
	RabbitMQ      RabbitMQConfig      `yaml:"rabbitmq"`
	SMTP          SMTPConfig          `yaml:"smtp"`
	Pickup        PickupConfig        `yaml:"pickup"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Admin         AdminConfig         `yaml:"admin"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type RabbitMQConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type PickupConfig struct {
	CutoffHour  int `yaml:"cutoff_hour"`
	HorizonDays int `yaml:"horizon_days"`
}

type NotificationsConfig struct {
	BatchSize    int `yaml:"batch_size"`
	BatchPauseMS int `yaml:"batch_pause_ms"`
}

type AdminConfig struct {
	Token string `yaml:"token"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Pickup.CutoffHour == 0 {
		c.Pickup.CutoffHour = 12
	}
	if c.Pickup.HorizonDays == 0 {
		c.Pickup.HorizonDays = 30
	}
	if c.Notifications.BatchSize == 0 {
		c.Notifications.BatchSize = 5
	}
	if c.Notifications.BatchPauseMS == 0 {
		c.Notifications.BatchPauseMS = 200
	}
}
