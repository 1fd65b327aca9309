package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config defines rectifier monitor configuration.
type Config struct {
	HTTP struct {
		Port string `yaml:"port" env:"HTTP_PORT"`
	} `yaml:"http"`
	Database struct {
		DSN string `yaml:"dsn" env:"POSTGRES_DSN"`
	} `yaml:"database"`
	MQTT struct {
		Broker   string `yaml:"broker" env:"MQTT_BROKER"`
		Topic    string `yaml:"topic" env:"MQTT_TOPIC"`
		ClientID string `yaml:"client_id" env:"MQTT_CLIENT_ID"`
		Username string `yaml:"username" env:"MQTT_USERNAME"`
		Password string `yaml:"password" env:"MQTT_PASSWORD"`
		QoS      int    `yaml:"qos" env:"MQTT_QOS"`
	} `yaml:"mqtt"`
	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		TTLSec   int    `yaml:"ttl_sec" env:"REDIS_TTL_SEC"`
	} `yaml:"redis"`
}

// Load reads configuration from optional YAML file and environment.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Port = "8080"
	cfg.MQTT.Broker = "tcp://broker.emqx.io:1883"
	cfg.MQTT.Topic = "rectifier/data"
	cfg.MQTT.ClientID = "rectmon-consumer"
	cfg.MQTT.QoS = 1
	cfg.Redis.TTLSec = 300

	if err := loadInto(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, errors.New("config: database dsn required")
	}
	if strings.TrimSpace(cfg.MQTT.Topic) == "" {
		return nil, errors.New("config: mqtt topic required")
	}
	if cfg.MQTT.QoS < 0 || cfg.MQTT.QoS > 2 {
		return nil, fmt.Errorf("config: invalid mqtt qos %d", cfg.MQTT.QoS)
	}
	return cfg, nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// RedisEnabled reports whether the latest-reading cache is configured.
func (c *Config) RedisEnabled() bool {
	return strings.TrimSpace(c.Redis.Addr) != ""
}

// RedisTTL returns the cache entry lifetime.
func (c *Config) RedisTTL() time.Duration {
	if c.Redis.TTLSec <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Redis.TTLSec) * time.Second
}
