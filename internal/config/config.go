package config

import (
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig
	Mongo  MongoConfig
	Redis  RedisConfig
	NATS   NATSConfig
}

type ServerConfig struct {
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string
}

type MongoConfig struct {
	// URI empty means no persistent store is configured; the app
	// falls back to the in-memory repositories.
	URI            string
	Database       string
	TimeoutSeconds int
}

type RedisConfig struct {
	// Address empty disables the podium cache mirror.
	Address  string
	Password string
	DB       int
}

type NATSConfig struct {
	// URL empty disables event publishing.
	URL                  string
	MaxReconnect         int
	ReconnectWaitSeconds int
	TimeoutSeconds       int
}

func Load(configPath string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")
	if configPath != "" {
		viper.AddConfigPath(configPath)
	}

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvPrefix("RANKRUNNER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// A missing config file is fine; env-only deployments are supported.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.environment", "development")
	viper.SetDefault("server.loglevel", "info")
	viper.SetDefault("server.logformat", "json")

	viper.SetDefault("mongo.uri", "")
	viper.SetDefault("mongo.database", "rankrunner")
	viper.SetDefault("mongo.timeoutseconds", 10)

	viper.SetDefault("redis.address", "")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("nats.url", "")
	viper.SetDefault("nats.maxreconnect", 5)
	viper.SetDefault("nats.reconnectwaitseconds", 2)
	viper.SetDefault("nats.timeoutseconds", 5)
}
