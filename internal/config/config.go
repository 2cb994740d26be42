package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server" json:"server"`
	Database   DatabaseConfig   `mapstructure:"database" json:"database"`
	Generation GenerationConfig `mapstructure:"generation" json:"generation"`
}

type ServerConfig struct {
	Host string `mapstructure:"host" json:"host"`
	Port int    `mapstructure:"port" json:"port"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host" json:"host"`
	Port     int    `mapstructure:"port" json:"port"`
	User     string `mapstructure:"user" json:"user"`
	Password string `mapstructure:"password" json:"password"`
	Database string `mapstructure:"database" json:"database"`
	SSLMode  string `mapstructure:"sslmode" json:"sslmode"`
}

// GenerationConfig selects the text-generation backend and its models.
// ChatModel serves streamed conversation turns (short, low latency);
// AnalysisModel serves the single-shot transcript analysis call.
type GenerationConfig struct {
	Provider      string        `mapstructure:"provider" json:"provider"` // "anthropic" or "openai"
	APIKey        string        `mapstructure:"api_key" json:"api_key"`
	ChatModel     string        `mapstructure:"chat_model" json:"chat_model"`
	AnalysisModel string        `mapstructure:"analysis_model" json:"analysis_model"`
	Timeout       time.Duration `mapstructure:"timeout" json:"timeout"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("json")

	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	homeDir, err := os.UserHomeDir()
	if err == nil {
		viper.AddConfigPath(filepath.Join(homeDir, ".feedbackos"))
	}

	// Set defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "feedbackos")
	viper.SetDefault("database.database", "feedbackos")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("generation.provider", "anthropic")
	viper.SetDefault("generation.chat_model", "claude-haiku-4-5-20251001")
	viper.SetDefault("generation.analysis_model", "claude-sonnet-4-6")
	viper.SetDefault("generation.timeout", 60*time.Second)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// Missing config file is fine; defaults plus env overrides apply.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	loadEnvOverrides(&cfg)

	return &cfg, nil
}

func loadEnvOverrides(cfg *Config) {
	if port := os.Getenv("FEEDBACKOS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if host := os.Getenv("FEEDBACKOS_HOST"); host != "" {
		cfg.Server.Host = host
	}

	// Database overrides
	if dbHost := os.Getenv("POSTGRES_HOST"); dbHost != "" {
		cfg.Database.Host = dbHost
	}
	if dbPort := os.Getenv("POSTGRES_PORT"); dbPort != "" {
		if p, err := strconv.Atoi(dbPort); err == nil {
			cfg.Database.Port = p
		}
	}
	if dbUser := os.Getenv("POSTGRES_USER"); dbUser != "" {
		cfg.Database.User = dbUser
	}
	if dbPass := os.Getenv("POSTGRES_PASSWORD"); dbPass != "" {
		cfg.Database.Password = dbPass
	}
	if dbName := os.Getenv("POSTGRES_DB"); dbName != "" {
		cfg.Database.Database = dbName
	}

	// Generation overrides
	if provider := os.Getenv("FEEDBACKOS_PROVIDER"); provider != "" {
		cfg.Generation.Provider = provider
	}
	switch cfg.Generation.Provider {
	case "openai":
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			cfg.Generation.APIKey = key
		}
	default:
		if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
			cfg.Generation.APIKey = key
		}
	}
	if chatModel := os.Getenv("FEEDBACKOS_CHAT_MODEL"); chatModel != "" {
		cfg.Generation.ChatModel = chatModel
	}
	if analysisModel := os.Getenv("FEEDBACKOS_ANALYSIS_MODEL"); analysisModel != "" {
		cfg.Generation.AnalysisModel = analysisModel
	}
}
