package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"psp.com/mock-exam/backend/internal/exam"
)

var ErrNoExams = errors.New("no exams configured")

// Config holds application configuration loaded from files and environment variables.
type Config struct {
	Env      string        `mapstructure:"env"`    // local, dev, production
	Server   Server        `mapstructure:"server"` // HTTP listener
	Database Database      `mapstructure:"database"`
	Exams    []exam.Config `mapstructure:"exams"`
}

// Server contains HTTP listener settings.
type Server struct {
	Port           string   `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	TLSCert        string   `mapstructure:"tls_cert"`
	TLSKey         string   `mapstructure:"tls_key"`
	RateLimit      int      `mapstructure:"rate_limit"`  // requests per minute per client
	MaxCount       int      `mapstructure:"max_count"`   // upper bound on questions per paper
	TrustProxy     bool     `mapstructure:"trust_proxy"` // honour X-Forwarded-For
}

// Database selects an optional SQL source for question banks.
type Database struct {
	Driver string `mapstructure:"driver"` // sqlite|postgres, empty disables
	DSN    string `mapstructure:"dsn"`
}

// Load reads configuration from ./config/config.yaml (optional) and the environment.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	return load(v)
}

// LoadFile reads configuration from an explicit file path.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.SetDefault("env", "local")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173", "https://localhost:5173"})
	v.SetDefault("server.rate_limit", 60)
	v.SetDefault("server.max_count", 50)
	v.SetDefault("server.trust_proxy", false)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("env", "APP_ENV")
	_ = v.BindEnv("server.port", "PORT")
	_ = v.BindEnv("server.allowed_origins", "ALLOWED_ORIGINS")
	_ = v.BindEnv("server.tls_cert", "TLS_CERT")
	_ = v.BindEnv("server.tls_key", "TLS_KEY")
	_ = v.BindEnv("server.trust_proxy", "TRUST_PROXY")
	_ = v.BindEnv("database.driver", "DB_DRIVER")
	_ = v.BindEnv("database.dsn", "DB_DSN")

	if err := v.ReadInConfig(); err != nil {
		var fileLookupErr viper.ConfigFileNotFoundError
		if !errors.As(err, &fileLookupErr) {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	// ALLOWED_ORIGINS arrives as one comma separated string
	if len(cfg.Server.AllowedOrigins) == 1 && strings.Contains(cfg.Server.AllowedOrigins[0], ",") {
		cfg.Server.AllowedOrigins = strings.Split(cfg.Server.AllowedOrigins[0], ",")
	}
	for i, o := range cfg.Server.AllowedOrigins {
		cfg.Server.AllowedOrigins[i] = strings.TrimSpace(o)
	}

	if len(cfg.Exams) == 0 {
		return nil, ErrNoExams
	}
	return &cfg, nil
}
