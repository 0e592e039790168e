package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`
	JWTSecret  string        `mapstructure:"jwt_secret"`

	// DisconnectGrace is how long a closed connection stays listed
	// before the room is told it left.
	DisconnectGrace time.Duration `mapstructure:"disconnect_grace"`

	ChatRateLimit  int           `mapstructure:"chat_rate_limit"`
	ChatRateWindow time.Duration `mapstructure:"chat_rate_window"`

	CompileURL          string `mapstructure:"compile_url"`
	CompileClientID     string `mapstructure:"compile_client_id"`
	CompileClientSecret string `mapstructure:"compile_client_secret"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 262144)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("disconnect_grace", "10s")
	v.SetDefault("chat_rate_limit", 20)
	v.SetDefault("chat_rate_window", "10s")
	v.SetDefault("compile_url", "https://api.jdoodle.com/v1/execute")

	// Execute-service credentials come from the environment, never the
	// config file.
	_ = v.BindEnv("compile_client_id", "JD_CLIENT_ID")
	_ = v.BindEnv("compile_client_secret", "JD_CLIENT_SECRET")
	_ = v.BindEnv("jwt_secret", "JWT_SECRET")
	_ = v.BindEnv("secret", "SESSION_SECRET")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
