package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Lobby     LobbyConfig     `mapstructure:"lobby"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	HTTPAddress string `mapstructure:"http_address"`
	RPCAddress  string `mapstructure:"rpc_address"`
	WSPath      string `mapstructure:"ws_path"`
}

type AuthConfig struct {
	JWTSecret     string `mapstructure:"jwt_secret"`
	IdentityClaim string `mapstructure:"identity_claim"`
}

type WebSocketConfig struct {
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	ReadLimit      int64         `mapstructure:"read_limit"`
	SendBuffer     int           `mapstructure:"send_buffer"`
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
}

type LobbyConfig struct {
	EventBuffer int `mapstructure:"event_buffer"`
}

type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_address", ":8080")
	v.SetDefault("server.rpc_address", ":8081")
	v.SetDefault("server.ws_path", "/ws")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.identity_claim", "id")

	v.SetDefault("websocket.allowed_origins", []string{})
	v.SetDefault("websocket.read_limit", 4096)
	v.SetDefault("websocket.send_buffer", 64)
	v.SetDefault("websocket.ping_interval", 54*time.Second)
	v.SetDefault("websocket.pong_wait", 60*time.Second)
	v.SetDefault("websocket.write_wait", 10*time.Second)

	v.SetDefault("lobby.event_buffer", 256)

	v.SetDefault("metrics.namespace", "connectfour")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// LoadConfig reads config.yaml from path (optional), a .env file from the
// same directory (optional) and environment overrides such as
// AUTH_JWT_SECRET or SERVER_HTTP_ADDRESS.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(path, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Auth.JWTSecret == "":
		return errors.New("config: auth.jwt_secret is required")
	case c.Auth.IdentityClaim == "":
		return errors.New("config: auth.identity_claim must not be empty")
	case c.Server.HTTPAddress == "":
		return errors.New("config: server.http_address must not be empty")
	case !strings.HasPrefix(c.Server.WSPath, "/"):
		return fmt.Errorf("config: server.ws_path %q must start with /", c.Server.WSPath)
	case c.WebSocket.ReadLimit <= 0:
		return errors.New("config: websocket.read_limit must be positive")
	case c.WebSocket.SendBuffer <= 0:
		return errors.New("config: websocket.send_buffer must be positive")
	case c.WebSocket.PingInterval <= 0 || c.WebSocket.PongWait <= 0 || c.WebSocket.WriteWait <= 0:
		return errors.New("config: websocket intervals must be positive")
	case c.WebSocket.PingInterval >= c.WebSocket.PongWait:
		return errors.New("config: websocket.ping_interval must be shorter than websocket.pong_wait")
	case c.Lobby.EventBuffer <= 0:
		return errors.New("config: lobby.event_buffer must be positive")
	}
	return nil
}
