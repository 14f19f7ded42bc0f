package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. POKER_SERVER_HTTP_ADDRESS.
const EnvPrefix = "POKER"

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Room    RoomConfig    `mapstructure:"room"`
	Log     LogConfig     `mapstructure:"log"`
	Monitor MonitorConfig `mapstructure:"monitor"`
}

type ServerConfig struct {
	HTTPAddress     string        `mapstructure:"http_address"`
	RPCAddress      string        `mapstructure:"rpc_address"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
}

type RoomConfig struct {
	MaxParticipants int `mapstructure:"max_participants"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type MonitorConfig struct {
	Namespace string `mapstructure:"namespace"`
}

// flagKeys maps command line flags onto configuration keys.
var flagKeys = map[string]string{
	"http-address":     "server.http_address",
	"rpc-address":      "server.rpc_address",
	"allowed-origins":  "server.allowed_origins",
	"idle-timeout":     "server.idle_timeout",
	"max-participants": "room.max_participants",
	"log-level":        "log.level",
}

// AddFlags registers the command line overrides understood by LoadConfig.
func AddFlags(flags *pflag.FlagSet) {
	flags.String("http-address", "", "address for the HTTP/WebSocket listener")
	flags.String("rpc-address", "", "address for the gRPC admin listener")
	flags.StringSlice("allowed-origins", nil, "origins allowed to open a WebSocket (\"*\" allows any)")
	flags.Duration("idle-timeout", 0, "close sockets silent for this long (0 disables)")
	flags.Int("max-participants", 0, "maximum participants per room")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_address", ":3000")
	v.SetDefault("server.rpc_address", ":3001")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.idle_timeout", time.Duration(0))
	v.SetDefault("room.max_participants", 12)
	v.SetDefault("log.level", "info")
	v.SetDefault("monitor.namespace", "scrum_poker")
}

// LoadConfig reads config.yaml from path (if present), then environment
// variables, then any flags that were explicitly set. flags may be nil.
func LoadConfig(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Room.MaxParticipants <= 0 {
		return nil, fmt.Errorf("room.max_participants must be positive, got %d", cfg.Room.MaxParticipants)
	}
	return &cfg, nil
}
