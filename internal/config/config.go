package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures the signaling server runtime parameters.
type Config struct {
	ListenAddress       string        `mapstructure:"listen_address"`
	AdminAddress        string        `mapstructure:"admin_address"`
	WSPath              string        `mapstructure:"ws_path"`
	StaticDir           string        `mapstructure:"static_dir"`
	LogLevel            string        `mapstructure:"log_level"`
	ShutdownGracePeriod time.Duration `mapstructure:"shutdown_grace_period"`
	MaxMessageBytes     int64         `mapstructure:"max_message_bytes"`
	SendBuffer          int           `mapstructure:"send_buffer"`
	WriteTimeout        time.Duration `mapstructure:"write_timeout"`
}

const (
	defaultListenAddress       = "0.0.0.0:3000"
	defaultAdminAddress        = ""
	defaultWSPath              = "/ws"
	defaultStaticDir           = "public"
	defaultLogLevel            = "info"
	defaultShutdownGracePeriod = 10 * time.Second
	defaultMaxMessageBytes     = 64 * 1024
	defaultSendBuffer          = 32
	defaultWriteTimeout        = time.Second
)

// Load reads configuration from the provided file path (if any) and the environment.
// Environment variables are prefixed with ULTRACALL_ and can override file values.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ULTRACALL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("listen_address", defaultListenAddress)
	v.SetDefault("admin_address", defaultAdminAddress)
	v.SetDefault("ws_path", defaultWSPath)
	v.SetDefault("static_dir", defaultStaticDir)
	v.SetDefault("log_level", defaultLogLevel)
	v.SetDefault("shutdown_grace_period", defaultShutdownGracePeriod.String())
	v.SetDefault("max_message_bytes", defaultMaxMessageBytes)
	v.SetDefault("send_buffer", defaultSendBuffer)
	v.SetDefault("write_timeout", defaultWriteTimeout.String())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	// Viper leaves durations as strings; normalize them here.
	for key, dst := range map[string]*time.Duration{
		"shutdown_grace_period": &cfg.ShutdownGracePeriod,
		"write_timeout":         &cfg.WriteTimeout,
	} {
		if !v.IsSet(key) {
			continue
		}
		dur, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = dur
	}

	if cfg.ListenAddress == "" {
		cfg.ListenAddress = defaultListenAddress
	}
	if cfg.WSPath == "" {
		cfg.WSPath = defaultWSPath
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
	if cfg.ShutdownGracePeriod <= 0 {
		cfg.ShutdownGracePeriod = defaultShutdownGracePeriod
	}
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = defaultMaxMessageBytes
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = defaultSendBuffer
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}

	return cfg, nil
}
