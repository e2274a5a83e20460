package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Redis  RedisConfig  `yaml:"redis"`
	Game   GameConfig   `yaml:"game"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// RedisConfig configures the session store.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// GameConfig holds deck loading and the session defaults applied when a
// create request leaves a setting unset.
type GameConfig struct {
	DeckDir    string `yaml:"deck_dir"`
	SessionTTL int    `yaml:"session_ttl"` // hours
	HandSize   int    `yaml:"hand_size"`
	MaxScore   int    `yaml:"max_score"`
	MaxPlayers int    `yaml:"max_players"`
}

// SessionTTLDuration returns how long an idle session document is retained.
func (c *GameConfig) SessionTTLDuration() time.Duration {
	return time.Duration(c.SessionTTL) * time.Hour
}

// Load reads the configuration file, filling defaults for missing fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Game.DeckDir == "" {
		cfg.Game.DeckDir = "configs/decks"
	}
	if cfg.Game.SessionTTL == 0 {
		cfg.Game.SessionTTL = 24
	}
	if cfg.Game.HandSize == 0 {
		cfg.Game.HandSize = 10
	}
	if cfg.Game.MaxScore == 0 {
		cfg.Game.MaxScore = 5
	}
	if cfg.Game.MaxPlayers == 0 {
		cfg.Game.MaxPlayers = 10
	}

	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Game: GameConfig{
			DeckDir:    "configs/decks",
			SessionTTL: 24,
			HandSize:   10,
			MaxScore:   5,
			MaxPlayers: 10,
		},
	}
}
