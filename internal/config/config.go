package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config describes all runtime settings for the client.
//
// Loaded once in main, validated, passed down via DI. No globals.
type Config struct {
	Env string // dev|stage|prod

	Log struct {
		Format string // text|json
	}

	Server struct {
		BaseURL     string // http(s) origin of the game server
		Secret      string // shared application secret for create/join
		DialTimeout time.Duration
	}

	Storage struct {
		Path string // bbolt file for session-resumption data
	}

	Diag struct {
		Capacity int // ring buffer size for connection events
	}

	Rooms struct {
		PollInterval time.Duration
	}
}

func LoadFromEnv() (Config, error) {
	_ = godotenv.Load()

	var c Config

	c.Env = envString("APP_ENV", "dev")
	c.Log.Format = envString("LOG_FORMAT", "text")

	c.Server.BaseURL = envString("SERVER_URL", "http://localhost:8080")
	c.Server.Secret = envString("APP_SECRET", "dev-secret-change-me")
	c.Server.DialTimeout = envDuration("DIAL_TIMEOUT", 10*time.Second)

	c.Storage.Path = envString("STORAGE_PATH", defaultStoragePath())

	c.Diag.Capacity = envInt("DIAG_CAPACITY", 20)

	c.Rooms.PollInterval = envDuration("ROOMS_POLL_INTERVAL", 5*time.Second)

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	if c.Server.BaseURL == "" {
		return errors.New("SERVER_URL is empty")
	}
	if c.Server.Secret == "" {
		return errors.New("APP_SECRET is empty")
	}
	if c.Env != "dev" && c.Server.Secret == "dev-secret-change-me" {
		return fmt.Errorf("refuse to run with default APP_SECRET in %s", c.Env)
	}
	if c.Storage.Path == "" {
		return errors.New("STORAGE_PATH is empty")
	}
	if c.Diag.Capacity <= 0 {
		return errors.New("DIAG_CAPACITY must be positive")
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("unsupported LOG_FORMAT=%q (want text|json)", c.Log.Format)
	}
	return nil
}

func defaultStoragePath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir + "/crew/session.db"
	}
	return "crew-session.db"
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
