// Package config loads service settings from the environment, an optional
// .env file and an optional config file.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/liondandelion/opengost/internal/gostecdsa"
)

const envPrefix = "OPENGOST"

type Config struct {
	ListenAddr      string
	PostgresURL     string
	SignKeyPath     string
	SealKeyPath     string
	Curve           string
	SessionLifetime time.Duration
	LogLevel        string
	LogFormat       string
	Operators       []string
}

func defaults(v *viper.Viper) {
	v.SetDefault("listen_addr", ":3001")
	v.SetDefault("sign_key_path", "sign.key")
	v.SetDefault("seal_key_path", "seal.key")
	v.SetDefault("curve", "cryptopro-a")
	v.SetDefault("session_lifetime", 12*time.Hour)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("operators", "")
}

// LoadDotEnv reads path (".env" when empty) into the environment. A missing
// file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return errors.Wrap(godotenv.Load(path), "config: .env")
}

// Load reads the config file at path, if any, then the environment.
// Environment keys are OPENGOST_<KEY>; POSTGRES_URL is also accepted.
func Load(path string) (Config, error) {
	v := viper.New()
	defaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("postgres_url", envPrefix+"_POSTGRES_URL", "POSTGRES_URL"); err != nil {
		return Config{}, errors.Wrap(err, "config: bind")
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "config: read %s", path)
		}
	}

	c := Config{
		ListenAddr:      v.GetString("listen_addr"),
		PostgresURL:     v.GetString("postgres_url"),
		SignKeyPath:     v.GetString("sign_key_path"),
		SealKeyPath:     v.GetString("seal_key_path"),
		Curve:           v.GetString("curve"),
		SessionLifetime: v.GetDuration("session_lifetime"),
		LogLevel:        v.GetString("log_level"),
		LogFormat:       v.GetString("log_format"),
		Operators:       operators(v),
	}
	return c, c.Validate()
}

// operators accepts a list from a config file or a comma-separated string
// from the environment.
func operators(v *viper.Viper) []string {
	if s, ok := v.Get("operators").(string); ok {
		return splitList(s)
	}
	return v.GetStringSlice("operators")
}

func splitList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Validate rejects settings the service cannot start with.
func (c Config) Validate() error {
	if c.PostgresURL == "" {
		return errors.New("config: postgres_url is required")
	}
	if c.ListenAddr == "" {
		return errors.New("config: listen_addr is required")
	}
	if _, err := gostecdsa.CurveByName(c.Curve); err != nil {
		return errors.Wrap(err, "config: curve")
	}
	if c.SessionLifetime <= 0 {
		return errors.New("config: session_lifetime must be positive")
	}
	return nil
}

// IsOperator reports whether username may sign with the service key.
func (c Config) IsOperator(username string) bool {
	for _, op := range c.Operators {
		if op == username {
			return true
		}
	}
	return false
}
