package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/DoyleJ11/deposit-auction-client/internal/backoff"
	"github.com/DoyleJ11/deposit-auction-client/internal/session"
)

// Config holds client configuration loaded from the environment and an
// optional .env file.
type Config struct {
	WSURL         string `mapstructure:"AUCTION_WS_URL"`
	APIURL        string `mapstructure:"AUCTION_API_URL"`
	CredentialDSN string `mapstructure:"CREDENTIAL_DSN"`

	HandshakeTimeout time.Duration `mapstructure:"HANDSHAKE_TIMEOUT"`
	WriteTimeout     time.Duration `mapstructure:"WRITE_TIMEOUT"`

	ReconnectAttempts   int           `mapstructure:"RECONNECT_ATTEMPTS"`
	ReconnectDelay      time.Duration `mapstructure:"RECONNECT_DELAY"`
	ReconnectDelayMax   time.Duration `mapstructure:"RECONNECT_DELAY_MAX"`
	ReconnectMultiplier float64       `mapstructure:"RECONNECT_MULTIPLIER"`

	JoinLotsDelay    time.Duration `mapstructure:"JOIN_LOTS_DELAY"`
	JoinAckLotsDelay time.Duration `mapstructure:"JOIN_ACK_LOTS_DELAY"`
	AuthChangeDelay  time.Duration `mapstructure:"AUTH_CHANGE_DELAY"`

	BridgeAddr string `mapstructure:"BRIDGE_ADDR"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`
	LogFormat  string `mapstructure:"LOG_FORMAT"`
}

// Load reads .env if present, then the process environment. Environment
// variables already set win over the file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	def := session.DefaultConfig()
	v.SetDefault("AUCTION_WS_URL", "wss://mfa.kse.kg:8443")
	v.SetDefault("AUCTION_API_URL", "https://mfauction.adb-solution.com")
	v.SetDefault("CREDENTIAL_DSN", "auction-client.db")
	v.SetDefault("HANDSHAKE_TIMEOUT", def.HandshakeTimeout)
	v.SetDefault("WRITE_TIMEOUT", def.WriteTimeout)
	v.SetDefault("RECONNECT_ATTEMPTS", def.Backoff.MaxAttempts)
	v.SetDefault("RECONNECT_DELAY", def.Backoff.BaseDelay)
	v.SetDefault("RECONNECT_DELAY_MAX", def.Backoff.MaxDelay)
	v.SetDefault("RECONNECT_MULTIPLIER", def.Backoff.Multiplier)
	v.SetDefault("JOIN_LOTS_DELAY", def.JoinLotsDelay)
	v.SetDefault("JOIN_ACK_LOTS_DELAY", def.JoinAckLotsDelay)
	v.SetDefault("AUTH_CHANGE_DELAY", def.AuthChangeDelay)
	v.SetDefault("BRIDGE_ADDR", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if err := checkURL("AUCTION_WS_URL", c.WSURL, "ws", "wss", "http", "https"); err != nil {
		return err
	}
	if err := checkURL("AUCTION_API_URL", c.APIURL, "http", "https"); err != nil {
		return err
	}
	if strings.TrimSpace(c.CredentialDSN) == "" {
		return errors.New("config: CREDENTIAL_DSN must be set")
	}
	for key, d := range map[string]time.Duration{
		"HANDSHAKE_TIMEOUT":   c.HandshakeTimeout,
		"WRITE_TIMEOUT":       c.WriteTimeout,
		"RECONNECT_DELAY":     c.ReconnectDelay,
		"RECONNECT_DELAY_MAX": c.ReconnectDelayMax,
	} {
		if d <= 0 {
			return fmt.Errorf("config: %s must be positive", key)
		}
	}
	for key, d := range map[string]time.Duration{
		"JOIN_LOTS_DELAY":     c.JoinLotsDelay,
		"JOIN_ACK_LOTS_DELAY": c.JoinAckLotsDelay,
		"AUTH_CHANGE_DELAY":   c.AuthChangeDelay,
	} {
		if d < 0 {
			return fmt.Errorf("config: %s must not be negative", key)
		}
	}
	if c.ReconnectAttempts < 0 {
		return errors.New("config: RECONNECT_ATTEMPTS must not be negative")
	}
	if c.ReconnectMultiplier < 1 {
		return errors.New("config: RECONNECT_MULTIPLIER must be at least 1")
	}
	if c.ReconnectDelayMax < c.ReconnectDelay {
		return errors.New("config: RECONNECT_DELAY_MAX must not be below RECONNECT_DELAY")
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: LOG_LEVEL: %w", err)
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return fmt.Errorf("config: LOG_FORMAT must be json or console, got %q", c.LogFormat)
	}
	return nil
}

func checkURL(key, raw string, schemes ...string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("config: %s must be set", key)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("config: %s must be an absolute %s url", key, strings.Join(schemes, "/"))
}

func (c *Config) Backoff() backoff.Config {
	return backoff.Config{
		MaxAttempts: c.ReconnectAttempts,
		BaseDelay:   c.ReconnectDelay,
		Multiplier:  c.ReconnectMultiplier,
		MaxDelay:    c.ReconnectDelayMax,
	}
}

func (c *Config) Session() session.Config {
	out := session.DefaultConfig()
	out.HandshakeTimeout = c.HandshakeTimeout
	out.WriteTimeout = c.WriteTimeout
	out.Backoff = c.Backoff()
	out.JoinLotsDelay = c.JoinLotsDelay
	out.JoinAckLotsDelay = c.JoinAckLotsDelay
	out.AuthChangeDelay = c.AuthChangeDelay
	return out
}
