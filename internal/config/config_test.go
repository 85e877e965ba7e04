package config

import (
	"strings"
	"testing"
	"time"
)

var keys = []string{
	"AUCTION_WS_URL", "AUCTION_API_URL", "CREDENTIAL_DSN",
	"HANDSHAKE_TIMEOUT", "WRITE_TIMEOUT",
	"RECONNECT_ATTEMPTS", "RECONNECT_DELAY", "RECONNECT_DELAY_MAX", "RECONNECT_MULTIPLIER",
	"JOIN_LOTS_DELAY", "JOIN_ACK_LOTS_DELAY", "AUTH_CHANGE_DELAY",
	"BRIDGE_ADDR", "LOG_LEVEL", "LOG_FORMAT",
}

// clearEnv blanks every key; viper treats empty variables as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WSURL != "wss://mfa.kse.kg:8443" {
		t.Errorf("WSURL = %q", cfg.WSURL)
	}
	if cfg.APIURL != "https://mfauction.adb-solution.com" {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
	if cfg.CredentialDSN != "auction-client.db" {
		t.Errorf("CredentialDSN = %q", cfg.CredentialDSN)
	}
	if cfg.BridgeAddr != ":8080" {
		t.Errorf("BridgeAddr = %q", cfg.BridgeAddr)
	}

	b := cfg.Backoff()
	if b.MaxAttempts != 5 || b.BaseDelay != 3*time.Second || b.MaxDelay != 10*time.Second || b.Multiplier != 2 {
		t.Errorf("backoff = %+v", b)
	}

	s := cfg.Session()
	if s.JoinLotsDelay != 2*time.Second || s.JoinAckLotsDelay != time.Second || s.AuthChangeDelay != time.Second {
		t.Errorf("session delays = %+v", s)
	}
	if s.WriteTimeout != 3*time.Second {
		t.Errorf("WriteTimeout = %v", s.WriteTimeout)
	}
	if s.OutboxSize <= 0 {
		t.Errorf("OutboxSize = %d", s.OutboxSize)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUCTION_WS_URL", "ws://localhost:9000")
	t.Setenv("CREDENTIAL_DSN", "postgres://u:p@localhost/auction")
	t.Setenv("RECONNECT_ATTEMPTS", "2")
	t.Setenv("RECONNECT_DELAY", "500ms")
	t.Setenv("RECONNECT_DELAY_MAX", "4s")
	t.Setenv("RECONNECT_MULTIPLIER", "1.5")
	t.Setenv("JOIN_LOTS_DELAY", "0s")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "console")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WSURL != "ws://localhost:9000" {
		t.Errorf("WSURL = %q", cfg.WSURL)
	}
	if cfg.CredentialDSN != "postgres://u:p@localhost/auction" {
		t.Errorf("CredentialDSN = %q", cfg.CredentialDSN)
	}
	b := cfg.Backoff()
	if b.MaxAttempts != 2 || b.BaseDelay != 500*time.Millisecond || b.MaxDelay != 4*time.Second || b.Multiplier != 1.5 {
		t.Errorf("backoff = %+v", b)
	}
	if cfg.JoinLotsDelay != 0 {
		t.Errorf("JoinLotsDelay = %v", cfg.JoinLotsDelay)
	}
	if cfg.LogLevel != "debug" || cfg.LogFormat != "console" {
		t.Errorf("log = %q/%q", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		key   string
		value string
	}{
		{key: "AUCTION_WS_URL", value: "not a url"},
		{key: "AUCTION_API_URL", value: "ftp://example.com"},
		{key: "WRITE_TIMEOUT", value: "-1s"},
		{key: "RECONNECT_ATTEMPTS", value: "-3"},
		{key: "RECONNECT_MULTIPLIER", value: "0.5"},
		{key: "RECONNECT_DELAY_MAX", value: "1s"},
		{key: "AUTH_CHANGE_DELAY", value: "-1s"},
		{key: "LOG_LEVEL", value: "chatty"},
		{key: "LOG_FORMAT", value: "xml"},
	}

	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.key, tc.value)

			_, err := Load()
			if err == nil {
				t.Fatalf("expected an error for %s=%q", tc.key, tc.value)
			}
			if !strings.HasPrefix(err.Error(), "config:") || !strings.Contains(err.Error(), tc.key) {
				t.Errorf("error should name the key: %v", err)
			}
		})
	}
}
