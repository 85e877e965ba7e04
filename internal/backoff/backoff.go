// Package backoff bounds reconnect attempts. It wraps cenkalti's exponential
// backoff with a hard attempt limit and no jitter so delays are predictable
// under a fake clock.
package backoff

import (
	"time"

	cbackoff "github.com/cenkalti/backoff/v5"
)

type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts: 5,
		BaseDelay:   3 * time.Second,
		Multiplier:  2,
		MaxDelay:    10 * time.Second,
	}
}

// Policy is not safe for concurrent use; the session actor owns it.
type Policy struct {
	cfg      Config
	exp      *cbackoff.ExponentialBackOff
	attempts int
}

func New(cfg Config) *Policy {
	def := DefaultConfig()
	if cfg.MaxAttempts < 0 {
		cfg.MaxAttempts = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = def.Multiplier
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}

	exp := cbackoff.NewExponentialBackOff()
	exp.InitialInterval = cfg.BaseDelay
	exp.RandomizationFactor = 0
	exp.Multiplier = cfg.Multiplier
	exp.MaxInterval = cfg.MaxDelay
	exp.Reset()

	return &Policy{cfg: cfg, exp: exp}
}

// Next returns the delay before the next attempt, or false once MaxAttempts
// delays have been handed out since the last Reset.
func (p *Policy) Next() (time.Duration, bool) {
	if p.attempts >= p.cfg.MaxAttempts {
		return 0, false
	}
	p.attempts++
	d := p.exp.NextBackOff()
	if d == cbackoff.Stop {
		return 0, false
	}
	return d, true
}

// Reset is called after a successful handshake.
func (p *Policy) Reset() {
	p.attempts = 0
	p.exp.Reset()
}

func (p *Policy) Attempts() int { return p.attempts }

func (p *Policy) Exhausted() bool { return p.attempts >= p.cfg.MaxAttempts }

func (p *Policy) Config() Config { return p.cfg }
