package session

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/DoyleJ11/deposit-auction-client/internal/engine"
	"github.com/DoyleJ11/deposit-auction-client/internal/token"
	"github.com/DoyleJ11/deposit-auction-client/internal/transport"
	"github.com/DoyleJ11/deposit-auction-client/internal/wire"
	"github.com/DoyleJ11/deposit-auction-client/pkg/types"
)

type Status string

const (
	StatusIdle         Status = "idle"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusReconnecting Status = "reconnecting"
)

/*
	Idle ──connect──► Connecting ──ok──► Connected
	                      │                  │ drop
	                      │ fail             ▼
	                      └──────────► Disconnected ──policy──► Reconnecting ──due──► Connecting
	                                        │ exhausted
	                                        ▼
	                                  Disconnected (RetriesExhausted)

	credential removed / rejected, Disconnect, Close: any ──► Idle
*/

// link is one live transport with its reader and writer goroutines.
type link struct {
	gen    uint64
	outbox chan wire.Frame
	cancel context.CancelFunc
}

// start runs once on the actor goroutine before the first message.
func (s *Session) start() {
	cred, ok := s.creds.Current(s.ctx)
	if !ok {
		s.needsAuth = true
		s.logger.Info("no valid credential, waiting")
		return
	}
	s.dial(cred)
}

func (s *Session) handleConnect() error {
	cred, ok := s.creds.Current(s.ctx)
	if !ok {
		s.needsAuth = true
		s.publish()
		return token.ErrNoCredential
	}
	if s.live() && s.cred.Token == cred.Token {
		return nil
	}
	s.policy.Reset()
	s.retriesExhausted = false
	s.dial(cred)
	return nil
}

func (s *Session) live() bool {
	return s.status == StatusConnected || s.status == StatusConnecting
}

// dialCurrent re-reads the credential so a reconnect presents a refreshed one.
func (s *Session) dialCurrent() {
	cred, ok := s.creds.Current(s.ctx)
	if !ok {
		s.goIdle(true, "credential no longer valid")
		return
	}
	s.dial(cred)
}

// dial tears down whatever transport exists and starts one handshake. A
// different credential starts from an empty cache.
func (s *Session) dial(cred token.Credential) {
	s.stopTransport()

	if s.cred.Token != "" && s.cred.Token != cred.Token {
		s.state = engine.NewEmptyState()
		s.version++
	}
	s.cred = cred
	s.needsAuth = false
	s.status = StatusConnecting
	gen := s.gen

	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.HandshakeTimeout)
	s.dialCancel = cancel

	s.logger.Info("connecting", zap.Uint64("gen", gen), zap.Int("attempt", s.policy.Attempts()))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		conn, err := s.dialer.Dial(ctx, cred.Token)
		if !s.post(dialResult{gen: gen, conn: conn, err: err}) && conn != nil {
			_ = conn.Close()
		}
	}()

	s.publish()
}

func (s *Session) handleDialResult(r dialResult) {
	if r.gen != s.gen || s.status != StatusConnecting {
		if r.conn != nil {
			_ = r.conn.Close()
		}
		return
	}
	s.dialCancel = nil

	if r.err != nil {
		if errors.Is(r.err, transport.ErrUnauthorized) {
			s.rejectCredential(r.err.Error())
			return
		}
		s.logger.Warn("handshake failed", zap.Error(r.err))
		s.status = StatusDisconnected
		s.scheduleReconnect()
		return
	}

	s.startLink(r.conn)
	s.status = StatusConnected
	s.retriesExhausted = false
	s.policy.Reset()
	s.logger.Info("connected", zap.Uint64("gen", s.gen), zap.String("role", s.cred.Role()))

	s.sendEvent(types.CmdAuctionAll, nil)
	s.notify(types.Notice{Level: types.NoticeInfo, Message: "connected"})
	s.publish()
}

func (s *Session) startLink(conn transport.Conn) {
	ctx, cancel := context.WithCancel(s.ctx)
	l := &link{gen: s.gen, outbox: make(chan wire.Frame, s.cfg.OutboxSize), cancel: cancel}
	s.link = l

	s.wg.Add(2)

	// Reader: frames reach the inbox in arrival order.
	go func() {
		defer s.wg.Done()
		defer cancel()
		for {
			f, err := conn.Read(ctx)
			if err != nil {
				if errors.Is(err, wire.ErrMalformed) {
					s.logger.Warn("dropping malformed message", zap.Error(err))
					continue
				}
				if ctx.Err() == nil {
					s.post(linkDown{gen: l.gen, err: err})
				}
				return
			}
			if !s.post(frameIn{gen: l.gen, frame: f}) {
				return
			}
		}
	}()

	// Writer: sole caller of conn.Write, closes the conn on the way out.
	go func() {
		defer s.wg.Done()
		defer func() { _ = conn.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case f := <-l.outbox:
				wctx, wcancel := context.WithTimeout(ctx, s.cfg.WriteTimeout)
				err := conn.Write(wctx, f)
				wcancel()
				if err != nil {
					if ctx.Err() == nil {
						s.post(linkDown{gen: l.gen, err: err})
					}
					cancel()
					return
				}
			}
		}
	}()
}

// stopTransport invalidates the current generation: the dial in flight, the
// live link and every pending timer.
func (s *Session) stopTransport() {
	s.gen++
	if s.dialCancel != nil {
		s.dialCancel()
		s.dialCancel = nil
	}
	if s.link != nil {
		s.link.cancel()
		s.link = nil
	}
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
}

func (s *Session) handleDrop(err error) {
	s.logger.Warn("connection lost", zap.Error(err))
	s.stopTransport()
	s.state = engine.ClearEphemeral(s.state)
	s.version++
	s.status = StatusDisconnected
	s.notify(types.Notice{Level: types.NoticeWarning, Message: "connection lost"})
	s.scheduleReconnect()
}

func (s *Session) scheduleReconnect() {
	d, ok := s.policy.Next()
	if !ok {
		s.status = StatusDisconnected
		s.retriesExhausted = true
		s.logger.Warn("reconnect attempts exhausted", zap.Int("attempts", s.policy.Attempts()))
		s.notify(types.Notice{Level: types.NoticeError, Message: "reconnect attempts exhausted"})
		s.publish()
		return
	}

	s.status = StatusReconnecting
	s.timers = append(s.timers, s.after(d, reconnectDue{gen: s.gen}))
	s.logger.Info("reconnect scheduled", zap.Duration("in", d), zap.Int("attempt", s.policy.Attempts()))
	s.publish()
}

func (s *Session) handleConnectError(e wire.ConnectError) {
	if isAuthFailure(e.Message) {
		s.rejectCredential(e.Message)
		return
	}
	s.handleDrop(errors.New("connect_error: " + e.Message))
}

// rejectCredential purges the credential the server refused and stays Idle;
// the same credential is never retried.
func (s *Session) rejectCredential(reason string) {
	if err := s.creds.Reject(s.ctx, reason); err != nil {
		s.logger.Warn("purge rejected credential", zap.Error(err))
	}
	s.goIdle(true, "credential rejected: "+reason)
}

// goIdle drops the transport and every cached entity.
func (s *Session) goIdle(needsAuth bool, reason string) {
	wasIdle := s.status == StatusIdle
	s.stopTransport()
	s.state = engine.NewEmptyState()
	s.version++
	s.status = StatusIdle
	s.retriesExhausted = false
	s.needsAuth = needsAuth
	s.cred = token.Credential{}
	s.policy.Reset()

	if !wasIdle {
		s.logger.Info("idle", zap.String("reason", reason))
		level := types.NoticeInfo
		if needsAuth {
			level = types.NoticeWarning
		}
		s.notify(types.Notice{Level: level, Message: reason})
	}
	s.publish()
}

func (s *Session) handleAuthSignal() {
	cred, ok := s.creds.Current(s.ctx)
	if !ok {
		s.stopAuthTimer()
		if s.status != StatusIdle {
			s.goIdle(true, "credential removed")
			return
		}
		if !s.needsAuth {
			s.needsAuth = true
			s.publish()
		}
		return
	}

	if s.live() && cred.Token == s.cred.Token {
		return
	}

	// delay so a burst of changes does not cause rapid reconnects
	s.stopAuthTimer()
	s.authSeq++
	s.authTimer = s.after(s.cfg.AuthChangeDelay, authDue{seq: s.authSeq})
}

func (s *Session) handleAuthDue() {
	s.authTimer = nil
	cred, ok := s.creds.Current(s.ctx)
	if !ok {
		if s.status != StatusIdle {
			s.goIdle(true, "credential removed")
		}
		return
	}
	if s.live() && cred.Token == s.cred.Token {
		return
	}
	s.policy.Reset()
	s.retriesExhausted = false
	s.dial(cred)
}

func (s *Session) stopAuthTimer() {
	if s.authTimer != nil {
		s.authTimer.Stop()
		s.authTimer = nil
	}
	s.authSeq++
}

var authMarkers = []string{"authentication", "unauthorized", "аутентификации"}

func isAuthFailure(message string) bool {
	m := strings.ToLower(message)
	for _, marker := range authMarkers {
		if strings.Contains(m, marker) {
			return true
		}
	}
	return false
}
