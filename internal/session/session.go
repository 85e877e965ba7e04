// Package session keeps a local projection of the auction backend in sync over
// one authenticated connection and exposes it to callers as views, notices and
// commands.
//
// All mutable state is owned by a single actor goroutine. Timers, dialers and
// the per-connection reader and writer only post messages into its inbox.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/DoyleJ11/deposit-auction-client/internal/backoff"
	"github.com/DoyleJ11/deposit-auction-client/internal/engine"
	"github.com/DoyleJ11/deposit-auction-client/internal/token"
	"github.com/DoyleJ11/deposit-auction-client/internal/transport"
	"github.com/DoyleJ11/deposit-auction-client/internal/wire"
)

var (
	ErrNotConnected   = errors.New("not connected")
	ErrInvalidCommand = errors.New("invalid command")
	ErrClosed         = errors.New("session closed")
	ErrOutboxFull     = errors.New("outbox full")
)

type Config struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	Backoff          backoff.Config
	// JoinLotsDelay is the unconditional lot request after a join command;
	// JoinAckLotsDelay the one after the server acknowledges the join.
	JoinLotsDelay    time.Duration
	JoinAckLotsDelay time.Duration
	AuthChangeDelay  time.Duration
	OutboxSize       int
}

func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 20 * time.Second,
		WriteTimeout:     3 * time.Second,
		Backoff:          backoff.DefaultConfig(),
		JoinLotsDelay:    2 * time.Second,
		JoinAckLotsDelay: time.Second,
		AuthChangeDelay:  time.Second,
		OutboxSize:       64,
	}
}

// Credentials is the token guard as seen by the session.
type Credentials interface {
	Current(ctx context.Context) (token.Credential, bool)
	Reject(ctx context.Context, reason string) error
}

// ChangeFeed delivers credentials-changed signals.
type ChangeFeed interface {
	Subscribe() (string, <-chan struct{})
	Unsubscribe(id string)
}

type Deps struct {
	Dialer      transport.Dialer
	Credentials Credentials
	// optional
	Changes ChangeFeed
	Clock   clockwork.Clock
	Logger  *zap.Logger
}

type Session struct {
	cfg     Config
	dialer  transport.Dialer
	creds   Credentials
	changes ChangeFeed
	clock   clockwork.Clock
	logger  *zap.Logger
	decoder *wire.Decoder

	inbox  chan msg
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup

	// owned by loop
	status           Status
	retriesExhausted bool
	needsAuth        bool
	cred             token.Credential
	state            engine.State
	version          int
	policy           *backoff.Policy

	gen        uint64
	dialCancel context.CancelFunc
	link       *link
	timers     []clockwork.Timer

	authSeq   uint64
	authTimer clockwork.Timer

	subs map[string]*Subscription
}

// New starts the session. It connects right away when a valid credential is
// stored and otherwise waits in Idle for a credentials-changed signal or an
// explicit Connect.
func New(parent context.Context, cfg Config, deps Deps) *Session {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.OutboxSize <= 0 {
		cfg.OutboxSize = DefaultConfig().OutboxSize
	}

	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		cfg:     cfg,
		dialer:  deps.Dialer,
		creds:   deps.Credentials,
		changes: deps.Changes,
		clock:   deps.Clock,
		logger:  deps.Logger.Named("session"),
		decoder: wire.NewDecoder(deps.Logger, deps.Clock.Now),
		inbox:   make(chan msg, 64),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		status:  StatusIdle,
		state:   engine.NewEmptyState(),
		policy:  backoff.New(cfg.Backoff),
		subs:    make(map[string]*Subscription),
	}

	if s.changes != nil {
		s.watchChanges()
	}

	go s.loop()
	return s
}

func (s *Session) loop() {
	defer close(s.done)
	defer s.shutdown()

	s.start()

	for {
		select {
		case <-s.ctx.Done():
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case connectReq:
				msg.Reply <- s.handleConnect()

			case disconnectReq:
				s.goIdle(false, "disconnected by caller")
				msg.Reply <- nil

			case commandReq:
				msg.Reply <- s.handleCommand(msg)

			case getView:
				msg.Reply <- s.view()

			case subscribeReq:
				msg.Reply <- s.addSubscriber()

			case unsubscribeReq:
				s.removeSubscriber(msg.ID)

			case dialResult:
				s.handleDialResult(msg)

			case frameIn:
				if msg.gen == s.gen {
					s.handleFrame(msg.frame)
				}

			case linkDown:
				if msg.gen == s.gen && s.link != nil {
					s.handleDrop(msg.err)
				}

			case reconnectDue:
				if msg.gen == s.gen && s.status == StatusReconnecting {
					s.dialCurrent()
				}

			case lotsDue:
				if msg.gen == s.gen {
					s.requestLots(msg.auctionID)
				}

			case authSignal:
				s.handleAuthSignal()

			case authDue:
				if msg.seq == s.authSeq {
					s.handleAuthDue()
				}
			}
		}
	}
}

// post delivers m unless the session is shutting down.
func (s *Session) post(m msg) bool {
	if s.ctx.Err() != nil {
		return false
	}
	select {
	case s.inbox <- m:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *Session) call(ctx context.Context, m msg, reply chan error) error {
	select {
	case s.inbox <- m:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrClosed
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrClosed
	}
}

// after arms a timer on the session clock that posts m when it fires.
func (s *Session) after(d time.Duration, m msg) clockwork.Timer {
	return s.clock.AfterFunc(d, func() { s.post(m) })
}

func (s *Session) watchChanges() {
	id, ch := s.changes.Subscribe()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.changes.Unsubscribe(id)
		for {
			select {
			case <-s.ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				s.post(authSignal{})
			}
		}
	}()
}

// Close stops the session, closes the connection and waits for every
// goroutine it started.
func (s *Session) Close() error {
	s.cancel()
	<-s.done
	return nil
}

func (s *Session) shutdown() {
	s.stopTransport()
	s.stopAuthTimer()
	for id := range s.subs {
		s.removeSubscriber(id)
	}
	s.wg.Wait()

	// dial results that raced the shutdown still own a connection
	for {
		select {
		case m := <-s.inbox:
			if r, ok := m.(dialResult); ok && r.conn != nil {
				_ = r.conn.Close()
			}
		default:
			s.logger.Debug("session stopped")
			return
		}
	}
}
