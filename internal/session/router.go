package session

import (
	"errors"

	"go.uber.org/zap"

	"github.com/DoyleJ11/deposit-auction-client/internal/engine"
	"github.com/DoyleJ11/deposit-auction-client/internal/wire"
	"github.com/DoyleJ11/deposit-auction-client/pkg/types"
)

// handleFrame decodes one inbound frame and folds it into the state. Bad data
// is logged and dropped; it never tears down the connection.
func (s *Session) handleFrame(f wire.Frame) {
	evt, err := s.decoder.Decode(f)
	if err != nil {
		if errors.Is(err, wire.ErrUnknownEvent) {
			s.logger.Debug("ignoring unknown event", zap.String("event", f.Event))
		} else {
			s.logger.Warn("dropping frame", zap.String("event", f.Event), zap.Error(err))
		}
		return
	}

	if ce, ok := evt.(wire.ConnectError); ok {
		s.handleConnectError(ce)
		return
	}

	effects, next, err := engine.Apply(s.state, evt)
	if err != nil {
		s.logger.Warn("event not applied", zap.String("event", f.Event), zap.Error(err))
		return
	}
	s.state = next
	s.version++

	for _, eff := range effects {
		switch e := eff.(type) {
		case engine.RequestLots:
			s.timers = append(s.timers, s.after(s.cfg.JoinAckLotsDelay, lotsDue{gen: s.gen, auctionID: e.AuctionID}))
		case engine.Notify:
			if e.Privileged && !s.cred.Claims.Privileged() {
				continue
			}
			s.notify(e.Notice)
		}
	}

	s.publish()
}

// requestLots is the follow-up snapshot request after a join. It is sent
// whether or not the join was acknowledged.
func (s *Session) requestLots(auctionID string) {
	if s.status != StatusConnected {
		return
	}
	s.logger.Debug("requesting lots", zap.String("auction_id", auctionID))
	s.sendEvent(types.CmdAuctionGetLots, auctionID)
}
