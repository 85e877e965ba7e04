package session

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/deposit-auction-client/internal/wire"
	"github.com/DoyleJ11/deposit-auction-client/pkg/types"
)

// Commands are fire-and-forget: a nil error means the frame was queued on a
// live connection. Outcomes arrive later as events.

func (s *Session) JoinAuction(ctx context.Context, auctionID string) error {
	id, err := requireID("auction id", auctionID)
	if err != nil {
		return err
	}
	return s.emitJoin(ctx, types.CmdAuctionJoin, id)
}

func (s *Session) CreateAuction(ctx context.Context, data types.CreateAuctionData) error {
	switch data.Type {
	case types.AuctionSell, types.AuctionBuy:
	default:
		return fmt.Errorf("%w: auction type %q", ErrInvalidCommand, data.Type)
	}
	if data.ClosingType == "" {
		data.ClosingType = types.ClosingAuto
	}
	if data.ClosingType != types.ClosingAuto && data.ClosingType != types.ClosingManual {
		return fmt.Errorf("%w: closing type %q", ErrInvalidCommand, data.ClosingType)
	}
	if strings.TrimSpace(data.Asset) == "" || strings.TrimSpace(data.Currency) == "" {
		return fmt.Errorf("%w: asset and currency are required", ErrInvalidCommand)
	}
	if _, err := time.Parse(time.RFC3339, data.EndTime); err != nil {
		return fmt.Errorf("%w: end time %q is not RFC 3339", ErrInvalidCommand, data.EndTime)
	}
	return s.emit(ctx, types.CmdAuctionCreate, data)
}

func (s *Session) CreateLot(ctx context.Context, data types.CreateLotData) error {
	if _, err := requireID("auction id", data.AuctionID); err != nil {
		return err
	}
	if strings.TrimSpace(data.Asset) == "" {
		return fmt.Errorf("%w: asset is required", ErrInvalidCommand)
	}
	if v, ok := wire.Number(data.Volume); !ok || v <= 0 {
		return fmt.Errorf("%w: volume %q", ErrInvalidCommand, data.Volume)
	}
	if p, ok := wire.Number(data.Percent); !ok || p < 0 || p > 100 {
		return fmt.Errorf("%w: percent %q", ErrInvalidCommand, data.Percent)
	}
	if data.LotTermMonth < 0 {
		return fmt.Errorf("%w: negative lot term", ErrInvalidCommand)
	}
	return s.emit(ctx, types.CmdLotCreate, data)
}

func (s *Session) CreateOffer(ctx context.Context, lotID string, percent, volume float64) error {
	id, err := requireID("lot id", lotID)
	if err != nil {
		return err
	}
	if !finite(percent) || percent < 0 || percent > 100 {
		return fmt.Errorf("%w: percent %v out of range", ErrInvalidCommand, percent)
	}
	if !finite(volume) || volume <= 0 {
		return fmt.Errorf("%w: volume %v", ErrInvalidCommand, volume)
	}
	data := types.CreateOfferData{LotID: id, Percent: percent, Volume: volume}
	return s.emit(ctx, types.CmdOfferCreate, data)
}

func (s *Session) CancelOffer(ctx context.Context, offerID string) error {
	id, err := requireID("offer id", offerID)
	if err != nil {
		return err
	}
	return s.emit(ctx, types.CmdOfferCancel, id)
}

func (s *Session) CloseLot(ctx context.Context, lotID, auctionID string) error {
	lot, err := requireID("lot id", lotID)
	if err != nil {
		return err
	}
	auction, err := requireID("auction id", auctionID)
	if err != nil {
		return err
	}
	data := types.CloseLotData{LotID: lot, AuctionID: auction}
	return s.emit(ctx, types.CmdLotClose, data)
}

// CloseAuction sends only the auction id; the backend picks winners itself.
// offerID is kept for callers that close on a chosen offer and is only logged.
func (s *Session) CloseAuction(ctx context.Context, auctionID, offerID string) error {
	id, err := requireID("auction id", auctionID)
	if err != nil {
		return err
	}
	if offerID != "" {
		s.logger.Debug("close auction", zap.String("auction_id", id), zap.String("offer_id", offerID))
	}
	return s.emit(ctx, types.CmdAuctionClose, id)
}

func (s *Session) GetAuctionLots(ctx context.Context, auctionID string) error {
	id, err := requireID("auction id", auctionID)
	if err != nil {
		return err
	}
	return s.emit(ctx, types.CmdAuctionGetLots, id)
}

// GetOnlineUsers is meant for admin and initiator roles; the server enforces
// that, not the client.
func (s *Session) GetOnlineUsers(ctx context.Context, auctionID string) error {
	id, err := requireID("auction id", auctionID)
	if err != nil {
		return err
	}
	return s.emit(ctx, types.CmdGetOnlineUsers, id)
}

func (s *Session) emit(ctx context.Context, event string, payload any) error {
	f, err := wire.NewFrame(event, payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}
	req := commandReq{Frame: f, Reply: make(chan error, 1)}
	return s.call(ctx, req, req.Reply)
}

func (s *Session) emitJoin(ctx context.Context, event, auctionID string) error {
	f, err := wire.NewFrame(event, auctionID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}
	req := commandReq{Frame: f, JoinAuctionID: auctionID, Reply: make(chan error, 1)}
	return s.call(ctx, req, req.Reply)
}

func (s *Session) handleCommand(req commandReq) error {
	if s.status != StatusConnected || s.link == nil {
		s.logger.Warn("not connected, command dropped", zap.String("event", req.Frame.Event))
		s.notify(types.Notice{Level: types.NoticeWarning, Event: req.Frame.Event, Message: "not connected"})
		return fmt.Errorf("%s: %w", req.Frame.Event, ErrNotConnected)
	}
	if err := s.send(req.Frame); err != nil {
		return err
	}
	if req.JoinAuctionID != "" {
		s.timers = append(s.timers, s.after(s.cfg.JoinLotsDelay, lotsDue{gen: s.gen, auctionID: req.JoinAuctionID}))
	}
	return nil
}

// send queues f on the live link without blocking the actor.
func (s *Session) send(f wire.Frame) error {
	if s.link == nil {
		return ErrNotConnected
	}
	select {
	case s.link.outbox <- f:
		s.logger.Debug("sent", zap.String("event", f.Event))
		return nil
	default:
		s.logger.Warn("outbox full, frame dropped", zap.String("event", f.Event))
		return fmt.Errorf("%s: %w", f.Event, ErrOutboxFull)
	}
}

// sendEvent is used for frames the session emits on its own.
func (s *Session) sendEvent(event string, payload any) {
	f, err := wire.NewFrame(event, payload)
	if err == nil {
		err = s.send(f)
	}
	if err != nil {
		s.logger.Warn("internal send failed", zap.String("event", event), zap.Error(err))
	}
}

func requireID(name, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", fmt.Errorf("%w: %s is required", ErrInvalidCommand, name)
	}
	return v, nil
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
