package ws

import (
	"context"
	"errors"
	"fmt"

	"github.com/DoyleJ11/deposit-auction-client/internal/session"
	"github.com/DoyleJ11/deposit-auction-client/internal/types"
	auction "github.com/DoyleJ11/deposit-auction-client/pkg/types"
)

var ErrUnknownMessage = errors.New("unknown message type")

// Facade is what the bridge needs from a session.
type Facade interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	View() session.View
	Subscribe(ctx context.Context) (*session.Subscription, error)

	JoinAuction(ctx context.Context, auctionID string) error
	CreateAuction(ctx context.Context, data auction.CreateAuctionData) error
	CloseAuction(ctx context.Context, auctionID, offerID string) error
	GetAuctionLots(ctx context.Context, auctionID string) error
	GetOnlineUsers(ctx context.Context, auctionID string) error
	CreateLot(ctx context.Context, data auction.CreateLotData) error
	CloseLot(ctx context.Context, lotID, auctionID string) error
	CreateOffer(ctx context.Context, lotID string, percent, volume float64) error
	CancelOffer(ctx context.Context, offerID string) error
}

// Dispatch routes one client message to the matching session command.
func Dispatch(ctx context.Context, f Facade, m types.ClientMessage) error {
	switch m.Type {
	case types.MsgConnect:
		return f.Connect(ctx)
	case types.MsgDisconnect:
		return f.Disconnect(ctx)
	case types.MsgJoinAuction:
		return f.JoinAuction(ctx, m.AuctionID)
	case types.MsgCreateAuction:
		if m.Auction == nil {
			return fmt.Errorf("%w: missing auction", session.ErrInvalidCommand)
		}
		return f.CreateAuction(ctx, *m.Auction)
	case types.MsgCloseAuction:
		return f.CloseAuction(ctx, m.AuctionID, m.OfferID)
	case types.MsgRefreshLots:
		return f.GetAuctionLots(ctx, m.AuctionID)
	case types.MsgOnlineUsers:
		return f.GetOnlineUsers(ctx, m.AuctionID)
	case types.MsgCreateLot:
		if m.Lot == nil {
			return fmt.Errorf("%w: missing lot", session.ErrInvalidCommand)
		}
		return f.CreateLot(ctx, *m.Lot)
	case types.MsgCloseLot:
		return f.CloseLot(ctx, m.LotID, m.AuctionID)
	case types.MsgCreateOffer:
		return f.CreateOffer(ctx, m.LotID, m.Percent, m.Volume)
	case types.MsgCancelOffer:
		return f.CancelOffer(ctx, m.OfferID)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMessage, m.Type)
	}
}
