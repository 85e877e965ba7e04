package wire

import (
	"errors"

	"github.com/DoyleJ11/deposit-auction-client/pkg/types"
)

var ErrUnknownEvent = errors.New("unknown event")
var ErrMalformed = errors.New("malformed payload")

// Event is the closed set of inbound server events.
type Event interface{ isEvent() }

type AuctionList struct{ Auctions []types.Auction }

type AuctionCreated struct{ Auction types.Auction }

// AuctionUpdated covers both auction:closed and auction:updated.
type AuctionUpdated struct{ Auction types.Auction }

type JoinSucceeded struct {
	AuctionID string
	UserID    string
}

type PeerJoined struct{ UserID string }

type PeerLeft struct{ Data any }

type LotList struct{ Lots []types.Lot }

type LotCreated struct{ Lot types.Lot }

type LotClosed struct {
	LotID     string
	AuctionID string
}

// OfferList is a full snapshot of one lot's offers. LotID is empty when the
// snapshot carried no offers.
type OfferList struct {
	LotID  string
	Offers []types.Offer
}

type OfferCreated struct{ Offer types.Offer }

type OfferCanceled struct {
	OfferID string
	LotID   string
}

type OnlineUsers struct{ UserIDs []string }

// AppError is an auction- or lot-scoped error pushed by the server.
type AppError struct {
	Event   string
	Message string
	Data    any
}

// ConnectError is a handshake rejection sent as a frame.
type ConnectError struct{ Message string }

func (AuctionList) isEvent()    {}
func (AuctionCreated) isEvent() {}
func (AuctionUpdated) isEvent() {}
func (JoinSucceeded) isEvent()  {}
func (PeerJoined) isEvent()     {}
func (PeerLeft) isEvent()       {}
func (LotList) isEvent()        {}
func (LotCreated) isEvent()     {}
func (LotClosed) isEvent()      {}
func (OfferList) isEvent()      {}
func (OfferCreated) isEvent()   {}
func (OfferCanceled) isEvent()  {}
func (OnlineUsers) isEvent()    {}
func (AppError) isEvent()       {}
func (ConnectError) isEvent()   {}
