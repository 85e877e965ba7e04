package engine

import (
	"errors"
	"fmt"
	"slices"

	"github.com/DoyleJ11/deposit-auction-client/internal/wire"
	"github.com/DoyleJ11/deposit-auction-client/pkg/types"
)

var ErrUnsupportedEvent = errors.New("unsupported event")
var ErrUnknownLot = errors.New("unknown lot")
var ErrMissingID = errors.New("missing id")

// State is the local projection of server-authoritative data. Apply never
// mutates a slice reachable from an earlier State, so published states can be
// shared with readers without copying.
type State struct {
	Auctions         []types.Auction
	CurrentAuctionID string
	CurrentAuction   *types.Auction
	Lots             []types.Lot
	OnlineUsers      []string
}

type Effect interface{ isEffect() }

// RequestLots asks the session to fetch the full lot snapshot for an auction.
type RequestLots struct{ AuctionID string }

// Notify surfaces a display-only notice. Privileged notices are meant for
// admin, initiator and owner roles only.
type Notify struct {
	Notice     types.Notice
	Privileged bool
}

func (RequestLots) isEffect() {}
func (Notify) isEffect()      {}

/*
	AuctionList     -> replace Auctions
	AuctionCreated  -> append (same id replaces)
	AuctionUpdated  -> replace by id, CurrentAuction too
	JoinSucceeded   -> CurrentAuctionID/CurrentAuction -> RequestLots
	PeerJoined/Left -> Notify (privileged)
	LotList         -> replace Lots
	LotCreated      -> append (same id replaces)
	LotClosed       -> lot status closed
	OfferList       -> replace one lot's offers
	OfferCreated    -> upsert into lot offers
	OfferCanceled   -> remove from lot offers
	OnlineUsers     -> replace OnlineUsers
	AppError        -> Notify
*/

// Apply folds one event into the state. On error the original state is
// returned unchanged.
func Apply(s State, evt wire.Event) ([]Effect, State, error) {
	newState := s

	switch e := evt.(type) {
	case wire.AuctionList:
		newState.Auctions = nonNil(slices.Clone(e.Auctions))
		return nil, newState, nil

	case wire.AuctionCreated:
		if e.Auction.ID == "" {
			return nil, s, fmt.Errorf("%w: auction", ErrMissingID)
		}
		newState.Auctions = upsertAuction(s.Auctions, e.Auction)
		return nil, newState, nil

	case wire.AuctionUpdated:
		if e.Auction.ID == "" {
			return nil, s, fmt.Errorf("%w: auction", ErrMissingID)
		}
		newState.Auctions = replaceAuction(s.Auctions, e.Auction)
		if s.CurrentAuction != nil && s.CurrentAuction.ID == e.Auction.ID {
			a := e.Auction
			newState.CurrentAuction = &a
		}
		return nil, newState, nil

	case wire.JoinSucceeded:
		if e.AuctionID == "" {
			return nil, s, fmt.Errorf("%w: joined auction", ErrMissingID)
		}
		newState.CurrentAuctionID = e.AuctionID
		if a, ok := findAuction(s.Auctions, e.AuctionID); ok {
			newState.CurrentAuction = &a
		} else if s.CurrentAuction != nil && s.CurrentAuction.ID != e.AuctionID {
			newState.CurrentAuction = nil
		}
		return []Effect{RequestLots{AuctionID: e.AuctionID}}, newState, nil

	case wire.PeerJoined:
		return []Effect{Notify{
			Notice:     types.Notice{Level: types.NoticeInfo, Event: types.EvtAuctionJoined, Message: "participant joined", Data: e.UserID},
			Privileged: true,
		}}, s, nil

	case wire.PeerLeft:
		return []Effect{Notify{
			Notice:     types.Notice{Level: types.NoticeInfo, Event: types.EvtUserLeft, Message: "participant left", Data: e.Data},
			Privileged: true,
		}}, s, nil

	case wire.LotList:
		newState.Lots = make([]types.Lot, 0, len(e.Lots))
		for _, l := range e.Lots {
			newState.Lots = append(newState.Lots, withOffers(l, l.Offers))
		}
		return nil, newState, nil

	case wire.LotCreated:
		if e.Lot.ID == "" {
			return nil, s, fmt.Errorf("%w: lot", ErrMissingID)
		}
		newState.Lots = upsertLot(s.Lots, withOffers(e.Lot, e.Lot.Offers))
		return nil, newState, nil

	case wire.LotClosed:
		lots, ok := updateLot(s.Lots, e.LotID, func(l types.Lot) types.Lot {
			l.Status = types.StatusClosed
			return l
		})
		if !ok {
			return nil, s, fmt.Errorf("%w: %s", ErrUnknownLot, e.LotID)
		}
		newState.Lots = lots
		return nil, newState, nil

	case wire.OfferList:
		if e.LotID == "" {
			// an empty snapshot names no lot
			return nil, s, nil
		}
		lots, ok := updateLot(s.Lots, e.LotID, func(l types.Lot) types.Lot {
			return withOffers(l, e.Offers)
		})
		if !ok {
			return nil, s, fmt.Errorf("%w: %s", ErrUnknownLot, e.LotID)
		}
		newState.Lots = lots
		return nil, newState, nil

	case wire.OfferCreated:
		if e.Offer.ID == "" {
			return nil, s, fmt.Errorf("%w: offer", ErrMissingID)
		}
		lots, ok := updateLot(s.Lots, e.Offer.LotID, func(l types.Lot) types.Lot {
			return withOffers(l, upsertOffer(l.Offers, e.Offer))
		})
		if !ok {
			return nil, s, fmt.Errorf("%w: %s", ErrUnknownLot, e.Offer.LotID)
		}
		newState.Lots = lots
		return nil, newState, nil

	case wire.OfferCanceled:
		if e.OfferID == "" {
			return nil, s, fmt.Errorf("%w: canceled offer", ErrMissingID)
		}
		newState.Lots = removeOffer(s.Lots, e.LotID, e.OfferID)
		return nil, newState, nil

	case wire.OnlineUsers:
		newState.OnlineUsers = nonNil(slices.Clone(e.UserIDs))
		return nil, newState, nil

	case wire.AppError:
		return []Effect{Notify{
			Notice: types.Notice{Level: types.NoticeError, Event: e.Event, Message: e.Message, Data: e.Data},
		}}, s, nil

	default:
		return nil, s, fmt.Errorf("%w: %T", ErrUnsupportedEvent, evt)
	}
}

// Reduce folds a sequence of events from an empty state, skipping events that
// fail to apply.
func Reduce(events []wire.Event) State {
	s := NewEmptyState()
	for _, evt := range events {
		_, next, err := Apply(s, evt)
		if err != nil {
			continue
		}
		s = next
	}
	return s
}

// ClearEphemeral drops everything scoped to the joined auction. The auction
// list survives.
func ClearEphemeral(s State) State {
	return State{
		Auctions:    s.Auctions,
		Lots:        []types.Lot{},
		OnlineUsers: []string{},
	}
}
