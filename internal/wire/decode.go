package wire

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/DoyleJ11/deposit-auction-client/pkg/types"
)

// Decoder turns frames into typed events. Every numeric, date and status field
// passes through the sanitizers in this package; coerced values are logged.
type Decoder struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewDecoder(logger *zap.Logger, now func() time.Time) *Decoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Decoder{logger: logger.Named("wire"), now: now}
}

type rawAuction struct {
	ID          any `json:"id"`
	UserID      any `json:"user_id"`
	Status      any `json:"status"`
	ClosingType any `json:"closing_type"`
	EndTime     any `json:"end_time"`
	Type        any `json:"type"`
	Asset       any `json:"asset"`
	Currency    any `json:"currency"`
	Volume      any `json:"volume"`
	Term        any `json:"term"`
	CreatedAt   any `json:"createdAt"`
	UpdatedAt   any `json:"updatedAt"`
}

type rawLot struct {
	ID            any        `json:"id"`
	AuctionID     any        `json:"auction_id"`
	Asset         any        `json:"asset"`
	Volume        any        `json:"volume"`
	Percent       any        `json:"percent"`
	Status        any        `json:"status"`
	WinnerUserID  any        `json:"winner_user_id"`
	WinnerOfferID any        `json:"winner_offer_id"`
	CreatedAt     any        `json:"createdAt"`
	UpdatedAt     any        `json:"updatedAt"`
	Offers        []rawOffer `json:"offers"`
}

type rawOffer struct {
	ID        any `json:"id"`
	LotID     any `json:"lot_id"`
	UserID    any `json:"user_id"`
	Percent   any `json:"percent"`
	Volume    any `json:"volume"`
	Status    any `json:"status"`
	CreatedAt any `json:"created_at"`
}

type rawLotRef struct {
	LotID     any `json:"lot_id"`
	AuctionID any `json:"auction_id"`
}

type rawOfferRef struct {
	OfferID any `json:"offer_id"`
	LotID   any `json:"lot_id"`
}

type rawJoin struct {
	AuctionID any `json:"auction_id"`
	UserID    any `json:"user_id"`
}

// Decode maps one frame to its event. Unknown names return ErrUnknownEvent,
// undecodable payloads ErrMalformed.
func (d *Decoder) Decode(f Frame) (Event, error) {
	switch f.Event {
	case types.EvtAuctionAll:
		var raws []rawAuction
		if err := f.unmarshal(&raws); err != nil {
			return nil, err
		}
		return AuctionList{Auctions: lo.Map(raws, func(r rawAuction, _ int) types.Auction { return d.auction(r) })}, nil

	case types.EvtAuctionCreated:
		var r rawAuction
		if err := f.unmarshal(&r); err != nil {
			return nil, err
		}
		return AuctionCreated{Auction: d.auction(r)}, nil

	case types.EvtAuctionClosed, types.EvtAuctionUpdated:
		var r rawAuction
		if err := f.unmarshal(&r); err != nil {
			return nil, err
		}
		return AuctionUpdated{Auction: d.auction(r)}, nil

	case types.EvtJoinSuccess:
		var r rawJoin
		if err := f.unmarshal(&r); err != nil {
			return nil, err
		}
		return JoinSucceeded{AuctionID: Text(r.AuctionID), UserID: Text(r.UserID)}, nil

	case types.EvtAuctionJoined:
		var v any
		if err := f.unmarshal(&v); err != nil {
			return nil, err
		}
		return PeerJoined{UserID: Text(v)}, nil

	case types.EvtUserLeft:
		var v any
		if err := f.unmarshal(&v); err != nil {
			return nil, err
		}
		return PeerLeft{Data: v}, nil

	case types.EvtAuctionSetLots:
		var raws []rawLot
		if err := f.unmarshal(&raws); err != nil {
			return nil, err
		}
		return LotList{Lots: lo.Map(raws, func(r rawLot, _ int) types.Lot { return d.lot(r) })}, nil

	case types.EvtLotCreated:
		var r rawLot
		if err := f.unmarshal(&r); err != nil {
			return nil, err
		}
		return LotCreated{Lot: d.lot(r)}, nil

	case types.EvtLotClosed:
		var r rawLotRef
		if err := f.unmarshal(&r); err != nil {
			return nil, err
		}
		return LotClosed{LotID: Text(r.LotID), AuctionID: Text(r.AuctionID)}, nil

	case types.EvtLotSetOffers:
		var raws []rawOffer
		if err := f.unmarshal(&raws); err != nil {
			return nil, err
		}
		offers := lo.Map(raws, func(r rawOffer, _ int) types.Offer { return d.offer(r) })
		ev := OfferList{Offers: offers}
		if len(offers) > 0 {
			ev.LotID = offers[0].LotID
		}
		return ev, nil

	case types.EvtOfferCreated:
		var r rawOffer
		if err := f.unmarshal(&r); err != nil {
			return nil, err
		}
		return OfferCreated{Offer: d.offer(r)}, nil

	case types.EvtOfferCanceled:
		var r rawOfferRef
		if err := f.unmarshal(&r); err != nil {
			return nil, err
		}
		return OfferCanceled{OfferID: Text(r.OfferID), LotID: Text(r.LotID)}, nil

	case types.EvtOnlineUsers:
		var raws []any
		if err := f.unmarshal(&raws); err != nil {
			return nil, err
		}
		ids := lo.Map(raws, func(v any, _ int) string { return Text(v) })
		return OnlineUsers{UserIDs: lo.Compact(ids)}, nil

	case types.EvtAuctionError, types.EvtLotError:
		var v any
		if err := f.unmarshal(&v); err != nil {
			// error frames are display-only; keep the raw text
			return AppError{Event: f.Event, Message: string(f.Data)}, nil
		}
		return AppError{Event: f.Event, Message: message(v), Data: v}, nil

	case types.EvtConnectError:
		var v any
		if err := f.unmarshal(&v); err != nil {
			return ConnectError{Message: string(f.Data)}, nil
		}
		return ConnectError{Message: message(v)}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, f.Event)
	}
}

func (d *Decoder) auction(r rawAuction) types.Auction {
	a := types.Auction{
		ID:          Text(r.ID),
		UserID:      Text(r.UserID),
		Status:      NormalizeStatus(Text(r.Status)),
		ClosingType: types.ClosingType(Text(r.ClosingType)),
		Type:        types.AuctionType(Text(r.Type)),
		Asset:       Text(r.Asset),
		Currency:    Text(r.Currency),
		Term:        Text(r.Term),
	}
	a.Volume = d.number("auction", a.ID, "volume", r.Volume)
	a.EndTime = d.timestamp("auction", a.ID, "end_time", r.EndTime, time.Time{})
	a.CreatedAt = d.timestamp("auction", a.ID, "createdAt", r.CreatedAt, time.Time{})
	a.UpdatedAt = d.timestamp("auction", a.ID, "updatedAt", r.UpdatedAt, time.Time{})
	return a
}

func (d *Decoder) lot(r rawLot) types.Lot {
	l := types.Lot{
		ID:            Text(r.ID),
		AuctionID:     Text(r.AuctionID),
		Asset:         Text(r.Asset),
		Status:        NormalizeStatus(Text(r.Status)),
		WinnerUserID:  Text(r.WinnerUserID),
		WinnerOfferID: Text(r.WinnerOfferID),
	}
	l.Volume = d.number("lot", l.ID, "volume", r.Volume)
	l.Percent = d.number("lot", l.ID, "percent", r.Percent)
	l.CreatedAt = d.timestamp("lot", l.ID, "createdAt", r.CreatedAt, time.Time{})
	l.UpdatedAt = d.timestamp("lot", l.ID, "updatedAt", r.UpdatedAt, time.Time{})
	l.Offers = lo.Map(r.Offers, func(o rawOffer, _ int) types.Offer { return d.offer(o) })
	return l
}

func (d *Decoder) offer(r rawOffer) types.Offer {
	o := types.Offer{
		ID:     Text(r.ID),
		LotID:  Text(r.LotID),
		UserID: Text(r.UserID),
		Status: NormalizeOfferStatus(Text(r.Status)),
	}
	o.Percent = d.number("offer", o.ID, "percent", r.Percent)
	o.Volume = d.number("offer", o.ID, "volume", r.Volume)
	o.CreatedAt = d.timestamp("offer", o.ID, "created_at", r.CreatedAt, d.now().UTC())
	return o
}

func (d *Decoder) number(entity, id, field string, v any) float64 {
	n, ok := Number(v)
	if !ok && v != nil {
		d.logger.Warn("coerced non-numeric field",
			zap.String("entity", entity), zap.String("id", id),
			zap.String("field", field), zap.Any("raw", v))
	}
	return n
}

func (d *Decoder) timestamp(entity, id, field string, v any, fallback time.Time) time.Time {
	t, ok := Timestamp(v, fallback)
	if !ok && v != nil {
		d.logger.Warn("coerced unparseable timestamp",
			zap.String("entity", entity), zap.String("id", id),
			zap.String("field", field), zap.Any("raw", v))
	}
	return t
}

// message pulls a readable text out of an error payload.
func message(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case map[string]any:
		if m, ok := t["message"]; ok {
			return Text(m)
		}
		if m, ok := t["error"]; ok {
			return Text(m)
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
