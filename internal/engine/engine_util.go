package engine

import (
	"slices"

	"github.com/samber/lo"

	"github.com/DoyleJ11/deposit-auction-client/pkg/types"
)

func NewEmptyState() State {
	return State{
		Auctions:    []types.Auction{},
		Lots:        []types.Lot{},
		OnlineUsers: []string{},
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func findAuction(auctions []types.Auction, id string) (types.Auction, bool) {
	return lo.Find(auctions, func(a types.Auction) bool { return a.ID == id })
}

func upsertAuction(auctions []types.Auction, a types.Auction) []types.Auction {
	if _, idx, ok := lo.FindIndexOf(auctions, func(x types.Auction) bool { return x.ID == a.ID }); ok {
		out := slices.Clone(auctions)
		out[idx] = a
		return out
	}
	return append(slices.Clip(auctions), a)
}

func replaceAuction(auctions []types.Auction, a types.Auction) []types.Auction {
	return lo.Map(auctions, func(x types.Auction, _ int) types.Auction {
		if x.ID == a.ID {
			return a
		}
		return x
	})
}

func upsertLot(lots []types.Lot, l types.Lot) []types.Lot {
	if _, idx, ok := lo.FindIndexOf(lots, func(x types.Lot) bool { return x.ID == l.ID }); ok {
		out := slices.Clone(lots)
		out[idx] = l
		return out
	}
	return append(slices.Clip(lots), l)
}

// updateLot returns a copy of lots with fn applied to the lot matching id.
func updateLot(lots []types.Lot, id string, fn func(types.Lot) types.Lot) ([]types.Lot, bool) {
	found := false
	out := lo.Map(lots, func(l types.Lot, _ int) types.Lot {
		if l.ID != id {
			return l
		}
		found = true
		return fn(l)
	})
	return out, found
}

// withOffers gives the lot its own copy of offers.
func withOffers(l types.Lot, offers []types.Offer) types.Lot {
	l.Offers = nonNil(slices.Clone(offers))
	return l
}

// upsertOffer replaces by id (incoming fields win) or appends. A terminal
// status is never moved back.
func upsertOffer(offers []types.Offer, o types.Offer) []types.Offer {
	_, idx, ok := lo.FindIndexOf(offers, func(x types.Offer) bool { return x.ID == o.ID })
	if !ok {
		return append(slices.Clip(offers), o)
	}
	if prev := offers[idx].Status; prev.Terminal() {
		o.Status = prev
	}
	out := slices.Clone(offers)
	out[idx] = o
	return out
}

func removeOffer(lots []types.Lot, lotID, offerID string) []types.Lot {
	return lo.Map(lots, func(l types.Lot, _ int) types.Lot {
		if lotID != "" && l.ID != lotID {
			return l
		}
		return withOffers(l, lo.Filter(l.Offers, func(o types.Offer, _ int) bool { return o.ID != offerID }))
	})
}
