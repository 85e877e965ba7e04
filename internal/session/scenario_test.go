package session

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/deposit-auction-client/pkg/types"
)

func TestScenario_JoinAndTrackOffers(t *testing.T) {
	h := newHarness(t, mintToken(t, "bank", time.Hour))
	conn := h.accept()

	v := h.s.View()
	assert.True(t, h.s.IsConnected())
	assert.Equal(t, "bank", v.Role)

	push(t, conn, types.EvtAuctionAll, `[{"id":"a1","status":"open","type":"sell","currency":"KGS"}]`)
	v = h.waitView("auction list", func(v View) bool { return len(v.Auctions) == 1 })
	assert.Equal(t, types.StatusActive, v.Auctions[0].Status)

	require.NoError(t, h.s.JoinAuction(h.ctx, "a1"))
	join := expectFrame(t, conn, types.CmdAuctionJoin)
	assert.Equal(t, "a1", payload[string](t, join))

	// no join ack arrives; the lot request still goes out after the delay
	h.clock.Advance(DefaultConfig().JoinLotsDelay - time.Millisecond)
	expectNoFrame(t, conn, 30*time.Millisecond)
	h.clock.Advance(time.Millisecond)
	lots := expectFrame(t, conn, types.CmdAuctionGetLots)
	assert.Equal(t, "a1", payload[string](t, lots))

	push(t, conn, types.EvtAuctionSetLots, `[{"id":"l1","auction_id":"a1","offers":[]}]`)
	h.waitView("lot snapshot", func(v View) bool { return len(v.Lots) == 1 })

	push(t, conn, types.EvtOfferCreated, `{"id":"o1","lot_id":"l1","percent":"7.5","volume":"100","created_at":"not-a-date"}`)
	v = h.waitView("offer", func(v View) bool { return len(v.Lots) == 1 && len(v.Lots[0].Offers) == 1 })

	o := v.Lots[0].Offers[0]
	assert.Equal(t, "o1", o.ID)
	assert.Equal(t, 7.5, o.Percent)
	assert.Equal(t, 100.0, o.Volume)
	assert.Equal(t, h.clock.Now().UTC(), o.CreatedAt)
	assert.False(t, o.CreatedAt.IsZero())
}

func TestJoinAck_RequestsLotsAndSetsCurrentAuction(t *testing.T) {
	h := newHarness(t, mintToken(t, "bank", time.Hour))
	conn := h.accept()

	push(t, conn, types.EvtAuctionAll, `[{"id":"a1","status":"active"},{"id":"a2","status":"pending"}]`)
	push(t, conn, types.EvtJoinSuccess, `{"auction_id":"a2","user_id":"u1"}`)

	v := h.waitView("join ack", func(v View) bool { return v.CurrentAuctionID == "a2" })
	require.NotNil(t, v.CurrentAuction)
	assert.Equal(t, types.StatusPending, v.CurrentAuction.Status)

	h.clock.Advance(DefaultConfig().JoinAckLotsDelay)
	f := expectFrame(t, conn, types.CmdAuctionGetLots)
	assert.Equal(t, "a2", payload[string](t, f))
}

func TestDrop_ClearsEphemeralStateButKeepsAuctions(t *testing.T) {
	h := newHarness(t, mintToken(t, "bank", time.Hour))
	conn := h.accept()

	push(t, conn, types.EvtAuctionAll, `[{"id":"a1","status":"open"}]`)
	push(t, conn, types.EvtJoinSuccess, `{"auction_id":"a1"}`)
	push(t, conn, types.EvtAuctionSetLots, `[{"id":"l1","auction_id":"a1","offers":[{"id":"o1","lot_id":"l1"}]}]`)
	push(t, conn, types.EvtOnlineUsers, `["u1","u2"]`)
	h.waitView("populated", func(v View) bool {
		return v.CurrentAuction != nil && len(v.Lots) == 1 && len(v.OnlineUsers) == 2
	})

	conn.drop()

	v := h.waitView("reconnecting", func(v View) bool { return v.Status == StatusReconnecting })
	assert.False(t, v.Connected)
	assert.Nil(t, v.CurrentAuction)
	assert.Empty(t, v.CurrentAuctionID)
	assert.Empty(t, v.Lots)
	assert.Empty(t, v.OnlineUsers)
	require.Len(t, v.Auctions, 1)
	assert.Equal(t, "a1", v.Auctions[0].ID)
}

func TestCreateOffer_WhileDisconnectedWritesNothing(t *testing.T) {
	h := newHarness(t, mintToken(t, "bank", time.Hour))
	conn := h.accept()

	push(t, conn, types.EvtAuctionAll, `[{"id":"a1","status":"open"}]`)
	h.waitView("auction list", func(v View) bool { return len(v.Auctions) == 1 })
	conn.drop()
	before := h.waitView("reconnecting", func(v View) bool { return v.Status == StatusReconnecting })

	err := h.s.CreateOffer(h.ctx, "l1", 7.5, 100)
	require.True(t, errors.Is(err, ErrNotConnected), "got %v", err)

	n := h.waitNotice("not connected warning", func(n types.Notice) bool { return n.Event == types.CmdOfferCreate })
	assert.Equal(t, types.NoticeWarning, n.Level)

	after := h.s.View()
	assert.Equal(t, before.Version, after.Version)
	assert.Equal(t, before.Auctions, after.Auctions)
	expectNoFrame(t, conn, 30*time.Millisecond)
}

func TestCommands_ValidateBeforeLiveness(t *testing.T) {
	h := newHarness(t, "")
	h.waitView("idle", func(v View) bool { return v.Status == StatusIdle && v.NeedsAuth })

	cases := []struct {
		name string
		call func() error
	}{
		{name: "join without id", call: func() error { return h.s.JoinAuction(h.ctx, "  ") }},
		{name: "offer percent above 100", call: func() error { return h.s.CreateOffer(h.ctx, "l1", 101, 10) }},
		{name: "offer zero volume", call: func() error { return h.s.CreateOffer(h.ctx, "l1", 5, 0) }},
		{name: "close lot without auction", call: func() error { return h.s.CloseLot(h.ctx, "l1", "") }},
		{name: "auction bad type", call: func() error {
			return h.s.CreateAuction(h.ctx, types.CreateAuctionData{Type: "swap", Asset: "deposit", Currency: "KGS", EndTime: "2026-11-01T00:00:00Z"})
		}},
		{name: "auction bad end time", call: func() error {
			return h.s.CreateAuction(h.ctx, types.CreateAuctionData{Type: types.AuctionSell, Asset: "deposit", Currency: "KGS", EndTime: "tomorrow"})
		}},
		{name: "lot non-numeric volume", call: func() error {
			return h.s.CreateLot(h.ctx, types.CreateLotData{AuctionID: "a1", Asset: "deposit", Volume: "lots", Percent: "12"})
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.call()
			assert.True(t, errors.Is(err, ErrInvalidCommand), "got %v", err)
		})
	}

	err := h.s.CancelOffer(h.ctx, "o1")
	assert.True(t, errors.Is(err, ErrNotConnected), "got %v", err)
	h.expectNoDial(30 * time.Millisecond)
}

func TestCommands_EmitWireFrames(t *testing.T) {
	h := newHarness(t, mintToken(t, "initiator", time.Hour))
	conn := h.accept()

	require.NoError(t, h.s.CreateAuction(h.ctx, types.CreateAuctionData{
		Type: types.AuctionSell, Asset: "deposit", Currency: "KGS", EndTime: "2026-11-01T00:00:00Z",
	}))
	created := payload[types.CreateAuctionData](t, expectFrame(t, conn, types.CmdAuctionCreate))
	assert.Equal(t, types.ClosingAuto, created.ClosingType)

	require.NoError(t, h.s.CreateLot(h.ctx, types.CreateLotData{AuctionID: "a1", Asset: "deposit", Volume: "5000000", Percent: "12.5", LotTermMonth: 6}))
	lot := payload[types.CreateLotData](t, expectFrame(t, conn, types.CmdLotCreate))
	assert.Equal(t, 6, lot.LotTermMonth)

	require.NoError(t, h.s.CreateOffer(h.ctx, "l1", 7.5, 100))
	offer := payload[types.CreateOfferData](t, expectFrame(t, conn, types.CmdOfferCreate))
	assert.Equal(t, types.CreateOfferData{LotID: "l1", Percent: 7.5, Volume: 100}, offer)

	require.NoError(t, h.s.CancelOffer(h.ctx, "o1"))
	assert.Equal(t, "o1", payload[string](t, expectFrame(t, conn, types.CmdOfferCancel)))

	require.NoError(t, h.s.CloseLot(h.ctx, "l1", "a1"))
	assert.Equal(t, types.CloseLotData{LotID: "l1", AuctionID: "a1"}, payload[types.CloseLotData](t, expectFrame(t, conn, types.CmdLotClose)))

	require.NoError(t, h.s.CloseAuction(h.ctx, "a1", "o9"))
	assert.Equal(t, "a1", payload[string](t, expectFrame(t, conn, types.CmdAuctionClose)))

	require.NoError(t, h.s.GetAuctionLots(h.ctx, "a1"))
	assert.Equal(t, "a1", payload[string](t, expectFrame(t, conn, types.CmdAuctionGetLots)))

	require.NoError(t, h.s.GetOnlineUsers(h.ctx, "a1"))
	assert.Equal(t, "a1", payload[string](t, expectFrame(t, conn, types.CmdGetOnlineUsers)))
}

func TestNotices_PeerEventsOnlyForPrivilegedRoles(t *testing.T) {
	cases := []struct {
		role string
		want bool
	}{
		{role: "bank", want: false},
		{role: "admin", want: true},
		{role: "initiator", want: true},
	}
	for _, tc := range cases {
		t.Run(tc.role, func(t *testing.T) {
			h := newHarness(t, mintToken(t, tc.role, time.Hour))
			conn := h.accept()

			push(t, conn, types.EvtAuctionJoined, `"u9"`)
			push(t, conn, types.EvtAuctionError, `{"message":"auction is closed"}`)

			var sawPeer bool
			h.waitNotice("auction error", func(n types.Notice) bool {
				if n.Event == types.EvtAuctionJoined {
					sawPeer = true
				}
				return n.Event == types.EvtAuctionError
			})
			assert.Equal(t, tc.want, sawPeer)
		})
	}
}

func TestAppError_DoesNotAlterState(t *testing.T) {
	h := newHarness(t, mintToken(t, "bank", time.Hour))
	conn := h.accept()

	push(t, conn, types.EvtAuctionAll, `[{"id":"a1","status":"open"}]`)
	before := h.waitView("auction list", func(v View) bool { return len(v.Auctions) == 1 })

	push(t, conn, types.EvtLotError, `{"message":"offer rejected"}`)
	n := h.waitNotice("lot error", func(n types.Notice) bool { return n.Event == types.EvtLotError })
	assert.Equal(t, types.NoticeError, n.Level)
	assert.Equal(t, "offer rejected", n.Message)

	after := h.s.View()
	assert.Equal(t, before.Auctions, after.Auctions)
	assert.Equal(t, before.Lots, after.Lots)
}

func TestUnknownAndMalformedFrames_AreIgnored(t *testing.T) {
	h := newHarness(t, mintToken(t, "bank", time.Hour))
	conn := h.accept()

	push(t, conn, "auction:teleport", `{}`)
	push(t, conn, types.EvtAuctionAll, `{"not":"a list"}`)
	push(t, conn, types.EvtAuctionAll, `[{"id":"a1","status":"closed"}]`)

	v := h.waitView("auction list", func(v View) bool { return len(v.Auctions) == 1 })
	assert.True(t, v.Connected)
	assert.Equal(t, types.StatusClosed, v.Auctions[0].Status)
}
