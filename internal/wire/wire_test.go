package wire

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/DoyleJ11/deposit-auction-client/pkg/types"
)

func TestNormalizeStatus_IsTotal(t *testing.T) {
	cases := map[string]types.Status{
		"open":                 types.StatusActive,
		"OPEN":                 types.StatusActive,
		" Active ":             types.StatusActive,
		"closed":               types.StatusClosed,
		"Finished":             types.StatusClosed,
		"ended":                types.StatusClosed,
		"pending":              types.StatusPending,
		"waiting":              types.StatusPending,
		"SCHEDULED":            types.StatusPending,
		"":                     types.StatusPending,
		"archived":             types.StatusPending,
		"\x00\xff":             types.StatusPending,
		"открыт":               types.StatusPending,
		"closed; drop table x": types.StatusPending,
	}

	allowed := map[types.Status]bool{types.StatusActive: true, types.StatusClosed: true, types.StatusPending: true}
	for in, want := range cases {
		got := NormalizeStatus(in)
		assert.Equal(t, want, got, "input %q", in)
		assert.True(t, allowed[got], "input %q produced %q", in, got)
	}
}

func TestNumber(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want float64
		ok   bool
	}{
		{name: "float", in: 7.5, want: 7.5, ok: true},
		{name: "numeric string", in: "7.5", want: 7.5, ok: true},
		{name: "padded string", in: " 100 ", want: 100, ok: true},
		{name: "json number", in: json.Number("42"), want: 42, ok: true},
		{name: "garbage", in: "abc", want: 0, ok: false},
		{name: "empty", in: "", want: 0, ok: false},
		{name: "nil", in: nil, want: 0, ok: false},
		{name: "nan", in: math.NaN(), want: 0, ok: false},
		{name: "inf string", in: "Inf", want: 0, ok: false},
		{name: "object", in: map[string]any{"x": 1}, want: 0, ok: false},
		{name: "true", in: true, want: 0, ok: false},
		{name: "false", in: false, want: 0, ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Number(tc.in)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.ok, ok)
		})
	}
}

func TestTimestamp(t *testing.T) {
	fallback := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	got, ok := Timestamp("2025-06-01T10:00:00Z", fallback)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), got)

	for _, in := range []any{"not-a-date", "", nil, map[string]any{}} {
		got, ok := Timestamp(in, fallback)
		assert.False(t, ok, "input %v", in)
		assert.Equal(t, fallback, got, "input %v", in)
	}
}

func TestDecode_OfferCreatedCoercesFields(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	d := NewDecoder(zaptest.NewLogger(t), func() time.Time { return now })

	frame := Frame{
		Event: types.EvtOfferCreated,
		Data:  json.RawMessage(`{"id":"o1","lot_id":"l1","user_id":7,"percent":"7.5","volume":"100","created_at":"not-a-date","status":"weird"}`),
	}

	evt, err := d.Decode(frame)
	require.NoError(t, err)

	created, ok := evt.(OfferCreated)
	require.True(t, ok, "got %T", evt)
	assert.Equal(t, types.Offer{
		ID:        "o1",
		LotID:     "l1",
		UserID:    "7",
		Percent:   7.5,
		Volume:    100,
		Status:    types.OfferPending,
		CreatedAt: now,
	}, created.Offer)
}

func TestDecode_BooleanNumberIsZeroedAndLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	d := NewDecoder(zap.New(core), nil)

	evt, err := d.Decode(Frame{
		Event: types.EvtOfferCreated,
		Data:  json.RawMessage(`{"id":"o1","lot_id":"l1","percent":true,"volume":100}`),
	})
	require.NoError(t, err)

	offer := evt.(OfferCreated).Offer
	assert.Equal(t, 0.0, offer.Percent)
	assert.Equal(t, 100.0, offer.Volume)

	warned := logs.FilterMessage("coerced non-numeric field").FilterField(zap.String("field", "percent"))
	assert.Equal(t, 1, warned.Len())
}

func TestDecode_Snapshots(t *testing.T) {
	d := NewDecoder(zaptest.NewLogger(t), nil)

	evt, err := d.Decode(Frame{Event: types.EvtAuctionAll, Data: json.RawMessage(`[{"id":"a1","status":"open","closing_type":"manual","currency":"KGS","end_time":"2026-11-01T00:00:00Z"}]`)})
	require.NoError(t, err)
	list := evt.(AuctionList)
	require.Len(t, list.Auctions, 1)
	assert.Equal(t, types.StatusActive, list.Auctions[0].Status)
	assert.Equal(t, types.ClosingManual, list.Auctions[0].ClosingType)

	evt, err = d.Decode(Frame{Event: types.EvtAuctionAll, Data: json.RawMessage(`null`)})
	require.NoError(t, err)
	assert.Empty(t, evt.(AuctionList).Auctions)

	evt, err = d.Decode(Frame{Event: types.EvtAuctionSetLots, Data: json.RawMessage(`[{"id":"l1","auction_id":"a1","status":"OPEN","volume":"5000000","percent":12,"offers":[{"id":"o1","lot_id":"l1","percent":"x"}]}]`)})
	require.NoError(t, err)
	lots := evt.(LotList).Lots
	require.Len(t, lots, 1)
	assert.Equal(t, 5000000.0, lots[0].Volume)
	assert.Equal(t, types.StatusActive, lots[0].Status)
	require.Len(t, lots[0].Offers, 1)
	assert.Equal(t, 0.0, lots[0].Offers[0].Percent)

	evt, err = d.Decode(Frame{Event: types.EvtLotSetOffers, Data: json.RawMessage(`[{"id":"o1","lot_id":"l9"}]`)})
	require.NoError(t, err)
	assert.Equal(t, "l9", evt.(OfferList).LotID)

	evt, err = d.Decode(Frame{Event: types.EvtOnlineUsers, Data: json.RawMessage(`["u1", 2, null]`)})
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "2"}, evt.(OnlineUsers).UserIDs)
}

func TestDecode_ErrorsAndUnknown(t *testing.T) {
	d := NewDecoder(zaptest.NewLogger(t), nil)

	evt, err := d.Decode(Frame{Event: types.EvtLotError, Data: json.RawMessage(`{"message":"lot is closed"}`)})
	require.NoError(t, err)
	assert.Equal(t, AppError{Event: types.EvtLotError, Message: "lot is closed", Data: map[string]any{"message": "lot is closed"}}, evt)

	evt, err = d.Decode(Frame{Event: types.EvtConnectError, Data: json.RawMessage(`"Ошибка аутентификации"`)})
	require.NoError(t, err)
	assert.Equal(t, ConnectError{Message: "Ошибка аутентификации"}, evt)

	_, err = d.Decode(Frame{Event: "auction:teleport"})
	assert.True(t, errors.Is(err, ErrUnknownEvent))

	_, err = d.Decode(Frame{Event: types.EvtAuctionAll, Data: json.RawMessage(`{"not":"a list"}`)})
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestNewFrame(t *testing.T) {
	f, err := NewFrame(types.CmdOfferCreate, types.CreateOfferData{LotID: "l1", Percent: 7.5, Volume: 100})
	require.NoError(t, err)
	assert.JSONEq(t, `{"lot_id":"l1","percent":7.5,"volume":100}`, string(f.Data))

	f, err = NewFrame(types.CmdAuctionAll, nil)
	require.NoError(t, err)
	assert.Empty(t, f.Data)
}
