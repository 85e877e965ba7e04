package types

import (
	"github.com/DoyleJ11/deposit-auction-client/internal/session"
	auction "github.com/DoyleJ11/deposit-auction-client/pkg/types"
)

// Client message types accepted by the local bridge.
const (
	MsgJoinAuction   = "JoinAuction"
	MsgCreateAuction = "CreateAuction"
	MsgCloseAuction  = "CloseAuction"
	MsgRefreshLots   = "RefreshLots"
	MsgOnlineUsers   = "OnlineUsers"
	MsgCreateLot     = "CreateLot"
	MsgCloseLot      = "CloseLot"
	MsgCreateOffer   = "CreateOffer"
	MsgCancelOffer   = "CancelOffer"
	MsgConnect       = "Connect"
	MsgDisconnect    = "Disconnect"
)

type ClientMessage struct {
	Type      string                     `json:"type"`
	AuctionID string                     `json:"auction_id,omitempty"`
	LotID     string                     `json:"lot_id,omitempty"`
	OfferID   string                     `json:"offer_id,omitempty"`
	Percent   float64                    `json:"percent,omitempty"`
	Volume    float64                    `json:"volume,omitempty"`
	Auction   *auction.CreateAuctionData `json:"auction,omitempty"`
	Lot       *auction.CreateLotData     `json:"lot,omitempty"`
}

type ServerMessage struct {
	Type    string          `json:"type"` // "State" | "Notice" | "Error"
	Version int             `json:"version,omitempty"`
	State   *session.View   `json:"state,omitempty"`
	Notice  *auction.Notice `json:"notice,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func StateMessage(v session.View) ServerMessage {
	return ServerMessage{Type: "State", Version: v.Version, State: &v}
}

func NoticeMessage(n auction.Notice) ServerMessage {
	return ServerMessage{Type: "Notice", Notice: &n}
}

func ErrorMessage(err string) ServerMessage {
	return ServerMessage{Type: "Error", Error: err}
}
