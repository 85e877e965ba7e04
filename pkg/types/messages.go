package types

// Wire vocabulary shared with the auction backend. Names are matched byte for
// byte; the backend has no versioning.

// Server -> Client
const (
	EvtAuctionAll     = "auction:all"          // Auction[]
	EvtAuctionCreated = "auction:created"      // Auction
	EvtAuctionClosed  = "auction:closed"       // Auction
	EvtAuctionUpdated = "auction:updated"      // Auction
	EvtAuctionJoined  = "auction:joined"       // user_id: string
	EvtJoinSuccess    = "auction:join_success" // { auction_id, user_id }
	EvtUserLeft       = "auction:user_left"    // any
	EvtAuctionSetLots = "auction:set_lots"     // Lot[] (offers embedded)
	EvtOnlineUsers    = "auction:online_users" // string[]
	EvtAuctionError   = "auction:error"        // any
	EvtLotCreated     = "lot:created"          // Lot
	EvtLotClosed      = "lot:closed"           // { lot_id, auction_id }
	EvtLotSetOffers   = "lot:set_offers"       // Offer[] (all for one lot)
	EvtLotError       = "lot:error"            // any
	EvtOfferCreated   = "offer:created"        // Offer
	EvtOfferCanceled  = "offer:canceled"       // { offer_id, lot_id }
	EvtConnectError   = "connect_error"        // { message }
)

// Client -> Server
const (
	CmdAuctionAll     = "auction:all"              // no payload
	CmdAuctionJoin    = "auction:join"             // auction id
	CmdAuctionGetLots = "auction:get_lots"         // auction id
	CmdAuctionCreate  = "auction:create"           // CreateAuctionData
	CmdAuctionClose   = "auction:close"            // auction id
	CmdGetOnlineUsers = "auction:get_online_users" // auction id
	CmdLotCreate      = "lot:create"               // CreateLotData
	CmdLotClose       = "lot:close"                // CloseLotData
	CmdOfferCreate    = "offer:create"             // CreateOfferData
	CmdOfferCancel    = "offer:cancel"             // offer id
)

type AuctionType string

const (
	AuctionSell AuctionType = "sell"
	AuctionBuy  AuctionType = "buy"
)

type ClosingType string

const (
	ClosingAuto   ClosingType = "auto"
	ClosingManual ClosingType = "manual"
)

type CreateAuctionData struct {
	Type        AuctionType `json:"type"`
	Asset       string      `json:"asset"`
	Currency    string      `json:"currency"`
	EndTime     string      `json:"end_time"`
	ClosingType ClosingType `json:"closing_type"`
}

type CreateLotData struct {
	AuctionID    string `json:"auction_id"`
	Asset        string `json:"asset"`
	Volume       string `json:"volume"`
	Percent      string `json:"percent"`
	LotTermMonth int    `json:"lotTermMonth"`
}

type CreateOfferData struct {
	LotID   string  `json:"lot_id"`
	Percent float64 `json:"percent"`
	Volume  float64 `json:"volume"`
}

type CloseLotData struct {
	LotID     string `json:"lot_id"`
	AuctionID string `json:"auction_id"`
}
