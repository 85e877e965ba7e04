package types

import "time"

// Status is the normalized lifecycle of an auction or lot.
type Status string

const (
	StatusActive  Status = "active"
	StatusClosed  Status = "closed"
	StatusPending Status = "pending"
)

type OfferStatus string

const (
	OfferPending  OfferStatus = "pending"
	OfferAccepted OfferStatus = "accepted"
	OfferRejected OfferStatus = "rejected"
)

// Terminal reports whether no further status transition is allowed.
func (s OfferStatus) Terminal() bool {
	return s == OfferAccepted || s == OfferRejected
}

type Auction struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	Status      Status      `json:"status"`
	ClosingType ClosingType `json:"closing_type"`
	EndTime     time.Time   `json:"end_time"`
	Type        AuctionType `json:"type"`
	Asset       string      `json:"asset"`
	Currency    string      `json:"currency"`
	Volume      float64     `json:"volume,omitempty"`
	Term        string      `json:"term,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

type Lot struct {
	ID            string    `json:"id"`
	AuctionID     string    `json:"auction_id"`
	Asset         string    `json:"asset"`
	Volume        float64   `json:"volume"`
	Percent       float64   `json:"percent"`
	Status        Status    `json:"status"`
	WinnerUserID  string    `json:"winner_user_id,omitempty"`
	WinnerOfferID string    `json:"winner_offer_id,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	Offers        []Offer   `json:"offers"`
}

type Offer struct {
	ID        string      `json:"id"`
	LotID     string      `json:"lot_id"`
	UserID    string      `json:"user_id"`
	Percent   float64     `json:"percent"`
	Volume    float64     `json:"volume"`
	Status    OfferStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
}

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a display-only message for the UI. It never carries state.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Event   string      `json:"event,omitempty"`
	Message string      `json:"message"`
	Data    any         `json:"data,omitempty"`
	At      time.Time   `json:"at"`
}
