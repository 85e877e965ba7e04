package api

import (
	"context"
	"fmt"
	"strings"
)

// Report is the closing statement of an auction: every offer and the deals
// that were struck.
type Report struct {
	GeneralInfo struct {
		Date              string  `json:"date"`
		TotalVolume       float64 `json:"totalVolume"`
		ParticipantsCount int     `json:"participantsCount"`
	} `json:"generalInfo"`
	Offers []ReportRow `json:"offersTable"`
	Deals  []ReportRow `json:"dealsTable"`
}

type ReportRow struct {
	Bank         string   `json:"bank"`
	LotID        Text     `json:"lotId"`
	LotAsset     string   `json:"lotAsset"`
	LotPercent   float64  `json:"lotPercent"`
	LotTermMonth *int     `json:"lotTermMonth"`
	OfferPercent Text     `json:"offerPercent"`
	LotVolume    *float64 `json:"lotVolume"`
}

func (c *Client) Report(ctx context.Context, auctionID string) (Report, error) {
	if strings.TrimSpace(auctionID) == "" {
		return Report{}, fmt.Errorf("%w: auction id", ErrMissingField)
	}
	var r Report
	if err := c.get(ctx, "/api/auction/"+escape(auctionID), &r); err != nil {
		return Report{}, err
	}
	return r, nil
}
