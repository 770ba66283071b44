package domain

import (
	"time"
)

type ListingStatus string

const (
	ListingStatus_Listed   ListingStatus = "listed"
	ListingStatus_Delisted ListingStatus = "delisted"
)

type Security struct {
	Symbol   string        `json:"symbol"`
	Sector   string        `json:"sector"`
	Industry string        `json:"industry"`
	Status   ListingStatus `json:"status"`
}

// FundamentalSnapshot is a point-in-time view of a security's reported
// fields. snapshots are never mutated once loaded
type FundamentalSnapshot struct {
	Symbol string             `json:"symbol"`
	AsOf   time.Time          `json:"asOf"`
	Fields map[string]float64 `json:"fields"`
}

func (s FundamentalSnapshot) Get(field string) (float64, bool) {
	v, ok := s.Fields[field]
	return v, ok
}

type PriceBar struct {
	Symbol   string    `json:"symbol"`
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adjClose"`
	Volume   int64     `json:"volume"`
}

// AdjustedOpen scales the raw open by the same split/dividend factor
// that turns close into adjusted close, so fills at the open and marks
// at the adjusted close share one price basis
func (b PriceBar) AdjustedOpen() float64 {
	if b.Close == 0 {
		return b.Open
	}
	return b.Open * b.AdjClose / b.Close
}
