package domain

import (
	"time"
)

type FactorMode string

const (
	FactorMode_Strict FactorMode = "strict"
	FactorMode_Proxy  FactorMode = "proxy"
)

type Orientation string

const (
	Orientation_HigherIsBetter Orientation = "higher_is_better"
	Orientation_LowerIsBetter  Orientation = "lower_is_better"
)

// FactorValue is the output of a single factor for one security on one
// date. a nil Value means the factor could not be computed; it is never
// replaced by zero
type FactorValue struct {
	Symbol string     `json:"symbol"`
	Date   time.Time  `json:"date"`
	Factor string     `json:"factor"`
	Value  *float64   `json:"value"`
	Mode   FactorMode `json:"mode"`
	// set when best-available fell back to the proxy formula
	Fallback bool   `json:"fallback,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

func (f FactorValue) Available() bool {
	return f.Value != nil
}

type Rank struct {
	Symbol   string    `json:"symbol"`
	Date     time.Time `json:"date"`
	Factor   string    `json:"factor"`
	Position int       `json:"position"`
}

// CompositeScore combines per-factor ranks. lower is more attractive
// regardless of factor orientation. Score is nil when the composite is
// undefined for the security on that date
type CompositeScore struct {
	Symbol    string         `json:"symbol"`
	Date      time.Time      `json:"date"`
	Score     *float64       `json:"score"`
	Ranks     map[string]int `json:"ranks"`
	Penalized []string       `json:"penalized,omitempty"`
	Missing   []string       `json:"missing,omitempty"`
}

func (c CompositeScore) Defined() bool {
	return c.Score != nil
}
