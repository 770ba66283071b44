package domain

type ExclusionReason string

const (
	ExclusionReason_DataUnavailable    ExclusionReason = "data_unavailable"
	ExclusionReason_InsufficientSample ExclusionReason = "insufficient_sample"
	ExclusionReason_FilteredSector     ExclusionReason = "filtered_sector"
	ExclusionReason_FilteredMarketCap  ExclusionReason = "filtered_market_cap"
	ExclusionReason_NegativeEvent      ExclusionReason = "negative_event"
	ExclusionReason_UnfilledOrder      ExclusionReason = "unfilled_order"
)

// ExclusionCounts tallies excluded security-dates per reason so callers
// can judge how much of the universe actually fed a result
type ExclusionCounts map[ExclusionReason]int

func (e ExclusionCounts) Add(reason ExclusionReason, n int) {
	if n == 0 {
		return
	}
	e[reason] += n
}

func (e ExclusionCounts) Merge(other ExclusionCounts) {
	for reason, n := range other {
		e.Add(reason, n)
	}
}

func (e ExclusionCounts) Total() int {
	total := 0
	for _, n := range e {
		total += n
	}
	return total
}
