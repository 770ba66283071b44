package backtest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"factorlab/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExitRule decides whether a signal-driven position should be closed at
// the close of date
type ExitRule interface {
	CheckExit(pos domain.Position, date time.Time, heldPeriods int) (domain.ExitReason, bool)
}

type RebalanceTarget struct {
	Date    time.Time
	Symbols []string
}

type Input struct {
	// trading days of the run, ascending
	Calendar    []time.Time
	Prices      PriceSource
	InitialCash decimal.Decimal
	Rebalances  []RebalanceTarget
	// signal-driven entries keyed by decision date
	Entries  map[time.Time][]string
	ExitRule ExitRule
}

type Options struct {
	Execution     ExecutionPolicy
	Sizer         Sizer
	RebalanceSide domain.PositionSide
	SignalSide    domain.PositionSide
}

type Output struct {
	EquityCurve []domain.EquityCurvePoint
	// every position ever opened, in the order they were opened
	Positions  []domain.Position
	Exclusions domain.ExclusionCounts
}

type Simulator struct {
	opts Options
}

func NewSimulator(opts Options) *Simulator {
	if opts.Execution == nil {
		opts.Execution = NextBarOpen{}
	}
	if opts.Sizer == nil {
		opts.Sizer = EqualWeight{}
	}
	if opts.RebalanceSide == "" {
		opts.RebalanceSide = domain.PositionSide_Long
	}
	if opts.SignalSide == "" {
		opts.SignalSide = domain.PositionSide_Long
	}
	return &Simulator{opts: opts}
}

type order struct {
	symbol string
	entry  bool
	origin domain.PositionOrigin
	side   domain.PositionSide
	amount decimal.Decimal

	position *domain.Position
	reason   domain.ExitReason

	fill Fill
}

// simulation holds the mutable state of one run. it never outlives Run
type simulation struct {
	in    Input
	opts  Options
	start time.Time
	end   time.Time

	cash      decimal.Decimal
	positions []*domain.Position
	open      []*domain.Position
	// symbols with an entry order waiting to fill
	pendingEntry map[string]bool
	// positions with an exit order waiting to fill
	exiting map[uuid.UUID]bool

	events     scheduler
	curve      []domain.EquityCurvePoint
	exclusions domain.ExclusionCounts
}

// Run replays the calendar in date order. every transition goes through
// one event queue so rebalances, signal entries, exits and fills share
// the same ordering rules
func (s *Simulator) Run(ctx context.Context, in Input) (*Output, error) {
	if len(in.Calendar) == 0 {
		return nil, fmt.Errorf("cannot simulate an empty calendar")
	}
	for i := 1; i < len(in.Calendar); i++ {
		if !in.Calendar[i-1].Before(in.Calendar[i]) {
			return nil, fmt.Errorf("calendar is not strictly ascending at %s", in.Calendar[i].Format(time.DateOnly))
		}
	}
	if !in.InitialCash.IsPositive() {
		return nil, fmt.Errorf("initial cash must be positive, got %s", in.InitialCash.String())
	}

	sim := &simulation{
		in:           in,
		opts:         s.opts,
		start:        in.Calendar[0],
		end:          in.Calendar[len(in.Calendar)-1],
		cash:         in.InitialCash,
		pendingEntry: map[string]bool{},
		exiting:      map[uuid.UUID]bool{},
		exclusions:   domain.ExclusionCounts{},
	}

	for _, d := range in.Calendar {
		sim.events.push(&event{date: d, kind: eventForcedClose})
		sim.events.push(&event{date: d, kind: eventExitCheck})
		sim.events.push(&event{date: d, kind: eventMark})
	}
	for _, r := range in.Rebalances {
		if r.Date.Before(sim.start) || r.Date.After(sim.end) {
			continue
		}
		sim.events.push(&event{date: r.Date, kind: eventRebalance, symbols: r.Symbols})
	}
	for d, symbols := range in.Entries {
		if d.Before(sim.start) || d.After(sim.end) || len(symbols) == 0 {
			continue
		}
		sorted := append([]string{}, symbols...)
		sort.Strings(sorted)
		sim.events.push(&event{date: d, kind: eventSignalEntry, symbols: sorted})
	}

	for {
		ev, ok := sim.events.pop()
		if !ok {
			break
		}
		switch ev.kind {
		case eventExitFill, eventEntryFill:
			sim.executeFill(ev.order)
		case eventForcedClose:
			sim.forceCloseEnded(ev.date)
		case eventExitCheck:
			sim.checkExits(ev.date)
		case eventRebalance:
			sim.rebalance(ev.date, ev.symbols)
		case eventSignalEntry:
			sim.enterOnSignals(ev.date, ev.symbols)
		case eventMark:
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			sim.mark(ev.date)
		}
	}

	out := &Output{
		EquityCurve: sim.curve,
		Positions:   make([]domain.Position, 0, len(sim.positions)),
		Exclusions:  sim.exclusions,
	}
	for _, p := range sim.positions {
		out.Positions = append(out.Positions, *p)
	}
	return out, nil
}

func (s *simulation) price(symbol string, date time.Time) (decimal.Decimal, bool) {
	bar, ok := s.in.Prices.LatestBar(symbol, date)
	if !ok {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(bar.AdjClose), true
}

// equity marks every open position at its latest close on or before date
func (s *simulation) equity(date time.Time) decimal.Decimal {
	total := s.cash
	for _, p := range s.open {
		price, ok := s.price(p.Symbol, date)
		if !ok {
			price = p.EntryPrice
		}
		total = total.Add(p.MarketValue(price))
	}
	return total
}

// active counts positions that are, or will be once pending orders
// fill, open after today
func (s *simulation) active() int {
	n := 0
	for _, p := range s.open {
		if !s.exiting[p.ID] {
			n++
		}
	}
	for _, pending := range s.pendingEntry {
		if pending {
			n++
		}
	}
	return n
}

func (s *simulation) holds(symbol string) bool {
	if s.pendingEntry[symbol] {
		return true
	}
	for _, p := range s.open {
		if p.Symbol == symbol && !s.exiting[p.ID] {
			return true
		}
	}
	return false
}

// heldPeriods counts trading days after entry up to and including date
func (s *simulation) heldPeriods(entry, date time.Time) int {
	cal := s.in.Calendar
	from := sort.Search(len(cal), func(i int) bool { return cal[i].After(entry) })
	to := sort.Search(len(cal), func(i int) bool { return cal[i].After(date) })
	return to - from
}

func (s *simulation) submit(o *order, decisionDate time.Time) {
	fill, ok := s.opts.Execution.Fill(s.in.Prices, o.symbol, decisionDate)
	if o.entry {
		if !ok || fill.Date.After(s.end) {
			s.exclusions.Add(domain.ExclusionReason_UnfilledOrder, 1)
			return
		}
	} else {
		if !ok {
			// a series that runs to the end of the window has no bar after
			// the last trading day. the position stays open and marked
			if last, found := s.in.Prices.LastBar(o.symbol); found && !last.Date.Before(s.end) {
				return
			}
			s.forceClose(o.position)
			return
		}
		if fill.Date.After(s.end) {
			return
		}
	}

	o.fill = fill
	if fill.Date.Equal(decisionDate) {
		s.executeFill(o)
		return
	}

	kind := eventEntryFill
	if o.entry {
		s.pendingEntry[o.symbol] = true
	} else {
		kind = eventExitFill
		s.exiting[o.position.ID] = true
	}
	s.events.push(&event{date: fill.Date, kind: kind, order: o})
}

func (s *simulation) executeFill(o *order) {
	if o.entry {
		delete(s.pendingEntry, o.symbol)
		s.openPosition(o)
		return
	}
	delete(s.exiting, o.position.ID)
	if o.position.ExitDate != nil {
		// already forced closed while the order was pending
		return
	}
	s.closePosition(o.position, o.fill.Date, o.fill.Price, o.reason, false)
}

func (s *simulation) openPosition(o *order) {
	amount := o.amount
	if o.side == domain.PositionSide_Long && amount.GreaterThan(s.cash) {
		amount = s.cash
	}
	if !amount.IsPositive() || !o.fill.Price.IsPositive() {
		s.exclusions.Add(domain.ExclusionReason_UnfilledOrder, 1)
		return
	}

	pos := &domain.Position{
		ID:         positionID(o.symbol, o.fill.Date, len(s.positions)),
		Symbol:     o.symbol,
		Side:       o.side,
		Origin:     o.origin,
		EntryDate:  o.fill.Date,
		EntryPrice: o.fill.Price,
		Quantity:   amount.Div(o.fill.Price),
	}
	s.cash = s.cash.Sub(pos.MarketValue(pos.EntryPrice))
	s.positions = append(s.positions, pos)
	s.open = append(s.open, pos)
}

// positionID is derived from the position itself so reruns on the same
// input produce the same ids
func positionID(symbol string, date time.Time, n int) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s|%s|%d", symbol, date.Format(time.DateOnly), n)))
}

func (s *simulation) closePosition(pos *domain.Position, date time.Time, price decimal.Decimal, reason domain.ExitReason, forced bool) {
	pos.ExitDate = &date
	pos.ExitPrice = &price
	pos.ExitReason = reason
	pos.ForcedClose = forced
	s.cash = s.cash.Add(pos.MarketValue(price))

	for i, p := range s.open {
		if p == pos {
			s.open = append(s.open[:i], s.open[i+1:]...)
			break
		}
	}
}

func (s *simulation) forceClose(pos *domain.Position) {
	last, ok := s.in.Prices.LastBar(pos.Symbol)
	date, price := pos.EntryDate, pos.EntryPrice
	if ok {
		date, price = last.Date, decimal.NewFromFloat(last.AdjClose)
	}
	delete(s.exiting, pos.ID)
	s.closePosition(pos, date, price, domain.ExitReason_ForcedClose, true)
}

// forceCloseEnded closes positions whose price series stopped before date
func (s *simulation) forceCloseEnded(date time.Time) {
	for _, pos := range append([]*domain.Position{}, s.open...) {
		last, ok := s.in.Prices.LastBar(pos.Symbol)
		if !ok || last.Date.Before(date) {
			s.forceClose(pos)
		}
	}
}

func (s *simulation) checkExits(date time.Time) {
	if s.in.ExitRule == nil {
		return
	}
	for _, pos := range append([]*domain.Position{}, s.open...) {
		if pos.Origin != domain.PositionOrigin_Signal || s.exiting[pos.ID] || !date.After(pos.EntryDate) {
			continue
		}
		reason, ok := s.in.ExitRule.CheckExit(*pos, date, s.heldPeriods(pos.EntryDate, date))
		if !ok {
			continue
		}
		s.submit(&order{
			symbol:   pos.Symbol,
			position: pos,
			reason:   reason,
		}, date)
	}
}

// rebalance closes every rebalance-driven position and opens the new
// targets. a target already held by a signal position is skipped
func (s *simulation) rebalance(date time.Time, targets []string) {
	closing := []*domain.Position{}
	for _, pos := range s.open {
		if pos.Origin == domain.PositionOrigin_Rebalance && !s.exiting[pos.ID] {
			closing = append(closing, pos)
		}
	}
	equity := s.equity(date)

	for _, pos := range closing {
		s.submit(&order{
			symbol:   pos.Symbol,
			position: pos,
			reason:   domain.ExitReason_Rebalance,
		}, date)
	}

	seen := map[string]bool{}
	entries := []string{}
	for _, symbol := range targets {
		if seen[symbol] || s.holds(symbol) {
			continue
		}
		seen[symbol] = true
		entries = append(entries, symbol)
	}

	concurrent := s.active() + len(entries)
	for _, symbol := range entries {
		amount := s.opts.Sizer.Allocation(SizingInput{
			Equity:     equity,
			Cash:       s.cash,
			Concurrent: concurrent,
		})
		s.submit(&order{
			symbol: symbol,
			entry:  true,
			origin: domain.PositionOrigin_Rebalance,
			side:   s.opts.RebalanceSide,
			amount: amount,
		}, date)
	}
}

func (s *simulation) enterOnSignals(date time.Time, symbols []string) {
	for _, symbol := range symbols {
		if s.holds(symbol) {
			continue
		}
		amount := s.opts.Sizer.Allocation(SizingInput{
			Equity:     s.equity(date),
			Cash:       s.cash,
			Concurrent: s.active() + 1,
		})
		s.submit(&order{
			symbol: symbol,
			entry:  true,
			origin: domain.PositionOrigin_Signal,
			side:   s.opts.SignalSide,
			amount: amount,
		}, date)
	}
}

func (s *simulation) mark(date time.Time) {
	s.curve = append(s.curve, domain.EquityCurvePoint{
		Date:          date,
		Value:         s.equity(date),
		Cash:          s.cash,
		OpenPositions: len(s.open),
	})
}
