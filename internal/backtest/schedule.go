package backtest

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var frequencyAliases = map[string]string{
	"weekly":    "@weekly",
	"monthly":   "@monthly",
	"quarterly": "0 0 1 1,4,7,10 *",
	"annual":    "@yearly",
	"yearly":    "@yearly",
}

// ParseFrequency accepts a named frequency or any standard 5-field cron
// spec
func ParseFrequency(frequency string) (cron.Schedule, error) {
	spec := strings.TrimSpace(frequency)
	if alias, ok := frequencyAliases[strings.ToLower(spec)]; ok {
		spec = alias
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rebalance frequency %q: %w", frequency, err)
	}
	return schedule, nil
}

// TradingCalendar resolves a date to the first trading day on or after it
type TradingCalendar interface {
	NextTradingDay(date time.Time) (time.Time, bool)
}

// RebalanceDates lists the trading days on which the portfolio is
// rebuilt. the first trading day of the run is always one of them;
// activations on non-trading days roll forward to the next trading day
func RebalanceDates(frequency string, start, end time.Time, calendar TradingCalendar) ([]time.Time, error) {
	schedule, err := ParseFrequency(frequency)
	if err != nil {
		return nil, err
	}

	out := []time.Time{}
	add := func(t time.Time) bool {
		day, ok := calendar.NextTradingDay(t)
		if !ok || day.After(end) {
			return false
		}
		if len(out) == 0 || out[len(out)-1].Before(day) {
			out = append(out, day)
		}
		return true
	}

	if !add(start) {
		return out, nil
	}
	for t := schedule.Next(start); !t.After(end); t = schedule.Next(t) {
		if !add(t) {
			break
		}
	}
	return out, nil
}
