package domain

import (
	"fmt"
	"strings"
	"time"
)

// Period is the lookback window requested from the market-data provider.
type Period string

const (
	Period6Months Period = "6mo"
	Period1Year   Period = "1y"
	Period2Years  Period = "2y"
	Period5Years  Period = "5y"
)

// Periods lists the supported lookback windows in display order.
func Periods() []Period {
	return []Period{Period6Months, Period1Year, Period2Years, Period5Years}
}

// ParsePeriod validates a period string.
func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case Period6Months, Period1Year, Period2Years, Period5Years:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPeriod, s)
}

// Start returns the first calendar day of the window ending at end.
func (p Period) Start(end time.Time) time.Time {
	switch p {
	case Period6Months:
		return end.AddDate(0, -6, 0)
	case Period2Years:
		return end.AddDate(-2, 0, 0)
	case Period5Years:
		return end.AddDate(-5, 0, 0)
	default:
		return end.AddDate(-1, 0, 0)
	}
}

// Interval is the sampling frequency of the price series.
type Interval string

const (
	Interval1Day   Interval = "1d"
	Interval1Week  Interval = "1wk"
	Interval1Month Interval = "1mo"

	DefaultInterval = Interval1Day
)

// ParseInterval validates an interval string. Empty selects DefaultInterval.
func ParseInterval(s string) (Interval, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultInterval, nil
	}
	switch i := Interval(s); i {
	case Interval1Day, Interval1Week, Interval1Month:
		return i, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownInterval, s)
}

// PeriodsPerYear is the annualization factor implied by the interval
// (trading days for daily data).
func (i Interval) PeriodsPerYear() float64 {
	switch i {
	case Interval1Week:
		return 52
	case Interval1Month:
		return 12
	default:
		return 252
	}
}
