// Package alerts flags assets whose worst single-period return breaches a
// drop threshold.
package alerts

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/aristath/allocator/internal/domain"
	"github.com/aristath/allocator/internal/modules/prices"
	"github.com/aristath/allocator/pkg/formulas"
)

// Threshold bounds, in percent.
const (
	MinThresholdPercent     = 1.0
	MaxThresholdPercent     = 50.0
	DefaultThresholdPercent = 10.0
)

const minRows = 2

// AlertRecord summarizes the worst single-period move of one asset.
// MinDropPercent is signed: -15 means the asset fell 15% in one period.
// MaxDrawdownPercent is the peak-to-trough decline over the window and is
// informational only.
type AlertRecord struct {
	Asset              string
	MinDropPercent     float64
	MaxDrawdownPercent float64
	Triggered          bool
}

// ValidateThreshold checks that thresholdPercent lies in the accepted range.
func ValidateThreshold(thresholdPercent float64) error {
	if math.IsNaN(thresholdPercent) || thresholdPercent < MinThresholdPercent || thresholdPercent > MaxThresholdPercent {
		return fmt.Errorf("%w: %v not in [%v, %v]", domain.ErrInvalidThreshold,
			thresholdPercent, MinThresholdPercent, MaxThresholdPercent)
	}
	return nil
}

// Detector scans price matrices for threshold-breaching drops.
type Detector struct {
	log zerolog.Logger
}

// NewDetector creates a new alert detector.
func NewDetector(log zerolog.Logger) *Detector {
	return &Detector{
		log: log.With().Str("component", "alert_detector").Logger(),
	}
}

// Scan returns one record per asset in column order, each marked Triggered
// when its worst period return is at or below -thresholdPercent.
func (d *Detector) Scan(m *prices.PriceMatrix, thresholdPercent float64) ([]AlertRecord, error) {
	if err := ValidateThreshold(thresholdPercent); err != nil {
		return nil, err
	}
	if m.Rows() < minRows {
		return nil, &domain.InsufficientDataError{Rows: m.Rows(), Required: minRows}
	}

	records := make([]AlertRecord, 0, m.Cols())
	for _, asset := range m.Assets {
		col := m.Column(asset)
		worst := formulas.WorstPeriodReturn(col)
		if worst == nil {
			continue
		}
		drawdown := 0.0
		if dd := formulas.CalculateMaxDrawdown(col); dd != nil {
			drawdown = *dd * 100
		}

		drop := *worst * 100
		records = append(records, AlertRecord{
			Asset:              asset,
			MinDropPercent:     drop,
			MaxDrawdownPercent: drawdown,
			Triggered:          drop <= -thresholdPercent,
		})
	}

	return records, nil
}

// Detect returns only the triggered records, in column order.
func (d *Detector) Detect(m *prices.PriceMatrix, thresholdPercent float64) ([]AlertRecord, error) {
	records, err := d.Scan(m, thresholdPercent)
	if err != nil {
		return nil, err
	}

	triggered := make([]AlertRecord, 0, len(records))
	for _, r := range records {
		if r.Triggered {
			triggered = append(triggered, r)
		}
	}

	if len(triggered) > 0 {
		d.log.Info().
			Int("triggered", len(triggered)).
			Float64("threshold_percent", thresholdPercent).
			Msg("Drop alerts triggered")
	}

	return triggered, nil
}
