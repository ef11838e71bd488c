package handlers

import (
	"math"
	"time"

	"github.com/aristath/allocator/internal/domain"
	"github.com/aristath/allocator/internal/modules/alerts"
	"github.com/aristath/allocator/internal/modules/dashboard"
	"github.com/aristath/allocator/internal/modules/optimization"
	"github.com/aristath/allocator/internal/modules/prices"
)

// AssetDTO is one registry entry.
type AssetDTO struct {
	Key    string `json:"key"`
	Ticker string `json:"ticker"`
}

// SeriesDTO is one asset's price column.
type SeriesDTO struct {
	Asset  string    `json:"asset"`
	Values []float64 `json:"values"`
}

// PricesDTO is a price matrix in column form.
type PricesDTO struct {
	Timestamps []string    `json:"timestamps"`
	Series     []SeriesDTO `json:"series"`
	Empty      bool        `json:"empty"`
}

// WeightDTO is one asset's allocation.
type WeightDTO struct {
	Asset  string  `json:"asset"`
	Weight float64 `json:"weight"`
}

// PerformanceDTO carries portfolio metrics; Sharpe is null when undefined.
type PerformanceDTO struct {
	ExpectedReturn float64  `json:"expected_return"`
	Volatility     float64  `json:"volatility"`
	Sharpe         *float64 `json:"sharpe"`
}

// AllocationDTO is an optimized portfolio.
type AllocationDTO struct {
	Weights      []WeightDTO    `json:"weights"`
	Performance  PerformanceDTO `json:"performance"`
	Strategy     string         `json:"strategy"`
	ReturnMethod string         `json:"return_method"`
	Degenerate   bool           `json:"degenerate"`
	Regularized  bool           `json:"regularized"`
	Ridge        float64        `json:"ridge,omitempty"`
	Solver       string         `json:"solver"`
}

// AlertDTO is one drop record.
type AlertDTO struct {
	Asset              string  `json:"asset"`
	MinDropPercent     float64 `json:"min_drop_percent"`
	MaxDrawdownPercent float64 `json:"max_drawdown_percent"`
	Triggered          bool    `json:"triggered"`
}

// SnapshotDTO is a full dashboard run.
type SnapshotDTO struct {
	RunID            string                         `json:"run_id"`
	GeneratedAt      string                         `json:"generated_at"`
	Period           string                         `json:"period"`
	Interval         string                         `json:"interval"`
	ThresholdPercent float64                        `json:"threshold_percent"`
	RiskFreeRate     float64                        `json:"risk_free_rate"`
	ReturnMethod     string                         `json:"return_method"`
	Prices           PricesDTO                      `json:"prices"`
	Allocation       *AllocationDTO                 `json:"allocation"`
	Correlations     []optimization.CorrelationPair `json:"high_correlations"`
	Alerts           []AlertDTO                     `json:"alerts"`
	Warnings         []string                       `json:"warnings"`
}

func toAssets(r *domain.Registry) []AssetDTO {
	out := make([]AssetDTO, 0, r.Len())
	for _, a := range r.Assets() {
		out = append(out, AssetDTO{Key: a.Key, Ticker: a.Ticker})
	}
	return out
}

func toPrices(m *prices.PriceMatrix) PricesDTO {
	dto := PricesDTO{
		Timestamps: make([]string, 0, m.Rows()),
		Series:     make([]SeriesDTO, 0, m.Cols()),
		Empty:      m.IsEmpty(),
	}
	for _, ts := range m.Timestamps {
		dto.Timestamps = append(dto.Timestamps, ts.Format(time.RFC3339))
	}
	for _, key := range m.Assets {
		values := m.Column(key)
		if values == nil {
			values = []float64{}
		}
		dto.Series = append(dto.Series, SeriesDTO{Asset: key, Values: values})
	}
	return dto
}

func toAllocation(a *optimization.Allocation) *AllocationDTO {
	if a == nil {
		return nil
	}
	dto := &AllocationDTO{
		Weights: make([]WeightDTO, 0, len(a.Assets)),
		Performance: PerformanceDTO{
			ExpectedReturn: a.Performance.ExpectedReturn,
			Volatility:     a.Performance.Volatility,
			Sharpe:         finiteOrNil(a.Performance.Sharpe),
		},
		Strategy:     string(a.Strategy),
		ReturnMethod: string(a.ReturnMethod),
		Degenerate:   a.Degenerate,
		Regularized:  a.Regularized,
		Ridge:        a.Ridge,
		Solver:       a.Solver,
	}
	for i, key := range a.Assets {
		dto.Weights = append(dto.Weights, WeightDTO{Asset: key, Weight: a.Weights[i]})
	}
	return dto
}

func toAlerts(records []alerts.AlertRecord) []AlertDTO {
	out := make([]AlertDTO, 0, len(records))
	for _, r := range records {
		out = append(out, AlertDTO{
			Asset:              r.Asset,
			MinDropPercent:     r.MinDropPercent,
			MaxDrawdownPercent: r.MaxDrawdownPercent,
			Triggered:          r.Triggered,
		})
	}
	return out
}

func toSnapshot(s *dashboard.Snapshot) SnapshotDTO {
	correlations := s.Correlations
	if correlations == nil {
		correlations = []optimization.CorrelationPair{}
	}
	return SnapshotDTO{
		RunID:            s.RunID,
		GeneratedAt:      s.GeneratedAt.Format(time.RFC3339),
		Period:           string(s.Period),
		Interval:         string(s.Interval),
		ThresholdPercent: s.ThresholdPercent,
		RiskFreeRate:     s.RiskFreeRate,
		ReturnMethod:     string(s.ReturnMethod),
		Prices:           toPrices(s.Prices),
		Allocation:       toAllocation(s.Allocation),
		Correlations:     correlations,
		Alerts:           toAlerts(s.Alerts),
		Warnings:         s.Warnings,
	}
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
