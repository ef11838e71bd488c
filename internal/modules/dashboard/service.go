// Package dashboard runs the full allocation pipeline for one user-triggered
// recomputation: load prices, estimate moments, optimize, and scan for drops.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/allocator/internal/domain"
	"github.com/aristath/allocator/internal/modules/alerts"
	"github.com/aristath/allocator/internal/modules/optimization"
	"github.com/aristath/allocator/internal/modules/prices"
)

// User-facing warnings.
const (
	WarningNoData         = "No data available. Please check your tickers or try later."
	warningOptimizeFormat = "Could not optimize portfolio: %v"
	warningAlertsFormat   = "Could not scan for drops: %v"
)

// ErrInvalidRequest marks requests rejected before any data is loaded.
var ErrInvalidRequest = errors.New("invalid request")

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
}

// Defaults fill in request fields the caller leaves at their zero value.
type Defaults struct {
	Period           domain.Period
	Interval         domain.Interval
	ThresholdPercent float64
	RiskFreeRate     float64
	WeightCutoff     float64
	ReturnMethod     optimization.ReturnMethod
}

// Request holds the per-invocation inputs. Nothing here is persisted.
type Request struct {
	Period           domain.Period
	Interval         domain.Interval
	ThresholdPercent float64
	RiskFreeRate     *float64 // nil uses the default; zero is a valid rate
	Strategy         optimization.Strategy
	ReturnMethod     optimization.ReturnMethod
	Assets           []string // optional subset of registry keys
}

// Snapshot is the immutable result of one pipeline run.
type Snapshot struct {
	RunID            string
	GeneratedAt      time.Time
	Period           domain.Period
	Interval         domain.Interval
	ThresholdPercent float64
	RiskFreeRate     float64
	ReturnMethod     optimization.ReturnMethod
	Prices           *prices.PriceMatrix
	Allocation       *optimization.Allocation // nil when optimization was skipped
	Correlations     []optimization.CorrelationPair
	Alerts           []alerts.AlertRecord
	Warnings         []string
}

// Service wires the engine components together.
type Service struct {
	normalizer *prices.Normalizer
	estimator  *optimization.Estimator
	optimizer  *optimization.MVOptimizer
	detector   *alerts.Detector
	defaults   Defaults
	now        func() time.Time
	log        zerolog.Logger
}

// NewService creates a new dashboard service.
func NewService(
	normalizer *prices.Normalizer,
	estimator *optimization.Estimator,
	optimizer *optimization.MVOptimizer,
	detector *alerts.Detector,
	defaults Defaults,
	log zerolog.Logger,
) *Service {
	if defaults.Period == "" {
		defaults.Period = domain.Period1Year
	}
	if defaults.Interval == "" {
		defaults.Interval = domain.DefaultInterval
	}
	if defaults.ThresholdPercent == 0 {
		defaults.ThresholdPercent = alerts.DefaultThresholdPercent
	}
	if defaults.WeightCutoff == 0 {
		defaults.WeightCutoff = optimization.DefaultWeightCutoff
	}
	if defaults.ReturnMethod == "" {
		defaults.ReturnMethod = optimization.Arithmetic
	}
	return &Service{
		normalizer: normalizer,
		estimator:  estimator,
		optimizer:  optimizer,
		detector:   detector,
		defaults:   defaults,
		now:        time.Now,
		log:        log.With().Str("service", "dashboard").Logger(),
	}
}

// Registry returns the configured asset universe.
func (s *Service) Registry() *domain.Registry {
	return s.normalizer.Registry()
}

// Defaults returns the effective defaults.
func (s *Service) Defaults() Defaults {
	return s.defaults
}

// resolve applies defaults and validates a request.
func (s *Service) resolve(req Request) (Request, *domain.Registry, error) {
	if req.Period == "" {
		req.Period = s.defaults.Period
	}
	if req.Interval == "" {
		req.Interval = s.defaults.Interval
	}
	if req.ThresholdPercent == 0 {
		req.ThresholdPercent = s.defaults.ThresholdPercent
	}
	if req.RiskFreeRate == nil {
		rf := s.defaults.RiskFreeRate
		req.RiskFreeRate = &rf
	}
	if req.Strategy == "" {
		req.Strategy = optimization.MaxSharpe
	}
	if req.ReturnMethod == "" {
		req.ReturnMethod = s.defaults.ReturnMethod
	}

	if _, err := domain.ParsePeriod(string(req.Period)); err != nil {
		return req, nil, invalid(err)
	}
	if _, err := domain.ParseInterval(string(req.Interval)); err != nil {
		return req, nil, invalid(err)
	}
	if err := alerts.ValidateThreshold(req.ThresholdPercent); err != nil {
		return req, nil, invalid(err)
	}
	if _, err := optimization.ParseStrategy(string(req.Strategy)); err != nil {
		return req, nil, invalid(err)
	}
	if _, err := optimization.ParseReturnMethod(string(req.ReturnMethod)); err != nil {
		return req, nil, invalid(err)
	}

	registry := s.normalizer.Registry()
	if len(req.Assets) > 0 {
		subset, err := registry.Subset(req.Assets...)
		if err != nil {
			return req, nil, invalid(err)
		}
		registry = subset
	}
	return req, registry, nil
}

// Validate reports whether req would be accepted by Build.
func (s *Service) Validate(req Request) error {
	_, _, err := s.resolve(req)
	return err
}

// Prices loads the normalized price matrix. An empty matrix means the data
// source failed; it is not an error.
func (s *Service) Prices(ctx context.Context, req Request) (*prices.PriceMatrix, error) {
	req, registry, err := s.resolve(req)
	if err != nil {
		return nil, err
	}
	return s.loadPrices(ctx, req, registry), nil
}

func (s *Service) loadPrices(ctx context.Context, req Request, registry *domain.Registry) *prices.PriceMatrix {
	return s.normalizer.Load(ctx, prices.Request{
		Period:   req.Period,
		Interval: req.Interval,
		Assets:   registry,
	})
}

// Build runs the whole pipeline. It only fails for invalid requests;
// data and numerical problems are reported as Snapshot warnings.
func (s *Service) Build(ctx context.Context, req Request) (*Snapshot, error) {
	req, registry, err := s.resolve(req)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		RunID:            uuid.NewString(),
		GeneratedAt:      s.now().UTC(),
		Period:           req.Period,
		Interval:         req.Interval,
		ThresholdPercent: req.ThresholdPercent,
		RiskFreeRate:     *req.RiskFreeRate,
		ReturnMethod:     req.ReturnMethod,
		Alerts:           []alerts.AlertRecord{},
		Warnings:         []string{},
	}
	log := s.log.With().Str("run_id", snap.RunID).Logger()

	snap.Prices = s.loadPrices(ctx, req, registry)
	if snap.Prices.IsEmpty() {
		snap.Warnings = append(snap.Warnings, WarningNoData)
		log.Warn().Msg("No price data, skipping optimization and alerts")
		return snap, nil
	}

	alloc, est, err := s.optimize(snap.Prices, req)
	if err != nil {
		snap.Warnings = append(snap.Warnings, fmt.Sprintf(warningOptimizeFormat, err))
		log.Warn().Err(err).Msg("Optimization skipped")
	} else {
		snap.Allocation = alloc
		snap.Correlations = est.HighCorrelations(optimization.HighCorrelationThreshold)
	}

	records, err := s.detector.Detect(snap.Prices, req.ThresholdPercent)
	if err != nil {
		snap.Warnings = append(snap.Warnings, fmt.Sprintf(warningAlertsFormat, err))
		log.Warn().Err(err).Msg("Alert scan skipped")
	} else {
		snap.Alerts = records
	}

	log.Info().
		Int("rows", snap.Prices.Rows()).
		Int("alerts", len(snap.Alerts)).
		Bool("optimized", snap.Allocation != nil).
		Msg("Dashboard snapshot built")

	return snap, nil
}

// Allocate loads prices and returns the optimized allocation.
// Empty price data is reported as domain.ErrDataUnavailable.
func (s *Service) Allocate(ctx context.Context, req Request) (*optimization.Allocation, error) {
	req, registry, err := s.resolve(req)
	if err != nil {
		return nil, err
	}

	m := s.loadPrices(ctx, req, registry)
	if m.IsEmpty() {
		return nil, domain.NewDataUnavailable("no price data", nil)
	}

	alloc, _, err := s.optimize(m, req)
	return alloc, err
}

// Alerts loads prices and returns every asset's drop record, triggered or not.
func (s *Service) Alerts(ctx context.Context, req Request) ([]alerts.AlertRecord, error) {
	req, registry, err := s.resolve(req)
	if err != nil {
		return nil, err
	}

	m := s.loadPrices(ctx, req, registry)
	if m.IsEmpty() {
		return nil, domain.NewDataUnavailable("no price data", nil)
	}

	return s.detector.Scan(m, req.ThresholdPercent)
}

func (s *Service) optimize(m *prices.PriceMatrix, req Request) (*optimization.Allocation, *optimization.MomentEstimates, error) {
	est, err := s.estimator.WithMethod(req.ReturnMethod).Estimate(m, req.Interval)
	if err != nil {
		return nil, nil, err
	}

	alloc, err := s.optimizer.Optimize(est, optimization.Options{
		RiskFreeRate: *req.RiskFreeRate,
		Strategy:     req.Strategy,
		WeightCutoff: s.defaults.WeightCutoff,
	})
	if err != nil {
		return nil, nil, err
	}
	return alloc, est, nil
}
