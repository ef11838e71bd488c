package scheduler

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/aristath/allocator/internal/domain"
	"github.com/aristath/allocator/internal/modules/dashboard"
	"github.com/aristath/allocator/internal/modules/prices"
)

// PriceRefreshJob refetches the default price window from the provider and
// overwrites the cached entry, so the next dashboard request is served from
// a fresh cache.
type PriceRefreshJob struct {
	service *dashboard.Service
	log     zerolog.Logger
}

// NewPriceRefreshJob creates a price refresh job.
func NewPriceRefreshJob(service *dashboard.Service, log zerolog.Logger) *PriceRefreshJob {
	return &PriceRefreshJob{
		service: service,
		log:     log.With().Str("job", "price_refresh").Logger(),
	}
}

// Run fetches the default window, skipping any cached copy. An empty result
// is reported as unavailable and leaves the cache untouched.
func (j *PriceRefreshJob) Run(ctx context.Context) error {
	m, err := j.service.Prices(prices.WithRefresh(ctx), dashboard.Request{})
	if err != nil {
		return err
	}
	if m.IsEmpty() {
		return domain.NewDataUnavailable("price refresh returned no rows", nil)
	}

	j.log.Info().Int("rows", m.Rows()).Int("assets", m.Cols()).Msg("Prices refreshed")
	return nil
}

// Name returns the job name for logging.
func (j *PriceRefreshJob) Name() string {
	return "price_refresh"
}
