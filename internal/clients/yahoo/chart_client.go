package yahoo

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/allocator/internal/domain"
	"github.com/aristath/allocator/internal/modules/prices"
)

// maxConcurrentCharts bounds parallel chart requests.
const maxConcurrentCharts = 4

// ChartClient fetches one chart series per ticker with finance-go.
type ChartClient struct {
	now func() time.Time
	log zerolog.Logger
}

// NewChartClient creates a new per-ticker chart client
func NewChartClient(log zerolog.Logger) *ChartClient {
	return &ChartClient{
		now: time.Now,
		log: log.With().Str("client", "yahoo-chart").Logger(),
	}
}

// Fetch implements prices.Fetcher.
func (c *ChartClient) Fetch(ctx context.Context, tickers []string, period domain.Period, interval domain.Interval) (*prices.RawTable, error) {
	if len(tickers) == 0 {
		return nil, domain.NewDataUnavailable("no tickers requested", nil)
	}

	end := c.now().UTC()
	start := period.Start(end)

	var mu sync.Mutex
	bars := make(map[string][]bar, len(tickers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentCharts)
	for _, ticker := range tickers {
		ticker := ticker
		g.Go(func() error {
			series, err := withContext(gctx, func() ([]bar, error) {
				return c.fetchChart(ticker, start, end, interval)
			})
			if err != nil {
				return fmt.Errorf("chart %s: %w", ticker, err)
			}
			mu.Lock()
			bars[ticker] = series
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, domain.NewDataUnavailable("chart download failed", err)
	}

	if missing := missingTickers(tickers, bars); len(missing) > 0 {
		return nil, domain.NewDataUnavailable(
			fmt.Sprintf("no price history for %s", strings.Join(missing, ", ")), nil)
	}

	return buildAdjustedTable(tickers, bars), nil
}

func (c *ChartClient) fetchChart(ticker string, start, end time.Time, interval domain.Interval) ([]bar, error) {
	params := &chart.Params{
		Symbol:   ticker,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.Interval(interval),
	}

	iter := chart.Get(params)

	series := make([]bar, 0)
	for iter.Next() {
		b := iter.Bar()
		series = append(series, bar{
			Date:     time.Unix(int64(b.Timestamp), 0).UTC(),
			Close:    b.Close.InexactFloat64(),
			AdjClose: b.AdjClose.InexactFloat64(),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to get historical data for %s: %w", ticker, err)
	}

	c.log.Debug().Str("ticker", ticker).Int("bars", len(series)).Msg("Fetched chart")
	return series, nil
}
