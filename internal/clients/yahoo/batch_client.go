package yahoo

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/wnjoon/go-yfinance/pkg/models"
	"github.com/wnjoon/go-yfinance/pkg/multi"

	"github.com/aristath/allocator/internal/domain"
	"github.com/aristath/allocator/internal/modules/prices"
)

// BatchClient downloads all tickers in one go-yfinance batch request.
type BatchClient struct {
	log zerolog.Logger
}

// NewBatchClient creates a new batch Yahoo Finance client
func NewBatchClient(log zerolog.Logger) *BatchClient {
	return &BatchClient{
		log: log.With().Str("client", "yahoo-batch").Logger(),
	}
}

// Fetch implements prices.Fetcher.
func (c *BatchClient) Fetch(ctx context.Context, tickers []string, period domain.Period, interval domain.Interval) (*prices.RawTable, error) {
	if len(tickers) == 0 {
		return nil, domain.NewDataUnavailable("no tickers requested", nil)
	}

	params := models.DefaultDownloadParams()
	params.Symbols = tickers
	params.Period = string(period)
	params.Interval = string(interval)
	params.AutoAdjust = true

	c.log.Debug().
		Strs("tickers", tickers).
		Str("period", string(period)).
		Str("interval", string(interval)).
		Msg("Downloading price history")

	bars, err := withContext(ctx, func() (map[string][]bar, error) {
		result, err := multi.Download(tickers, &params)
		if err != nil {
			return nil, err
		}

		bars := make(map[string][]bar, len(tickers))
		for _, ticker := range tickers {
			series, ok := result.Data[ticker]
			if !ok || len(series) == 0 {
				if tErr, ok := result.Errors[ticker]; ok {
					c.log.Warn().Err(tErr).Str("ticker", ticker).Msg("No price history for ticker")
				}
				continue
			}
			bars[ticker] = convertBars(series)
		}
		return bars, nil
	})
	if err != nil {
		return nil, domain.NewDataUnavailable("batch download failed", err)
	}

	if missing := missingTickers(tickers, bars); len(missing) > 0 {
		return nil, domain.NewDataUnavailable(
			fmt.Sprintf("no price history for %s", strings.Join(missing, ", ")), nil)
	}

	return buildTable(tickers, bars), nil
}

func convertBars(series []models.Bar) []bar {
	out := make([]bar, 0, len(series))
	for _, b := range series {
		out = append(out, bar{Date: b.Date, Close: b.Close, AdjClose: b.AdjClose})
	}
	return out
}
