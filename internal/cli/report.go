package cli

import (
	"fmt"

	"github.com/aristath/allocator/internal/domain"
	"github.com/aristath/allocator/internal/modules/alerts"
	"github.com/aristath/allocator/internal/modules/optimization"
	"github.com/aristath/allocator/internal/modules/prices"
)

const dateLayout = "2006-01-02"

func strategyLabel(s optimization.Strategy) string {
	if s == optimization.MinVolatility {
		return "Min Volatility"
	}
	return "Max Sharpe Ratio"
}

func returnMethodLabel(m optimization.ReturnMethod) string {
	if m == optimization.Geometric {
		return "geometric (compounded)"
	}
	return "arithmetic mean"
}

func renderAllocation(p *printer, a *optimization.Allocation) {
	p.section(fmt.Sprintf("Optimal Portfolio Allocation (%s):", strategyLabel(a.Strategy)))

	rows := make([][]string, 0, len(a.Assets))
	for i, key := range a.Assets {
		rows = append(rows, []string{key, FormatPercent(a.Weights[i])})
	}
	p.table([]string{"Asset", "Weight"}, rows)

	p.metric("Expected annual return", FormatPercent(a.Performance.ExpectedReturn))
	p.metric("Annual volatility", FormatPercent(a.Performance.Volatility))
	p.metric("Sharpe Ratio", FormatRatio(a.Performance.Sharpe))
	p.metric("Return estimate", returnMethodLabel(a.ReturnMethod))

	if a.Degenerate {
		p.warning("No asset beats the risk-free rate; showing the minimum-volatility portfolio")
	}
	if a.Regularized {
		p.warning(fmt.Sprintf("Covariance was near-singular and regularized (ridge %.1e)", a.Ridge))
	}
}

func renderCorrelations(p *printer, pairs []optimization.CorrelationPair) {
	if len(pairs) == 0 {
		return
	}
	p.section("Highly correlated pairs:")
	rows := make([][]string, 0, len(pairs))
	for _, pair := range pairs {
		rows = append(rows, []string{pair.Asset1, pair.Asset2, FormatRatio(pair.Correlation)})
	}
	p.table([]string{"Asset", "Asset", "Correlation"}, rows)
}

func renderAlerts(p *printer, records []alerts.AlertRecord, thresholdPercent float64) {
	p.section(fmt.Sprintf("Single-period drops (threshold %s):", FormatPercentValue(thresholdPercent)))

	rows := make([][]string, 0, len(records))
	triggered := 0
	for _, r := range records {
		status := "ok"
		if r.Triggered {
			status = "ALERT"
			triggered++
		}
		rows = append(rows, []string{
			r.Asset,
			FormatPercentValue(r.MinDropPercent),
			FormatPercentValue(r.MaxDrawdownPercent),
			status,
		})
	}
	p.table([]string{"Asset", "Worst period", "Max drawdown", "Status"}, rows)

	for _, r := range records {
		if r.Triggered {
			p.warning(fmt.Sprintf("%s dropped %s in a single period", r.Asset, FormatPercentValue(-r.MinDropPercent)))
		}
	}
	if triggered == 0 {
		p.success(fmt.Sprintf("No asset dropped %s or more in a single period", FormatPercentValue(thresholdPercent)))
	}
}

// renderPrices prints the last tail rows; tail <= 0 prints every row.
func renderPrices(p *printer, m *prices.PriceMatrix, tail int) {
	p.section(fmt.Sprintf("Historical Price Data (%d rows):", m.Rows()))

	start := 0
	if tail > 0 && m.Rows() > tail {
		start = m.Rows() - tail
	}

	header := append([]string{"Date"}, m.Assets...)
	rows := make([][]string, 0, m.Rows()-start)
	for i := start; i < m.Rows(); i++ {
		row := make([]string, 0, len(header))
		row = append(row, m.Timestamps[i].Format(dateLayout))
		for _, v := range m.Values[i] {
			row = append(row, FormatPrice(v))
		}
		rows = append(rows, row)
	}
	p.table(header, rows)
}

func renderAssets(p *printer, r *domain.Registry) {
	rows := make([][]string, 0, r.Len())
	for _, a := range r.Assets() {
		rows = append(rows, []string{a.Key, a.Ticker})
	}
	p.table([]string{"Asset", "Ticker"}, rows)
}

func renderWarnings(p *printer, warnings []string) {
	for _, w := range warnings {
		p.warning(w)
	}
}
