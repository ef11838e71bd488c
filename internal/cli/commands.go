// Package cli implements the allocator command-line interface.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aristath/allocator/internal/config"
	"github.com/aristath/allocator/internal/di"
	"github.com/aristath/allocator/internal/domain"
	"github.com/aristath/allocator/internal/modules/dashboard"
	"github.com/aristath/allocator/internal/modules/optimization"
	"github.com/aristath/allocator/internal/modules/prices"
	"github.com/aristath/allocator/pkg/logger"
)

// ServiceFactory builds the dashboard service for one command run. The
// returned cleanup releases cache connections.
type ServiceFactory func(opts Options) (*dashboard.Service, func(), error)

// Options holds the flags shared by every subcommand.
type Options struct {
	Period       string
	Interval     string
	Strategy     string
	ReturnMethod string
	Assets       string
	Threshold    float64
	RiskFreeRate float64
	NoCache      bool
	Plain        bool
	LogLevel     string
	Tail         int
	Output       string
	Indexed      bool

	riskFreeSet  bool
	thresholdSet bool
}

// Request converts the flags into a dashboard request. Unset flags defer to
// the service defaults.
func (o Options) Request() (dashboard.Request, error) {
	var req dashboard.Request

	if o.Period != "" {
		p, err := domain.ParsePeriod(o.Period)
		if err != nil {
			return req, err
		}
		req.Period = p
	}
	if o.Interval != "" {
		i, err := domain.ParseInterval(o.Interval)
		if err != nil {
			return req, err
		}
		req.Interval = i
	}
	if o.Strategy != "" {
		s, err := optimization.ParseStrategy(o.Strategy)
		if err != nil {
			return req, err
		}
		req.Strategy = s
	}
	if o.ReturnMethod != "" {
		m, err := optimization.ParseReturnMethod(o.ReturnMethod)
		if err != nil {
			return req, err
		}
		req.ReturnMethod = m
	}
	if o.thresholdSet {
		if o.Threshold == 0 {
			return req, fmt.Errorf("%w: 0", domain.ErrInvalidThreshold)
		}
		req.ThresholdPercent = o.Threshold
	}
	if o.riskFreeSet {
		rf := o.RiskFreeRate
		req.RiskFreeRate = &rf
	}
	for _, key := range strings.Split(o.Assets, ",") {
		if key = strings.TrimSpace(key); key != "" {
			req.Assets = append(req.Assets, key)
		}
	}
	return req, nil
}

// DefaultServiceFactory loads configuration from the environment and wires
// the live market-data stack. Logs go to stderr.
func DefaultServiceFactory(stderr io.Writer) ServiceFactory {
	return func(opts Options) (*dashboard.Service, func(), error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		if opts.NoCache {
			cfg.PriceCache = config.CacheNone
		}

		level := cfg.LogLevel
		if opts.LogLevel != "" {
			level = opts.LogLevel
		}
		log := logger.New(logger.Config{Level: level, Pretty: true, Output: stderr})

		container, err := di.Wire(cfg, log, nil)
		if err != nil {
			return nil, nil, err
		}
		return container.DashboardService, func() { container.Close() }, nil
	}
}

// NewRootCmd creates the root command
func NewRootCmd(factory ServiceFactory) *cobra.Command {
	opts := &Options{}

	rootCmd := &cobra.Command{
		Use:   "allocator",
		Short: "Mean-variance portfolio allocation and drawdown alerts",
		Long: `allocator downloads price history for a fixed asset universe, suggests a
long-only allocation on the efficient frontier and flags assets whose
single-period drop breached a threshold.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.riskFreeSet = cmd.Flags().Changed("risk-free-rate")
			opts.thresholdSet = cmd.Flags().Changed("threshold")
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.Period, "period", "", "History window: 6mo, 1y, 2y or 5y (default from DEFAULT_PERIOD)")
	flags.StringVar(&opts.Interval, "interval", "", "Bar interval: 1d, 1wk or 1mo (default 1d)")
	flags.StringVar(&opts.Assets, "assets", "", "Comma-separated subset of asset keys")
	flags.Float64Var(&opts.RiskFreeRate, "risk-free-rate", 0, "Annual risk-free rate as a fraction (default from RISK_FREE_RATE)")
	flags.BoolVar(&opts.NoCache, "no-cache", false, "Bypass the price cache")
	flags.BoolVar(&opts.Plain, "plain", false, "Disable colors and borders")
	flags.StringVar(&opts.LogLevel, "log-level", "", "Override LOG_LEVEL")

	rootCmd.AddCommand(newOptimizeCmd(factory, opts))
	rootCmd.AddCommand(newAlertsCmd(factory, opts))
	rootCmd.AddCommand(newPricesCmd(factory, opts))
	rootCmd.AddCommand(newChartCmd(factory, opts))
	rootCmd.AddCommand(newAssetsCmd(factory, opts))

	return rootCmd
}

func newPrinter(cmd *cobra.Command, opts *Options) *printer {
	return &printer{out: cmd.OutOrStdout(), plain: opts.Plain}
}

// withService resolves the request and builds the service before running fn.
func withService(factory ServiceFactory, opts *Options, fn func(*cobra.Command, *dashboard.Service, dashboard.Request) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		req, err := opts.Request()
		if err != nil {
			return err
		}

		svc, cleanup, err := factory(*opts)
		if err != nil {
			return err
		}
		defer cleanup()

		if err := svc.Validate(req); err != nil {
			return err
		}
		return fn(cmd, svc, req)
	}
}

func newOptimizeCmd(factory ServiceFactory, opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Suggest a long-only portfolio allocation",
		Args:  cobra.NoArgs,
		RunE: withService(factory, opts, func(cmd *cobra.Command, svc *dashboard.Service, req dashboard.Request) error {
			p := newPrinter(cmd, opts)
			p.title("Portfolio Allocation Suggestion")

			snap, err := svc.Build(cmd.Context(), req)
			if err != nil {
				return err
			}
			if snap.Prices.IsEmpty() {
				p.errorLine(dashboard.WarningNoData)
				return nil
			}

			if snap.Allocation != nil {
				renderAllocation(p, snap.Allocation)
				renderCorrelations(p, snap.Correlations)
			}
			renderWarnings(p, snap.Warnings)
			return nil
		}),
	}
	cmd.Flags().StringVar(&opts.Strategy, "strategy", "", "Objective: max_sharpe or min_volatility")
	cmd.Flags().StringVar(&opts.ReturnMethod, "return-method", "", "Expected returns: arithmetic or geometric (default from RETURN_METHOD)")
	return cmd
}

func newAlertsCmd(factory ServiceFactory, opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Flag assets whose worst single-period drop breached a threshold",
		Args:  cobra.NoArgs,
		RunE: withService(factory, opts, func(cmd *cobra.Command, svc *dashboard.Service, req dashboard.Request) error {
			p := newPrinter(cmd, opts)
			p.title("Drawdown Alerts")

			records, err := svc.Alerts(cmd.Context(), req)
			if err != nil {
				return err
			}

			threshold := req.ThresholdPercent
			if threshold == 0 {
				threshold = svc.Defaults().ThresholdPercent
			}
			renderAlerts(p, records, threshold)
			return nil
		}),
	}
	cmd.Flags().Float64Var(&opts.Threshold, "threshold", 0, "Alert threshold in percent, 1 to 50 (default from DEFAULT_ALERT_THRESHOLD)")
	return cmd
}

func newPricesCmd(factory ServiceFactory, opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prices",
		Short: "Show normalized price history",
		Args:  cobra.NoArgs,
		RunE: withService(factory, opts, func(cmd *cobra.Command, svc *dashboard.Service, req dashboard.Request) error {
			p := newPrinter(cmd, opts)
			p.title("Historical Price Data")

			m, err := svc.Prices(cmd.Context(), req)
			if err != nil {
				return err
			}
			if m.IsEmpty() {
				p.errorLine(dashboard.WarningNoData)
				return nil
			}
			renderPrices(p, m, opts.Tail)
			return nil
		}),
	}
	cmd.Flags().IntVar(&opts.Tail, "tail", 10, "Show only the last N rows (0 for all)")
	return cmd
}

func newChartCmd(factory ServiceFactory, opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Render the price history as a PNG line chart",
		Args:  cobra.NoArgs,
		RunE: withService(factory, opts, func(cmd *cobra.Command, svc *dashboard.Service, req dashboard.Request) error {
			p := newPrinter(cmd, opts)

			m, err := svc.Prices(cmd.Context(), req)
			if err != nil {
				return err
			}
			if m.IsEmpty() {
				p.errorLine(dashboard.WarningNoData)
				return nil
			}

			period, interval := req.Period, req.Interval
			if period == "" {
				period = svc.Defaults().Period
			}
			if interval == "" {
				interval = svc.Defaults().Interval
			}
			png, err := prices.RenderChart(m, prices.ChartOptions{
				Title:   fmt.Sprintf("Historical Prices • %s • %s", period, interval),
				Indexed: opts.Indexed,
			})
			if err != nil {
				return err
			}
			if err := os.WriteFile(opts.Output, png, 0o644); err != nil {
				return fmt.Errorf("failed to write chart: %w", err)
			}
			p.success(fmt.Sprintf("Wrote %d rows to %s", m.Rows(), opts.Output))
			return nil
		}),
	}
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "prices.png", "Destination PNG file")
	cmd.Flags().BoolVar(&opts.Indexed, "indexed", true, "Rebase every series to 100 at the first row")
	return cmd
}

func newAssetsCmd(factory ServiceFactory, opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "assets",
		Short: "List the configured asset universe",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := factory(*opts)
			if err != nil {
				return err
			}
			defer cleanup()

			p := newPrinter(cmd, opts)
			p.title("Asset Universe")
			renderAssets(p, svc.Registry())
			return nil
		},
	}
}

// Execute runs the CLI against the live stack and exits non-zero on failure.
func Execute() {
	root := NewRootCmd(DefaultServiceFactory(os.Stderr))
	root.SilenceErrors = true
	if err := root.Execute(); err != nil {
		p := &printer{out: os.Stderr}
		p.errorLine(err.Error())
		os.Exit(1)
	}
}
