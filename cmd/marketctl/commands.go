package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jmanzanog/market-aggregator/internal/application"
	"github.com/jmanzanog/market-aggregator/internal/domain"
)

type marketService interface {
	Search(ctx context.Context, query string) *application.SearchResponse
	SearchByISIN(ctx context.Context, isin string) *application.SearchResponse
	GetQuote(ctx context.Context, symbol string) *application.QuoteResponse
	GetHistoricalData(ctx context.Context, symbol string, period domain.Period) *application.HistoryResponse
	GetInstrumentDetails(ctx context.Context, symbol string) *application.DetailResponse
	HealthCheck(ctx context.Context) *application.HealthReport
}

type serviceFactory func(ctx context.Context) (marketService, io.Closer, error)

// errUnsuccessful makes the process exit non-zero after the JSON was printed.
var errUnsuccessful = errors.New("request did not succeed")

// newRootCmd creates the root command
func newRootCmd(factory serviceFactory) *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:          "marketctl",
		Short:        "Query the market data aggregator from the command line",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogger(logLevel)
		},
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level written to stderr (debug, info, warn, error)")

	run := func(fn func(ctx context.Context, svc marketService, args []string) (any, bool, error)) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, closer, err := factory(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = closer.Close() }()

			out, ok, err := fn(ctx, svc, args)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if !ok {
				return errUnsuccessful
			}
			return nil
		}
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "search QUERY",
		Short: "Search every provider and print merged results",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, svc marketService, args []string) (any, bool, error) {
			resp := svc.Search(ctx, args[0])
			return resp, resp.Success, nil
		}),
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "isin ISIN",
		Short: "Look up instruments by ISIN",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, svc marketService, args []string) (any, bool, error) {
			isin, err := domain.NormalizeISIN(args[0])
			if err != nil {
				return nil, false, err
			}
			resp := svc.SearchByISIN(ctx, isin)
			return resp, resp.Success, nil
		}),
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "quote SYMBOL",
		Short: "Print the first available quote",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, svc marketService, args []string) (any, bool, error) {
			resp := svc.GetQuote(ctx, args[0])
			return resp, resp.Success, nil
		}),
	})

	historyCmd := &cobra.Command{
		Use:   "history SYMBOL",
		Short: "Print historical prices",
		Args:  cobra.ExactArgs(1),
	}
	period := historyCmd.Flags().String("period", string(domain.Period1M), "1D, 1W, 1M, 3M, 6M, YTD, 1Y, 3Y, 5Y or MAX")
	historyCmd.RunE = run(func(ctx context.Context, svc marketService, args []string) (any, bool, error) {
		p, err := domain.ParsePeriod(*period)
		if err != nil {
			return nil, false, err
		}
		resp := svc.GetHistoricalData(ctx, args[0], p)
		return resp, resp.Success, nil
	})
	rootCmd.AddCommand(historyCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "details SYMBOL",
		Short: "Print quote, fundamentals and logo for an instrument",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, svc marketService, args []string) (any, bool, error) {
			resp := svc.GetInstrumentDetails(ctx, args[0])
			return resp, resp.Success, nil
		}),
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "health",
		Short: "Check every provider",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, svc marketService, _ []string) (any, bool, error) {
			report := svc.HealthCheck(ctx)
			return report, report.Healthy(), nil
		}),
	})

	return rootCmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
