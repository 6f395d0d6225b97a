package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"creatorx/internal/config"
	"creatorx/internal/database"
	"creatorx/internal/events"
	"creatorx/internal/market"
	"creatorx/internal/server"
	"creatorx/internal/services"
	"creatorx/internal/worker"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const drainTimeout = 30 * time.Second

// engine is the slice of the service graph the operator commands need.
type engine struct {
	pricing   services.PricingServicer
	dividends services.DividendServicer
	close     func()
}

// openEngine connects to the database and wires the pricing and dividend
// services behind a single-worker queue. Follow-up tasks scheduled by a
// command are drained before close returns.
func openEngine() (*engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	dbManager, err := database.NewManager(database.NewConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}

	db := dbManager.DB()
	queue := worker.NewQueue(worker.Config{
		Workers:     1,
		MaxAttempts: cfg.TaskMaxAttempts,
		BaseBackoff: cfg.TaskBaseBackoff,
	})
	svc := server.NewServices(db, cfg.Market, events.Nop{}, queue)

	return &engine{
		pricing:   svc.Pricing,
		dividends: svc.Dividends,
		close: func() {
			ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
			defer cancel()
			_ = queue.Close(ctx)
			_ = dbManager.Close()
		},
	}, nil
}

func newRepriceCmd() *cobra.Command {
	var issuer string

	cmd := &cobra.Command{
		Use:   "reprice",
		Short: "Recompute one issuer's price, or every stock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if issuer != "" {
				if _, err := uuid.Parse(issuer); err != nil {
					return fmt.Errorf("invalid issuer id %q", issuer)
				}
			}
			eng, err := openEngine()
			if err != nil {
				return err
			}
			defer eng.close()

			if issuer != "" {
				change, err := eng.pricing.RecomputePrice(cmd.Context(), issuer)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), change)
			}
			res, err := eng.pricing.RecomputeAll(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&issuer, "issuer", "", "issuer user id (default: all stocks)")
	return cmd
}

func newDistributeCmd() *cobra.Command {
	var eventID string

	cmd := &cobra.Command{
		Use:   "distribute",
		Short: "Pay, or retry paying, an earning event's dividends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := uuid.Parse(eventID); err != nil {
				return fmt.Errorf("invalid event id %q", eventID)
			}
			eng, err := openEngine()
			if err != nil {
				return err
			}
			defer eng.close()

			res, err := eng.dividends.Distribute(cmd.Context(), eventID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&eventID, "event", "", "earning event id")
	_ = cmd.MarkFlagRequired("event")
	return cmd
}

func newTiersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tiers",
		Short: "Print the capacity tier and trust tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeTables(cmd.OutOrStdout())
		},
	}
}

func newParamsCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "params",
		Short: "Print the effective pricing parameters as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := config.LoadMarketParams(file)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(params)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML overlay to apply over the defaults")
	return cmd
}

func writeTables(out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIER\tMAX SHARES\tMIN HOLDERS\tMIN TRADES")
	for _, t := range market.Tiers() {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", t.Tier, t.MaxShares, t.MinShareholders, t.MinTransactions)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "TRUST\tMIN MARKET CAP\tREWARD x\tDIVIDEND\tPRICE SCORE")
	for _, l := range market.TrustLevels() {
		fmt.Fprintf(w, "%s\t%d\t%.2f\t%.2f\t%.2f\n", l.Tier, l.MinMarketCap, l.RewardMultiplier, l.DividendRate, l.PriceScore)
	}
	return w.Flush()
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
