package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/vignesh-goutham/drip/drip-bot/internal"
	"github.com/vignesh-goutham/drip/drip-bot/pkg/notification"
	"github.com/vignesh-goutham/drip/pkg/allocation"
	"github.com/vignesh-goutham/drip/pkg/types"
)

var debugRun bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Reinvest uninvested dividends now",
	Long: `Run the bot once against the configured brokerage and print the response
envelope. With --debug no orders are placed.

Example:
  dripctl run --env-file .env`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, envelope, err := runBot(cmd.Context(), debugRun)
		if err != nil {
			return err
		}

		body, err := json.MarshalIndent(envelope, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(body))

		if envelope.Error != "" {
			return fmt.Errorf("run failed with status %d", envelope.Status)
		}
		return nil
	},
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the orders a run would place without placing them",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, envelope, err := runBot(cmd.Context(), true)
		if err != nil {
			return err
		}
		if envelope.Error != "" {
			return errors.New(envelope.Error)
		}

		return renderPlan(cmd.OutOrStdout(), envelope.OrderResults, config.Currency)
	},
}

func runBot(ctx context.Context, debug bool) (*internal.Config, internal.Envelope, error) {
	config, err := internal.LoadConfigFromEnv()
	if err != nil {
		return nil, internal.Envelope{}, err
	}
	config.Debug = config.Debug || debug

	ctx, cancel := context.WithTimeout(ctx, config.InvocationTimeout)
	defer cancel()

	bot, err := internal.NewDripBot(ctx, config)
	if err != nil {
		return nil, internal.Envelope{}, fmt.Errorf("error creating drip bot: %w", err)
	}

	return config, internal.Respond(ctx, bot), nil
}

func renderPlan(w io.Writer, results []types.OrderResult, currency string) error {
	table := tablewriter.NewWriter(w)
	table.Header("Symbol", "Uninvested Dividends", "Buy Amount", "Note")

	total := decimal.Zero
	for _, r := range results {
		note := ""
		if allocation.BelowMinimum(r.BuyAmount) {
			note = types.ErrOrderRejected.Error()
		} else {
			total = total.Add(r.BuyAmount)
		}
		table.Append(r.Symbol,
			notification.FormatAmount(r.DividendAmount, currency),
			notification.FormatAmount(r.BuyAmount, currency),
			note)
	}

	table.Footer("Total", "", notification.FormatAmount(total, currency), "")
	return table.Render()
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(planCmd)

	runCmd.Flags().BoolVar(&debugRun, "debug", false, "Compute orders without placing them")
}
