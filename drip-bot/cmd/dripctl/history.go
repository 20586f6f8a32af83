package main

import (
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/vignesh-goutham/drip/drip-bot/internal"
	"github.com/vignesh-goutham/drip/drip-bot/pkg/notification"
	"github.com/vignesh-goutham/drip/pkg/dynamodb"
	"github.com/vignesh-goutham/drip/pkg/types"
)

var historyLimit int32

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent runs from the journal table",
	RunE: func(cmd *cobra.Command, args []string) error {
		if historyLimit < 1 {
			return fmt.Errorf("--limit must be at least 1, got %d", historyLimit)
		}

		config, err := internal.LoadConfigFromEnv()
		if err != nil {
			return err
		}
		if config.TableName == "" {
			return &types.ConfigError{Key: "TABLE_NAME"}
		}

		dbService, err := dynamodb.NewService(cmd.Context(), config.DynamoDBRegion, config.TableName)
		if err != nil {
			return err
		}

		runs, err := dbService.RecentRuns(cmd.Context(), config.AccountType, historyLimit)
		if err != nil {
			return err
		}

		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.Header("Started", "Debug", "Orders", "Invested", "Failed", "Error")
		for _, run := range runs {
			invested, failed := summarize(run.OrderResults, config.Currency)
			table.Append(run.StartedAt.Local().Format(time.DateTime),
				fmt.Sprint(run.Debug),
				fmt.Sprint(len(run.OrderResults)),
				invested,
				fmt.Sprint(failed),
				run.Error)
		}
		return table.Render()
	},
}

func summarize(results []types.OrderResult, currency string) (string, int) {
	total := decimal.Zero
	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
			continue
		}
		total = total.Add(r.BuyAmount)
	}
	return notification.FormatAmount(total, currency), failed
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().Int32Var(&historyLimit, "limit", 10, "Number of runs to show")
}
