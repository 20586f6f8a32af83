package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/vignesh-goutham/drip/pkg/logging"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "dripctl",
	Short: "dripctl runs and inspects the dividend reinvestment bot",
	Long: `dripctl drives the dividend reinvestment bot from a terminal. It reads the
same environment variables as the Lambda function and can run the bot, preview
its orders, fetch a verification code or list past runs.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile != "" {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("error loading env file %s: %w", envFile, err)
			}
		}
		logging.Setup()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Path to a .env file to load before reading configuration")
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
