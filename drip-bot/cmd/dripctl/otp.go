package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vignesh-goutham/drip/drip-bot/internal"
	"github.com/vignesh-goutham/drip/pkg/otp"
	"github.com/vignesh-goutham/drip/pkg/types"
)

var otpNoWait bool

var otpCmd = &cobra.Command{
	Use:   "otp",
	Short: "Fetch the latest verification code from the mailbox",
	Long: `Read the newest message matching OTP_QUERY from GMAIL_ADDRESS and print the
six digit code it contains. Useful to check the service account delegation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := internal.LoadConfigFromEnv()
		if err != nil {
			return err
		}
		if config.GmailAddress == "" {
			return &types.ConfigError{Key: "GMAIL_ADDRESS"}
		}

		inbox, err := otp.NewGmailInbox(cmd.Context(), config.GmailKeyFile, config.GmailAddress)
		if err != nil {
			return fmt.Errorf("error opening mailbox: %w", err)
		}

		delay := config.OTPDelay
		if otpNoWait {
			delay = 0
		}

		code, err := otp.NewRetriever(inbox, config.OTPQuery, delay).FetchCode(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), code)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(otpCmd)

	otpCmd.Flags().BoolVar(&otpNoWait, "no-wait", false, "Read the mailbox immediately instead of waiting OTP_DELAY")
}
