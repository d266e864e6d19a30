package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var webhookCmd = &cobra.Command{
	Use:   "webhook",
	Short: "Manage the Telegram webhook",
}

var webhookSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Point Telegram at {domain}/api/tg/{token}/",
	Args:  cobra.NoArgs,
	RunE:  runWebhookSet,
}

func init() {
	webhookSetCmd.Flags().String("domain", "", "public base URL, overrides telegram.webhook_domain")
	webhookSetCmd.Flags().Int("max-connections", 0, "max simultaneous webhook connections")
	webhookSetCmd.Flags().StringSlice("allowed-updates", nil, "update types to deliver, e.g. message,callback_query")

	webhookCmd.AddCommand(webhookSetCmd)
}

func runWebhookSet(cmd *cobra.Command, _ []string) error {
	domainURL := viper.GetString("telegram.webhook_domain")
	if cmd.Flags().Changed("domain") {
		domainURL, _ = cmd.Flags().GetString("domain")
	}
	if domainURL == "" {
		return fmt.Errorf("no webhook domain: set telegram.webhook_domain or pass --domain")
	}

	var maxConnections *int
	if cmd.Flags().Changed("max-connections") {
		n, _ := cmd.Flags().GetInt("max-connections")
		maxConnections = &n
	}

	var allowedUpdates []string
	if cmd.Flags().Changed("allowed-updates") {
		allowedUpdates, _ = cmd.Flags().GetStringSlice("allowed-updates")
	}

	client, err := newTelegramClient()
	if err != nil {
		return err
	}

	token := viper.GetString("telegram.bot_token")
	ok, err := client.SetWebhook(cmd.Context(), token, domainURL, maxConnections, allowedUpdates)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "setWebhook: %t\n", ok)

	return nil
}
