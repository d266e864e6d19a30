package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var meCmd = &cobra.Command{
	Use:   "me",
	Short: "Print the bot identity reported by getMe",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := newTelegramClient()
		if err != nil {
			return err
		}

		me, err := client.GetMe(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "id: %d\nusername: @%s\nname: %s\n", me.ID, me.Username, me.FirstName)

		return nil
	},
}
