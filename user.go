package main

import (
	"fmt"
	"sagiri/internal/adapters/store"
	"sagiri/internal/core/domain"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage registered users",
}

var userAddCmd = &cobra.Command{
	Use:   "add <telegram-id> <catalog-id>",
	Short: "Register or update a user mapping",
	Args:  cobra.ExactArgs(2),
	RunE:  runUserAdd,
}

func init() {
	userCmd.AddCommand(userAddCmd)
}

func parseUser(telegramID, catalogID string) (domain.User, error) {
	tid, err := strconv.ParseInt(telegramID, 10, 64)
	if err != nil || tid <= 0 {
		return domain.User{}, fmt.Errorf("invalid telegram id %q", telegramID)
	}

	cid, err := strconv.ParseInt(catalogID, 10, 64)
	if err != nil || cid <= 0 {
		return domain.User{}, fmt.Errorf("invalid catalog id %q", catalogID)
	}

	return domain.User{TelegramID: tid, CatalogID: cid}, nil
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	user, err := parseUser(args[0], args[1])
	if err != nil {
		return err
	}

	source, err := store.Open(cmd.Context(), viper.GetString("registry.driver"), viper.GetString("registry.dsn"))
	if err != nil {
		return err
	}
	defer source.Close()

	if err := source.Upsert(cmd.Context(), user); err != nil {
		return err
	}

	log.Info().Int64("telegramId", user.TelegramID).Int64("catalogId", user.CatalogID).Msg("user registered")

	return nil
}
