package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "sagiri",
	Short: "Telegram bot for browsing Kitsu anime libraries",
	Long: `sagiri answers /list with the sender's Kitsu anime library, paged through inline
buttons, and /update with a reload of the registered users.`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return loadConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./config.toml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(meCmd)
	rootCmd.AddCommand(webhookCmd)
	rootCmd.AddCommand(userCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() error {
	viper.SetDefault("bot.log_level", "info")
	viper.SetDefault("telegram.timeout", "30s")
	viper.SetDefault("http.listen_addr", ":8080")
	viper.SetDefault("handler.timeout", "60s")
	viper.SetDefault("catalog.timeout", "20s")
	viper.SetDefault("catalog.page_size", 10)
	viper.SetDefault("registry.driver", "sqlite")
	viper.SetDefault("registry.dsn", "sagiri.db")
	viper.SetDefault("registry.refresh_interval", "1h")

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("toml")
	}

	log.Info().Msg("reading config file...")
	if err := viper.ReadInConfig(); err != nil {
		log.Error().Err(err).Msg("could not read config file")
		return err
	}

	var logLevel zerolog.Level

	switch viper.GetString("bot.log_level") {
	case "info":
		logLevel = zerolog.InfoLevel
	case "debug":
		logLevel = zerolog.DebugLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(logLevel)

	return nil
}

// positiveDuration reads a duration key strictly. viper would read a bare number such as 60
// as nanoseconds, so values without a unit are rejected along with non-positive ones.
func positiveDuration(key string) (time.Duration, error) {
	raw := viper.GetString(key)

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, raw)
	}

	return d, nil
}
