package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sagiri/internal/adapters/catalog"
	"sagiri/internal/adapters/handler"
	"sagiri/internal/adapters/store"
	"sagiri/internal/adapters/telegram"
	"sagiri/internal/core/service"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot",
	Long: `Run the bot. With telegram.webhook_domain set, the webhook is registered and updates
are received over HTTP on http.listen_addr; otherwise the bot long-polls.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	log.Info().Msg("starting sagiri...")

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	handlerTimeout, err := positiveDuration("handler.timeout")
	if err != nil {
		log.Error().Err(err).Msg("invalid handler timeout")
		return err
	}

	catalogTimeout, err := positiveDuration("catalog.timeout")
	if err != nil {
		log.Error().Err(err).Msg("invalid catalog timeout")
		return err
	}

	token := viper.GetString("telegram.bot_token")
	client, err := newTelegramClient()
	if err != nil {
		return err
	}

	me, err := client.GetMe(ctx)
	if err != nil {
		log.Error().Err(err).Msg("bot self-check failed")
		return err
	}
	log.Info().Int64("botId", me.ID).Str("username", me.Username).Msg("bot identity confirmed")

	source, err := store.Open(ctx, viper.GetString("registry.driver"), viper.GetString("registry.dsn"))
	if err != nil {
		log.Error().Err(err).Msg("failed opening user store")
		return err
	}
	defer source.Close()

	registry := service.NewRegistry(source)
	users, err := registry.RefreshAll(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed loading registered users")
		return err
	}
	log.Info().Int("users", len(users)).Msg("registry loaded")

	kitsu := catalog.NewKitsu(viper.GetString("catalog.base_url"), viper.GetInt("catalog.page_size"),
		catalogTimeout)

	dispatcher := service.NewDispatcher(registry, kitsu, client)
	updates := handler.NewUpdate(dispatcher, client, handlerTimeout)

	opts := []bot.Option{
		bot.WithDefaultHandler(noOpHandler),
		bot.WithSkipGetMe(),
	}
	if apiURL := viper.GetString("telegram.api_url"); apiURL != "" {
		opts = append(opts, bot.WithServerURL(apiURL))
	}

	b, err := bot.New(token, opts...)
	if err != nil {
		log.Error().Err(err).Msg("failed initializing telegram bot")
		return err
	}

	b.RegisterHandler(bot.HandlerTypeMessageText, "", bot.MatchTypePrefix, updates.HandleMessage)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, updates.HandleCallback)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		registry.Run(gctx, viper.GetDuration("registry.refresh_interval"))
		return nil
	})

	domainURL := viper.GetString("telegram.webhook_domain")
	if domainURL == "" {
		if _, err := b.DeleteWebhook(ctx, &bot.DeleteWebhookParams{}); err != nil {
			log.Warn().Err(err).Msg("failed to delete webhook before polling")
		}

		g.Go(func() error {
			log.Info().Msg("bot polling")
			b.Start(gctx)
			return nil
		})
	} else {
		if err := registerWebhook(ctx, client, token, domainURL); err != nil {
			return err
		}

		serveWebhook(gctx, g, b, token)
	}

	err = g.Wait()
	updates.Wait()
	log.Info().Msg("sagiri stopped")

	return err
}

func serveWebhook(ctx context.Context, g *errgroup.Group, b *bot.Bot, token string) {
	mux := http.NewServeMux()
	mux.Handle(fmt.Sprintf("/api/tg/%s/", token), b.WebhookHandler())

	srv := &http.Server{
		Addr:              viper.GetString("http.listen_addr"),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		b.StartWebhook(ctx)
		return nil
	})

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("bot listening for webhook updates")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("webhook server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})
}

func registerWebhook(ctx context.Context, client *telegram.Client, token, domainURL string) error {
	var maxConnections *int
	if viper.IsSet("telegram.max_connections") {
		n := viper.GetInt("telegram.max_connections")
		maxConnections = &n
	}

	var allowedUpdates []string
	if viper.IsSet("telegram.allowed_updates") {
		allowedUpdates = viper.GetStringSlice("telegram.allowed_updates")
	}

	ok, err := client.SetWebhook(ctx, token, domainURL, maxConnections, allowedUpdates)
	if err != nil {
		log.Error().Err(err).Msg("failed to set webhook")
		return err
	}

	log.Info().Bool("ok", ok).Str("domain", domainURL).Msg("webhook registered")

	return nil
}

func newTelegramClient() (*telegram.Client, error) {
	timeout, err := positiveDuration("telegram.timeout")
	if err != nil {
		log.Error().Err(err).Msg("invalid bot api timeout")
		return nil, err
	}

	client, err := telegram.NewClient(viper.GetString("telegram.api_url"), viper.GetString("telegram.bot_token"),
		timeout)
	if err != nil {
		log.Error().Err(err).Msg("failed initializing bot api client")
		return nil, err
	}

	return client, nil
}

func noOpHandler(_ context.Context, _ *bot.Bot, _ *models.Update) {}
