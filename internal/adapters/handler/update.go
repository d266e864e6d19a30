package handler

import (
	"context"
	"errors"
	"sagiri/internal/core/domain"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Dispatcher interface {
	HandleMessage(ctx context.Context, update domain.Update) (domain.Message, error)
	HandleCallback(ctx context.Context, callback domain.Callback) (domain.Message, error)
}

type CallbackAnswerer interface {
	AnswerCallbackQuery(ctx context.Context, callbackQueryID string) error
}

// Update feeds bot updates into the dispatcher, one goroutine per update.
type Update struct {
	dispatcher Dispatcher
	answerer   CallbackAnswerer
	timeout    time.Duration
	inflight   sync.WaitGroup
}

func NewUpdate(dispatcher Dispatcher, answerer CallbackAnswerer, timeout time.Duration) *Update {
	return &Update{dispatcher: dispatcher, answerer: answerer, timeout: timeout}
}

// HandleMessage is a bot.HandlerFunc for text messages.
func (u *Update) HandleMessage(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil {
		log.Debug().Msg("update without message")
		return
	}

	msg := toDomainUpdate(update.Message)

	u.run(ctx, func(ctx context.Context, l zerolog.Logger) {
		sent, err := u.dispatcher.HandleMessage(ctx, msg)
		if err != nil {
			l.Err(err).Int64("chatId", msg.ChatID).Msg("failed to handle message")
			return
		}
		l.Debug().Int("messageId", sent.ID).Int64("chatId", sent.ChatID).Msg("message handled")
	})
}

// HandleCallback is a bot.HandlerFunc for inline button presses.
func (u *Update) HandleCallback(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update == nil || update.CallbackQuery == nil {
		log.Debug().Msg("update without callback query")
		return
	}

	callback := toDomainCallback(update.CallbackQuery)

	u.run(ctx, func(ctx context.Context, l zerolog.Logger) {
		if err := u.answerer.AnswerCallbackQuery(ctx, callback.ID); err != nil {
			l.Warn().Err(err).Str("callbackId", callback.ID).Msg("failed to answer callback query")
		}

		sent, err := u.dispatcher.HandleCallback(ctx, callback)
		if errors.Is(err, domain.ErrOutdatedMessage) {
			l.Warn().Str("data", callback.Data).Msg("callback on outdated message")
			return
		}
		if err != nil {
			l.Err(err).Str("data", callback.Data).Msg("failed to handle callback")
			return
		}
		l.Debug().Int("messageId", sent.ID).Int64("chatId", sent.ChatID).Msg("callback handled")
	})
}

// Wait blocks until all in-flight updates are done.
func (u *Update) Wait() {
	u.inflight.Wait()
}

func (u *Update) run(ctx context.Context, handle func(ctx context.Context, l zerolog.Logger)) {
	l := log.With().Str("requestId", requestID()).Logger()

	u.inflight.Add(1)
	go func() {
		defer u.inflight.Done()

		ctx, cancel := context.WithTimeout(ctx, u.timeout)
		defer cancel()

		handle(ctx, l)
	}()
}

func requestID() string {
	id, err := uuid.NewV4()
	if err != nil {
		log.Warn().Err(err).Msg("failed to generate request id")
		return ""
	}
	return id.String()
}

func toDomainUpdate(msg *models.Message) domain.Update {
	update := domain.Update{
		ChatID: msg.Chat.ID,
		Text:   msg.Text,
	}

	if msg.From != nil {
		update.SenderID = msg.From.ID
	}

	return update
}

// toDomainCallback keeps the origin only for accessible messages, which are the only ones
// the bot can still edit.
func toDomainCallback(query *models.CallbackQuery) domain.Callback {
	callback := domain.Callback{
		ID:       query.ID,
		SenderID: query.From.ID,
		Data:     query.Data,
	}

	if query.Message.Message != nil {
		callback.Origin = &domain.Origin{
			ChatID:    query.Message.Message.Chat.ID,
			MessageID: query.Message.Message.ID,
		}
	}

	return callback
}
