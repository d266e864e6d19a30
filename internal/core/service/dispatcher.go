package service

import (
	"context"
	"fmt"
	"sagiri/internal/core/domain"
	"sagiri/internal/core/port"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Dispatcher turns parsed commands and callback actions into catalog fetches and chat
// responses. It keeps no state between requests; pagination lives in button payloads.
// Catalog and sender errors are returned unmodified.
type Dispatcher struct {
	registry port.UserRegistry
	catalog  port.Catalog
	sender   port.Sender
}

func NewDispatcher(registry port.UserRegistry, catalog port.Catalog, sender port.Sender) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		catalog:  catalog,
		sender:   sender,
	}
}

func (d *Dispatcher) HandleMessage(ctx context.Context, update domain.Update) (domain.Message, error) {
	if update.ChatID == 0 {
		return domain.Message{}, fmt.Errorf("%w: message without chat", domain.ErrMalformedUpdate)
	}
	if update.SenderID == 0 {
		return domain.Message{}, fmt.Errorf("%w: message without sender", domain.ErrMalformedUpdate)
	}

	l := log.With().
		Int64("chatId", update.ChatID).
		Int64("userId", update.SenderID).
		Logger()

	l.Info().Str("text", update.Text).Msg("received message")

	cmd, err := domain.ParseCommand(update.Text)
	if err != nil {
		l.Debug().Msg("no command recognized")
		return d.unknown(ctx, update.ChatID)
	}

	switch cmd {
	case domain.ListCommand:
		return d.list(ctx, l, update.SenderID, update.ChatID)
	case domain.UpdateCommand:
		return d.update(ctx, l, update.ChatID)
	default:
		return d.unknown(ctx, update.ChatID)
	}
}

func (d *Dispatcher) HandleCallback(ctx context.Context, callback domain.Callback) (domain.Message, error) {
	if callback.Origin == nil || callback.Origin.ChatID == 0 || callback.Origin.MessageID == 0 {
		return domain.Message{}, domain.ErrOutdatedMessage
	}

	chatID := callback.Origin.ChatID
	messageID := callback.Origin.MessageID

	l := log.With().
		Int64("chatId", chatID).
		Int("messageId", messageID).
		Int64("userId", callback.SenderID).
		Logger()

	l.Info().Str("data", callback.Data).Msg("received query")

	action, err := domain.ParseAction(callback.Data)
	if err != nil {
		l.Debug().Err(err).Msg("undecodable callback payload")
		return d.unknown(ctx, chatID)
	}

	switch action.Kind {
	case domain.Offset:
		return d.offset(ctx, l, messageID, chatID, action.CatalogID, action.Param)
	case domain.Detail:
		return d.detail(ctx, l, messageID, chatID, action)
	default:
		return d.unknown(ctx, chatID)
	}
}

func (d *Dispatcher) unknown(ctx context.Context, chatID int64) (domain.Message, error) {
	return d.sender.SendMessage(ctx, chatID, domain.UnknownCommandText, domain.ParseModeNone, nil)
}

func (d *Dispatcher) list(ctx context.Context, l zerolog.Logger, userID, chatID int64) (domain.Message, error) {
	user, ok := d.registry.Lookup(userID)
	if !ok {
		l.Info().Msg("non-registered user")
		return d.sender.SendMessage(ctx, chatID,
			fmt.Sprintf(domain.NonRegisteredUserText, userID), domain.ParseModeNone, nil)
	}

	page, err := d.catalog.FetchPage(ctx, user.CatalogID, 0)
	if err != nil {
		l.Error().Err(err).Int64("catalogId", user.CatalogID).Msg("failed to fetch library page")
		return domain.Message{}, err
	}

	text, buttons := FormatPage(user.CatalogID, page)

	return d.sender.SendMessage(ctx, chatID, text, domain.ParseModeHTML, buttons)
}

func (d *Dispatcher) update(ctx context.Context, l zerolog.Logger, chatID int64) (domain.Message, error) {
	users, err := d.registry.RefreshAll(ctx)
	if err != nil {
		l.Error().Err(err).Msg("failed to refresh registry")
		return domain.Message{}, err
	}

	l.Info().Int("users", len(users)).Msg("registry updated on request")

	return d.sender.SendMessage(ctx, chatID,
		fmt.Sprintf(domain.SuccessfulUpdateText, len(users)), domain.ParseModeHTML, nil)
}

func (d *Dispatcher) offset(ctx context.Context, l zerolog.Logger, messageID int, chatID, catalogID,
	offset int64) (domain.Message, error) {
	page, err := d.catalog.FetchPage(ctx, catalogID, offset)
	if err != nil {
		l.Error().Err(err).Int64("catalogId", catalogID).Int64("offset", offset).
			Msg("failed to fetch library page")
		return domain.Message{}, err
	}

	text, buttons := FormatPage(catalogID, page)

	return d.sender.EditMessageAndKeyboard(ctx, messageID, chatID, text, domain.ParseModeHTML, buttons)
}

func (d *Dispatcher) detail(ctx context.Context, l zerolog.Logger, messageID int, chatID int64,
	action domain.Action) (domain.Message, error) {
	item, err := d.catalog.FetchDetail(ctx, action.CatalogID, action.Param)
	if err != nil {
		l.Error().Err(err).Int64("catalogId", action.CatalogID).Int64("itemId", action.Param).
			Msg("failed to fetch anime detail")
		return domain.Message{}, err
	}

	text, buttons := FormatDetail(action.CatalogID, action.Origin, item)

	return d.sender.EditMessageAndKeyboard(ctx, messageID, chatID, text, domain.ParseModeHTML, buttons)
}
