package port

import (
	"context"
	"sagiri/internal/core/domain"
)

type Sender interface {
	// SendMessage posts a new message to a chat, optionally with an inline keyboard.
	SendMessage(ctx context.Context, chatID int64, text string, parseMode domain.ParseMode,
		buttons [][]domain.Button) (domain.Message, error)
	// EditMessageAndKeyboard replaces the text and inline keyboard of an existing message.
	EditMessageAndKeyboard(ctx context.Context, messageID int, chatID int64, text string,
		parseMode domain.ParseMode, buttons [][]domain.Button) (domain.Message, error)
}
