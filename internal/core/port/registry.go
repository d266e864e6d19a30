package port

import (
	"context"
	"sagiri/internal/core/domain"
)

type UserRegistry interface {
	// Lookup returns the registered user for a Telegram user ID. It never blocks on I/O.
	Lookup(telegramID int64) (domain.User, bool)
	// RefreshAll reloads every user from the backing store and returns the new set.
	RefreshAll(ctx context.Context) ([]domain.User, error)
}

// UserSource is the storage behind the registry.
type UserSource interface {
	Users(ctx context.Context) ([]domain.User, error)
	Upsert(ctx context.Context, user domain.User) error
}
