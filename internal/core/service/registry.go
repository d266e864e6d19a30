package service

import (
	"context"
	"fmt"
	"sagiri/internal/core/domain"
	"sagiri/internal/core/port"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// Registry serves user lookups from an immutable snapshot that RefreshAll replaces atomically.
type Registry struct {
	source port.UserSource
	users  atomic.Pointer[map[int64]domain.User]
}

func NewRegistry(source port.UserSource) *Registry {
	r := &Registry{source: source}

	empty := make(map[int64]domain.User)
	r.users.Store(&empty)

	return r
}

func (r *Registry) Lookup(telegramID int64) (domain.User, bool) {
	user, ok := (*r.users.Load())[telegramID]
	return user, ok
}

func (r *Registry) RefreshAll(ctx context.Context) ([]domain.User, error) {
	users, err := r.source.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}

	snapshot := make(map[int64]domain.User, len(users))
	for _, user := range users {
		snapshot[user.TelegramID] = user
	}
	r.users.Store(&snapshot)

	log.Debug().Int("users", len(snapshot)).Msg("registry refreshed")

	return users, nil
}

// Run refreshes the registry every interval until ctx is done. A failed refresh keeps the
// previous snapshot. A non-positive interval returns immediately.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		log.Debug().Msg("registry refresh cycle disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		log.Debug().Dur("interval", interval).Msg("waiting for next registry refresh")
		select {
		case <-ticker.C:
			if _, err := r.RefreshAll(ctx); err != nil {
				log.Warn().Err(err).Msg("scheduled registry refresh failed")
			}
		case <-ctx.Done():
			log.Debug().Msg("stopping registry refresh cycle")
			return
		}
	}
}
