package store

import (
	"context"
	"fmt"
	"sagiri/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	telegram_id BIGINT PRIMARY KEY,
	catalog_id  BIGINT NOT NULL
)`

// Postgres keeps the Telegram to Kitsu user mapping in PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Debug().Str("host", config.ConnConfig.Host).Msg("postgres user store ready")

	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Users(ctx context.Context) ([]domain.User, error) {
	rows, err := p.pool.Query(ctx, `SELECT telegram_id, catalog_id FROM users ORDER BY telegram_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.User, error) {
		var u domain.User
		err := row.Scan(&u.TelegramID, &u.CatalogID)
		return u, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan users: %w", err)
	}

	return users, nil
}

func (p *Postgres) Upsert(ctx context.Context, user domain.User) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO users (telegram_id, catalog_id) VALUES ($1, $2)
		 ON CONFLICT (telegram_id) DO UPDATE SET catalog_id = EXCLUDED.catalog_id`,
		user.TelegramID, user.CatalogID)
	if err != nil {
		return fmt.Errorf("failed to upsert user %d: %w", user.TelegramID, err)
	}

	return nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
