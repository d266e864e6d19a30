// Package store provides the user sources backing the registry.
package store

import (
	"context"
	"fmt"
	"sagiri/internal/core/port"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Source is a user source that holds a connection.
type Source interface {
	port.UserSource
	Close() error
}

// Open connects to the user store selected by driver.
func Open(ctx context.Context, driver, dsn string) (Source, error) {
	switch driver {
	case DriverSQLite, "":
		s, err := NewSQLite(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverPostgres:
		p, err := NewPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown registry driver %q", driver)
	}
}
