package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/profile-scraper/internal/repository"
)

//go:embed schema.sql
var Schema string

// Open connects a pool to dsn, checks it and applies the schema.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to create connection pool: %v", repository.ErrStorage, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: unable to connect to database: %v", repository.ErrStorage, err)
	}
	if _, err := pool.Exec(ctx, Schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: apply schema: %v", repository.ErrStorage, err)
	}
	return pool, nil
}
