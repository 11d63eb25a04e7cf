package postgresclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AlexMickh/exoterra-chat/pkg/utils/retry"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgConfig struct {
	host           string
	port           int
	username       string
	password       string
	database       string
	minPools       int
	maxPools       int
	migrationsPath string
}

func NewConfig(
	username string,
	password string,
	host string,
	port int,
	database string,
	minPools int,
	maxPools int,
	migrationsPath string,
) *PgConfig {
	return &PgConfig{
		host:           host,
		port:           port,
		username:       username,
		password:       password,
		database:       database,
		minPools:       minPools,
		maxPools:       maxPools,
		migrationsPath: migrationsPath,
	}
}

// DSN is the connection string shared by the pool and the migrator.
func (c *PgConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.username,
		c.password,
		c.host,
		c.port,
		c.database,
	)
}

func New(ctx context.Context, cfg *PgConfig) (*pgxpool.Pool, error) {
	const op = "postgres-client.New"

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	poolCfg.MinConns = int32(cfg.minPools)
	poolCfg.MaxConns = int32(cfg.maxPools)

	var pool *pgxpool.Pool

	err = retry.WithDelay(5, 500*time.Millisecond, func() error {
		p, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if err = p.Ping(ctx); err != nil {
			p.Close()
			return fmt.Errorf("%s: %w", op, err)
		}

		pool = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := Migrate(cfg.migrationsPath, cfg.DSN()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return pool, nil
}

// Migrate applies every pending migration found in dir.
func Migrate(dir string, dsn string) error {
	const op = "postgres-client.Migrate"

	m, err := migrate.New("file://"+dir, dsn)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer m.Close()

	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
