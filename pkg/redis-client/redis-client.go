package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/AlexMickh/exoterra-chat/pkg/utils/retry"
	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	addr     string
	user     string
	password string
	db       int
}

func NewConfig(
	addr string,
	user string,
	password string,
	db int,
) *RedisConfig {
	return &RedisConfig{
		addr:     addr,
		user:     user,
		password: password,
		db:       db,
	}
}

func New(ctx context.Context, cfg *RedisConfig) (*redis.Client, error) {
	const op = "redis-client.New"

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.addr,
		Username:     cfg.user,
		Password:     cfg.password,
		DB:           cfg.db,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	err := retry.WithDelay(5, 500*time.Millisecond, func() error {
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	})
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return rdb, nil
}
