// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package mirror

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	fieldContent  = "content"
	fieldRevision = "rev"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string // Redis server address (host:port)
	Password string // Redis password (optional)
	DB       int    // Redis database number
	Prefix   string // key prefix, defaults to "resumer"
}

// RedisMirror stores each blob as a hash {content, rev} and implements the
// revision check with WATCH/MULTI/EXEC.
type RedisMirror struct {
	client *redis.Client
	prefix string
	logger zerolog.Logger
}

// NewRedisMirror creates the Redis client and pings it once. An unreachable
// server is logged, not returned: the mirror stays usable and its calls fail
// until Redis comes back. Only an incomplete configuration is an error.
func NewRedisMirror(ctx context.Context, cfg RedisConfig, logger zerolog.Logger) (*RedisMirror, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis mirror requires an address")
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn().
			Err(err).
			Str("addr", cfg.Addr).
			Msg("redis mirror unreachable, continuing without it")
	} else {
		logger.Info().
			Str("addr", cfg.Addr).
			Int("db", cfg.DB).
			Msg("connected to Redis mirror")
	}

	return newRedisMirror(client, cfg.Prefix, logger), nil
}

func newRedisMirror(client *redis.Client, prefix string, logger zerolog.Logger) *RedisMirror {
	if prefix == "" {
		prefix = "resumer"
	}
	return &RedisMirror{client: client, prefix: prefix, logger: logger}
}

func (m *RedisMirror) Name() string { return "redis" }

func (m *RedisMirror) key(key string) string {
	return m.prefix + ":" + key
}

func (m *RedisMirror) Fetch(ctx context.Context, key string) (Blob, error) {
	vals, err := m.client.HMGet(ctx, m.key(key), fieldContent, fieldRevision).Result()
	if err != nil {
		return Blob{}, fmt.Errorf("redis fetch %s: %w", key, err)
	}
	content, _ := vals[0].(string)
	rev, _ := vals[1].(string)
	if rev == "" {
		return Blob{}, ErrNotFound
	}
	return Blob{Content: []byte(content), Revision: Revision(rev)}, nil
}

func (m *RedisMirror) Put(ctx context.Context, key string, content []byte, expected Revision) (Revision, error) {
	k := m.key(key)
	next := ContentRevision(content)

	txf := func(tx *redis.Tx) error {
		cur, err := tx.HGet(ctx, k, fieldRevision).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if Revision(cur) != expected {
			return fmt.Errorf("%w: have %q, expected %q", ErrConflict, cur, expected)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, k, fieldContent, content, fieldRevision, string(next))
			return nil
		})
		return err
	}

	err := m.client.Watch(ctx, txf, k)
	switch {
	case err == nil:
		return next, nil
	case errors.Is(err, redis.TxFailedErr):
		return "", fmt.Errorf("%w: concurrent write to %s", ErrConflict, key)
	case errors.Is(err, ErrConflict):
		return "", err
	default:
		return "", fmt.Errorf("redis put %s: %w", key, err)
	}
}

// Close closes the Redis connection.
func (m *RedisMirror) Close() error {
	return m.client.Close()
}

// HealthCheck checks if Redis is available.
func (m *RedisMirror) HealthCheck(ctx context.Context) error {
	return m.client.Ping(ctx).Err()
}
