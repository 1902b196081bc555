package kv

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Abhinay1073/cyepro-notification-engine/internal/config"
)

// ValkeyStore implements Store against a Valkey/Redis-protocol server via
// go-redis. The config fields it consumes (Host/Port/Password/DB) exist
// unused in the teacher's envconfig.Config as ValkeyHost/ValkeyPort/etc;
// this is their first real caller.
type ValkeyStore struct {
	client *redis.Client
	log    *zap.Logger
}

// NewValkeyStore dials the configured Valkey server and verifies
// reachability with a Ping.
func NewValkeyStore(ctx context.Context, cfg *config.Valkey, log *zap.Logger) (*ValkeyStore, error) {
	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)

	log.Info("Connecting to Valkey",
		zap.String("host", cfg.Host),
		zap.String("port", cfg.Port),
		zap.Int("db", cfg.DB))

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  cfg.CommandTimeout,
		WriteTimeout: cfg.CommandTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		log.Error("Failed to ping Valkey", zap.Error(err))
		return nil, fmt.Errorf("failed to connect to valkey: %w", err)
	}

	log.Info("Valkey connection established successfully")
	return &ValkeyStore{client: client, log: log}, nil
}

// Close releases the underlying connection pool.
func (s *ValkeyStore) Close() error {
	return s.client.Close()
}

// Ping verifies the connection is alive, for the /health endpoint.
func (s *ValkeyStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("valkey ping: %w", err)
	}
	return nil
}

func (s *ValkeyStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("valkey get %q: %w", key, err)
	}
	return val, true, nil
}

func (s *ValkeyStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("valkey set %q: %w", key, err)
	}
	return nil
}

func (s *ValkeyStore) ZAdd(ctx context.Context, key string, member ZMember) error {
	err := s.client.ZAdd(ctx, key, redis.Z{Score: member.Score, Member: member.Member}).Err()
	if err != nil {
		return fmt.Errorf("valkey zadd %q: %w", key, err)
	}
	return nil
}

func (s *ValkeyStore) ZRangeAll(ctx context.Context, key string) ([]ZMember, error) {
	raw, err := s.client.ZRangeWithScores(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("valkey zrange %q: %w", key, err)
	}
	out := make([]ZMember, 0, len(raw))
	for _, z := range raw {
		member, _ := z.Member.(string)
		out = append(out, ZMember{Score: z.Score, Member: member})
	}
	return out, nil
}

func (s *ValkeyStore) ZRangeByScoreCount(ctx context.Context, key string, min, max float64) (int64, error) {
	count, err := s.client.ZCount(ctx, key, formatScore(min), formatScore(max)).Result()
	if err != nil {
		return 0, fmt.Errorf("valkey zcount %q: %w", key, err)
	}
	return count, nil
}

func (s *ValkeyStore) ZRemByScore(ctx context.Context, key string, min, max float64) error {
	err := s.client.ZRemRangeByScore(ctx, key, formatScore(min), formatScore(max)).Err()
	if err != nil {
		return fmt.Errorf("valkey zremrangebyscore %q: %w", key, err)
	}
	return nil
}

func (s *ValkeyStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("valkey expire %q: %w", key, err)
	}
	return nil
}

func formatScore(f float64) string {
	return fmt.Sprintf("%f", f)
}
