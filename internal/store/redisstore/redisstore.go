// Package redisstore caches channel configs in Redis. The config is read on
// every inbound message; the database stays authoritative and cache misses
// or Redis outages just fall through to it.
package redisstore

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/orangecountyai/clem/internal/store"
)

const channelTTL = 5 * time.Minute

type Store struct {
	rdb *redis.Client
}

func New(addr, password string, db int) *Store {
	if addr == "" {
		return nil
	}
	return &Store{rdb: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func channelKey(channelID string) string { return "clem:channel:" + channelID }

// GetChannelConfig returns the cached config and whether it was present.
// A nil Store never hits.
func (s *Store) GetChannelConfig(ctx context.Context, channelID string) (store.ChannelConfig, bool) {
	if s == nil || s.rdb == nil {
		return store.ChannelConfig{}, false
	}
	raw, err := s.rdb.Get(ctx, channelKey(channelID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("redis get channel=%s err=%v", channelID, err)
		}
		return store.ChannelConfig{}, false
	}
	var cfg store.ChannelConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return store.ChannelConfig{}, false
	}
	return cfg, true
}

func (s *Store) SetChannelConfig(ctx context.Context, cfg store.ChannelConfig) {
	if s == nil || s.rdb == nil {
		return
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, channelKey(cfg.ChannelID), raw, channelTTL).Err(); err != nil {
		log.Printf("redis set channel=%s err=%v", cfg.ChannelID, err)
	}
}

// InvalidateChannel drops the cached config after an administrative write.
func (s *Store) InvalidateChannel(ctx context.Context, channelID string) {
	if s == nil || s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, channelKey(channelID)).Err(); err != nil {
		log.Printf("redis del channel=%s err=%v", channelID, err)
	}
}

func (s *Store) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}
