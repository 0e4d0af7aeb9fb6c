package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/rueidis"
)

// RedisHistory is a History backed by Redis lists, one list per
// session. Unlike the in-process Store it survives restarts and can be
// shared across replicas.
type RedisHistory struct {
	client      rueidis.Client
	maxMessages int
	ttl         time.Duration
}

var _ History = (*RedisHistory)(nil)

// RedisConfig holds connection parameters for the history store.
type RedisConfig struct {
	Addrs       []string
	Username    string
	Password    string
	DB          int
	MaxMessages int
	TTL         time.Duration
}

// NewRedisHistory connects to Redis and verifies it responds.
func NewRedisHistory(ctx context.Context, cfg RedisConfig) (*RedisHistory, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("memory: redis addrs are required")
	}
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = 20
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("memory: create redis client: %w", err)
	}

	h := &RedisHistory{client: client, maxMessages: cfg.MaxMessages, ttl: cfg.TTL}
	if err := h.client.Do(ctx, h.client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("memory: redis ping: %w", err)
	}
	return h, nil
}

func sessionKey(sessionID string) string {
	return "pitwall:session:" + sessionID
}

// AddMessage implements History. The list is trimmed to the most recent
// maxMessages entries and the session TTL is refreshed on every write.
func (h *RedisHistory) AddMessage(ctx context.Context, sessionID, role, content string) error {
	payload, err := json.Marshal(Message{Role: role, Content: content, Timestamp: time.Now()})
	if err != nil {
		return fmt.Errorf("memory: marshal message: %w", err)
	}

	key := sessionKey(sessionID)
	cmds := []rueidis.Completed{
		h.client.B().Rpush().Key(key).Element(string(payload)).Build(),
		h.client.B().Ltrim().Key(key).Start(int64(-h.maxMessages)).Stop(-1).Build(),
		h.client.B().Expire().Key(key).Seconds(int64(h.ttl.Seconds())).Build(),
	}
	for _, resp := range h.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return fmt.Errorf("memory: append message: %w", err)
		}
	}
	return nil
}

// RecentHistory implements History.
func (h *RedisHistory) RecentHistory(ctx context.Context, sessionID string, n int) ([]Message, error) {
	start := int64(0)
	if n > 0 {
		start = int64(-n)
	}
	cmd := h.client.B().Lrange().Key(sessionKey(sessionID)).Start(start).Stop(-1).Build()
	raw, err := h.client.Do(ctx, cmd).AsStrSlice()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("memory: read history: %w", err)
	}

	messages := make([]Message, 0, len(raw))
	for _, item := range raw {
		var msg Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			// Skip entries written by incompatible versions.
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// ClearSession implements History.
func (h *RedisHistory) ClearSession(ctx context.Context, sessionID string) error {
	cmd := h.client.B().Del().Key(sessionKey(sessionID)).Build()
	if err := h.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("memory: clear session: %w", err)
	}
	return nil
}

// Close shuts down the underlying client.
func (h *RedisHistory) Close() {
	h.client.Close()
}
