package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/you/sessionkit/domain"
)

// Legacy key suffixes used by the v1 format, which stored the token and user
// under separate keys.
var legacyKeySuffixes = []string{":token", ":user"}

// RedisStoreImpl implements domain.TokenStore using Redis. Used by shared
// kiosk deployments where several agent processes serve the same session.
// The pair is stored as one JSON blob under a single key, so SET/DEL keep it
// atomic without transactions.
type RedisStoreImpl struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisStore creates a Redis-backed token store.
func NewRedisStore(client *redis.Client, key string, ttl time.Duration, logger *zap.Logger) domain.TokenStore {
	return &RedisStoreImpl{client: client, key: key, ttl: ttl, logger: logger}
}

// NewRedisClient dials a Redis instance with the standard options.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

// Load implements domain.TokenStore. Unreachable Redis or corrupt blobs are
// treated as an absent session, logged and never surfaced.
func (s *RedisStoreImpl) Load(ctx context.Context) (string, *domain.User) {
	data, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("session key unreadable, treating as absent",
				zap.String("key", s.key), zap.Error(err))
		}
		return "", nil
	}

	var doc storedSession
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		s.logger.Warn("session blob corrupt, treating as absent",
			zap.String("key", s.key), zap.Error(err))
		return "", nil
	}

	if doc.Token == "" || doc.User == nil {
		if doc.Token != "" || doc.User != nil {
			s.logger.Warn("session blob holds a partial pair, treating as absent",
				zap.String("key", s.key))
		}
		return "", nil
	}

	return doc.Token, doc.User
}

// Save implements domain.TokenStore.
func (s *RedisStoreImpl) Save(ctx context.Context, token string, user *domain.User) error {
	data, err := json.Marshal(storedSession{Token: token, User: user, SavedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key, data, s.ttl).Err()
}

// Clear implements domain.TokenStore. Removes the session blob and any
// legacy split keys in one DEL.
func (s *RedisStoreImpl) Clear(ctx context.Context) error {
	keys := []string{s.key}
	for _, suffix := range legacyKeySuffixes {
		keys = append(keys, s.key+suffix)
	}
	return s.client.Del(ctx, keys...).Err()
}
