package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"stock-analysis/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

const (
	redisNotificationPrefix = "notification:"
	redisAllIndex           = "notifications:all"
	redisContactIndex       = "notifications:contact:"
	redisEmailIndex         = "notifications:email:"
	redisPhoneIndex         = "notifications:phone:"
	redisSymbolIndex        = "notifications:symbol:"
)

// RedisNotificationStore keeps each subscription as a JSON document under
// notification:{id} with set indexes for contact, email, phone and symbol.
type RedisNotificationStore struct {
	client redis.Cmdable
	tracer trace.Tracer
}

func NewRedisNotificationStore(client redis.Cmdable, tracer trace.Tracer) *RedisNotificationStore {
	return &RedisNotificationStore{client: client, tracer: tracer}
}

// RunMigrations exists so both stores bootstrap the same way; Redis has no schema.
func (s *RedisNotificationStore) RunMigrations(ctx context.Context) error {
	return nil
}

func (s *RedisNotificationStore) Create(ctx context.Context, sub domain.Subscription) error {
	ctx, span := s.tracer.Start(ctx, "notification-redis.create")
	defer span.End()

	body, err := json.Marshal(sub)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, redisNotificationPrefix+sub.ID, body, 0)
	for _, key := range indexKeys(sub) {
		pipe.SAdd(ctx, key, sub.ID)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisNotificationStore) FindByContact(ctx context.Context, key string) ([]domain.Subscription, error) {
	ctx, span := s.tracer.Start(ctx, "notification-redis.find-by-contact")
	defer span.End()
	return s.findByIndex(ctx, redisContactIndex+strings.TrimSpace(key))
}

func (s *RedisNotificationStore) FindByEmail(ctx context.Context, email string) ([]domain.Subscription, error) {
	ctx, span := s.tracer.Start(ctx, "notification-redis.find-by-email")
	defer span.End()
	return s.findByIndex(ctx, redisEmailIndex+strings.TrimSpace(email))
}

func (s *RedisNotificationStore) FindByPhone(ctx context.Context, phone string) ([]domain.Subscription, error) {
	ctx, span := s.tracer.Start(ctx, "notification-redis.find-by-phone")
	defer span.End()
	return s.findByIndex(ctx, redisPhoneIndex+strings.TrimSpace(phone))
}

func (s *RedisNotificationStore) FindBySymbol(ctx context.Context, symbol string) ([]domain.Subscription, error) {
	ctx, span := s.tracer.Start(ctx, "notification-redis.find-by-symbol")
	defer span.End()
	return s.findByIndex(ctx, redisSymbolIndex+strings.ToUpper(strings.TrimSpace(symbol)))
}

func (s *RedisNotificationStore) ListAll(ctx context.Context) ([]domain.Subscription, error) {
	ctx, span := s.tracer.Start(ctx, "notification-redis.list-all")
	defer span.End()
	return s.findByIndex(ctx, redisAllIndex)
}

func (s *RedisNotificationStore) FindByID(ctx context.Context, id string) (*domain.Subscription, error) {
	ctx, span := s.tracer.Start(ctx, "notification-redis.find-by-id")
	defer span.End()

	raw, err := s.client.Get(ctx, redisNotificationPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var sub domain.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, fmt.Errorf("decode subscription %s: %w", id, err)
	}
	return &sub, nil
}

func (s *RedisNotificationStore) DeleteByID(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "notification-redis.delete-by-id")
	defer span.End()

	sub, err := s.FindByID(ctx, id)
	if err != nil || sub == nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, redisNotificationPrefix+id)
	for _, key := range indexKeys(*sub) {
		pipe.SRem(ctx, key, id)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisNotificationStore) findByIndex(ctx context.Context, indexKey string) ([]domain.Subscription, error) {
	ids, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, err
	}
	subs := make([]domain.Subscription, 0, len(ids))
	if len(ids) == 0 {
		return subs, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = redisNotificationPrefix + id
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			// index entry outlived its document
			continue
		}
		var sub domain.Subscription
		if err := json.Unmarshal([]byte(str), &sub); err != nil {
			return nil, fmt.Errorf("decode subscription %s: %w", ids[i], err)
		}
		subs = append(subs, sub)
	}

	sort.Slice(subs, func(i, j int) bool {
		if subs[i].CreatedAt.Equal(subs[j].CreatedAt) {
			return subs[i].ID < subs[j].ID
		}
		return subs[i].CreatedAt.Before(subs[j].CreatedAt)
	})
	return subs, nil
}

func indexKeys(sub domain.Subscription) []string {
	keys := []string{redisAllIndex, redisSymbolIndex + sub.Symbol}
	if sub.Email != "" {
		keys = append(keys, redisContactIndex+sub.Email, redisEmailIndex+sub.Email)
	}
	if sub.Phone != "" {
		keys = append(keys, redisContactIndex+sub.Phone, redisPhoneIndex+sub.Phone)
	}
	return keys
}
