package repository

import (
	"context"
	"fmt"
	"log"

	"stock-analysis/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// SubscriptionStore is the contract both notification backends satisfy.
type SubscriptionStore interface {
	Create(ctx context.Context, sub domain.Subscription) error
	FindByContact(ctx context.Context, key string) ([]domain.Subscription, error)
	FindByEmail(ctx context.Context, email string) ([]domain.Subscription, error)
	FindByPhone(ctx context.Context, phone string) ([]domain.Subscription, error)
	FindBySymbol(ctx context.Context, symbol string) ([]domain.Subscription, error)
	FindByID(ctx context.Context, id string) (*domain.Subscription, error)
	DeleteByID(ctx context.Context, id string) error
	ListAll(ctx context.Context) ([]domain.Subscription, error)
}

var (
	_ SubscriptionStore = (*NotificationRepository)(nil)
	_ SubscriptionStore = (*RedisNotificationStore)(nil)
)

// OpenNotificationStore returns the requested backend, falling back to Redis
// when Postgres is not connected. It returns a nil store when neither
// connection is available.
func OpenNotificationStore(
	ctx context.Context,
	backend string,
	pool *pgxpool.Pool,
	client *redis.Client,
	tracer trace.Tracer,
) (SubscriptionStore, error) {
	if backend == BackendPostgres && pool != nil {
		repo := NewNotificationRepository(pool, tracer)
		if err := repo.RunMigrations(ctx); err != nil {
			return nil, fmt.Errorf("notification migrations: %w", err)
		}
		log.Println("Notification store: postgres")
		return repo, nil
	}
	if client != nil {
		if backend == BackendPostgres {
			log.Println("Warning: Postgres not connected, notification store falling back to redis")
		}
		log.Println("Notification store: redis")
		return NewRedisNotificationStore(client, tracer), nil
	}
	return nil, nil
}
