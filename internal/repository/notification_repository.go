package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"stock-analysis/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var notificationSchema = []string{
	`CREATE TABLE IF NOT EXISTS notification_subscriptions (
		id         TEXT PRIMARY KEY,
		email      TEXT NOT NULL DEFAULT '',
		phone      TEXT NOT NULL DEFAULT '',
		symbol     TEXT NOT NULL,
		indicator  TEXT NOT NULL,
		threshold  DOUBLE PRECISION NOT NULL,
		condition  TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notification_subscriptions_email ON notification_subscriptions (email)`,
	`CREATE INDEX IF NOT EXISTS idx_notification_subscriptions_phone ON notification_subscriptions (phone)`,
	`CREATE INDEX IF NOT EXISTS idx_notification_subscriptions_symbol ON notification_subscriptions (symbol, indicator)`,
}

const notificationColumns = `id, email, phone, symbol, indicator, threshold, condition, created_at`

// NotificationRepository stores subscriptions in Postgres, one row per
// generated id. Inserts never check for duplicates.
type NotificationRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewNotificationRepository(pool PgxPool, tracer trace.Tracer) *NotificationRepository {
	return &NotificationRepository{pool: pool, tracer: tracer}
}

func (r *NotificationRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "notification-repo.run-migrations")
	defer span.End()

	for _, stmt := range notificationSchema {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			span.RecordError(err)
			return err
		}
	}
	return nil
}

func (r *NotificationRepository) Create(ctx context.Context, sub domain.Subscription) error {
	_, span := r.tracer.Start(ctx, "notification-repo.create")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", sub.Symbol), attribute.String("indicator", sub.Indicator))

	_, err := r.pool.Exec(ctx,
		`INSERT INTO notification_subscriptions (`+notificationColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sub.ID,
		sub.Email,
		sub.Phone,
		sub.Symbol,
		sub.Indicator,
		sub.Threshold,
		string(sub.Condition),
		sub.CreatedAt.UTC(),
	)
	return err
}

// FindByContact matches the key against both the email and phone columns.
func (r *NotificationRepository) FindByContact(ctx context.Context, key string) ([]domain.Subscription, error) {
	ctx, span := r.tracer.Start(ctx, "notification-repo.find-by-contact")
	defer span.End()

	key = strings.TrimSpace(key)
	if key == "" {
		return []domain.Subscription{}, nil
	}
	return r.list(ctx, `WHERE email = $1 OR phone = $1`, key)
}

func (r *NotificationRepository) FindByEmail(ctx context.Context, email string) ([]domain.Subscription, error) {
	ctx, span := r.tracer.Start(ctx, "notification-repo.find-by-email")
	defer span.End()

	email = strings.TrimSpace(email)
	if email == "" {
		return []domain.Subscription{}, nil
	}
	return r.list(ctx, `WHERE email = $1`, email)
}

func (r *NotificationRepository) FindByPhone(ctx context.Context, phone string) ([]domain.Subscription, error) {
	ctx, span := r.tracer.Start(ctx, "notification-repo.find-by-phone")
	defer span.End()

	phone = strings.TrimSpace(phone)
	if phone == "" {
		return []domain.Subscription{}, nil
	}
	return r.list(ctx, `WHERE phone = $1`, phone)
}

func (r *NotificationRepository) FindBySymbol(ctx context.Context, symbol string) ([]domain.Subscription, error) {
	ctx, span := r.tracer.Start(ctx, "notification-repo.find-by-symbol")
	defer span.End()

	return r.list(ctx, `WHERE symbol = $1`, strings.ToUpper(strings.TrimSpace(symbol)))
}

func (r *NotificationRepository) ListAll(ctx context.Context) ([]domain.Subscription, error) {
	ctx, span := r.tracer.Start(ctx, "notification-repo.list-all")
	defer span.End()

	return r.list(ctx, ``)
}

// FindByID returns nil without error when no row has the id.
func (r *NotificationRepository) FindByID(ctx context.Context, id string) (*domain.Subscription, error) {
	_, span := r.tracer.Start(ctx, "notification-repo.find-by-id")
	defer span.End()

	row := r.pool.QueryRow(ctx, `SELECT `+notificationColumns+` FROM notification_subscriptions WHERE id = $1`, id)
	sub, err := scanSubscription(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// DeleteByID is a no-op for unknown ids.
func (r *NotificationRepository) DeleteByID(ctx context.Context, id string) error {
	_, span := r.tracer.Start(ctx, "notification-repo.delete-by-id")
	defer span.End()

	_, err := r.pool.Exec(ctx, `DELETE FROM notification_subscriptions WHERE id = $1`, id)
	return err
}

func (r *NotificationRepository) list(ctx context.Context, where string, args ...any) ([]domain.Subscription, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+notificationColumns+` FROM notification_subscriptions `+where+` ORDER BY created_at ASC, id ASC`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := make([]domain.Subscription, 0)
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func scanSubscription(row pgx.Row) (domain.Subscription, error) {
	var sub domain.Subscription
	var condition string
	var createdAt time.Time
	if err := row.Scan(
		&sub.ID,
		&sub.Email,
		&sub.Phone,
		&sub.Symbol,
		&sub.Indicator,
		&sub.Threshold,
		&condition,
		&createdAt,
	); err != nil {
		return domain.Subscription{}, err
	}
	sub.Condition = domain.Condition(condition)
	sub.CreatedAt = createdAt.UTC()
	return sub, nil
}
