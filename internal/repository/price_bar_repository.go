package repository

import (
	"context"
	"time"

	"stock-analysis/internal/domain"
	"stock-analysis/internal/service"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var priceBarSchema = []string{
	`CREATE TABLE IF NOT EXISTS daily_bars (
		symbol   TEXT NOT NULL,
		bar_date DATE NOT NULL,
		open     DOUBLE PRECISION NOT NULL,
		high     DOUBLE PRECISION NOT NULL,
		low      DOUBLE PRECISION NOT NULL,
		close    DOUBLE PRECISION NOT NULL,
		volume   DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (symbol, bar_date)
	)`,
}

var _ service.BarArchive = (*PriceBarRepository)(nil)

// PriceBarRepository archives provider bars so a later outage can still be
// answered from what was last fetched.
type PriceBarRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewPriceBarRepository(pool PgxPool, tracer trace.Tracer) *PriceBarRepository {
	return &PriceBarRepository{pool: pool, tracer: tracer}
}

func (r *PriceBarRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "price-bar-repo.run-migrations")
	defer span.End()

	for _, stmt := range priceBarSchema {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			span.RecordError(err)
			return err
		}
	}
	return nil
}

func (r *PriceBarRepository) UpsertBars(ctx context.Context, symbol string, bars []domain.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}

	_, span := r.tracer.Start(ctx, "price-bar-repo.upsert-bars")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", symbol), attribute.Int("bars", len(bars)))

	batch := &pgx.Batch{}
	for _, b := range bars {
		batch.Queue(
			`INSERT INTO daily_bars (symbol, bar_date, open, high, low, close, volume)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (symbol, bar_date) DO UPDATE SET
			     open = EXCLUDED.open,
			     high = EXCLUDED.high,
			     low = EXCLUDED.low,
			     close = EXCLUDED.close,
			     volume = EXCLUDED.volume`,
			symbol, b.Date.Time(), b.Open, b.High, b.Low, b.Close, b.Volume,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range bars {
		if _, err := br.Exec(); err != nil {
			span.RecordError(err)
			return err
		}
	}
	return nil
}

// BarsInRange returns archived bars in ascending date order. Nil bounds are
// open-ended.
func (r *PriceBarRepository) BarsInRange(ctx context.Context, symbol string, from, to *domain.Date) ([]domain.PriceBar, error) {
	ctx, span := r.tracer.Start(ctx, "price-bar-repo.bars-in-range")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", symbol))

	var lower, upper *time.Time
	if from != nil {
		t := from.Time()
		lower = &t
	}
	if to != nil {
		t := to.Time()
		upper = &t
	}

	rows, err := r.pool.Query(ctx,
		`SELECT bar_date, open, high, low, close, volume
		 FROM daily_bars
		 WHERE symbol = $1
		   AND ($2::date IS NULL OR bar_date >= $2)
		   AND ($3::date IS NULL OR bar_date <= $3)
		 ORDER BY bar_date ASC`,
		symbol, lower, upper,
	)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer rows.Close()

	bars := []domain.PriceBar{}
	for rows.Next() {
		var (
			day time.Time
			b   domain.PriceBar
		)
		if err := rows.Scan(&day, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, err
		}
		b.Date = domain.DateOf(day.UTC())
		bars = append(bars, b)
	}
	return bars, rows.Err()
}
