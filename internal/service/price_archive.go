package service

import (
	"context"
	"log"

	"stock-analysis/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type BarArchive interface {
	UpsertBars(ctx context.Context, symbol string, bars []domain.PriceBar) error
	BarsInRange(ctx context.Context, symbol string, from, to *domain.Date) ([]domain.PriceBar, error)
}

// ArchivingFetcher records every successful upstream response and answers
// from the archive when the upstream fails. Archive errors never fail a fetch.
type ArchivingFetcher struct {
	tracer   trace.Tracer
	upstream PriceFetcher
	archive  BarArchive
}

func NewArchivingFetcher(tracer trace.Tracer, upstream PriceFetcher, archive BarArchive) *ArchivingFetcher {
	return &ArchivingFetcher{tracer: tracer, upstream: upstream, archive: archive}
}

func (f *ArchivingFetcher) FetchHistorical(ctx context.Context, symbol string, from, to *domain.Date) ([]domain.PriceBar, error) {
	ctx, span := f.tracer.Start(ctx, "price-archive.fetch-historical")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", symbol))

	bars, err := f.upstream.FetchHistorical(ctx, symbol, from, to)
	if err == nil {
		if len(bars) > 0 {
			if archiveErr := f.archive.UpsertBars(ctx, symbol, bars); archiveErr != nil {
				log.Printf("Warning: archive bars for %s: %v", symbol, archiveErr)
			}
		}
		return bars, nil
	}

	archived, archiveErr := f.archive.BarsInRange(ctx, symbol, from, to)
	if archiveErr != nil {
		log.Printf("Warning: read archived bars for %s: %v", symbol, archiveErr)
		return nil, err
	}
	if len(archived) == 0 {
		return nil, err
	}
	log.Printf("upstream fetch for %s failed (%v), serving %d archived bars", symbol, err, len(archived))
	span.SetAttributes(attribute.Bool("archived", true), attribute.Int("bars", len(archived)))
	return archived, nil
}
