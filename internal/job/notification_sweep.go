package job

import (
	"context"
	"log"
	"time"

	"stock-analysis/internal/service"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const DefaultSweepSchedule = "0 0 0 * * 2-6"

type Sweeper interface {
	Sweep(ctx context.Context) (service.SweepReport, error)
}

// NotificationSweep runs the notification sweep on a cron schedule with a
// seconds field.
type NotificationSweep struct {
	tracer     trace.Tracer
	sweeper    Sweeper
	schedule   string
	runOnStart bool
}

func NewNotificationSweep(tracer trace.Tracer, sweeper Sweeper, schedule string, runOnStart bool) *NotificationSweep {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	return &NotificationSweep{
		tracer:     tracer,
		sweeper:    sweeper,
		schedule:   schedule,
		runOnStart: runOnStart,
	}
}

// Start schedules the sweep and blocks until ctx is cancelled.
func (j *NotificationSweep) Start(ctx context.Context) {
	if j.sweeper == nil {
		log.Println("Notification sweep disabled: no notification service")
		<-ctx.Done()
		return
	}

	c := cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(j.schedule, func() { j.runOnce(ctx) }); err != nil {
		log.Printf("Notification sweep disabled: invalid schedule %q: %v", j.schedule, err)
		<-ctx.Done()
		return
	}

	log.Printf("Notification sweep scheduled (%s)", j.schedule)
	if j.runOnStart {
		go j.runOnce(ctx)
	}
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	log.Println("Notification sweep stopped")
}

func (j *NotificationSweep) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	ctx, span := j.tracer.Start(ctx, "notification-sweep.run")
	defer span.End()

	started := time.Now()
	report, err := j.sweeper.Sweep(ctx)
	if err != nil {
		log.Printf("notification sweep failed: %v", err)
		return
	}

	triggered := report.Count(service.SweepTriggered)
	span.SetAttributes(attribute.Int("results", len(report.Results)), attribute.Int("triggered", triggered))
	log.Printf("notification sweep: %d subscriptions, %d triggered, %d quiet, %d skipped, %d failed in %s",
		len(report.Results),
		triggered,
		report.Count(service.SweepQuiet),
		report.Count(service.SweepSkipped),
		report.Count(service.SweepFailed),
		time.Since(started).Round(time.Millisecond),
	)
}
