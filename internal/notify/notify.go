// Package notify decides whether a subscription fires and hands fired
// subscriptions to a dispatcher.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"stock-analysis/internal/domain"
)

// Evaluate fires on strict inequality only: a reading equal to the threshold
// never triggers, whatever the condition.
func Evaluate(sub domain.Subscription, reading float64) bool {
	switch sub.Condition {
	case domain.ConditionAbove:
		return reading > sub.Threshold
	case domain.ConditionBelow:
		return reading < sub.Threshold
	default:
		return false
	}
}

// Alert is a fired subscription together with the reading that fired it.
type Alert struct {
	Subscription domain.Subscription
	Reading      float64
	FiredAt      time.Time
}

func (a Alert) Message() string {
	s := a.Subscription
	return fmt.Sprintf("%s %s is %s %.2f (current %.4f)",
		s.Symbol, s.Indicator, strings.ToLower(string(s.Condition)), s.Threshold, a.Reading)
}

// Dispatcher delivers alerts to the subscriber (email, SMS, chat).
type Dispatcher interface {
	Dispatch(ctx context.Context, alert Alert) error
}

// LogDispatcher writes alerts to a logger; used when no delivery channel is configured.
type LogDispatcher struct {
	logger *log.Logger
}

func NewLogDispatcher(logger *log.Logger) *LogDispatcher {
	if logger == nil {
		logger = log.Default()
	}
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, alert Alert) error {
	_ = ctx
	d.logger.Printf("[ALERT] to=%s id=%s %s", alert.Subscription.ContactKey(), alert.Subscription.ID, alert.Message())
	return nil
}

// MultiDispatcher sends each alert to every dispatcher and joins the failures.
type MultiDispatcher []Dispatcher

func (m MultiDispatcher) Dispatch(ctx context.Context, alert Alert) error {
	var errs []error
	for _, d := range m {
		if d == nil {
			continue
		}
		if err := d.Dispatch(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
