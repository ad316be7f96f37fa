package service

import (
	"context"
	"fmt"
	"log"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"time"

	"stock-analysis/internal/domain"
	"stock-analysis/internal/metrics"
	"stock-analysis/internal/notify"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const (
	defaultSweepConcurrency = 4
	defaultFetchTimeout     = 30 * time.Second
)

type NotificationStore interface {
	Create(ctx context.Context, sub domain.Subscription) error
	FindByContact(ctx context.Context, contact string) ([]domain.Subscription, error)
	FindByEmail(ctx context.Context, email string) ([]domain.Subscription, error)
	FindByPhone(ctx context.Context, phone string) ([]domain.Subscription, error)
	FindBySymbol(ctx context.Context, symbol string) ([]domain.Subscription, error)
	FindByID(ctx context.Context, id string) (*domain.Subscription, error)
	DeleteByID(ctx context.Context, id string) error
	ListAll(ctx context.Context) ([]domain.Subscription, error)
}

type ReadingSource interface {
	LatestReadings(ctx context.Context, symbol string) (map[string]float64, error)
}

// SubscribeRequest is the inbound shape of a new subscription.
type SubscribeRequest struct {
	Email       string   `json:"email" validate:"omitempty,email"`
	Phone       string   `json:"phone" validate:"omitempty,phone"`
	StockSymbol string   `json:"stockSymbol" validate:"required,ticker"`
	Indicator   string   `json:"indicator" validate:"required,oneof=Price RSI MACD SMA"`
	Threshold   *float64 `json:"threshold" validate:"required"`
	Condition   string   `json:"condition" validate:"required,oneof=Above Below"`
}

type SweepStatus string

const (
	SweepTriggered SweepStatus = "triggered"
	SweepQuiet     SweepStatus = "quiet"
	SweepSkipped   SweepStatus = "skipped"
	SweepFailed    SweepStatus = "failed"
)

// SweepResult is the outcome for one subscription in a sweep.
type SweepResult struct {
	Subscription domain.Subscription `json:"subscription"`
	Status       SweepStatus         `json:"status"`
	Reading      *float64            `json:"reading,omitempty"`
	Reason       string              `json:"reason,omitempty"`
}

type SweepReport struct {
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
	Results    []SweepResult `json:"results"`
}

func (r SweepReport) Count(status SweepStatus) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == status {
			n++
		}
	}
	return n
}

type NotificationService struct {
	tracer       trace.Tracer
	store        NotificationStore
	readings     ReadingSource
	dispatcher   notify.Dispatcher
	validate     *validator.Validate
	concurrency  int
	fetchTimeout time.Duration
	newID        func() string
	now          func() time.Time
}

func NewNotificationService(
	tracer trace.Tracer,
	store NotificationStore,
	readings ReadingSource,
	dispatcher notify.Dispatcher,
	concurrency int,
) *NotificationService {
	if dispatcher == nil {
		dispatcher = notify.NewLogDispatcher(nil)
	}
	if concurrency <= 0 {
		concurrency = defaultSweepConcurrency
	}
	return &NotificationService{
		tracer:       tracer,
		store:        store,
		readings:     readings,
		dispatcher:   dispatcher,
		validate:     newSubscriptionValidator(),
		concurrency:  concurrency,
		fetchTimeout: defaultFetchTimeout,
		newID:        uuid.NewString,
		now:          time.Now,
	}
}

// mustRegister panics when a custom tag cannot be registered.
func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %q validation: %v", tag, err))
	}
}

var phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

func newSubscriptionValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	mustRegister(v, "phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "ticker", func(fl validator.FieldLevel) bool {
		_, err := domain.NormalizeSymbol(fl.Field().String())
		return err == nil
	})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		req := sl.Current().Interface().(SubscribeRequest)
		if req.Email == "" && req.Phone == "" {
			sl.ReportError(req.Email, "email", "Email", "contact", "")
		}
	}, SubscribeRequest{})
	return v
}

// normalize trims input and maps case-insensitive names onto their canonical form
// before validation runs.
func (r SubscribeRequest) normalize() SubscribeRequest {
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.StockSymbol = strings.ToUpper(strings.TrimSpace(r.StockSymbol))
	if canonical, err := domain.NormalizeIndicator(r.Indicator); err == nil {
		r.Indicator = canonical
	} else {
		r.Indicator = strings.TrimSpace(r.Indicator)
	}
	switch strings.ToLower(strings.TrimSpace(r.Condition)) {
	case "above":
		r.Condition = string(domain.ConditionAbove)
	case "below":
		r.Condition = string(domain.ConditionBelow)
	default:
		r.Condition = strings.TrimSpace(r.Condition)
	}
	return r
}

func (s *NotificationService) Subscribe(ctx context.Context, req SubscribeRequest) (domain.Subscription, error) {
	ctx, span := s.tracer.Start(ctx, "notification-service.subscribe")
	defer span.End()

	req = req.normalize()
	if err := s.validate.Struct(req); err != nil {
		return domain.Subscription{}, describeValidation(err)
	}

	sub := domain.Subscription{
		ID:        s.newID(),
		Email:     req.Email,
		Phone:     req.Phone,
		Symbol:    req.StockSymbol,
		Indicator: req.Indicator,
		Threshold: *req.Threshold,
		Condition: domain.Condition(req.Condition),
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Create(ctx, sub); err != nil {
		return domain.Subscription{}, fmt.Errorf("store subscription: %w", err)
	}
	span.SetAttributes(attribute.String("subscription_id", sub.ID), attribute.String("symbol", sub.Symbol))
	return sub, nil
}

func (s *NotificationService) ListByContact(ctx context.Context, contact string) ([]domain.Subscription, error) {
	ctx, span := s.tracer.Start(ctx, "notification-service.list-by-contact")
	defer span.End()

	contact = strings.TrimSpace(contact)
	if contact == "" {
		return nil, validationError("contact is required")
	}
	return s.store.FindByContact(ctx, contact)
}

func (s *NotificationService) ListByEmail(ctx context.Context, email string) ([]domain.Subscription, error) {
	ctx, span := s.tracer.Start(ctx, "notification-service.list-by-email")
	defer span.End()

	email = strings.TrimSpace(email)
	if email == "" {
		return nil, validationError("email is required")
	}
	return s.store.FindByEmail(ctx, email)
}

func (s *NotificationService) ListByPhone(ctx context.Context, phone string) ([]domain.Subscription, error) {
	ctx, span := s.tracer.Start(ctx, "notification-service.list-by-phone")
	defer span.End()

	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, validationError("phone is required")
	}
	return s.store.FindByPhone(ctx, phone)
}

func (s *NotificationService) ListBySymbol(ctx context.Context, symbol string) ([]domain.Subscription, error) {
	ctx, span := s.tracer.Start(ctx, "notification-service.list-by-symbol")
	defer span.End()

	symbol, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return s.store.FindBySymbol(ctx, symbol)
}

func (s *NotificationService) Get(ctx context.Context, id string) (domain.Subscription, error) {
	ctx, span := s.tracer.Start(ctx, "notification-service.get")
	defer span.End()

	sub, err := s.store.FindByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Subscription{}, err
	}
	if sub == nil {
		return domain.Subscription{}, ErrNotFound
	}
	return *sub, nil
}

// Delete removes a subscription; deleting an unknown id is not an error.
func (s *NotificationService) Delete(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "notification-service.delete")
	defer span.End()

	id = strings.TrimSpace(id)
	if id == "" {
		return validationError("id is required")
	}
	return s.store.DeleteByID(ctx, id)
}

type symbolReadings struct {
	values map[string]float64
	err    error
}

// Sweep evaluates every stored subscription against the latest readings for its
// symbol. Each symbol is fetched once. Failures are recorded per subscription and
// never stop the rest of the sweep. Only a failure to list subscriptions is
// returned as an error.
func (s *NotificationService) Sweep(ctx context.Context) (SweepReport, error) {
	ctx, span := s.tracer.Start(ctx, "notification-service.sweep")
	defer span.End()

	return s.sweep(ctx, span, s.store.ListAll)
}

// SweepContact runs a sweep limited to one email or phone number.
func (s *NotificationService) SweepContact(ctx context.Context, contact string) (SweepReport, error) {
	ctx, span := s.tracer.Start(ctx, "notification-service.sweep-contact")
	defer span.End()

	contact = strings.TrimSpace(contact)
	if contact == "" {
		return SweepReport{}, validationError("contact is required")
	}
	return s.sweep(ctx, span, func(ctx context.Context) ([]domain.Subscription, error) {
		return s.store.FindByContact(ctx, contact)
	})
}

func (s *NotificationService) sweep(
	ctx context.Context,
	span trace.Span,
	list func(context.Context) ([]domain.Subscription, error),
) (SweepReport, error) {
	report := SweepReport{StartedAt: s.now().UTC()}
	defer func() {
		metrics.ObserveSweepDuration(s.now().Sub(report.StartedAt).Seconds())
	}()

	subs, err := list(ctx)
	if err != nil {
		report.FinishedAt = s.now().UTC()
		return report, fmt.Errorf("list subscriptions: %w", err)
	}

	// Subscription positions per symbol, so results keep the listed order
	// while each symbol is fetched and evaluated on its own goroutine.
	bySymbol := make(map[string][]int)
	symbols := make([]string, 0)
	for i, sub := range subs {
		if _, ok := bySymbol[sub.Symbol]; !ok {
			symbols = append(symbols, sub.Symbol)
		}
		bySymbol[sub.Symbol] = append(bySymbol[sub.Symbol], i)
	}
	sort.Strings(symbols)

	results := make([]SweepResult, len(subs))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, symbol := range symbols {
		g.Go(func() error {
			fetched := s.fetchReadings(ctx, symbol)
			for _, i := range bySymbol[symbol] {
				sub := subs[i]
				result := s.evaluate(ctx, sub, fetched)
				metrics.RecordSweepResult(string(result.Status))
				if result.Status == SweepSkipped || result.Status == SweepFailed {
					log.Printf("sweep %s %s/%s: %s", result.Status, sub.Symbol, sub.ID, result.Reason)
				}
				results[i] = result
			}
			return nil
		})
	}
	_ = g.Wait()
	report.Results = results
	report.FinishedAt = s.now().UTC()

	span.SetAttributes(
		attribute.Int("subscriptions", len(subs)),
		attribute.Int("symbols", len(symbols)),
		attribute.Int("triggered", report.Count(SweepTriggered)),
	)
	return report, nil
}

func (s *NotificationService) fetchReadings(ctx context.Context, symbol string) symbolReadings {
	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()
	values, err := s.readings.LatestReadings(fetchCtx, symbol)
	return symbolReadings{values: values, err: err}
}

func (s *NotificationService) evaluate(ctx context.Context, sub domain.Subscription, fetched symbolReadings) SweepResult {
	result := SweepResult{Subscription: sub}
	if fetched.err != nil {
		result.Status = SweepSkipped
		result.Reason = fmt.Sprintf("readings unavailable: %v", fetched.err)
		return result
	}
	reading, ok := fetched.values[sub.Indicator]
	if !ok {
		result.Status = SweepSkipped
		result.Reason = fmt.Sprintf("no %s reading for %s", sub.Indicator, sub.Symbol)
		return result
	}
	result.Reading = &reading

	if !notify.Evaluate(sub, reading) {
		result.Status = SweepQuiet
		return result
	}

	alert := notify.Alert{Subscription: sub, Reading: reading, FiredAt: s.now().UTC()}
	if err := s.dispatcher.Dispatch(ctx, alert); err != nil {
		result.Status = SweepFailed
		result.Reason = fmt.Sprintf("dispatch: %v", err)
		return result
	}
	result.Status = SweepTriggered
	return result
}
