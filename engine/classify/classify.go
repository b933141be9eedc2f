// Package classify sorts validated vehicles into size categories by asking a
// chat model, guarded by a rate limiter, a circuit breaker, and retries.
package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/WessleyAI/vehicle-form/engine/domain"
	"github.com/WessleyAI/vehicle-form/pkg/fn"
	"github.com/WessleyAI/vehicle-form/pkg/metrics"
	"github.com/WessleyAI/vehicle-form/pkg/ollama"
	"github.com/WessleyAI/vehicle-form/pkg/resilience"
)

var (
	// ErrNotConfigured is returned when no model backend is set.
	ErrNotConfigured = errors.New("classify: no model configured")
	// ErrUnexpectedOutput is returned when the answer lacks the marker.
	ErrUnexpectedOutput = errors.New("classify: unexpected output")
)

// OutputError carries the answer that failed the format check.
type OutputError struct {
	Content string
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("%s - %s", ErrUnexpectedOutput, e.Content)
}

func (e *OutputError) Unwrap() error { return ErrUnexpectedOutput }

// Completer sends one system/user exchange to a chat model.
type Completer interface {
	Complete(ctx context.Context, system, user string) (ollama.Completion, error)
}

// Publisher receives an event for every successful classification.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Result is one classified vehicle.
type Result struct {
	ID         string          `json:"id"`
	Vehicle    domain.Vehicle  `json:"vehicle"`
	Category   domain.Category `json:"category,omitempty"`
	Text       string          `json:"text"`
	Model      string          `json:"model"`
	TokensUsed int             `json:"tokens_used"`
	Duration   time.Duration   `json:"duration_ns"`
}

// Event is published after a successful classification.
type Event struct {
	ID           string          `json:"id"`
	Vehicle      domain.Vehicle  `json:"vehicle"`
	Category     domain.Category `json:"category,omitempty"`
	Model        string          `json:"model"`
	ClassifiedAt time.Time       `json:"classified_at"`
}

// Options configures the classification pipeline.
type Options struct {
	SystemPrompt string
	// Timeout bounds a single model call, not the retries around it.
	Timeout time.Duration
	// RPS and Burst throttle calls to the model. RPS <= 0 disables throttling.
	RPS     float64
	Burst   int
	Retry   fn.RetryOpts
	Breaker resilience.BreakerOpts
	// Workers bounds ClassifyBatch concurrency.
	Workers int
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		SystemPrompt: defaultSystemPrompt,
		Timeout:      60 * time.Second,
		RPS:          2,
		Burst:        4,
		Retry:        fn.DefaultRetry,
		Breaker:      resilience.DefaultBreakerOpts,
		Workers:      4,
	}
}

// Option configures optional collaborators of a Service.
type Option func(*Service)

// WithPublisher publishes an Event after every successful classification.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.pub = p }
}

// WithMetrics records outcomes and latency in reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(s *Service) {
		s.outcomes = reg.Counter("vehicle_classifications_total", "Classification attempts by outcome.", "outcome")
		s.latency = reg.Histogram("vehicle_classification_duration_seconds", "End-to-end classification latency.", nil)
		s.breakerState = reg.Gauge("vehicle_classifier_breaker_state", "Model circuit breaker state (0 closed, 1 open, 2 half-open).")
	}
}

// WithClock sets the time source for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service classifies vehicles.
type Service struct {
	chat    Completer
	opts    Options
	logger  *slog.Logger
	pub     Publisher
	now     func() time.Time
	breaker *resilience.Breaker
	limiter *resilience.Limiter
	run     fn.Stage[domain.Vehicle, Result]

	outcomes     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	breakerState *prometheus.GaugeVec
}

// New creates a Service. A nil chat yields a Service whose calls fail with
// ErrNotConfigured.
func New(chat Completer, opts Options, logger *slog.Logger, options ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = defaultSystemPrompt
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	s := &Service{
		chat:   chat,
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
	for _, o := range options {
		o(s)
	}

	bopts := opts.Breaker
	bopts.IsFailure = ollama.Transient
	bopts.OnStateChange = s.onBreakerChange
	s.breaker = resilience.NewBreaker(bopts)
	s.limiter = resilience.NewLimiter(resilience.LimiterOpts{Rate: opts.RPS, Burst: opts.Burst})

	ropts := opts.Retry
	ropts.Retryable = func(err error) bool {
		return !errors.Is(err, resilience.ErrCircuitOpen) && !errors.Is(err, resilience.ErrRateLimited) && ollama.Transient(err)
	}
	ropts.OnRetry = func(attempt int, err error, wait time.Duration) {
		s.logger.Warn("classify retry", "attempt", attempt, "wait", wait, "err", err)
	}

	call := resilience.LimiterStageWait(s.limiter, resilience.BreakerStage(s.breaker, s.complete))
	s.run = fn.TracedStage("classify.Classify",
		fn.Then(fn.MapStage(BuildPrompt),
			fn.Then(fn.RetryStage(ropts, call), fn.TryStage(parseAnswer))))
	return s
}

// Breaker exposes the model circuit breaker state for health checks.
func (s *Service) Breaker() resilience.State { return s.breaker.State() }

// Configured reports whether a model backend is set.
func (s *Service) Configured() bool { return s.chat != nil }

func (s *Service) complete(ctx context.Context, prompt string) fn.Result[ollama.Completion] {
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}
	return fn.FromPair(s.chat.Complete(ctx, s.opts.SystemPrompt, prompt))
}

func parseAnswer(c ollama.Completion) (Result, error) {
	text := strings.TrimSpace(c.Content)
	if !strings.Contains(text, Marker) {
		return Result{}, &OutputError{Content: text}
	}
	cat, _ := ExtractCategory(text)
	return Result{Category: cat, Text: text, Model: c.Model, TokensUsed: c.TokensUsed}, nil
}

// Classify asks the model for v's size category.
func (s *Service) Classify(ctx context.Context, v domain.Vehicle) (Result, error) {
	if s.chat == nil {
		return Result{}, ErrNotConfigured
	}
	year := ""
	if v.Year > 0 {
		year = strconv.Itoa(v.Year)
	}
	if err := domain.ValidateRequired(year, v.Make, v.Model); err != nil {
		return Result{}, err
	}

	start := s.now()
	res, err := s.run(ctx, v).Unwrap()
	elapsed := s.now().Sub(start)
	s.observe(outcome(err), elapsed)
	if err != nil {
		s.logger.Error("classification failed", "vehicle", v.String(), "err", err)
		return Result{}, fmt.Errorf("classify %q: %w", v.String(), err)
	}

	res.ID = uuid.NewString()
	res.Vehicle = v
	res.Duration = elapsed
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("vehicle.category", string(res.Category)),
		attribute.String("classification.id", res.ID),
	)
	s.logger.Info("vehicle classified",
		"id", res.ID,
		"vehicle", v.String(),
		"category", res.Category,
		"model", res.Model,
		"duration", elapsed,
	)
	s.publish(ctx, res)
	return res, nil
}

// ClassifyBatch classifies vehicles with at most Options.Workers in flight.
// Results are in input order.
func (s *Service) ClassifyBatch(ctx context.Context, vs []domain.Vehicle) []fn.Result[Result] {
	return fn.ParMapResult(ctx, vs, s.opts.Workers, func(ctx context.Context, v domain.Vehicle) fn.Result[Result] {
		return fn.FromPair(s.Classify(ctx, v))
	})
}

func (s *Service) publish(ctx context.Context, res Result) {
	if s.pub == nil {
		return
	}
	ev := Event{
		ID:           res.ID,
		Vehicle:      res.Vehicle,
		Category:     res.Category,
		Model:        res.Model,
		ClassifiedAt: s.now().UTC(),
	}
	if err := s.pub.Publish(ctx, ev); err != nil {
		s.logger.Warn("publish classification event", "id", ev.ID, "err", err)
	}
}

func (s *Service) onBreakerChange(from, to resilience.State) {
	s.logger.Warn("classifier circuit breaker", "from", from.String(), "to", to.String())
	if s.breakerState != nil {
		s.breakerState.WithLabelValues().Set(float64(to))
	}
}

func (s *Service) observe(outcome string, d time.Duration) {
	if s.outcomes == nil {
		return
	}
	s.outcomes.WithLabelValues(outcome).Inc()
	s.latency.WithLabelValues().Observe(d.Seconds())
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnexpectedOutput):
		return "unexpected_output"
	case errors.Is(err, resilience.ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, resilience.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	default:
		return "error"
	}
}

// UserMessage renders err for display next to the form.
func UserMessage(err error) string {
	var oe *OutputError
	switch {
	case errors.Is(err, ErrNotConfigured):
		return "Classification is unavailable: no model is configured."
	case errors.As(err, &oe):
		return "Unexpected output from the classifier - " + oe.Content
	case errors.Is(err, resilience.ErrCircuitOpen), errors.Is(err, resilience.ErrRateLimited):
		return "The classifier is busy. Please try again shortly."
	case errors.Is(err, context.DeadlineExceeded):
		return "The classifier took too long to answer. Please try again."
	default:
		return "Error communicating with the classifier."
	}
}
