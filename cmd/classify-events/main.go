// Command classify-events subscribes to classification events and logs each
// one, keeping a running count per size category.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/nats-io/nats.go"

	"github.com/WessleyAI/vehicle-form/engine/classify"
	"github.com/WessleyAI/vehicle-form/engine/domain"
	"github.com/WessleyAI/vehicle-form/pkg/natsutil"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	url := envOr("NATS_URL", nats.DefaultURL)
	subject := envOr("NATS_SUBJECT", "vehicle.classified")
	queue := os.Getenv("NATS_QUEUE")

	if err := run(url, subject, queue, logger); err != nil {
		logger.Error("classify-events exited with error", "err", err)
		os.Exit(1)
	}
}

func run(url, subject, queue string, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	nc, err := natsutil.Connect(url, "classify-events", logger)
	if err != nil {
		return fmt.Errorf("nats connect: %w", err)
	}
	defer nc.Close()

	tally := newTally()
	handler := tally.handler(logger)
	var sub *nats.Subscription
	if queue != "" {
		sub, err = natsutil.QueueSubscribe(nc, subject, queue, handler)
	} else {
		sub, err = natsutil.Subscribe(nc, subject, handler)
	}
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	logger.Info("listening for classifications", "subject", subject, "queue", queue)

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		logger.Warn("drain subscription", "err", err)
	}
	logger.Info("shutdown", "counts", tally.snapshot())
	return nil
}

// tally counts events per category.
type tally struct {
	mu     sync.Mutex
	counts map[domain.Category]int
}

func newTally() *tally {
	return &tally{counts: make(map[domain.Category]int)}
}

func (t *tally) handler(logger *slog.Logger) func(context.Context, classify.Event) {
	return func(ctx context.Context, ev classify.Event) {
		cat := ev.Category
		if cat == "" {
			cat = "unknown"
		}
		t.mu.Lock()
		t.counts[cat]++
		n := t.counts[cat]
		t.mu.Unlock()
		logger.InfoContext(ctx, "vehicle classified",
			"id", ev.ID,
			"vehicle", ev.Vehicle.String(),
			"category", cat,
			"model", ev.Model,
			"classified_at", ev.ClassifiedAt,
			"category_total", n,
		)
	}
}

func (t *tally) snapshot() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int, len(t.counts))
	for c, n := range t.counts {
		out[string(c)] = n
	}
	return out
}
