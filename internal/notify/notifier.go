package notify

import (
	"context"
	"sync/atomic"

	"github.com/pot-code/lessonrelay/internal/domain"
	"github.com/pot-code/lessonrelay/internal/infrastructure/logging"
	"go.elastic.co/apm"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// FanOutNotifier delivers one message to many users with bounded concurrency.
// A failed delivery is logged and left out of the count, it never stops the others.
type FanOutNotifier struct {
	messenger   domain.Messenger
	concurrency int
}

var _ domain.Notifier = &FanOutNotifier{}

// NewFanOutNotifier .
func NewFanOutNotifier(messenger domain.Messenger, concurrency int) *FanOutNotifier {
	if concurrency < 1 {
		concurrency = 1
	}
	return &FanOutNotifier{messenger: messenger, concurrency: concurrency}
}

// Notify returns the number of targets the message reached, duplicate targets are delivered once
func (fn *FanOutNotifier) Notify(ctx context.Context, targets []string, msg *domain.OutboundMessage) int {
	apmSpan, ctx := apm.StartSpan(ctx, "FanOutNotifier.Notify", "messaging")
	defer apmSpan.End()

	logger := logging.ExtractLoggerFromContext(ctx)
	seen := make(map[string]bool, len(targets))

	var (
		delivered int64
		g         errgroup.Group
	)
	g.SetLimit(fn.concurrency)
	for _, target := range targets {
		if target == "" || seen[target] {
			continue
		}
		seen[target] = true

		target := target
		g.Go(func() error {
			if err := fn.messenger.Send(ctx, target, msg); err != nil {
				logger.Warn("notification delivery failed", zap.String("user.id", target), zap.Error(err))
				return nil
			}
			atomic.AddInt64(&delivered, 1)
			return nil
		})
	}
	g.Wait()

	logger.Debug("notification fan-out finished", zap.Int("targets", len(seen)), zap.Int64("delivered", delivered))
	return int(delivered)
}
