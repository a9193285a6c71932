package mail

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerSender wraps a Sender with a circuit breaker so a failing SMTP
// host trips open instead of stalling every checkout on a dial timeout.
type BreakerSender struct {
	inner   Sender
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// NewBreakerSender wraps the given sender with a circuit breaker. The
// breaker opens when at least 5 sends have been attempted in the rolling
// interval and 60% of them failed, and probes again after 30 seconds.
func NewBreakerSender(inner Sender, logger *slog.Logger) *BreakerSender {
	settings := gobreaker.Settings{
		Name:        "smtp",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	}

	return &BreakerSender{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker[struct{}](settings),
	}
}

// SendOrderConfirmation delivers through the breaker. When the breaker is
// open the send fails fast with gobreaker.ErrOpenState.
func (s *BreakerSender) SendOrderConfirmation(ctx context.Context, conf *OrderConfirmation) error {
	_, err := s.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, s.inner.SendOrderConfirmation(ctx, conf)
	})
	return err
}
