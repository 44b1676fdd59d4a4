package graph

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/sirupsen/logrus"
)

type BreakerSettings struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// BreakerStore short-circuits calls to a Store that keeps reporting
// ErrUnavailable. Syntax, constraint and other query errors pass through
// without counting as failures, as do calls canceled by their caller.
type BreakerStore struct {
	next   Store
	cb     *gobreaker.CircuitBreaker[[]Record]
	name   string
	logger *logrus.Logger
}

func NewBreakerStore(next Store, settings BreakerSettings, logger *logrus.Logger) *BreakerStore {
	if settings.Name == "" {
		settings.Name = "neo4j"
	}
	if settings.FailureThreshold == 0 {
		settings.FailureThreshold = 5
	}

	b := &BreakerStore{
		next:   next,
		name:   settings.Name,
		logger: logger,
	}

	breakerState.WithLabelValues(settings.Name).Set(0)

	b.cb = gobreaker.NewCircuitBreaker[[]Record](gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Graph store circuit breaker state changed")
			breakerState.WithLabelValues(name).Set(stateValue(to))
		},
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, ErrCanceled) {
				return true
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return true
			}
			return !errors.Is(err, ErrUnavailable)
		},
	})

	return b
}

func (b *BreakerStore) Query(ctx context.Context, stmt string, params map[string]any) ([]Record, error) {
	return b.execute(stmt, func() ([]Record, error) {
		return b.next.Query(ctx, stmt, params)
	})
}

func (b *BreakerStore) WriteQuery(ctx context.Context, stmt string, params map[string]any) ([]Record, error) {
	return b.execute(stmt, func() ([]Record, error) {
		return b.next.WriteQuery(ctx, stmt, params)
	})
}

func (b *BreakerStore) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerStore) execute(stmt string, fn func() ([]Record, error)) ([]Record, error) {
	rows, err := b.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			breakerRejections.WithLabelValues(b.name).Inc()
			return nil, &Error{Kind: ErrUnavailable, Statement: stmt, Err: err}
		}
		return nil, err
	}
	return rows, nil
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
