package coordinator

import (
	"errors"

	"github.com/sony/gobreaker"

	"github.com/correlator-io/catalog/internal/domain"
)

// newBreaker builds a gobreaker.CircuitBreaker for one store dependency,
// named for log/metric attribution, trip-on-consecutive-failures (spec
// §4.5: "a breaker trip surfaces as domain.ErrUnavailable"). Grounded on
// r3e-network-service_layer/infrastructure/resilience/resilience.go's
// CircuitBreaker adapter, adapted to gobreaker v1's non-generic Execute
// (the pinned go.mod version predates gobreaker/v2's generics) via the
// executeBreaker helper below.
func newBreaker(name string, cfg *Config) *gobreaker.CircuitBreaker {
	maxFailures := uint32(cfg.BreakerMaxFailures)
	halfOpenMax := uint32(cfg.BreakerHalfOpenMax)

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: halfOpenMax,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
	})
}

// executeBreaker runs fn through breaker, translating gobreaker's own
// open/too-many-requests sentinels into domain.ErrUnavailable so callers
// never need to know gobreaker is involved.
func executeBreaker[T any](breaker *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	result, err := breaker.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, domain.Unavailablef("%s: %w", breaker.Name(), err)
		}

		return zero, err
	}

	return result.(T), nil
}
