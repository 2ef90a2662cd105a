package catalog

import (
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// scheduleBackOff replays a fixed delay schedule, one delay per retry, then
// stops. Unlike the exponential policies this gives at most 1+len(schedule)
// attempts with deterministic spacing.
type scheduleBackOff struct {
	delays []time.Duration
	next   int
}

var _ backoff.BackOff = (*scheduleBackOff)(nil)

func newScheduleBackOff(delays []time.Duration) *scheduleBackOff {
	return &scheduleBackOff{delays: delays}
}

func (b *scheduleBackOff) NextBackOff() time.Duration {
	if b.next >= len(b.delays) {
		return backoff.Stop
	}
	delay := b.delays[b.next]
	b.next++
	return delay
}

func (b *scheduleBackOff) Reset() {
	b.next = 0
}

// retryableStatus reports whether an HTTP status is worth another attempt.
func retryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
