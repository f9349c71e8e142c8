package llmclient

import (
	"math"
	"net/http"
	"strconv"
	"time"
)

// backoffPolicy computes retry delays the way describes: prefer
// a server-supplied Retry-After, else exponential backoff seeded from a base
// delay, capped at maxDelay.
type backoffPolicy struct {
	base    time.Duration
	maxDelay time.Duration
}

func defaultBackoffPolicy() backoffPolicy {
	return backoffPolicy{base: 500 * time.Millisecond, maxDelay: 30 * time.Second}
}

func (p backoffPolicy) delay(attempt int, resp *http.Response) time.Duration {
	if resp != nil {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil && secs >= 0 {
				return time.Duration(secs) * time.Second
			}
		}
	}
	d := float64(p.base) * math.Pow(2, float64(attempt))
	if time.Duration(d) > p.maxDelay {
		return p.maxDelay
	}
	return time.Duration(d)
}

func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
