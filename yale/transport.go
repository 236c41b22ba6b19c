package yale

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/oshokin/yale-alarm/internal/logger"
)

// requestIDHeader carries a per-request identifier for log correlation.
const requestIDHeader = "X-Request-ID"

// apiTransport decorates every outgoing request: it waits for the rate
// limiter, sets User-Agent and X-Request-ID, and logs the round trip.
type apiTransport struct {
	base      http.RoundTripper
	userAgent string
	// limiter is nil when no client-side rate limit is configured.
	limiter *rate.Limiter
}

// RoundTrip implements http.RoundTripper.
func (t *apiTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	// RoundTrip must not modify the caller's request.
	req = req.Clone(ctx)

	if t.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	requestID := req.Header.Get(requestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
		req.Header.Set(requestIDHeader, requestID)
	}

	start := time.Now()

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		logger.DebugKV(ctx, "Yale API request failed",
			"request_id", requestID,
			"method", req.Method,
			"path", req.URL.Path,
			"duration", time.Since(start),
			"error", err,
		)

		return nil, err
	}

	logger.DebugKV(ctx, "Yale API request",
		"request_id", requestID,
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	return resp, nil
}
