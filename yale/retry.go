package yale

// RetryPolicy decides whether a request rejected with 401 is sent again
// after the token has been refreshed. Nothing else is ever retried.
type RetryPolicy struct {
	// MaxRetries is the number of refresh-and-retry rounds per call.
	MaxRetries int
}

// DefaultRetryPolicy allows exactly one refresh-and-retry per call.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 1}
}

// ShouldRetry reports whether a call that has already been retried
// `retries` times may be retried once more after failing with err.
func (p RetryPolicy) ShouldRetry(retries int, err error) bool {
	return isUnauthorized(err) && retries < p.MaxRetries
}
