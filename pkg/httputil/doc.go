// Package httputil provides retry helpers for the HTTP data sources.
//
// [Retry] re-runs an operation with exponential backoff, but only when the
// returned error is wrapped in [RetryableError]. Clients decide what is
// transient:
//
//   - Network errors (connection refused, DNS, timeouts)
//   - 5xx server errors
//   - 429 rate limit responses
//
// Everything else (4xx, malformed bodies) fails immediately.
//
//	err := httputil.Retry(ctx, 3, time.Second, func() error {
//	    resp, err := client.Do(req)
//	    if err != nil {
//	        return &httputil.RetryableError{Err: err}
//	    }
//	    ...
//	})
//
// The retry budget always sits inside the caller's context, so a provider
// refresh with a deadline never outlives it.
package httputil
