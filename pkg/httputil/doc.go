// Package httputil provides HTTP plumbing shared by the platform client:
// a retry helper with exponential backoff and a file-based response cache.
//
// Transient failures (timeouts, 5xx responses) are wrapped in
// [RetryableError] so [Retry] can distinguish them from permanent errors
// like 404s, which are returned immediately.
package httputil
