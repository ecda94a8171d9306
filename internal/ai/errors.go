package ai

import (
    "context"
    "errors"
    "fmt"
    "strings"
)

// HTTPError represents an HTTP status error from an AI provider.
type HTTPError struct {
    StatusCode int
    Body       string
    Provider   string
}

func (e *HTTPError) Error() string {
    return fmt.Sprintf("HTTP %d from %s: %s", e.StatusCode, e.Provider, e.Body)
}

// IsTransient reports whether the error should trigger failover to the next
// provider/model rather than abort the detection.
func IsTransient(err error) bool {
    if err == nil {
        return false
    }

    if errors.Is(err, ErrRateLimited) {
        return true
    }

    if errors.Is(err, context.DeadlineExceeded) {
        return true
    }

    var httpErr *HTTPError
    if errors.As(err, &httpErr) {
        if httpErr.StatusCode >= 500 && httpErr.StatusCode < 600 {
            return true
        }
        if httpErr.StatusCode == 429 {
            return true
        }
    }

    // Network errors (connection issues, timeouts)
    errStr := strings.ToLower(err.Error())
    if strings.Contains(errStr, "connection refused") ||
        strings.Contains(errStr, "connection reset") ||
        strings.Contains(errStr, "timeout") ||
        strings.Contains(errStr, "network") ||
        strings.Contains(errStr, "eof") {
        return true
    }

    return false
}

// IsFatal reports whether the error should stop the failover chain entirely.
func IsFatal(err error) bool {
    if err == nil {
        return false
    }

    var httpErr *HTTPError
    if errors.As(err, &httpErr) {
        if httpErr.StatusCode >= 400 && httpErr.StatusCode < 500 && httpErr.StatusCode != 429 {
            return true
        }
    }

    errStr := strings.ToLower(err.Error())
    if strings.Contains(errStr, "invalid request") ||
        strings.Contains(errStr, "bad request") ||
        strings.Contains(errStr, "malformed") {
        return true
    }

    return false
}
