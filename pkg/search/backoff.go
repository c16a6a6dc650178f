package search

import "time"

// retryWithBackoff runs fn up to attempts times, sleeping between tries with
// a delay that doubles from initialDelay. A try is only repeated when
// retryable reports the error as transient; any other error is returned
// immediately. The sleep function is injectable so tests run without real
// delays.
func retryWithBackoff(attempts int, initialDelay time.Duration, sleep func(time.Duration), retryable func(error) bool, fn func() error) error {
	delay := initialDelay
	var lastErr error

	for i := 0; i < attempts; i++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) || i == attempts-1 {
			return lastErr
		}
		sleep(delay)
		delay *= 2
	}

	return lastErr
}
