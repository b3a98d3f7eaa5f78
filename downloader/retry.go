package downloader

import (
	"time"

	"github.com/multidl-cli/multidl/log"
)

const retryAttempts = 2

var retryDelay = time.Second

// retryDo runs fn up to the attempt budget with a fixed delay between
// attempts. An auth-shaped failure escalates immediately and is never
// retried; an exhausted budget surfaces the last failure as transient.
func retryDo(attempts int, delay time.Duration, fn func() error) error {
	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		last = fn()
		if last == nil {
			return nil
		}

		if authBlocked(last) {
			return &AuthRequiredError{Err: last}
		}

		log.Warnf("Attempt %d of %d failed: %s", attempt, attempts, last)
		if attempt < attempts {
			time.Sleep(delay)
		}
	}

	return &TransientError{Err: last}
}
