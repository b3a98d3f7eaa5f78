package downloader

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// InvalidInputError reports a url no platform identifier could be
// extracted from. It fails the item immediately, without reaching the
// backend.
type InvalidInputError struct {
	URL    string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid url %q", e.URL)
	}

	return fmt.Sprintf("invalid url %q: %s", e.URL, e.Reason)
}

// AuthRequiredError reports a download the backend refused to serve
// without interactive authentication. It is never retried so the caller
// can run the authentication flow and submit the batch again.
type AuthRequiredError struct {
	Err error
}

func (e *AuthRequiredError) Error() string {
	if e.Err == nil {
		return "authentication required"
	}

	return fmt.Sprintf("authentication required: %s", e.Err)
}

func (e *AuthRequiredError) Unwrap() error {
	return e.Err
}

// TransientError reports a backend failure that survived the retry
// budget. It wraps the last underlying failure.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("download failed: %s", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

var authTokens = []string{"400", "login", "authentication"}

// authBlocked reports whether a backend failure looks like the platform
// demanding authentication rather than a transient fault.
func authBlocked(err error) bool {
	message := strings.ToLower(err.Error())

	return lo.SomeBy(authTokens, func(token string) bool {
		return strings.Contains(message, token)
	})
}
