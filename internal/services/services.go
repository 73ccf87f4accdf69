// package services wraps the remote APIs the curator talks to
//
// YouTube Data API v3, Google OAuth2, GitHub Actions secrets
package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/ytcurate/internal/shared"
	"google.golang.org/api/googleapi"
)

// Outcome is the explicit result class of a remote call.
type Outcome int

const (
	OK Outcome = iota
	NotFound
	QuotaExceeded
	Fatal
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case NotFound:
		return "not_found"
	case QuotaExceeded:
		return "quota_exceeded"
	case Fatal:
		return "fatal"
	default:
		return ""
	}
}

// quotaReasons are the googleapi error reasons that mean "stop calling for now".
var quotaReasons = map[string]bool{
	"quotaExceeded":         true,
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
	"dailyLimitExceeded":    true,
}

// APIError carries the outcome of a failed call along with the operation that produced it.
type APIError struct {
	Outcome Outcome
	Op      string
	Err     error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Outcome, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Is matches the shared sentinels so callers outside this package can use [errors.Is].
func (e *APIError) Is(target error) bool {
	switch target {
	case shared.ErrAPIRequest:
		return true
	case shared.ErrQuotaExceeded:
		return e.Outcome == QuotaExceeded
	case shared.ErrPlaylistNotFound:
		return e.Outcome == NotFound
	}
	return false
}

// Classify maps a raw client error to an [Outcome].
//
// 404 is NotFound; 403 with a quota or rate-limit reason and 429 are QuotaExceeded; anything
// else is Fatal.
func Classify(err error) Outcome {
	if err == nil {
		return OK
	}

	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return Fatal
	}

	switch apiErr.Code {
	case http.StatusNotFound:
		return NotFound
	case http.StatusTooManyRequests:
		return QuotaExceeded
	case http.StatusForbidden:
		for _, item := range apiErr.Errors {
			if quotaReasons[item.Reason] {
				return QuotaExceeded
			}
		}
	}
	return Fatal
}

// OutcomeOf returns the outcome carried by err, classifying it when it is not an [APIError].
func OutcomeOf(err error) Outcome {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Outcome
	}
	return Classify(err)
}

// StatusCode extracts the HTTP status of a googleapi error, or 0.
func StatusCode(err error) int {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}

// wrap annotates err with op and its outcome. A nil err stays nil.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &APIError{Outcome: Classify(err), Op: op, Err: err}
}
