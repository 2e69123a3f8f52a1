package slack

import (
	"errors"
	"fmt"
)

// Error codes the pipeline special-cases. Every other code surfaces as an
// opaque *APIError checked by code string.
const (
	CodeRateLimited           = "ratelimited"
	CodeRateLimitedAlt        = "rate_limited"
	CodeAlreadyInChannel      = "already_in_channel"
	CodeNotInChannel          = "not_in_channel"
	CodeMethodNotSupported    = "method_not_supported_for_channel_type"
	CodeChannelNotFound       = "channel_not_found"
	CodeUserNotFound          = "user_not_found"
	CodeInvalidAuth           = "invalid_auth"
	CodeMissingScope          = "missing_scope"
	CodeAccountInactive       = "account_inactive"
	CodeTokenRevoked          = "token_revoked"
	CodeInternalErrorUpstream = "internal_error"
)

// ErrDownloadFailed indicates a file download returned a non-200 status.
var ErrDownloadFailed = errors.New("file download failed")

// APIError is a non-ok Web API response. The Code field holds the
// machine-readable error string from the response envelope.
type APIError struct {
	Method string
	Code   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("slack api %s: %s", e.Method, e.Code)
}

// IsCode reports whether err is an *APIError carrying the given code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}

	return apiErr.Code == code
}

// isRateLimited reports whether the envelope error string is a throttling
// response. Slack has used both spellings over time.
func isRateLimited(code string) bool {
	return code == CodeRateLimited || code == CodeRateLimitedAlt
}

// IsAuthError reports whether err means the token itself is unusable,
// the only class of error that aborts a whole run.
func IsAuthError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}

	switch apiErr.Code {
	case CodeInvalidAuth, CodeAccountInactive, CodeTokenRevoked:
		return true
	}

	return false
}
