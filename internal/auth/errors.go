package auth

import (
	"encoding/json"
	"errors"

	"github.com/aws/smithy-go"
	"golang.org/x/oauth2"
)

// AuthError is a user-facing authentication failure.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string { return e.Message }

func (e *AuthError) Unwrap() error { return e.Err }

// newAuthError wraps err, keeping an existing *AuthError as is.
func newAuthError(err error) *AuthError {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae
	}
	return &AuthError{Message: describe(err), Err: err}
}

// describe returns the provider's human-readable message, or the serialized error
// payload when the provider sent none.
func describe(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if msg := apiErr.ErrorMessage(); msg != "" {
			return msg
		}
		return marshalPayload(map[string]string{
			"code":  apiErr.ErrorCode(),
			"fault": apiErr.ErrorFault().String(),
		}, err)
	}

	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		if re.ErrorDescription != "" {
			return re.ErrorDescription
		}
		if len(re.Body) > 0 {
			return string(re.Body)
		}
		return marshalPayload(map[string]string{"error": re.ErrorCode}, err)
	}

	return err.Error()
}

func marshalPayload(v map[string]string, fallback error) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fallback.Error()
	}
	return string(b)
}
