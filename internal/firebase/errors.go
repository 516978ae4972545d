package firebase

import (
	"strings"

	"github.com/pkg/errors"
)

const (
	CodeDuplicateApp          = "app/duplicate-app"
	CodeInvalidAppHandle      = "app/invalid-app-argument"
	CodeOperationNotSupported = "auth/operation-not-supported-in-this-environment"
	CodePopupBlocked          = "auth/popup-blocked"
	CodePopupClosedByUser     = "auth/popup-closed-by-user"
	CodeCancelledPopupRequest = "auth/cancelled-popup-request"
	CodeInvalidAuthEvent      = "auth/invalid-auth-event"
	CodeMissingOrInvalidNonce = "auth/missing-or-invalid-nonce"
	CodeInvalidCredential     = "auth/invalid-credential"
	CodeInvalidUserToken      = "auth/invalid-user-token"
	CodeNetworkRequestFailed  = "auth/network-request-failed"
	CodeInternalError         = "auth/internal-error"
)

// AuthError is returned by the provider for failures that have a stable
// Firebase error code.
type AuthError struct {
	Code    string
	Message string
	// Status is the HTTP status of the Identity Toolkit response, if any.
	Status int
	Err    error
}

func (e *AuthError) Error() string {
	msg := "firebase: " + e.Code
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// ErrorCode returns the Firebase code carried by err, or an empty string.
func ErrorCode(err error) string {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Code
	}
	return ""
}

// toolkitErrorCode turns an Identity Toolkit message such as
// "INVALID_IDP_RESPONSE : token expired" into its code and detail.
func toolkitErrorCode(message string) (string, string) {
	reason, detail, _ := strings.Cut(message, ":")
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return CodeInternalError, strings.TrimSpace(detail)
	}

	code := "auth/" + strings.ToLower(strings.ReplaceAll(reason, "_", "-"))
	return code, strings.TrimSpace(detail)
}
