// Package classify maps opaque session-daemon authentication failures to a
// small set of actionable error codes and human-readable messages.
package classify

import (
	"fmt"
	"regexp"
	"strings"
)

// Code is an AuthErrorCode, one of the four values below.
type Code string

// Recognised classifier outcomes.
const (
	AuthFailed      Code = "auth_failed"
	AccountLocked   Code = "account_locked"
	PasswordExpired Code = "password_expired"
	PAMError        Code = "pam_error"
)

// All lists every valid Code, in declaration order.
var All = []Code{AuthFailed, AccountLocked, PasswordExpired, PAMError}

var pamTokenPattern = regexp.MustCompile(`\bPAM_[A-Za-z0-9_]*\b`)

var pamCodeToResult = map[string]Code{
	"PAM_ACCT_EXPIRED":      PasswordExpired,
	"PAM_CRED_EXPIRED":      PasswordExpired,
	"PAM_AUTHTOK_EXPIRED":   PasswordExpired,
	"PAM_NEW_AUTHTOK_REQD":  PasswordExpired,
	"PAM_MAXTRIES":          AccountLocked,
	"PAM_PERM_DENIED":       AccountLocked,
	"PAM_AUTH_ERR":          AuthFailed,
	"PAM_USER_UNKNOWN":      AuthFailed,
	"PAM_CRED_INSUFFICIENT": AuthFailed,
}

var accountLockedSubstrings = []string{
	"account locked",
	"too many failed",
	"maximum number of retries",
	"faillock",
}

var passwordExpiredSubstrings = []string{
	"password expired",
	"authentication token is no longer valid",
	"new password required",
	"password change required",
}

var messageTemplates = map[Code]string{
	AuthFailed:      "Authentication failed",
	AccountLocked:   "Account locked or disabled",
	PasswordExpired: "Account or password expired",
}

// Classify derives an AuthErrorCode and human-readable message from the
// daemon's error description and the most recent non-empty info/error
// detail accumulated during the conversation.
func Classify(description, detail string) (Code, string) {
	code := classifyCode(description, detail)

	msg := messageTemplates[code]
	if detail != "" {
		msg = fmt.Sprintf("%s (%s)", msg, detail)
	}
	return code, msg
}

func classifyCode(description, detail string) Code {
	combined := description
	if detail != "" {
		combined = combined + " " + detail
	}

	if tok := pamTokenPattern.FindString(combined); tok != "" {
		if code, ok := pamCodeToResult[tok]; ok {
			return code
		}
	}

	lower := strings.ToLower(combined)
	for _, s := range accountLockedSubstrings {
		if strings.Contains(lower, s) {
			return AccountLocked
		}
	}
	for _, s := range passwordExpiredSubstrings {
		if strings.Contains(lower, s) {
			return PasswordExpired
		}
	}

	return AuthFailed
}
