package translate

import "strings"

// Code is a closed set of provider failure classes the UI knows how to explain.
type Code string

const (
	CodeInvalidCredentials     Code = "invalid_credentials"
	CodeEmailNotConfirmed      Code = "email_not_confirmed"
	CodeUserAlreadyExists      Code = "user_already_exists"
	CodeEmailExists            Code = "email_exists"
	CodeWeakPassword           Code = "weak_password"
	CodeSamePassword           Code = "same_password"
	CodeOverEmailSendRateLimit Code = "over_email_send_rate_limit"
	CodeOverRequestRateLimit   Code = "over_request_rate_limit"
	CodeSessionNotFound        Code = "session_not_found"
	CodeValidationFailed       Code = "validation_failed"
	CodeEmailAddressInvalid    Code = "email_address_invalid"
	CodeOTPExpired             Code = "otp_expired"
	CodeUnknown                Code = "unknown"
)

// fixed messages that never come from the provider
const (
	keyIncorrectPassword = "incorrect_password"
	keyUserLookupFailed  = "user_lookup_failed"
)

// Raw provider messages, as returned by the identity provider alongside a code.
const (
	MessageInvalidCredentials     = "Invalid login credentials"
	MessageEmailNotConfirmed      = "Email not confirmed"
	MessageUserAlreadyExists      = "User already registered"
	MessageEmailExists            = "A user with this email address has already been registered"
	MessageWeakPassword           = "Password should be at least 6 characters"
	MessageSamePassword           = "New password should be different from the old password."
	MessageOverEmailSendRateLimit = "Email rate limit exceeded"
	MessageOverRequestRateLimit   = "Request rate limit reached"
	MessageSessionNotFound        = "Auth session missing!"
	MessageEmailAddressInvalid    = "Unable to validate email address: invalid format"
	MessageOTPExpired             = "Email link is invalid or has expired"
)

// ParseCode maps a provider error code onto Code. Anything outside the
// known set is CodeUnknown.
func ParseCode(raw string) Code {
	switch Code(strings.ToLower(strings.TrimSpace(raw))) {
	case CodeInvalidCredentials:
		return CodeInvalidCredentials
	case CodeEmailNotConfirmed:
		return CodeEmailNotConfirmed
	case CodeUserAlreadyExists:
		return CodeUserAlreadyExists
	case CodeEmailExists:
		return CodeEmailExists
	case CodeWeakPassword:
		return CodeWeakPassword
	case CodeSamePassword:
		return CodeSamePassword
	case CodeOverEmailSendRateLimit:
		return CodeOverEmailSendRateLimit
	case CodeOverRequestRateLimit:
		return CodeOverRequestRateLimit
	case CodeSessionNotFound:
		return CodeSessionNotFound
	case CodeValidationFailed:
		return CodeValidationFailed
	case CodeEmailAddressInvalid:
		return CodeEmailAddressInvalid
	case CodeOTPExpired:
		return CodeOTPExpired
	default:
		return CodeUnknown
	}
}

// Classify maps a raw provider message, or a bare code, onto Code.
func Classify(raw string) Code {
	switch strings.TrimSpace(raw) {
	case MessageInvalidCredentials:
		return CodeInvalidCredentials
	case MessageEmailNotConfirmed:
		return CodeEmailNotConfirmed
	case MessageUserAlreadyExists:
		return CodeUserAlreadyExists
	case MessageEmailExists:
		return CodeEmailExists
	case MessageWeakPassword:
		return CodeWeakPassword
	case MessageSamePassword:
		return CodeSamePassword
	case MessageOverEmailSendRateLimit:
		return CodeOverEmailSendRateLimit
	case MessageOverRequestRateLimit:
		return CodeOverRequestRateLimit
	case MessageSessionNotFound:
		return CodeSessionNotFound
	case MessageEmailAddressInvalid:
		return CodeEmailAddressInvalid
	case MessageOTPExpired:
		return CodeOTPExpired
	default:
		return ParseCode(raw)
	}
}
