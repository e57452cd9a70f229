package local

import (
	"github.com/amami1625/pondana-sub000/translate"
	"github.com/goliatone/go-errors"
)

const TextCodeProviderDisabled = "provider_disabled"

var (
	ErrInvalidCredentials = errors.New(translate.MessageInvalidCredentials, errors.CategoryAuth).
				WithTextCode(string(translate.CodeInvalidCredentials)).
				WithCode(errors.CodeUnauthorized)

	ErrUserAlreadyExists = errors.New(translate.MessageUserAlreadyExists, errors.CategoryConflict).
				WithTextCode(string(translate.CodeUserAlreadyExists)).
				WithCode(errors.CodeConflict)

	ErrEmailExists = errors.New(translate.MessageEmailExists, errors.CategoryConflict).
			WithTextCode(string(translate.CodeEmailExists)).
			WithCode(errors.CodeConflict)

	ErrWeakPassword = errors.New(translate.MessageWeakPassword, errors.CategoryValidation).
			WithTextCode(string(translate.CodeWeakPassword)).
			WithCode(errors.CodeBadRequest)

	ErrSamePassword = errors.New(translate.MessageSamePassword, errors.CategoryValidation).
			WithTextCode(string(translate.CodeSamePassword)).
			WithCode(errors.CodeBadRequest)

	ErrEmailAddressInvalid = errors.New(translate.MessageEmailAddressInvalid, errors.CategoryValidation).
				WithTextCode(string(translate.CodeEmailAddressInvalid)).
				WithCode(errors.CodeBadRequest)

	ErrOverEmailSendRateLimit = errors.New(translate.MessageOverEmailSendRateLimit, errors.CategoryRateLimit).
					WithTextCode(string(translate.CodeOverEmailSendRateLimit))

	ErrOverRequestRateLimit = errors.New(translate.MessageOverRequestRateLimit, errors.CategoryRateLimit).
				WithTextCode(string(translate.CodeOverRequestRateLimit))

	ErrSessionNotFound = errors.New(translate.MessageSessionNotFound, errors.CategoryAuth).
				WithTextCode(string(translate.CodeSessionNotFound)).
				WithCode(errors.CodeUnauthorized)

	ErrOTPExpired = errors.New(translate.MessageOTPExpired, errors.CategoryAuth).
			WithTextCode(string(translate.CodeOTPExpired)).
			WithCode(errors.CodeForbidden)

	ErrProviderDisabled = errors.New("Unsupported provider: provider is not enabled", errors.CategoryBadInput).
				WithTextCode(TextCodeProviderDisabled).
				WithCode(errors.CodeBadRequest)
)
