// Package translate turns identity provider failures into user-facing,
// localized messages.
//
// Translation is total: unknown input never fails, it resolves to the
// generic fallback message for the active language. Japanese is the
// default language, English is also bundled.
package translate

import (
	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Supported lists the bundled languages, default first.
var Supported = []language.Tag{language.Japanese, language.English}

var messages = map[language.Tag]map[string]string{
	language.Japanese: {
		string(CodeInvalidCredentials):     "メールアドレスまたはパスワードが正しくありません",
		string(CodeEmailNotConfirmed):      "メールアドレスが確認されていません。確認メールをご確認ください",
		string(CodeUserAlreadyExists):      "このメールアドレスは既に登録されています",
		string(CodeEmailExists):            "このメールアドレスは既に使用されています",
		string(CodeWeakPassword):           "パスワードは6文字以上で入力してください",
		string(CodeSamePassword):           "新しいパスワードは現在のパスワードと異なるものを設定してください",
		string(CodeOverEmailSendRateLimit): "メール送信の上限に達しました。しばらく時間をおいてから再度お試しください",
		string(CodeOverRequestRateLimit):   "リクエストが多すぎます。しばらく時間をおいてから再度お試しください",
		string(CodeSessionNotFound):        "セッションの有効期限が切れました。再度ログインしてください",
		string(CodeValidationFailed):       "入力内容に誤りがあります",
		string(CodeEmailAddressInvalid):    "メールアドレスの形式が正しくありません",
		string(CodeOTPExpired):             "リンクの有効期限が切れているか、既に使用されています",
		string(CodeUnknown):                "エラーが発生しました。しばらく時間をおいてから再度お試しください",
		keyIncorrectPassword:               "現在のパスワードが正しくありません",
		keyUserLookupFailed:                "ユーザー情報の取得に失敗しました",
	},
	language.English: {
		string(CodeInvalidCredentials):     "Incorrect email address or password",
		string(CodeEmailNotConfirmed):      "Your email address has not been confirmed yet. Please check your inbox",
		string(CodeUserAlreadyExists):      "This email address is already registered",
		string(CodeEmailExists):            "This email address is already in use",
		string(CodeWeakPassword):           "Passwords must be at least 6 characters long",
		string(CodeSamePassword):           "The new password must differ from your current password",
		string(CodeOverEmailSendRateLimit): "Too many emails sent. Please wait a moment and try again",
		string(CodeOverRequestRateLimit):   "Too many requests. Please wait a moment and try again",
		string(CodeSessionNotFound):        "Your session has expired. Please log in again",
		string(CodeValidationFailed):       "Some of the submitted values are invalid",
		string(CodeEmailAddressInvalid):    "The email address format is invalid",
		string(CodeOTPExpired):             "The link has expired or was already used",
		string(CodeUnknown):                "Something went wrong. Please wait a moment and try again",
		keyIncorrectPassword:               "Your current password is incorrect",
		keyUserLookupFailed:                "Failed to retrieve user information",
	},
}

var (
	bundle  = mustBuildCatalog()
	matcher = language.NewMatcher(Supported)
)

func mustBuildCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(Supported[0]))
	for tag, entries := range messages {
		for key, msg := range entries {
			if err := b.SetString(tag, key, msg); err != nil {
				panic("translate: register message " + key + ": " + err.Error())
			}
		}
	}
	return b
}

// Translator holds a printer bound to one language. It carries no
// mutable state and is safe for concurrent use.
type Translator struct {
	tag     language.Tag
	printer *message.Printer
}

// New returns a Translator for the closest bundled match of tag. Tags
// with no bundled match get the default language.
func New(tag language.Tag) *Translator {
	return newTranslator(match(tag))
}

func newTranslator(resolved language.Tag) *Translator {
	return &Translator{
		tag:     resolved,
		printer: message.NewPrinter(resolved, message.Catalog(bundle)),
	}
}

// match only trusts the matcher when it found some relation; with
// language.No it falls back to the first supported tag by index, which is
// not necessarily what was asked for.
func match(tags ...language.Tag) language.Tag {
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return Supported[0]
	}
	return Supported[idx]
}

// ForAcceptLanguage parses an Accept-Language header value and returns
// the matching Translator, falling back to the default language.
func ForAcceptLanguage(header string) *Translator {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return Default()
	}
	resolved := match(tags...)
	if resolved == Supported[0] {
		return Default()
	}
	return newTranslator(resolved)
}

var defaultTranslator = newTranslator(Supported[0])

// Default returns the Translator for the default language.
func Default() *Translator {
	return defaultTranslator
}

// Language reports the resolved language.
func (t *Translator) Language() language.Tag {
	return t.tag
}

// Translate maps a raw provider message or code to a localized message.
func (t *Translator) Translate(raw string) string {
	return t.Message(Classify(raw))
}

// Error maps a provider error to a localized message. A go-errors text
// code wins over the message text.
func (t *Translator) Error(err error) string {
	return t.Message(ClassifyError(err))
}

// Message returns the localized text for code.
func (t *Translator) Message(code Code) string {
	return t.printer.Sprintf(string(code))
}

// IncorrectPassword is the fixed message for a failed re-authentication.
func (t *Translator) IncorrectPassword() string {
	return t.printer.Sprintf(keyIncorrectPassword)
}

// UserLookupFailed is the fixed message for a session that does not
// resolve to a user with an email address.
func (t *Translator) UserLookupFailed() string {
	return t.printer.Sprintf(keyUserLookupFailed)
}

// ClassifyError extracts the Code carried by err.
func ClassifyError(err error) Code {
	if err == nil {
		return CodeUnknown
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr != nil {
		if code := ParseCode(richErr.TextCode); code != CodeUnknown {
			return code
		}
		return Classify(richErr.Message)
	}

	return Classify(err.Error())
}
