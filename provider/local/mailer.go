package local

import (
	"context"
	"net/url"

	auth "github.com/amami1625/pondana-sub000"
	"github.com/goliatone/go-print"
)

// MessageKind names the mail template.
type MessageKind string

const (
	MessageRecovery           MessageKind = "recovery"
	MessageEmailChangeCurrent MessageKind = "email_change_current"
	MessageEmailChangeNew     MessageKind = "email_change_new"
)

// Message is an outgoing link mail.
type Message struct {
	Kind MessageKind `json:"kind"`
	To   string      `json:"to"`
	Link string      `json:"link"`
}

// Mailer delivers link mails.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// MailerFunc adapts a function to Mailer.
type MailerFunc func(ctx context.Context, msg Message) error

func (f MailerFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// LogMailer prints mails instead of sending them.
type LogMailer struct {
	logger auth.Logger
}

func NewLogMailer(logger auth.Logger) *LogMailer {
	if logger == nil {
		logger = auth.DefaultLogger()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("====== SENDING EMAIL NOTIFICATION =======\n%s", print.MaybePrettyJSON(msg))
	return nil
}

// buildLink appends the one-time secret to the confirmation target.
func buildLink(target, secret string, otpType auth.OTPType) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token_hash", secret)
	q.Set("type", string(otpType))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
