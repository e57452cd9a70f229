package local

import (
	"context"
	"database/sql"
	"net/url"
	"time"

	auth "github.com/amami1625/pondana-sub000"
	"github.com/amami1625/pondana-sub000/session"
	"github.com/amami1625/pondana-sub000/social"
	"github.com/amami1625/pondana-sub000/translate"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// VerifyOTP consumes a mailed link. Recovery links sign the browser in with
// a recovery session. Email change links confirm one side of a pending
// change and never sign anyone in: the browser's own session is returned
// when it has one, otherwise the session is nil.
func (c *Client) VerifyOTP(ctx context.Context, secret string, otpType auth.OTPType) (*auth.Session, error) {
	if secret == "" {
		return nil, ErrOTPExpired
	}

	switch otpType {
	case auth.OTPTypeRecovery:
		return c.verifyRecovery(ctx, secret)
	case auth.OTPTypeEmailChange:
		return c.verifyEmailChange(ctx, secret)
	default:
		return nil, errors.New("unsupported verification type", errors.CategoryBadInput).
			WithTextCode(string(translate.CodeValidationFailed)).
			WithMetadata(map[string]any{"type": string(otpType)})
	}
}

func (c *Client) verifyRecovery(ctx context.Context, secret string) (*auth.Session, error) {
	p := c.provider
	now := p.now().UTC()

	var user *User
	err := p.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		tok, err := p.consume(ctx, tx, secret, now, TokenRecovery)
		if err != nil {
			return err
		}

		user, err = p.users.GetByUUIDTx(ctx, tx, tok.UserID)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrOTPExpired
			}
			return err
		}

		// following the link proves the address
		if user.EmailConfirmedAt == nil {
			user.EmailConfirmedAt = &now
			_, err = tx.NewUpdate().
				Model((*User)(nil)).
				Set("email_confirmed_at = ?", now).
				Where("id = ?", user.ID).
				Exec(ctx)
		}
		return err
	})
	if err != nil {
		return nil, otpError(err, "failed to verify recovery link")
	}

	sess, err := c.establish(ctx, user, auth.AuthMethodRecovery, session.EventPasswordRecovery)
	if err != nil {
		return nil, err
	}

	p.record(ctx, auth.ActivityEvent{
		EventType: auth.ActivityEventRecoveryLogin,
		UserID:    user.ID.String(),
		Email:     user.Email,
		Method:    auth.AuthMethodRecovery,
	})

	return sess, nil
}

func (c *Client) verifyEmailChange(ctx context.Context, secret string) (*auth.Session, error) {
	p := c.provider
	now := p.now().UTC()

	var (
		user      *User
		change    *EmailChange
		completed bool
	)
	err := p.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		tok, err := p.consume(ctx, tx, secret, now, TokenEmailChangeCurrent, TokenEmailChangeNew)
		if err != nil {
			return err
		}

		change, err = p.store.pendingEmailChange(ctx, tx, tok.UserID)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrOTPExpired
			}
			return err
		}

		switch tok.TokenType {
		case TokenEmailChangeCurrent:
			if tok.RelatesTo != change.OldEmail {
				return ErrOTPExpired
			}
			change.CurrentConfirmedAt = &now
		case TokenEmailChangeNew:
			if tok.RelatesTo != change.NewEmail {
				return ErrOTPExpired
			}
			change.NewConfirmedAt = &now
		}

		user, err = p.users.GetByUUIDTx(ctx, tx, tok.UserID)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrOTPExpired
			}
			return err
		}

		if change.Confirmed() {
			if other, err := p.users.GetByEmailTx(ctx, tx, change.NewEmail); err == nil && other.ID != user.ID {
				return ErrEmailExists
			} else if err != nil && !repository.IsRecordNotFound(err) {
				return err
			}

			user.Email = change.NewEmail
			user.EmailConfirmedAt = &now
			user.UpdatedAt = &now
			if err := p.users.SaveTx(ctx, tx, user); err != nil {
				return err
			}
			change.CompletedAt = &now
			completed = true
		}

		return p.store.updateEmailChange(ctx, tx, change)
	})
	if err != nil {
		return nil, otpError(err, "failed to verify email change link")
	}

	if completed {
		p.record(ctx, auth.ActivityEvent{
			EventType: auth.ActivityEventEmailChanged,
			UserID:    user.ID.String(),
			Email:     user.Email,
			Method:    auth.AuthMethodOTP,
			Metadata:  map[string]any{"old_email": change.OldEmail},
		})
	}

	c.publish(ctx, session.EventUserUpdated, user)

	return c.currentSession(ctx)
}

// consume finds a usable token of one of types and marks it used.
func (p *Provider) consume(ctx context.Context, tx bun.IDB, secret string, now time.Time, types ...TokenType) (*OneTimeToken, error) {
	tok, err := p.store.tokenByHash(ctx, tx, hashToken(secret), types...)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrOTPExpired
		}
		return nil, err
	}

	if !tok.Usable(now) {
		return nil, ErrOTPExpired
	}

	ok, err := p.store.consumeToken(ctx, tx, tok.ID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrOTPExpired
	}

	return tok, nil
}

func otpError(err error, msg string) error {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr
	}
	return errors.Wrap(err, errors.CategoryInternal, msg)
}

// SignInWithOAuth starts a third party sign-in. The next parameter of
// RedirectTo travels inside the signed state and comes back as the
// session's RedirectTo.
func (c *Client) SignInWithOAuth(ctx context.Context, provider auth.OAuthProvider, opts auth.OAuthOptions) (*auth.OAuthResponse, error) {
	p := c.provider
	if p.flow == nil {
		return nil, ErrProviderDisabled
	}

	target, err := p.flow.Begin(string(provider), nextFrom(opts.RedirectTo), opts.Scopes...)
	if err != nil {
		return nil, err
	}

	return &auth.OAuthResponse{
		Provider: provider,
		URL:      target,
	}, nil
}

// ExchangeCodeForSession finishes a third party sign-in. Which local user it
// lands on is decided by resolveSocialUser.
func (c *Client) ExchangeCodeForSession(ctx context.Context, code, state string) (*auth.Session, error) {
	p := c.provider
	if p.flow == nil {
		return nil, ErrProviderDisabled
	}

	profile, st, err := p.flow.Complete(ctx, code, state)
	if err != nil {
		return nil, err
	}

	user, err := p.resolveSocialUser(ctx, profile)
	if err != nil {
		return nil, err
	}

	sess, err := c.establish(ctx, user, auth.AuthMethodOAuth, session.EventSignedIn)
	if err != nil {
		return nil, err
	}
	sess.RedirectTo = auth.SafeNext(st.Next)

	p.record(ctx, auth.ActivityEvent{
		EventType: auth.ActivityEventSocialLogin,
		UserID:    user.ID.String(),
		Email:     user.Email,
		Method:    auth.AuthMethodOAuth,
		Metadata:  map[string]any{"provider": profile.Provider},
	})

	return sess, nil
}

// resolveSocialUser finds the user behind profile. A stored link wins,
// then the linking policy decides between an email match and a new account.
// The link is recorded either way.
func (p *Provider) resolveSocialUser(ctx context.Context, profile *social.SocialProfile) (*User, error) {
	if profile.ProviderUserID != "" {
		account, err := p.accounts.FindByProviderID(ctx, profile.Provider, profile.ProviderUserID)
		switch {
		case err == nil:
			id, perr := uuid.Parse(account.UserID)
			if perr != nil {
				return nil, errors.Wrap(perr, errors.CategoryInternal, "invalid linked user id")
			}
			user, gerr := p.users.GetByUUIDTx(ctx, p.db, id)
			if gerr != nil {
				return nil, errors.Wrap(gerr, errors.CategoryInternal, "failed to find linked user")
			}
			return user, nil
		case !errors.Is(err, sql.ErrNoRows):
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to find linked account")
		}
	}

	decision, err := p.linking(ctx, profile)
	if err != nil {
		return nil, err
	}
	if err := decision.Check(profile); err != nil {
		return nil, err
	}

	user, err := p.users.GetByEmail(ctx, profile.Email)
	switch {
	case err == nil:
		if !decision.AllowEmailMatch {
			return nil, social.ErrLinkingNotAllowed
		}
	case !repository.IsRecordNotFound(err):
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to look up social user")
	case !decision.AllowSignup:
		return nil, social.ErrSignupNotAllowed
	default:
		if user, err = p.createSocialUser(ctx, profile); err != nil {
			return nil, err
		}
	}

	if profile.ProviderUserID != "" {
		if err := p.accounts.Upsert(ctx, social.AccountFromProfile(user.ID.String(), profile)); err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to link social account")
		}
	}

	return user, nil
}

// createSocialUser gives a verified address an account without a usable
// password.
func (p *Provider) createSocialUser(ctx context.Context, profile *social.SocialProfile) (*User, error) {
	hash, err := randomPasswordHash(p.passwordCost)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to hash password")
	}

	now := p.now().UTC()
	email := normalizeEmail(profile.Email)
	user := &User{
		ID:               p.newUserID(email),
		Email:            email,
		PasswordHash:     hash,
		EmailConfirmedAt: &now,
		CreatedAt:        &now,
		UpdatedAt:        &now,
	}
	user.AddMetadata("name", profile.Name)
	if profile.AvatarURL != "" {
		user.AddMetadata("avatar_url", profile.AvatarURL)
	}
	user.AddMetadata("provider", profile.Provider)

	created, err := p.users.Create(ctx, user)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryConflict, "could not create user")
	}
	return created, nil
}

// nextFrom pulls the next parameter out of a callback URL.
func nextFrom(redirectTo string) string {
	if redirectTo == "" {
		return auth.PathHome
	}
	u, err := url.Parse(redirectTo)
	if err != nil {
		return auth.PathHome
	}
	return auth.SafeNext(u.Query().Get("next"))
}
