package local

import (
	"context"
	"time"

	auth "github.com/amami1625/pondana-sub000"
	"github.com/amami1625/pondana-sub000/session"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// UpdateUser changes the signed-in account. A new password applies at once
// and ends every other session of the account. A new email address only
// starts a change: both addresses get a confirmation link and the address
// switches once both were followed.
func (c *Client) UpdateUser(ctx context.Context, attrs auth.UserAttributes, opts auth.UpdateUserOptions) (*auth.User, error) {
	p := c.provider

	record, user, err := c.current(ctx)
	if err != nil {
		return nil, err
	}

	newEmail := normalizeEmail(attrs.Email)
	if newEmail == user.Email {
		newEmail = ""
	}

	if newEmail != "" {
		if err := validateEmail(newEmail); err != nil {
			return nil, err
		}
		if other, err := p.users.GetByEmail(ctx, newEmail); err == nil && other.ID != user.ID {
			return nil, ErrEmailExists
		} else if err != nil && !repository.IsRecordNotFound(err) {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to check email availability")
		}
	}

	passwordChanged := false
	if attrs.Password != "" {
		if err := validatePassword(attrs.Password); err != nil {
			return nil, err
		}
		if passwordMatches(attrs.Password, user.PasswordHash) {
			return nil, ErrSamePassword
		}
		hash, err := hashPassword(attrs.Password, p.passwordCost)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to hash password")
		}
		user.PasswordHash = hash
		passwordChanged = true
	}

	dataChanged := len(attrs.Data) > 0
	for k, v := range attrs.Data {
		user.AddMetadata(k, v)
	}

	now := p.now().UTC()

	if passwordChanged || dataChanged {
		user.UpdatedAt = &now
		err = p.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if err := p.users.SaveTx(ctx, tx, user); err != nil {
				return err
			}
			if !passwordChanged {
				return nil
			}
			revoked, err := p.store.revokeOtherSessions(ctx, tx, user.ID, record.ID, now)
			if err != nil {
				return err
			}
			p.logger.Debug("password change for %s revoked %d sessions", user.ID, revoked)
			return p.store.invalidateTokens(ctx, tx, user.ID, now, TokenRecovery)
		})
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to update user")
		}
	}

	if passwordChanged {
		p.record(ctx, auth.ActivityEvent{
			EventType: auth.ActivityEventPasswordChanged,
			UserID:    user.ID.String(),
			Email:     user.Email,
		})
	}

	out := user.toAuth()

	if newEmail != "" {
		if err := c.requestEmailChange(ctx, user, newEmail, opts.EmailRedirectTo, now); err != nil {
			return nil, err
		}
		out.NewEmail = newEmail
	}

	c.publish(ctx, session.EventUserUpdated, user)

	return out, nil
}

func (c *Client) requestEmailChange(ctx context.Context, user *User, newEmail, redirectTo string, now time.Time) error {
	p := c.provider

	if err := p.hit(ctx, p.emails, user.Email, ErrOverEmailSendRateLimit); err != nil {
		return err
	}

	currentSecret, err := newSecret()
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to generate confirmation token")
	}
	newSideSecret, err := newSecret()
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to generate confirmation token")
	}

	expiresAt := now.Add(p.emailLinkTTL)
	err = p.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		change := &EmailChange{
			UserID:    user.ID,
			OldEmail:  user.Email,
			NewEmail:  newEmail,
			CreatedAt: &now,
		}
		if err := p.store.createEmailChange(ctx, tx, change); err != nil {
			return err
		}
		if err := p.store.invalidateTokens(ctx, tx, user.ID, now, TokenEmailChangeCurrent, TokenEmailChangeNew); err != nil {
			return err
		}
		if err := p.store.createToken(ctx, tx, &OneTimeToken{
			UserID:    user.ID,
			TokenType: TokenEmailChangeCurrent,
			TokenHash: hashToken(currentSecret),
			RelatesTo: user.Email,
			ExpiresAt: expiresAt,
			CreatedAt: &now,
		}); err != nil {
			return err
		}
		return p.store.createToken(ctx, tx, &OneTimeToken{
			UserID:    user.ID,
			TokenType: TokenEmailChangeNew,
			TokenHash: hashToken(newSideSecret),
			RelatesTo: newEmail,
			ExpiresAt: expiresAt,
			CreatedAt: &now,
		})
	})
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to record email change")
	}

	target := p.linkTarget(redirectTo)
	if err := p.sendLink(ctx, MessageEmailChangeCurrent, user.Email, target, currentSecret, auth.OTPTypeEmailChange); err != nil {
		return err
	}
	if err := p.sendLink(ctx, MessageEmailChangeNew, newEmail, target, newSideSecret, auth.OTPTypeEmailChange); err != nil {
		return err
	}

	p.record(ctx, auth.ActivityEvent{
		EventType: auth.ActivityEventEmailChangeRequested,
		UserID:    user.ID.String(),
		Email:     user.Email,
		Metadata:  map[string]any{"new_email": newEmail},
	})

	return nil
}

// ResetPasswordForEmail mails a recovery link. Addresses without an account
// succeed without sending anything, so callers cannot enumerate accounts.
func (c *Client) ResetPasswordForEmail(ctx context.Context, email string, opts auth.ResetPasswordOptions) error {
	p := c.provider
	email = normalizeEmail(email)

	if err := validateEmail(email); err != nil {
		return err
	}

	if err := p.hit(ctx, p.emails, email, ErrOverEmailSendRateLimit); err != nil {
		return err
	}

	user, err := p.users.GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			p.logger.Debug("password reset requested for unknown address")
			return nil
		}
		return errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user for password reset")
	}

	secret, err := newSecret()
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to generate recovery token")
	}

	now := p.now().UTC()
	err = p.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := p.store.invalidateTokens(ctx, tx, user.ID, now, TokenRecovery); err != nil {
			return err
		}
		return p.store.createToken(ctx, tx, &OneTimeToken{
			UserID:    user.ID,
			TokenType: TokenRecovery,
			TokenHash: hashToken(secret),
			RelatesTo: user.Email,
			ExpiresAt: now.Add(p.recoveryTTL),
			CreatedAt: &now,
		})
	})
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to create password reset record")
	}

	if err := p.sendLink(ctx, MessageRecovery, user.Email, p.linkTarget(opts.RedirectTo), secret, auth.OTPTypeRecovery); err != nil {
		return err
	}

	p.record(ctx, auth.ActivityEvent{
		EventType: auth.ActivityEventPasswordResetRequest,
		UserID:    user.ID.String(),
		Email:     user.Email,
	})

	return nil
}

func (p *Provider) linkTarget(redirectTo string) string {
	if redirectTo == "" {
		return p.siteURL + auth.PathCallback
	}
	return redirectTo
}

func (p *Provider) sendLink(ctx context.Context, kind MessageKind, to, target, secret string, otpType auth.OTPType) error {
	link, err := buildLink(target, secret, otpType)
	if err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "invalid redirect target").
			WithMetadata(map[string]any{"redirect_to": target})
	}

	if err := p.mailer.Send(ctx, Message{Kind: kind, To: to, Link: link}); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to send email").
			WithMetadata(map[string]any{"kind": string(kind)})
	}
	return nil
}
