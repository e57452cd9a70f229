package local

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	auth "github.com/amami1625/pondana-sub000"
	"github.com/amami1625/pondana-sub000/ratelimit"
	"github.com/amami1625/pondana-sub000/session"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// Client is the request-scoped identity provider handle.
type Client struct {
	provider    *Provider
	storage     session.Storage
	broadcaster session.Broadcaster
}

var (
	_ auth.IdentityProvider = (*Client)(nil)
	_ auth.CallbackProvider = (*Client)(nil)
)

func (c *Client) SignInWithPassword(ctx context.Context, creds auth.Credentials) (*auth.Session, error) {
	p := c.provider
	email := normalizeEmail(creds.Email)

	if err := p.hit(ctx, p.signIn, email, ErrOverRequestRateLimit); err != nil {
		return nil, err
	}

	user, err := p.users.GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			p.recordLoginFailure(ctx, email, "unknown_user")
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load user for sign in")
	}

	if !passwordMatches(creds.Password, user.PasswordHash) {
		p.recordLoginFailure(ctx, email, "password_mismatch")
		return nil, ErrInvalidCredentials
	}

	p.resetLimit(ctx, p.signIn, email)

	sess, err := c.establish(ctx, user, auth.AuthMethodPassword, session.EventSignedIn)
	if err != nil {
		return nil, err
	}

	p.record(ctx, auth.ActivityEvent{
		EventType: auth.ActivityEventLoginSuccess,
		UserID:    user.ID.String(),
		Email:     user.Email,
		Method:    auth.AuthMethodPassword,
	})

	return sess, nil
}

// SignUp creates an account and signs it in. Accounts are confirmed on
// creation.
func (c *Client) SignUp(ctx context.Context, creds auth.Credentials, opts auth.SignUpOptions) (*auth.User, error) {
	p := c.provider
	email := normalizeEmail(creds.Email)

	if err := validateEmail(email); err != nil {
		return nil, err
	}

	if err := validatePassword(creds.Password); err != nil {
		return nil, err
	}

	if _, err := p.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrUserAlreadyExists
	} else if !repository.IsRecordNotFound(err) {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to check existing user")
	}

	hash, err := hashPassword(creds.Password, p.passwordCost)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to hash password")
	}

	now := p.now().UTC()
	user := &User{
		ID:               p.newUserID(email),
		Email:            email,
		PasswordHash:     hash,
		Metadata:         copyMetadata(opts.Data),
		EmailConfirmedAt: &now,
		CreatedAt:        &now,
		UpdatedAt:        &now,
	}

	created, err := p.users.Create(ctx, user)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUserAlreadyExists
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "could not create user")
	}

	p.record(ctx, auth.ActivityEvent{
		EventType: auth.ActivityEventSignUp,
		UserID:    created.ID.String(),
		Email:     created.Email,
		Method:    auth.AuthMethodPassword,
	})

	if _, err := c.establish(ctx, created, auth.AuthMethodPassword, session.EventSignedIn); err != nil {
		return nil, err
	}

	return created.toAuth(), nil
}

func (c *Client) SignOut(ctx context.Context) error {
	p := c.provider

	record, user, err := c.current(ctx)
	if err != nil {
		return err
	}

	if err := p.store.revokeSession(ctx, record.ID, p.now().UTC()); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to revoke session")
	}

	c.forget(ctx)
	c.publish(ctx, session.EventSignedOut, user)

	p.record(ctx, auth.ActivityEvent{
		EventType: auth.ActivityEventLogout,
		UserID:    user.ID.String(),
		Email:     user.Email,
	})

	return nil
}

// GetUser resolves the stored session. A pending email change shows up as
// NewEmail.
func (c *Client) GetUser(ctx context.Context) (*auth.User, error) {
	p := c.provider

	_, user, err := c.current(ctx)
	if err != nil {
		return nil, err
	}

	out := user.toAuth()
	if change, err := p.store.pendingEmailChange(ctx, p.db, user.ID); err == nil {
		out.NewEmail = change.NewEmail
	} else if !repository.IsRecordNotFound(err) {
		p.logger.Warn("failed to load pending email change for %s: %v", user.ID, err)
	}

	return out, nil
}

func (c *Client) GetAuthenticatorAssuranceLevel(ctx context.Context) (*auth.AssuranceLevel, error) {
	record, _, err := c.current(ctx)
	if err != nil {
		return nil, err
	}

	return &auth.AssuranceLevel{
		CurrentLevel:                 AAL1,
		NextLevel:                    AAL1,
		CurrentAuthenticationMethods: record.AMR,
	}, nil
}

// establish issues a session for user, stores its token and announces it.
func (c *Client) establish(ctx context.Context, user *User, method auth.AuthMethod, event session.EventType) (*auth.Session, error) {
	p := c.provider
	now := p.now().UTC()

	record := &AuthSession{
		UserID:    user.ID,
		AMR:       []auth.AMREntry{{Method: method, Timestamp: now.Unix()}},
		CreatedAt: &now,
		ExpiresAt: now.Add(p.tokens.TTL()),
	}

	if err := p.store.createSession(ctx, p.db, record); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create session")
	}

	token, err := p.tokens.Sign(record, user)
	if err != nil {
		return nil, err
	}

	if err := c.storage.SetItem(ctx, p.storageKey, token); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to store session")
	}

	p.touchLogin(ctx, user, now)
	c.publish(ctx, event, user)

	return &auth.Session{
		AccessToken: token,
		ExpiresAt:   record.ExpiresAt,
		User:        *user.toAuth(),
		AMR:         record.AMR,
	}, nil
}

// current loads the live session behind the stored token. Stale tokens are
// dropped from storage.
func (c *Client) current(ctx context.Context) (*AuthSession, *User, error) {
	p := c.provider

	raw, err := c.storage.GetItem(ctx, p.storageKey)
	if err != nil {
		if errors.Is(err, session.ErrItemNotFound) {
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, errors.Wrap(err, errors.CategoryInternal, "failed to read stored session")
	}

	claims, err := p.tokens.Parse(raw)
	if err != nil {
		p.logger.Debug("discarding stored session token: %v", err)
		c.forget(ctx)
		return nil, nil, ErrSessionNotFound
	}

	sid, err := uuid.Parse(claims.SessionID)
	if err != nil {
		c.forget(ctx)
		return nil, nil, ErrSessionNotFound
	}

	record, err := p.store.session(ctx, sid)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			c.forget(ctx)
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, errors.Wrap(err, errors.CategoryInternal, "failed to load session")
	}

	if !record.Active(p.now().UTC()) {
		c.forget(ctx)
		return nil, nil, ErrSessionNotFound
	}

	user, err := p.users.GetByUUIDTx(ctx, p.db, record.UserID)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			c.forget(ctx)
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, errors.Wrap(err, errors.CategoryInternal, "failed to load session user")
	}

	return record, user, nil
}

// currentSession is the stored session, or nil when there is none.
func (c *Client) currentSession(ctx context.Context) (*auth.Session, error) {
	record, user, err := c.current(ctx)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, nil
		}
		return nil, err
	}

	token, err := c.storage.GetItem(ctx, c.provider.storageKey)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to read stored session")
	}

	return &auth.Session{
		AccessToken: token,
		ExpiresAt:   record.ExpiresAt,
		User:        *user.toAuth(),
		AMR:         record.AMR,
	}, nil
}

func (c *Client) forget(ctx context.Context) {
	if err := c.storage.RemoveItem(ctx, c.provider.storageKey); err != nil {
		c.provider.logger.Warn("failed to clear stored session: %v", err)
	}
}

func (c *Client) publish(ctx context.Context, eventType session.EventType, user *User) {
	if c.broadcaster == nil || user == nil {
		return
	}
	event := session.NewEvent(eventType, user.ID.String(), user.Email)
	if err := c.broadcaster.Publish(ctx, event); err != nil {
		c.provider.logger.Warn("failed to publish %s: %v", eventType, err)
	}
}

// hit counts one attempt. An unreachable limiter lets the request through.
func (p *Provider) hit(ctx context.Context, policy ratelimit.Policy, identifier string, limited *errors.Error) error {
	if p.limiter == nil || policy.Limit <= 0 {
		return nil
	}
	if err := p.limiter.Hit(ctx, policy, identifier); err != nil {
		if errors.Is(err, ratelimit.ErrRateLimited) {
			return limited
		}
		p.logger.Warn("rate limiter unavailable for %s: %v", policy.Name, err)
	}
	return nil
}

func (p *Provider) resetLimit(ctx context.Context, policy ratelimit.Policy, identifier string) {
	if p.limiter == nil || policy.Limit <= 0 {
		return
	}
	if err := p.limiter.Reset(ctx, policy, identifier); err != nil {
		p.logger.Warn("failed to reset %s counter: %v", policy.Name, err)
	}
}

func (p *Provider) touchLogin(ctx context.Context, user *User, at time.Time) {
	user.LoggedInAt = &at
	_, err := p.db.NewUpdate().
		Model((*User)(nil)).
		Set("loggedin_at = ?", at).
		Where("id = ?", user.ID).
		Exec(ctx)
	if err != nil {
		p.logger.Warn("failed to track login for %s: %v", user.ID, err)
	}
}

func (p *Provider) recordLoginFailure(ctx context.Context, email, reason string) {
	p.record(ctx, auth.ActivityEvent{
		EventType: auth.ActivityEventLoginFailure,
		Email:     email,
		Method:    auth.AuthMethodPassword,
		Metadata:  map[string]any{"reason": reason},
	})
}

func (p *Provider) newUserID(email string) uuid.UUID {
	if p.deterministicIDs {
		if id, err := hashid.NewUUID(email); err == nil {
			return id
		}
	}
	return uuid.New()
}

func validateEmail(email string) error {
	if err := validation.Validate(email, validation.Required, is.Email); err != nil {
		return ErrEmailAddressInvalid
	}
	return nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

func copyMetadata(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique")
}
