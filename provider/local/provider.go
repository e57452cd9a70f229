package local

import (
	"context"
	"strings"
	"time"

	auth "github.com/amami1625/pondana-sub000"
	"github.com/amami1625/pondana-sub000/ratelimit"
	"github.com/amami1625/pondana-sub000/session"
	"github.com/amami1625/pondana-sub000/social"
	"github.com/uptrace/bun"
)

// DefaultStorageKey is the storage key the session token is kept under.
const DefaultStorageKey = "pondana-auth-token"

// RateLimiter counts attempts per identifier.
type RateLimiter interface {
	Hit(ctx context.Context, policy ratelimit.Policy, identifier string) error
	Reset(ctx context.Context, policy ratelimit.Policy, identifier string) error
}

// Provider is the process-wide half of the identity provider.
type Provider struct {
	db       *bun.DB
	users    Users
	store    store
	tokens   *TokenService
	mailer   Mailer
	limiter  RateLimiter
	signIn   ratelimit.Policy
	emails   ratelimit.Policy
	flow     *social.Flow
	accounts social.SocialAccountRepository
	linking  social.LinkingPolicy
	activity auth.ActivitySink
	logger   auth.Logger

	siteURL          string
	storageKey       string
	passwordCost     int
	recoveryTTL      time.Duration
	emailLinkTTL     time.Duration
	deterministicIDs bool
	now              func() time.Time
}

// Option configures a Provider.
type Option func(*Provider)

// New builds a Provider over db. tokens signs the issued sessions.
func New(db *bun.DB, tokens *TokenService, opts ...Option) *Provider {
	p := &Provider{
		db:           db,
		users:        NewUsersRepository(db),
		store:        store{db: db},
		tokens:       tokens,
		accounts:     NewSocialAccountRepository(db),
		linking:      social.PolicyAutoCreate(),
		activity:     auth.NormalizeActivitySink(nil),
		logger:       auth.DefaultLogger(),
		siteURL:      "http://localhost:3000",
		storageKey:   DefaultStorageKey,
		passwordCost: DefaultPasswordCost,
		recoveryTTL:  time.Hour,
		emailLinkTTL: 24 * time.Hour,
		now:          time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	if p.mailer == nil {
		p.mailer = NewLogMailer(p.logger)
	}

	return p
}

func WithLogger(logger auth.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithMailer(m Mailer) Option {
	return func(p *Provider) {
		p.mailer = m
	}
}

func WithActivitySink(sink auth.ActivitySink) Option {
	return func(p *Provider) {
		p.activity = auth.NormalizeActivitySink(sink)
	}
}

// WithRateLimiter limits sign-in attempts and link mails per address.
func WithRateLimiter(limiter RateLimiter, signIn, emailSend ratelimit.Policy) Option {
	return func(p *Provider) {
		p.limiter = limiter
		p.signIn = signIn
		p.emails = emailSend
	}
}

// WithSocialFlow enables SignInWithOAuth and ExchangeCodeForSession.
func WithSocialFlow(flow *social.Flow) Option {
	return func(p *Provider) {
		p.flow = flow
	}
}

// WithLinkingPolicy decides how unlinked social profiles are matched to
// users. Defaults to social.PolicyAutoCreate.
func WithLinkingPolicy(policy social.LinkingPolicy) Option {
	return func(p *Provider) {
		if policy != nil {
			p.linking = policy
		}
	}
}

// SocialAccounts returns the social link repository.
func (p *Provider) SocialAccounts() social.SocialAccountRepository {
	return p.accounts
}

// WithSiteURL is the fallback target for mailed links.
func WithSiteURL(origin string) Option {
	return func(p *Provider) {
		if origin != "" {
			p.siteURL = strings.TrimRight(origin, "/")
		}
	}
}

func WithStorageKey(key string) Option {
	return func(p *Provider) {
		if key != "" {
			p.storageKey = key
		}
	}
}

func WithPasswordCost(cost int) Option {
	return func(p *Provider) {
		if cost > 0 {
			p.passwordCost = cost
		}
	}
}

func WithRecoveryTTL(ttl time.Duration) Option {
	return func(p *Provider) {
		if ttl > 0 {
			p.recoveryTTL = ttl
		}
	}
}

func WithEmailLinkTTL(ttl time.Duration) Option {
	return func(p *Provider) {
		if ttl > 0 {
			p.emailLinkTTL = ttl
		}
	}
}

// WithDeterministicIDs derives new user ids from their email address.
func WithDeterministicIDs(enabled bool) Option {
	return func(p *Provider) {
		p.deterministicIDs = enabled
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		if now != nil {
			p.now = now
			if p.tokens != nil {
				p.tokens.now = now
			}
		}
	}
}

// Migrate applies the pending provider migrations.
func (p *Provider) Migrate(ctx context.Context) error {
	return Migrate(ctx, p.db)
}

// Users exposes the account repository.
func (p *Provider) Users() Users {
	return p.users
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBroadcaster announces auth-state changes made by the client.
func WithBroadcaster(b session.Broadcaster) ClientOption {
	return func(c *Client) {
		c.broadcaster = b
	}
}

// Client returns a request-scoped client that keeps its session in
// storage.
func (p *Provider) Client(storage session.Storage, opts ...ClientOption) *Client {
	c := &Client{
		provider: p,
		storage:  storage,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (p *Provider) record(ctx context.Context, event auth.ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = p.now().UTC()
	}
	if err := p.activity.Record(ctx, event); err != nil {
		p.logger.Warn("activity sink rejected %s: %v", event.EventType, err)
	}
}
