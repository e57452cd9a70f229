package local

import (
	"time"

	auth "github.com/amami1625/pondana-sub000"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the stored account.
type User struct {
	bun.BaseModel    `bun:"table:users,alias:usr"`
	ID               uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email            string         `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash     string         `bun:"password_hash" json:"-"`
	Metadata         map[string]any `bun:"metadata" json:"metadata,omitempty"`
	EmailConfirmedAt *time.Time     `bun:"email_confirmed_at,nullzero" json:"email_confirmed_at,omitempty"`
	LoggedInAt       *time.Time     `bun:"loggedin_at,nullzero" json:"loggedin_at,omitempty"`
	CreatedAt        *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt        *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// AddMetadata sets a single metadata key.
func (u *User) AddMetadata(key string, val any) *User {
	if u.Metadata == nil {
		u.Metadata = make(map[string]any)
	}
	u.Metadata[key] = val
	return u
}

func (u *User) toAuth() *auth.User {
	if u == nil {
		return nil
	}
	out := &auth.User{
		ID:               u.ID.String(),
		Email:            u.Email,
		Metadata:         u.Metadata,
		EmailConfirmedAt: u.EmailConfirmedAt,
	}
	if u.CreatedAt != nil {
		out.CreatedAt = *u.CreatedAt
	}
	return out
}

// AuthSession is an issued session. The signed token only references it by
// ID, so revoking the row ends the session even if the token has not
// expired.
type AuthSession struct {
	bun.BaseModel `bun:"table:auth_sessions,alias:ses"`
	ID            uuid.UUID       `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID       `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	AMR           []auth.AMREntry `bun:"amr" json:"amr,omitempty"`
	CreatedAt     *time.Time      `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	ExpiresAt     time.Time       `bun:"expires_at,notnull" json:"expires_at"`
	RevokedAt     *time.Time      `bun:"revoked_at,nullzero" json:"revoked_at,omitempty"`
}

// Active reports whether the session can still be used at now.
func (s *AuthSession) Active(now time.Time) bool {
	return s != nil && s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// TokenType names what a one-time token unlocks.
type TokenType = string

const (
	TokenRecovery           TokenType = "recovery"
	TokenEmailChangeCurrent TokenType = "email_change_current"
	TokenEmailChangeNew     TokenType = "email_change_new"
)

// OneTimeToken is a mailed link. Only the sha256 of the secret is stored.
type OneTimeToken struct {
	bun.BaseModel `bun:"table:one_time_tokens,alias:ott"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	TokenType     TokenType  `bun:"token_type,notnull" json:"token_type,omitempty"`
	TokenHash     string     `bun:"token_hash,notnull,unique" json:"-"`
	RelatesTo     string     `bun:"relates_to,notnull" json:"relates_to,omitempty"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at"`
	ConsumedAt    *time.Time `bun:"consumed_at,nullzero" json:"consumed_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Usable reports whether the token may still be consumed at now.
func (t *OneTimeToken) Usable(now time.Time) bool {
	return t != nil && t.ConsumedAt == nil && now.Before(t.ExpiresAt)
}

// EmailChange tracks a pending address change. It is applied once both
// the current and the new address confirmed it.
type EmailChange struct {
	bun.BaseModel      `bun:"table:email_changes,alias:emc"`
	ID                 uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID             uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	OldEmail           string     `bun:"old_email,notnull" json:"old_email,omitempty"`
	NewEmail           string     `bun:"new_email,notnull" json:"new_email,omitempty"`
	CurrentConfirmedAt *time.Time `bun:"current_confirmed_at,nullzero" json:"current_confirmed_at,omitempty"`
	NewConfirmedAt     *time.Time `bun:"new_confirmed_at,nullzero" json:"new_confirmed_at,omitempty"`
	CompletedAt        *time.Time `bun:"completed_at,nullzero" json:"completed_at,omitempty"`
	CreatedAt          *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Confirmed reports whether both sides accepted the change.
func (e *EmailChange) Confirmed() bool {
	return e != nil && e.CurrentConfirmedAt != nil && e.NewConfirmedAt != nil
}
