package local

import (
	"time"

	"github.com/MicahParks/keyfunc/v2"
	auth "github.com/amami1625/pondana-sub000"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

const (
	// AAL1 is the only assurance level this provider issues.
	AAL1 = "aal1"
)

var (
	ErrTokenExpired = errors.New("session token expired", errors.CategoryAuth).
			WithTextCode("TOKEN_EXPIRED").
			WithCode(errors.CodeUnauthorized)

	ErrTokenMalformed = errors.New("session token malformed", errors.CategoryAuth).
				WithTextCode("TOKEN_MALFORMED").
				WithCode(errors.CodeUnauthorized)
)

// SessionClaims are the claims carried by a session token.
type SessionClaims struct {
	jwt.RegisteredClaims
	SessionID string          `json:"sid"`
	Email     string          `json:"email,omitempty"`
	AMR       []auth.AMREntry `json:"amr,omitempty"`
	AAL       string          `json:"aal,omitempty"`
}

// TokenConfig configures a TokenService. Keys maps key ids to HMAC
// secrets. Every key verifies, only SigningKeyID signs, which lets a
// retired key keep validating the tokens it issued until they expire.
type TokenConfig struct {
	SigningKeyID string
	Keys         map[string][]byte
	Issuer       string
	TTL          time.Duration
}

// TokenService signs and verifies session tokens.
type TokenService struct {
	kid     string
	key     []byte
	issuer  string
	ttl     time.Duration
	keyfunc jwt.Keyfunc
	now     func() time.Time
}

// NewTokenService validates cfg and builds the verification key set.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	key, ok := cfg.Keys[cfg.SigningKeyID]
	if !ok || len(key) == 0 {
		return nil, errors.New("signing key id has no key", errors.CategoryValidation).
			WithTextCode("CONFIG_INVALID").
			WithMetadata(map[string]any{"kid": cfg.SigningKeyID})
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	given := make(map[string]keyfunc.GivenKey, len(cfg.Keys))
	for kid, secret := range cfg.Keys {
		given[kid] = keyfunc.NewGivenCustom(secret, keyfunc.GivenKeyOptions{
			Algorithm: jwt.SigningMethodHS256.Alg(),
		})
	}

	return &TokenService{
		kid:     cfg.SigningKeyID,
		key:     key,
		issuer:  cfg.Issuer,
		ttl:     ttl,
		keyfunc: keyfunc.NewGiven(given).Keyfunc,
		now:     time.Now,
	}, nil
}

// TTL is how long issued sessions live.
func (ts *TokenService) TTL() time.Duration {
	return ts.ttl
}

// Sign issues a token for sess.
func (ts *TokenService) Sign(sess *AuthSession, user *User) (string, error) {
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   user.ID.String(),
			ID:        sess.ID.String(),
			IssuedAt:  jwt.NewNumericDate(ts.now()),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
		SessionID: sess.ID.String(),
		Email:     user.Email,
		AMR:       sess.AMR,
		AAL:       AAL1,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = ts.kid

	signed, err := token.SignedString(ts.key)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign session token")
	}
	return signed, nil
}

// Parse verifies a token and returns its claims.
func (ts *TokenService) Parse(raw string) (*SessionClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithTimeFunc(ts.now),
		jwt.WithExpirationRequired(),
	}
	if ts.issuer != "" {
		opts = append(opts, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(raw, &SessionClaims{}, ts.keyfunc, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}
