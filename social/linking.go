package social

import (
	"context"
)

// Linking modes.
const (
	LinkModeAutoCreate    = "auto_create"
	LinkModeEmailMatch    = "email_match"
	LinkModeRejectUnknown = "reject_unknown"
)

// LinkDecision controls how one sign-in resolves its local user.
type LinkDecision struct {
	Mode string
	// AllowSignup creates a user when nothing matches.
	AllowSignup bool
	// AllowEmailMatch links the profile to an existing user with the same
	// address.
	AllowEmailMatch      bool
	RequireEmailVerified bool
}

// LinkingPolicy decides how a profile without an existing link is handled.
type LinkingPolicy func(ctx context.Context, profile *SocialProfile) (LinkDecision, error)

// Check rejects profiles the decision does not accept at all.
func (d LinkDecision) Check(profile *SocialProfile) error {
	if profile == nil || profile.Email == "" {
		return ErrUserInfoFailed
	}
	if d.RequireEmailVerified && !profile.EmailVerified {
		return ErrEmailNotVerified
	}
	return nil
}

// PolicyAutoCreate links by verified email and creates missing users.
func PolicyAutoCreate() LinkingPolicy {
	return func(context.Context, *SocialProfile) (LinkDecision, error) {
		return LinkDecision{
			Mode:                 LinkModeAutoCreate,
			AllowSignup:          true,
			AllowEmailMatch:      true,
			RequireEmailVerified: true,
		}, nil
	}
}

// PolicyEmailMatch only links to users that already exist.
func PolicyEmailMatch() LinkingPolicy {
	return func(context.Context, *SocialProfile) (LinkDecision, error) {
		return LinkDecision{
			Mode:                 LinkModeEmailMatch,
			AllowEmailMatch:      true,
			RequireEmailVerified: true,
		}, nil
	}
}

// PolicyRejectUnknown only admits provider identities linked before.
func PolicyRejectUnknown() LinkingPolicy {
	return func(context.Context, *SocialProfile) (LinkDecision, error) {
		return LinkDecision{
			Mode:                 LinkModeRejectUnknown,
			RequireEmailVerified: true,
		}, nil
	}
}
