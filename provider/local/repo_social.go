package local

import (
	"context"
	"database/sql"
	"time"

	"github.com/amami1625/pondana-sub000/social"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SocialAccountModel links a provider identity to a user.
type SocialAccountModel struct {
	bun.BaseModel `bun:"table:social_accounts,alias:soc"`

	ID             uuid.UUID `bun:"id,pk,nullzero,type:uuid"`
	UserID         uuid.UUID `bun:"user_id,notnull,type:uuid"`
	Provider       string    `bun:"provider,notnull"`
	ProviderUserID string    `bun:"provider_user_id,notnull"`
	Email          string    `bun:"email"`
	Name           string    `bun:"name"`
	AvatarURL      string    `bun:"avatar_url"`
	CreatedAt      time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt      time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

type socialAccounts struct {
	db  bun.IDB
	now func() time.Time
}

var _ social.SocialAccountRepository = (*socialAccounts)(nil)

// NewSocialAccountRepository stores links in the social_accounts table.
func NewSocialAccountRepository(db bun.IDB) social.SocialAccountRepository {
	return &socialAccounts{db: db, now: time.Now}
}

// FindByProviderID returns sql.ErrNoRows when the identity was never linked.
func (r *socialAccounts) FindByProviderID(ctx context.Context, provider, providerUserID string) (*social.SocialAccount, error) {
	var model SocialAccountModel
	err := r.db.NewSelect().
		Model(&model).
		Where("provider = ? AND provider_user_id = ?", provider, providerUserID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return model.toSocialAccount(), nil
}

func (r *socialAccounts) FindByUserID(ctx context.Context, userID string) ([]*social.SocialAccount, error) {
	var models []SocialAccountModel
	err := r.db.NewSelect().
		Model(&models).
		Where("user_id = ?", userID).
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}

	accounts := make([]*social.SocialAccount, 0, len(models))
	for i := range models {
		accounts = append(accounts, models[i].toSocialAccount())
	}
	return accounts, nil
}

// Upsert keeps one row per provider identity, moving it to account.UserID.
func (r *socialAccounts) Upsert(ctx context.Context, account *social.SocialAccount) error {
	model := socialAccountModel(account)
	now := r.now().UTC()
	if model.CreatedAt.IsZero() {
		model.CreatedAt = now
	}
	model.UpdatedAt = now

	_, err := r.db.NewInsert().
		Model(model).
		On("CONFLICT (provider, provider_user_id) DO UPDATE").
		Set("user_id = EXCLUDED.user_id").
		Set("email = EXCLUDED.email").
		Set("name = EXCLUDED.name").
		Set("avatar_url = EXCLUDED.avatar_url").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (r *socialAccounts) DeleteByUserAndProvider(ctx context.Context, userID, provider string) error {
	_, err := r.db.NewDelete().
		Model((*SocialAccountModel)(nil)).
		Where("user_id = ? AND provider = ?", userID, provider).
		Exec(ctx)
	return err
}

func (m *SocialAccountModel) toSocialAccount() *social.SocialAccount {
	return &social.SocialAccount{
		ID:             m.ID.String(),
		UserID:         m.UserID.String(),
		Provider:       m.Provider,
		ProviderUserID: m.ProviderUserID,
		Email:          m.Email,
		Name:           m.Name,
		AvatarURL:      m.AvatarURL,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func socialAccountModel(a *social.SocialAccount) *SocialAccountModel {
	id, err := uuid.Parse(a.ID)
	if err != nil || id == uuid.Nil {
		id = uuid.New()
	}
	userID, _ := uuid.Parse(a.UserID)

	return &SocialAccountModel{
		ID:             id,
		UserID:         userID,
		Provider:       a.Provider,
		ProviderUserID: a.ProviderUserID,
		Email:          a.Email,
		Name:           a.Name,
		AvatarURL:      a.AvatarURL,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}
