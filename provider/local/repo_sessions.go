package local

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// store holds the session, token and email change tables. They are only
// ever addressed by id, hash or owner, so plain bun queries cover them.
type store struct {
	db *bun.DB
}

func (s store) createSession(ctx context.Context, tx bun.IDB, sess *AuthSession) error {
	if sess.ID == uuid.Nil {
		sess.ID = uuid.New()
	}
	_, err := tx.NewInsert().Model(sess).Exec(ctx)
	return err
}

func (s store) session(ctx context.Context, id uuid.UUID) (*AuthSession, error) {
	record := &AuthSession{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, recordNotFound(map[string]any{"session_id": id.String()})
		}
		return nil, err
	}
	return record, nil
}

func (s store) revokeSession(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := s.db.NewUpdate().
		Model((*AuthSession)(nil)).
		Set("revoked_at = ?", at).
		Where("id = ?", id).
		Where("revoked_at IS NULL").
		Exec(ctx)
	return err
}

// revokeOtherSessions ends every live session of userID except keep.
func (s store) revokeOtherSessions(ctx context.Context, tx bun.IDB, userID, keep uuid.UUID, at time.Time) (int64, error) {
	res, err := tx.NewUpdate().
		Model((*AuthSession)(nil)).
		Set("revoked_at = ?", at).
		Where("user_id = ?", userID).
		Where("id != ?", keep).
		Where("revoked_at IS NULL").
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s store) createToken(ctx context.Context, tx bun.IDB, tok *OneTimeToken) error {
	if tok.ID == uuid.Nil {
		tok.ID = uuid.New()
	}
	_, err := tx.NewInsert().Model(tok).Exec(ctx)
	return err
}

// invalidateTokens consumes every pending token of the given types so only
// the newest link works.
func (s store) invalidateTokens(ctx context.Context, tx bun.IDB, userID uuid.UUID, at time.Time, types ...TokenType) error {
	_, err := tx.NewUpdate().
		Model((*OneTimeToken)(nil)).
		Set("consumed_at = ?", at).
		Where("user_id = ?", userID).
		Where("token_type IN (?)", bun.In(types)).
		Where("consumed_at IS NULL").
		Exec(ctx)
	return err
}

func (s store) tokenByHash(ctx context.Context, tx bun.IDB, hash string, types ...TokenType) (*OneTimeToken, error) {
	record := &OneTimeToken{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.token_hash = ?", hash).
		Where("?TableAlias.token_type IN (?)", bun.In(types)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, recordNotFound(nil)
		}
		return nil, err
	}
	return record, nil
}

// consumeToken marks the token used. It reports false when another request
// consumed it first.
func (s store) consumeToken(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) (bool, error) {
	res, err := tx.NewUpdate().
		Model((*OneTimeToken)(nil)).
		Set("consumed_at = ?", at).
		Where("id = ?", id).
		Where("consumed_at IS NULL").
		Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s store) createEmailChange(ctx context.Context, tx bun.IDB, change *EmailChange) error {
	if change.ID == uuid.Nil {
		change.ID = uuid.New()
	}
	// a newer request replaces any pending one
	_, err := tx.NewDelete().
		Model((*EmailChange)(nil)).
		Where("user_id = ?", change.UserID).
		Where("completed_at IS NULL").
		Exec(ctx)
	if err != nil {
		return err
	}
	_, err = tx.NewInsert().Model(change).Exec(ctx)
	return err
}

func (s store) pendingEmailChange(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*EmailChange, error) {
	record := &EmailChange{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.completed_at IS NULL").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, recordNotFound(map[string]any{"user_id": userID.String()})
		}
		return nil, err
	}
	return record, nil
}

func (s store) updateEmailChange(ctx context.Context, tx bun.IDB, change *EmailChange) error {
	_, err := tx.NewUpdate().Model(change).WherePK().Exec(ctx)
	return err
}

// hashToken is what gets stored for a mailed secret.
func hashToken(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
