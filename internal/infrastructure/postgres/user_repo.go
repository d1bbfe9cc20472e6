package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ErlanBelekov/hdnotes/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, email, display_name, avatar_url, is_verified, auth_provider,
	external_id, otp_code_hash, otp_expires_at, last_login_at, created_at, updated_at`

// linkOAuthQuery upserts by email. Existing accounts keep their name; a
// pending challenge is dropped because the account is verified from here on.
const linkOAuthQuery = `
	INSERT INTO users (email, display_name, avatar_url, is_verified, auth_provider, external_id, last_login_at)
	VALUES ($1, $2, $3, TRUE, $4, $5, $6)
	ON CONFLICT (email) DO UPDATE
	SET    external_id    = EXCLUDED.external_id,
	       auth_provider  = EXCLUDED.auth_provider,
	       is_verified    = TRUE,
	       avatar_url     = CASE WHEN EXCLUDED.avatar_url <> ''
	                             THEN EXCLUDED.avatar_url ELSE users.avatar_url END,
	       otp_code_hash  = NULL,
	       otp_expires_at = NULL,
	       last_login_at  = EXCLUDED.last_login_at,
	       updated_at     = NOW()
	RETURNING ` + userColumns

type UserRepository struct {
	db dbSource
}

func NewUserRepository(db *Connector) *UserRepository {
	return &UserRepository{db: db.DB}
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) FindVerifiedByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1 AND is_verified`, email)
}

func (r *UserRepository) findOne(ctx context.Context, query string, args ...any) (*domain.User, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	return scanUser(db.QueryRow(ctx, query, args...))
}

func (r *UserRepository) UpsertPending(ctx context.Context, p domain.PendingUser) (*domain.User, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}

	// The conditional DO UPDATE returns no row when a verified user owns the email.
	query := `
		INSERT INTO users (email, display_name, auth_provider, external_id, otp_code_hash, otp_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (email) DO UPDATE
		SET    display_name   = EXCLUDED.display_name,
		       auth_provider  = CASE WHEN EXCLUDED.external_id IS NOT NULL
		                             THEN EXCLUDED.auth_provider ELSE users.auth_provider END,
		       external_id    = COALESCE(EXCLUDED.external_id, users.external_id),
		       otp_code_hash  = EXCLUDED.otp_code_hash,
		       otp_expires_at = EXCLUDED.otp_expires_at,
		       updated_at     = NOW()
		WHERE  NOT users.is_verified
		RETURNING ` + userColumns

	row := db.QueryRow(ctx, query,
		p.Email, p.DisplayName, p.Provider(), p.ExternalID, p.CodeHash, p.ExpiresAt,
	)
	u, err := scanUser(row)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrConflict
	}
	return u, err
}

func (r *UserRepository) SetChallenge(ctx context.Context, userID, codeHash string, expiresAt time.Time) error {
	db, err := r.db(ctx)
	if err != nil {
		return err
	}
	tag, err := db.Exec(ctx, `
		UPDATE users
		SET    otp_code_hash = $2, otp_expires_at = $3, updated_at = NOW()
		WHERE  id = $1`, userID, codeHash, expiresAt)
	if err != nil {
		return fmt.Errorf("set challenge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) ClearChallenge(ctx context.Context, userID, codeHash string) error {
	db, err := r.db(ctx)
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, `
		UPDATE users
		SET    otp_code_hash = NULL, otp_expires_at = NULL, updated_at = NOW()
		WHERE  id = $1 AND otp_code_hash = $2`, userID, codeHash)
	if err != nil {
		return fmt.Errorf("clear challenge: %w", err)
	}
	return nil
}

func (r *UserRepository) ConsumeChallenge(ctx context.Context, email, codeHash string, now time.Time) (*domain.User, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}

	// Match and clear in one statement so two requests with the same code
	// cannot both succeed.
	row := db.QueryRow(ctx, `
		UPDATE users
		SET    is_verified    = TRUE,
		       otp_code_hash  = NULL,
		       otp_expires_at = NULL,
		       last_login_at  = $3,
		       updated_at     = NOW()
		WHERE  email = $1
		  AND  otp_code_hash = $2
		  AND  otp_expires_at > $3
		RETURNING `+userColumns, email, codeHash, now)

	u, err := scanUser(row)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrOTPInvalid
	}
	return u, err
}

func (r *UserRepository) LinkOAuth(ctx context.Context, id domain.OAuthIdentity) (*domain.User, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	row := db.QueryRow(ctx, linkOAuthQuery,
		id.Email, id.DisplayName, id.AvatarURL, id.Provider, id.ExternalID, id.LoginAt,
	)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("link oauth identity: %w", err)
	}
	return u, nil
}

func (r *UserRepository) PurgeExpiredChallenges(ctx context.Context, now time.Time) (int, error) {
	db, err := r.db(ctx)
	if err != nil {
		return 0, err
	}
	tag, err := db.Exec(ctx, `
		UPDATE users
		SET    otp_code_hash = NULL, otp_expires_at = NULL, updated_at = NOW()
		WHERE  otp_expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("purge expired challenges: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Email, &u.DisplayName, &u.AvatarURL, &u.IsVerified, &u.AuthProvider,
		&u.ExternalID, &u.OTPCodeHash, &u.OTPExpiresAt, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}
