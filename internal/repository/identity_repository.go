package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"shreelaxmi/site/internal/models"
)

const (
	uniqueViolation = "23505"

	identityEmailConstraint    = "identities_email_key"
	identityProviderConstraint = "identities_provider_external_idx"
)

type IdentityRepository struct {
	pool *pgxpool.Pool
}

func NewIdentityRepository(pool *pgxpool.Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

var _ IdentityStore = (*IdentityRepository)(nil)

const identityColumns = `id, name, email, password_hash, provider, external_id, role, avatar_url, created_at, updated_at`

func (r *IdentityRepository) Create(ctx context.Context, identity models.Identity) error {
	if err := identity.Validate(); err != nil {
		return err
	}

	var (
		passwordHash []byte
		provider     *string
		externalID   *string
	)
	switch c := identity.Credential.(type) {
	case models.PasswordCredential:
		passwordHash = c.Hash
	case models.ProviderCredential:
		provider = &c.Provider
		externalID = &c.ExternalID
	}

	const query = `
		INSERT INTO identities (
			id, name, email, password_hash, provider, external_id, role, avatar_url, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		identity.ID,
		identity.Name,
		identity.Email,
		passwordHash,
		provider,
		externalID,
		identity.Role,
		identity.AvatarURL,
	)
	if err != nil {
		return insertIdentityError(err)
	}
	return nil
}

// insertIdentityError maps unique violations on the identity constraints to
// their store errors. Any other failure, including a primary key collision,
// is returned wrapped.
func insertIdentityError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch pgErr.ConstraintName {
		case identityEmailConstraint:
			return ErrEmailTaken
		case identityProviderConstraint:
			return ErrProviderIdentityTaken
		}
	}
	return fmt.Errorf("insert identity: %w", err)
}

func (r *IdentityRepository) FindByEmail(ctx context.Context, email string) (models.Identity, error) {
	const query = `SELECT ` + identityColumns + ` FROM identities WHERE email = $1`
	return scanIdentity(r.pool.QueryRow(ctx, query, email))
}

func (r *IdentityRepository) FindByProvider(ctx context.Context, provider, externalID string) (models.Identity, error) {
	const query = `SELECT ` + identityColumns + ` FROM identities WHERE provider = $1 AND external_id = $2`
	return scanIdentity(r.pool.QueryRow(ctx, query, provider, externalID))
}

func (r *IdentityRepository) UpdatePasswordHash(ctx context.Context, id string, hash []byte) error {
	const query = `
		UPDATE identities SET password_hash = $2, updated_at = NOW()
		WHERE id = $1 AND password_hash IS NOT NULL
	`
	cmd, err := r.pool.Exec(ctx, query, id, hash)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrIdentityNotFound
	}
	return nil
}

func (r *IdentityRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM identities`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func scanIdentity(row pgx.Row) (models.Identity, error) {
	var (
		identity     models.Identity
		passwordHash []byte
		provider     *string
		externalID   *string
	)
	if err := row.Scan(
		&identity.ID,
		&identity.Name,
		&identity.Email,
		&passwordHash,
		&provider,
		&externalID,
		&identity.Role,
		&identity.AvatarURL,
		&identity.CreatedAt,
		&identity.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Identity{}, ErrIdentityNotFound
		}
		return models.Identity{}, err
	}

	switch {
	case len(passwordHash) > 0:
		identity.Credential = models.PasswordCredential{Hash: passwordHash}
	case externalID != nil:
		p := ""
		if provider != nil {
			p = *provider
		}
		identity.Credential = models.ProviderCredential{Provider: p, ExternalID: *externalID}
	}

	return identity, nil
}
