package repository

import (
	"context"
	"errors"
	"time"

	"shreelaxmi/site/internal/models"
)

var (
	ErrIdentityNotFound   = errors.New("identity not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrTeamMemberNotFound = errors.New("team member not found")
	ErrContactNotFound    = errors.New("contact not found")

	ErrProviderIdentityTaken = errors.New("provider identity already registered")
)

// IdentityStore persists identity records. Emails are unique; Create
// returns ErrEmailTaken when another record already holds the email, and
// ErrProviderIdentityTaken when another record holds the same provider
// account.
type IdentityStore interface {
	Create(ctx context.Context, identity models.Identity) error
	FindByEmail(ctx context.Context, email string) (models.Identity, error)
	FindByProvider(ctx context.Context, provider, externalID string) (models.Identity, error)
	UpdatePasswordHash(ctx context.Context, id string, hash []byte) error
	Count(ctx context.Context) (int, error)
}

type TeamStore interface {
	Create(ctx context.Context, member models.TeamMember) error
	Update(ctx context.Context, member models.TeamMember) error
	GetByID(ctx context.Context, id string) (models.TeamMember, error)
	ListActive(ctx context.Context) ([]models.TeamMember, error)
	ListAll(ctx context.Context) ([]models.TeamMember, error)
	Deactivate(ctx context.Context, id string) error
}

type ContactFilter struct {
	Status models.ContactStatus
	Limit  int
	Offset int
}

type ContactStore interface {
	Create(ctx context.Context, contact models.Contact) error
	GetByID(ctx context.Context, id string) (models.Contact, error)
	List(ctx context.Context, filter ContactFilter) ([]models.Contact, error)
	UpdateStatus(ctx context.Context, id string, status models.ContactStatus) (models.Contact, error)
	Delete(ctx context.Context, id string) error
	CountByStatus(ctx context.Context) (map[models.ContactStatus]int, error)
	PurgeClosedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
