package models

import (
	"errors"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

var (
	ErrNoCredential    = errors.New("identity has no authentication path")
	ErrEmptyCredential = errors.New("identity credential is empty")
	ErrInvalidRole     = errors.New("identity role is invalid")
)

// Credential is the authentication path of an identity. It is either a
// PasswordCredential or a ProviderCredential, never both.
type Credential interface {
	credential()
}

type PasswordCredential struct {
	Hash []byte
}

type ProviderCredential struct {
	Provider   string
	ExternalID string
}

func (PasswordCredential) credential() {}
func (ProviderCredential) credential() {}

type Identity struct {
	ID         string
	Name       string
	Email      string
	Role       Role
	AvatarURL  *string
	Credential Credential
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func NewCredentialIdentity(id, name, email string, hash []byte, role Role) Identity {
	return Identity{
		ID:         id,
		Name:       name,
		Email:      email,
		Role:       role,
		Credential: PasswordCredential{Hash: hash},
	}
}

func NewProviderIdentity(id, name, email, provider, externalID string, avatarURL *string) Identity {
	return Identity{
		ID:         id,
		Name:       name,
		Email:      email,
		Role:       RoleUser,
		AvatarURL:  avatarURL,
		Credential: ProviderCredential{Provider: provider, ExternalID: externalID},
	}
}

// PasswordHash returns the stored digest for credential identities.
func (i Identity) PasswordHash() ([]byte, bool) {
	c, ok := i.Credential.(PasswordCredential)
	if !ok || len(c.Hash) == 0 {
		return nil, false
	}
	return c.Hash, true
}

func (i Identity) ExternalID() (string, bool) {
	c, ok := i.Credential.(ProviderCredential)
	if !ok || c.ExternalID == "" {
		return "", false
	}
	return c.ExternalID, true
}

func (i Identity) Validate() error {
	if !i.Role.Valid() {
		return ErrInvalidRole
	}
	switch c := i.Credential.(type) {
	case PasswordCredential:
		if len(c.Hash) == 0 {
			return ErrEmptyCredential
		}
	case ProviderCredential:
		if c.ExternalID == "" {
			return ErrEmptyCredential
		}
	default:
		return ErrNoCredential
	}
	return nil
}

// ProviderIdentity is what an external identity provider asserted about the
// person signing in.
type ProviderIdentity struct {
	Provider      string
	ExternalID    string
	Email         string
	EmailVerified bool
	Name          string
	AvatarURL     *string
}
