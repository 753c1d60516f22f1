// Package repotest provides in-memory stores with the same contracts as the
// Postgres repositories, for use in tests.
package repotest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"shreelaxmi/site/internal/models"
	"shreelaxmi/site/internal/repository"
)

type IdentityStore struct {
	mu      sync.Mutex
	byEmail map[string]models.Identity

	// Err, when set, is returned by every call.
	Err error
	// CreateHook runs inside Create before the uniqueness check.
	CreateHook func()
	// FindHook runs at the start of FindByEmail.
	FindHook func(ctx context.Context) error
}

func NewIdentityStore() *IdentityStore {
	return &IdentityStore{byEmail: make(map[string]models.Identity)}
}

var _ repository.IdentityStore = (*IdentityStore)(nil)

func (s *IdentityStore) Create(_ context.Context, identity models.Identity) error {
	if s.Err != nil {
		return s.Err
	}
	if err := identity.Validate(); err != nil {
		return err
	}
	if s.CreateHook != nil {
		s.CreateHook()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[identity.Email]; ok {
		return repository.ErrEmailTaken
	}
	provider, _ := identity.Credential.(models.ProviderCredential)
	for _, existing := range s.byEmail {
		if existing.ID == identity.ID {
			return errors.New("duplicate identity id")
		}
		if held, ok := existing.Credential.(models.ProviderCredential); ok && provider.Provider != "" &&
			held.Provider == provider.Provider && held.ExternalID == provider.ExternalID {
			return repository.ErrProviderIdentityTaken
		}
	}

	now := time.Now()
	identity.CreatedAt = now
	identity.UpdatedAt = now
	s.byEmail[identity.Email] = identity
	return nil
}

func (s *IdentityStore) FindByEmail(ctx context.Context, email string) (models.Identity, error) {
	if s.FindHook != nil {
		if err := s.FindHook(ctx); err != nil {
			return models.Identity{}, err
		}
	}
	if s.Err != nil {
		return models.Identity{}, s.Err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	identity, ok := s.byEmail[email]
	if !ok {
		return models.Identity{}, repository.ErrIdentityNotFound
	}
	return identity, nil
}

func (s *IdentityStore) FindByProvider(_ context.Context, provider, externalID string) (models.Identity, error) {
	if s.Err != nil {
		return models.Identity{}, s.Err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, identity := range s.byEmail {
		held, ok := identity.Credential.(models.ProviderCredential)
		if ok && held.Provider == provider && held.ExternalID == externalID {
			return identity, nil
		}
	}
	return models.Identity{}, repository.ErrIdentityNotFound
}

func (s *IdentityStore) UpdatePasswordHash(_ context.Context, id string, hash []byte) error {
	if s.Err != nil {
		return s.Err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for email, identity := range s.byEmail {
		if identity.ID != id {
			continue
		}
		if _, ok := identity.Credential.(models.PasswordCredential); !ok {
			return repository.ErrIdentityNotFound
		}
		identity.Credential = models.PasswordCredential{Hash: hash}
		identity.UpdatedAt = time.Now()
		s.byEmail[email] = identity
		return nil
	}
	return repository.ErrIdentityNotFound
}

func (s *IdentityStore) Count(context.Context) (int, error) {
	if s.Err != nil {
		return 0, s.Err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byEmail), nil
}

// SetRole changes a stored role, standing in for an operator editing the
// database directly.
func (s *IdentityStore) SetRole(email string, role models.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if identity, ok := s.byEmail[email]; ok {
		identity.Role = role
		s.byEmail[email] = identity
	}
}

// Put stores an identity as-is, bypassing validation.
func (s *IdentityStore) Put(identity models.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byEmail[identity.Email] = identity
}

func (s *IdentityStore) All() []models.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Identity, 0, len(s.byEmail))
	for _, identity := range s.byEmail {
		out = append(out, identity)
	}
	return out
}

type TeamStore struct {
	mu      sync.Mutex
	members map[string]models.TeamMember

	Err error
}

func NewTeamStore() *TeamStore {
	return &TeamStore{members: make(map[string]models.TeamMember)}
}

var _ repository.TeamStore = (*TeamStore)(nil)

func (s *TeamStore) Create(_ context.Context, member models.TeamMember) error {
	if s.Err != nil {
		return s.Err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[member.ID] = member
	return nil
}

func (s *TeamStore) Update(_ context.Context, member models.TeamMember) error {
	if s.Err != nil {
		return s.Err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[member.ID]; !ok {
		return repository.ErrTeamMemberNotFound
	}
	s.members[member.ID] = member
	return nil
}

func (s *TeamStore) GetByID(_ context.Context, id string) (models.TeamMember, error) {
	if s.Err != nil {
		return models.TeamMember{}, s.Err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	member, ok := s.members[id]
	if !ok {
		return models.TeamMember{}, repository.ErrTeamMemberNotFound
	}
	return member, nil
}

func (s *TeamStore) ListActive(ctx context.Context) ([]models.TeamMember, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	active := []models.TeamMember{}
	for _, member := range all {
		if member.IsActive {
			active = append(active, member)
		}
	}
	return active, nil
}

func (s *TeamStore) ListAll(context.Context) ([]models.TeamMember, error) {
	if s.Err != nil {
		return nil, s.Err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.TeamMember, 0, len(s.members))
	for _, member := range s.members {
		out = append(out, member)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *TeamStore) Deactivate(_ context.Context, id string) error {
	if s.Err != nil {
		return s.Err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	member, ok := s.members[id]
	if !ok {
		return repository.ErrTeamMemberNotFound
	}
	member.IsActive = false
	member.UpdatedAt = time.Now()
	s.members[id] = member
	return nil
}

type ContactStore struct {
	mu       sync.Mutex
	contacts map[string]models.Contact

	Err error
	// PurgeHook runs at the start of PurgeClosedBefore.
	PurgeHook func(ctx context.Context) error
}

func NewContactStore() *ContactStore {
	return &ContactStore{contacts: make(map[string]models.Contact)}
}

var _ repository.ContactStore = (*ContactStore)(nil)

func (s *ContactStore) Create(_ context.Context, contact models.Contact) error {
	if s.Err != nil {
		return s.Err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts[contact.ID] = contact
	return nil
}

func (s *ContactStore) GetByID(_ context.Context, id string) (models.Contact, error) {
	if s.Err != nil {
		return models.Contact{}, s.Err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	contact, ok := s.contacts[id]
	if !ok {
		return models.Contact{}, repository.ErrContactNotFound
	}
	return contact, nil
}

func (s *ContactStore) List(_ context.Context, filter repository.ContactFilter) ([]models.Contact, error) {
	if s.Err != nil {
		return nil, s.Err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	matched := []models.Contact{}
	for _, contact := range s.contacts {
		if filter.Status != "" && contact.Status != filter.Status {
			continue
		}
		matched = append(matched, contact)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	if filter.Offset >= len(matched) {
		return []models.Contact{}, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (s *ContactStore) UpdateStatus(_ context.Context, id string, status models.ContactStatus) (models.Contact, error) {
	if s.Err != nil {
		return models.Contact{}, s.Err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	contact, ok := s.contacts[id]
	if !ok {
		return models.Contact{}, repository.ErrContactNotFound
	}
	contact.Status = status
	contact.UpdatedAt = time.Now()
	s.contacts[id] = contact
	return contact, nil
}

func (s *ContactStore) Delete(_ context.Context, id string) error {
	if s.Err != nil {
		return s.Err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.contacts[id]; !ok {
		return repository.ErrContactNotFound
	}
	delete(s.contacts, id)
	return nil
}

func (s *ContactStore) CountByStatus(context.Context) (map[models.ContactStatus]int, error) {
	if s.Err != nil {
		return nil, s.Err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[models.ContactStatus]int)
	for _, contact := range s.contacts {
		counts[contact.Status]++
	}
	return counts, nil
}

func (s *ContactStore) PurgeClosedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if s.PurgeHook != nil {
		if err := s.PurgeHook(ctx); err != nil {
			return 0, err
		}
	}
	if s.Err != nil {
		return 0, s.Err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var purged int64
	for id, contact := range s.contacts {
		if contact.Status == models.ContactStatusClosed && contact.UpdatedAt.Before(cutoff) {
			delete(s.contacts, id)
			purged++
		}
	}
	return purged, nil
}
