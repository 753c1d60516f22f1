package service

import (
	"context"
	"errors"
	"html"
	"math"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"shreelaxmi/site/internal/ids"
	"shreelaxmi/site/internal/metrics"
	"shreelaxmi/site/internal/models"
	"shreelaxmi/site/internal/repository"
	"shreelaxmi/site/internal/tasks"
)

const (
	defaultContactPageSize = 50
	maxContactPageSize     = 200
)

// Enqueuer hands work to the background worker.
type Enqueuer interface {
	Enqueue(ctx context.Context, values map[string]any) (string, error)
}

type ContactService struct {
	contacts     repository.ContactStore
	queue        Enqueuer
	metrics      metrics.Recorder
	policy       *bluemonday.Policy
	retention    time.Duration
	storeTimeout time.Duration
	log          zerolog.Logger
}

func NewContactService(
	contacts repository.ContactStore,
	queue Enqueuer,
	recorder metrics.Recorder,
	retention time.Duration,
	storeTimeout time.Duration,
	log zerolog.Logger,
) *ContactService {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	if storeTimeout <= 0 {
		storeTimeout = defaultStoreTimeout
	}
	return &ContactService{
		contacts:     contacts,
		queue:        queue,
		metrics:      recorder,
		policy:       bluemonday.StrictPolicy(),
		retention:    retention,
		storeTimeout: storeTimeout,
		log:          log,
	}
}

type SubmitContactInput struct {
	FullName string `json:"fullName" validate:"required,max=120"`
	Email    string `json:"email" validate:"omitempty,email,max=254"`
	Phone    string `json:"phone" validate:"required,phone"`
	Message  string `json:"message" validate:"max=5000"`
}

// Submit records a contact form entry. Markup is stripped from free text.
func (s *ContactService) Submit(ctx context.Context, input SubmitContactInput) (models.Contact, error) {
	input.FullName = s.plainText(input.FullName)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Phone = strings.TrimSpace(input.Phone)
	input.Message = s.plainText(input.Message)
	if err := validateInput(input); err != nil {
		return models.Contact{}, err
	}

	now := time.Now().UTC()
	contact := models.Contact{
		ID:        ids.New(),
		FullName:  input.FullName,
		Email:     input.Email,
		Phone:     input.Phone,
		Message:   input.Message,
		Status:    models.ContactStatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.contacts.Create(storeCtx, contact); err != nil {
		return models.Contact{}, infrastructure("create contact", err)
	}
	s.metrics.RecordContactSubmitted()

	if s.queue != nil {
		if _, err := s.queue.Enqueue(ctx, tasks.ContactReceived(contact).Values()); err != nil {
			s.log.Warn().Err(err).Str("contact_id", contact.ID).Msg("enqueue contact notification failed")
		}
	}

	s.log.Info().Str("contact_id", contact.ID).Msg("contact submission received")
	return contact, nil
}

// ListContactsInput selects a page of contacts. Page is 1-based and, when
// greater than one, takes precedence over Offset.
type ListContactsInput struct {
	Status string
	Limit  int
	Offset int
	Page   int
}

func (s *ContactService) List(ctx context.Context, input ListContactsInput) ([]models.Contact, error) {
	filter := repository.ContactFilter{
		Status: models.ContactStatus(strings.TrimSpace(input.Status)),
		Limit:  input.Limit,
		Offset: input.Offset,
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, validationError("unknown status", map[string]string{"status": "must be one of: new read replied closed"})
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultContactPageSize
	}
	if filter.Limit > maxContactPageSize {
		filter.Limit = maxContactPageSize
	}
	if input.Page > 1 {
		if input.Page-1 > math.MaxInt/filter.Limit {
			return nil, validationError("page out of range", map[string]string{"page": "is too large"})
		}
		filter.Offset = (input.Page - 1) * filter.Limit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	contacts, err := s.contacts.List(ctx, filter)
	if err != nil {
		return nil, infrastructure("list contacts", err)
	}
	return contacts, nil
}

type UpdateContactStatusInput struct {
	Status string `json:"status" validate:"required,oneof=new read replied closed"`
}

func (s *ContactService) UpdateStatus(ctx context.Context, id string, input UpdateContactStatusInput) (models.Contact, error) {
	input.Status = strings.TrimSpace(input.Status)
	if err := validateInput(input); err != nil {
		return models.Contact{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	contact, err := s.contacts.UpdateStatus(ctx, id, models.ContactStatus(input.Status))
	if errors.Is(err, repository.ErrContactNotFound) {
		return models.Contact{}, notFound("contact not found")
	}
	if err != nil {
		return models.Contact{}, infrastructure("update contact", err)
	}
	return contact, nil
}

func (s *ContactService) Get(ctx context.Context, id string) (models.Contact, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	contact, err := s.contacts.GetByID(ctx, id)
	if errors.Is(err, repository.ErrContactNotFound) {
		return models.Contact{}, notFound("contact not found")
	}
	if err != nil {
		return models.Contact{}, infrastructure("get contact", err)
	}
	return contact, nil
}

func (s *ContactService) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	err := s.contacts.Delete(ctx, id)
	if errors.Is(err, repository.ErrContactNotFound) {
		return notFound("contact not found")
	}
	if err != nil {
		return infrastructure("delete contact", err)
	}

	s.log.Info().Str("contact_id", id).Msg("contact deleted")
	return nil
}

// Summary counts submissions per status; every status is present.
func (s *ContactService) Summary(ctx context.Context) (map[models.ContactStatus]int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	counts, err := s.contacts.CountByStatus(ctx)
	if err != nil {
		return nil, infrastructure("count contacts", err)
	}

	summary := map[models.ContactStatus]int{
		models.ContactStatusNew:     0,
		models.ContactStatusRead:    0,
		models.ContactStatusReplied: 0,
		models.ContactStatusClosed:  0,
	}
	for status, n := range counts {
		summary[status] = n
	}
	return summary, nil
}

// PurgeClosed removes closed submissions untouched for longer than the
// retention period. A zero retention disables purging.
func (s *ContactService) PurgeClosed(ctx context.Context, now time.Time) (int64, error) {
	if s.retention <= 0 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	purged, err := s.contacts.PurgeClosedBefore(ctx, now.Add(-s.retention))
	if err != nil {
		return 0, infrastructure("purge contacts", err)
	}
	s.metrics.RecordContactsPurged(purged)
	return purged, nil
}

// plainText strips markup, entity-encoded markup included. The result is
// stored decoded only when decoding yields no further markup.
func (s *ContactService) plainText(value string) string {
	clean := s.policy.Sanitize(html.UnescapeString(value))
	plain := html.UnescapeString(clean)
	if html.UnescapeString(s.policy.Sanitize(plain)) == plain {
		clean = plain
	}
	return strings.TrimSpace(clean)
}
