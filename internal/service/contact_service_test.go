package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"shreelaxmi/site/internal/metrics"
	"shreelaxmi/site/internal/models"
	"shreelaxmi/site/internal/repository/repotest"
	"shreelaxmi/site/internal/tasks"
)

type mockEnqueuer struct {
	mock.Mock
}

func (m *mockEnqueuer) Enqueue(ctx context.Context, values map[string]any) (string, error) {
	args := m.Called(ctx, values)
	return args.String(0), args.Error(1)
}

func newContactService(store *repotest.ContactStore, queue Enqueuer) *ContactService {
	return NewContactService(store, queue, metrics.Nop{}, 90*24*time.Hour, time.Second, zerolog.Nop())
}

func TestContactSubmit(t *testing.T) {
	store := repotest.NewContactStore()
	queue := &mockEnqueuer{}
	queue.On("Enqueue", mock.Anything, mock.MatchedBy(func(values map[string]any) bool {
		return values["type"] == tasks.TypeContactReceived && values["name"] == "Priya Sharma"
	})).Return("1-0", nil).Once()

	svc := newContactService(store, queue)

	contact, err := svc.Submit(context.Background(), SubmitContactInput{
		FullName: "  Priya Sharma ",
		Email:    "Priya@Example.com",
		Phone:    "+91 98765 43210",
		Message:  `Hello <script>alert("x")</script><b>there</b> & welcome`,
	})
	require.NoError(t, err)

	assert.Equal(t, "Priya Sharma", contact.FullName)
	assert.Equal(t, "priya@example.com", contact.Email)
	assert.Equal(t, models.ContactStatusNew, contact.Status)
	assert.NotContains(t, contact.Message, "<script>")
	assert.NotContains(t, contact.Message, "<b>")
	assert.Contains(t, contact.Message, "there & welcome")

	stored, err := store.GetByID(context.Background(), contact.ID)
	require.NoError(t, err)
	assert.Equal(t, contact.Message, stored.Message)

	queue.AssertExpectations(t)
}

func TestContactSubmitStripsEncodedMarkup(t *testing.T) {
	tests := []struct {
		name     string
		fullName string
		message  string
		wantName string
		wantMsg  string
	}{
		{
			name:     "entity-encoded tags",
			fullName: "&lt;img src=x onerror=alert(1)&gt;Asha Rao",
			message:  "Call me &lt;script&gt;alert(1)&lt;/script&gt;today",
			wantName: "Asha Rao",
			wantMsg:  "Call me today",
		},
		{
			name:     "double-encoded tags stay encoded",
			fullName: "Asha Rao",
			message:  "&amp;lt;script&amp;gt;alert(1)&amp;lt;/script&amp;gt;",
			wantName: "Asha Rao",
			wantMsg:  "&lt;script&gt;alert(1)&lt;/script&gt;",
		},
		{
			name:     "plain entities decode",
			fullName: "Tom &amp; Jerry",
			message:  "returns &gt; 5% & fees &lt; 1%",
			wantName: "Tom & Jerry",
			wantMsg:  "returns > 5% & fees < 1%",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := repotest.NewContactStore()
			svc := newContactService(store, nil)

			contact, err := svc.Submit(context.Background(), SubmitContactInput{
				FullName: tt.fullName,
				Phone:    "9876543210",
				Message:  tt.message,
			})
			require.NoError(t, err)

			stored, err := store.GetByID(context.Background(), contact.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, stored.FullName)
			assert.Equal(t, tt.wantMsg, stored.Message)
			for _, tag := range []string{"<script", "<img", "</script"} {
				assert.NotContains(t, stored.FullName, tag)
				assert.NotContains(t, stored.Message, tag)
			}
		})
	}
}

func TestContactSubmitEnqueueFailureStillSucceeds(t *testing.T) {
	queue := &mockEnqueuer{}
	queue.On("Enqueue", mock.Anything, mock.Anything).Return("", errors.New("redis down"))

	svc := newContactService(repotest.NewContactStore(), queue)

	_, err := svc.Submit(context.Background(), SubmitContactInput{FullName: "A", Phone: "9876543210"})
	assert.NoError(t, err)
	queue.AssertNumberOfCalls(t, "Enqueue", 1)
}

func TestContactSubmitValidation(t *testing.T) {
	svc := newContactService(repotest.NewContactStore(), nil)

	tests := map[string]struct {
		input SubmitContactInput
		field string
	}{
		"missing phone":    {SubmitContactInput{FullName: "A"}, "phone"},
		"missing name":     {SubmitContactInput{Phone: "9876543210"}, "fullName"},
		"markup-only name": {SubmitContactInput{FullName: "<i></i>", Phone: "9876543210"}, "fullName"},
		"bad email":        {SubmitContactInput{FullName: "A", Phone: "9876543210", Email: "nope"}, "email"},
		"letters in phone": {SubmitContactInput{FullName: "A", Phone: "call me"}, "phone"},
		"short phone":      {SubmitContactInput{FullName: "A", Phone: "12345"}, "phone"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), tt.input)
			require.Error(t, err)
			assert.Equal(t, KindValidation, KindOf(err))

			var de *DomainError
			require.True(t, errors.As(err, &de))
			assert.Contains(t, de.Fields, tt.field)
		})
	}
}

func TestContactListFilterAndPaging(t *testing.T) {
	store := repotest.NewContactStore()
	svc := newContactService(store, nil)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, status := range []models.ContactStatus{"new", "new", "read", "closed", "new"} {
		require.NoError(t, store.Create(ctx, models.Contact{
			ID:        string(rune('a' + i)),
			FullName:  "C",
			Phone:     "9876543210",
			Status:    status,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := svc.List(ctx, ListContactsInput{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "e", all[0].ID, "newest first")

	fresh, err := svc.List(ctx, ListContactsInput{Status: "new"})
	require.NoError(t, err)
	assert.Len(t, fresh, 3)

	page, err := svc.List(ctx, ListContactsInput{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "d", page[0].ID)

	second, err := svc.List(ctx, ListContactsInput{Limit: 2, Page: 2})
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, "c", second[0].ID)

	capped, err := svc.List(ctx, ListContactsInput{Limit: 1000, Page: 2})
	require.NoError(t, err)
	assert.Empty(t, capped, "page two of a capped page size starts past the last row")

	_, err = svc.List(ctx, ListContactsInput{Page: math.MaxInt})
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = svc.List(ctx, ListContactsInput{Status: "spam"})
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestContactUpdateStatus(t *testing.T) {
	store := repotest.NewContactStore()
	svc := newContactService(store, nil)
	ctx := context.Background()

	contact, err := svc.Submit(ctx, SubmitContactInput{FullName: "A", Phone: "9876543210"})
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(ctx, contact.ID, UpdateContactStatusInput{Status: "replied"})
	require.NoError(t, err)
	assert.Equal(t, models.ContactStatusReplied, updated.Status)

	_, err = svc.UpdateStatus(ctx, contact.ID, UpdateContactStatusInput{Status: "archived"})
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = svc.UpdateStatus(ctx, contact.ID, UpdateContactStatusInput{})
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = svc.UpdateStatus(ctx, "missing", UpdateContactStatusInput{Status: "read"})
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestContactDelete(t *testing.T) {
	store := repotest.NewContactStore()
	svc := newContactService(store, nil)
	ctx := context.Background()

	contact, err := svc.Submit(ctx, SubmitContactInput{FullName: "A", Phone: "9876543210"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, contact.ID))
	assert.Equal(t, KindNotFound, KindOf(svc.Delete(ctx, contact.ID)))
}

func TestContactSummary(t *testing.T) {
	svc := newContactService(repotest.NewContactStore(), nil)
	ctx := context.Background()

	_, err := svc.Submit(ctx, SubmitContactInput{FullName: "A", Phone: "9876543210"})
	require.NoError(t, err)

	summary, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[models.ContactStatus]int{"new": 1, "read": 0, "replied": 0, "closed": 0}, summary)
}

func TestContactPurgeClosed(t *testing.T) {
	store := repotest.NewContactStore()
	svc := newContactService(store, nil)
	ctx := context.Background()
	now := time.Now()

	old := now.Add(-100 * 24 * time.Hour)
	recent := now.Add(-10 * 24 * time.Hour)
	seed := []models.Contact{
		{ID: "old-closed", Status: models.ContactStatusClosed, UpdatedAt: old},
		{ID: "old-open", Status: models.ContactStatusNew, UpdatedAt: old},
		{ID: "recent-closed", Status: models.ContactStatusClosed, UpdatedAt: recent},
	}
	for _, c := range seed {
		require.NoError(t, store.Create(ctx, c))
	}

	purged, err := svc.PurgeClosed(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	_, err = store.GetByID(ctx, "old-closed")
	assert.Error(t, err)
	_, err = store.GetByID(ctx, "old-open")
	assert.NoError(t, err)
	_, err = store.GetByID(ctx, "recent-closed")
	assert.NoError(t, err)
}

func TestContactPurgeIsBoundedByStoreTimeout(t *testing.T) {
	store := repotest.NewContactStore()
	store.PurgeHook = func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
	svc := NewContactService(store, nil, metrics.Nop{}, 90*24*time.Hour, 20*time.Millisecond, zerolog.Nop())

	start := time.Now()
	_, err := svc.PurgeClosed(context.Background(), time.Now())
	assert.Less(t, time.Since(start), 2*time.Second)

	require.Error(t, err)
	assert.Equal(t, KindInfrastructure, KindOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestContactPurgeDisabled(t *testing.T) {
	store := repotest.NewContactStore()
	svc := NewContactService(store, nil, nil, 0, time.Second, zerolog.Nop())

	require.NoError(t, store.Create(context.Background(), models.Contact{ID: "x", Status: models.ContactStatusClosed}))

	purged, err := svc.PurgeClosed(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, purged)
}
