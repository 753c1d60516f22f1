package tasks

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"shreelaxmi/site/internal/metrics"
	"shreelaxmi/site/internal/models"
)

type mockPurger struct {
	mock.Mock
}

func (m *mockPurger) PurgeClosed(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func message(values map[string]any) redis.XMessage {
	return redis.XMessage{ID: "1-0", Values: values}
}

func TestContactReceivedPayloadRoundTrip(t *testing.T) {
	contact := models.Contact{ID: "c1", FullName: "Sita Devi", Phone: "9800000000"}
	values := ContactReceived(contact).Values()

	assert.Equal(t, TypeContactReceived, values["type"])
	assert.Equal(t, "c1", values["contactId"])
	assert.Equal(t, "Sita Devi", values["name"])
	assert.NotContains(t, values, "phone")

	var decoded Payload
	require.NoError(t, decodePayload(values, &decoded))
	assert.Equal(t, "c1", decoded.ContactID)
}

func TestHandleContactReceived(t *testing.T) {
	tests := []struct {
		name     string
		values   map[string]any
		expected string
	}{
		{
			name:   "notification",
			values: ContactReceived(models.Contact{ID: "c1", FullName: "Sita"}).Values(),
			expected: `
# HELP site_tasks_processed_total Background tasks handled by type and outcome.
# TYPE site_tasks_processed_total counter
site_tasks_processed_total{outcome="success",type="contact.received"} 1
`,
		},
		{
			name:   "missing contact id is acknowledged",
			values: map[string]any{"type": TypeContactReceived, "name": "Sita"},
			expected: `
# HELP site_tasks_processed_total Background tasks handled by type and outcome.
# TYPE site_tasks_processed_total counter
site_tasks_processed_total{outcome="error",type="invalid"} 1
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := prometheus.NewRegistry()
			p := NewProcessor(&mockPurger{}, metrics.NewCollector(reg), zerolog.Nop())

			assert.NoError(t, p.Handle(context.Background(), message(tt.values)))
			assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(tt.expected), "site_tasks_processed_total"))
		})
	}
}

func TestHandlePurge(t *testing.T) {
	now := time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC)
	purger := &mockPurger{}
	purger.On("PurgeClosed", mock.Anything, now).Return(int64(4), nil).Once()

	reg := prometheus.NewRegistry()
	p := NewProcessor(purger, metrics.NewCollector(reg), zerolog.Nop())
	p.now = func() time.Time { return now }

	require.NoError(t, p.Handle(context.Background(), message(ContactsPurge(now).Values())))
	purger.AssertExpectations(t)

	expected := `
# HELP site_tasks_processed_total Background tasks handled by type and outcome.
# TYPE site_tasks_processed_total counter
site_tasks_processed_total{outcome="success",type="contacts.purge"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "site_tasks_processed_total"))
}

func TestHandlePurgeFailureIsRetried(t *testing.T) {
	purger := &mockPurger{}
	purger.On("PurgeClosed", mock.Anything, mock.Anything).Return(int64(0), errors.New("database down")).Once()

	p := NewProcessor(purger, metrics.Nop{}, zerolog.Nop())
	err := p.Handle(context.Background(), message(ContactsPurge(time.Now()).Values()))
	assert.Error(t, err)
}

func TestUnknownTaskIsAcknowledged(t *testing.T) {
	p := NewProcessor(&mockPurger{}, metrics.Nop{}, zerolog.Nop())
	assert.NoError(t, p.Handle(context.Background(), message(map[string]any{"type": "newsletter.send"})))
}
