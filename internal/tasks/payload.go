package tasks

import (
	"time"

	"shreelaxmi/site/internal/models"
)

const (
	TypeContactReceived = "contact.received"
	TypeContactsPurge   = "contacts.purge"
)

// Payload is the flat message written to the task stream.
type Payload struct {
	Type       string `json:"type"`
	ContactID  string `json:"contactId,omitempty"`
	Name       string `json:"name,omitempty"`
	EnqueuedAt string `json:"enqueuedAt,omitempty"`
}

func ContactReceived(contact models.Contact) Payload {
	return Payload{
		Type:       TypeContactReceived,
		ContactID:  contact.ID,
		Name:       contact.FullName,
		EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

func ContactsPurge(now time.Time) Payload {
	return Payload{
		Type:       TypeContactsPurge,
		EnqueuedAt: now.UTC().Format(time.RFC3339),
	}
}

// Values renders the payload as stream fields.
func (p Payload) Values() map[string]any {
	values := map[string]any{"type": p.Type}
	if p.ContactID != "" {
		values["contactId"] = p.ContactID
	}
	if p.Name != "" {
		values["name"] = p.Name
	}
	if p.EnqueuedAt != "" {
		values["enqueuedAt"] = p.EnqueuedAt
	}
	return values
}
