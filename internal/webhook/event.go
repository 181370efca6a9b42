package webhook

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// Event is the envelope of a delivery. Data is decoded per type.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// UserData is the payload of user.* events.
type UserData struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	ImageURL  string `json:"image_url"`
	Deleted   bool   `json:"deleted"`
}

// DisplayName joins the provider name parts.
func (d UserData) DisplayName() string {
	return strings.TrimSpace(strings.TrimSpace(d.FirstName) + " " + strings.TrimSpace(d.LastName))
}

// Decode parses the envelope.
func Decode(body []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("decode webhook event: %w", err)
	}
	if ev.Type == "" {
		return nil, fmt.Errorf("decode webhook event: missing type")
	}
	return &ev, nil
}

// User decodes Data as a user payload.
func (e *Event) User() (*UserData, error) {
	var d UserData
	if err := json.Unmarshal(e.Data, &d); err != nil {
		return nil, fmt.Errorf("decode user payload: %w", err)
	}
	if d.ID == "" {
		return nil, fmt.Errorf("decode user payload: missing id")
	}
	return &d, nil
}
