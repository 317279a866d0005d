// Package audit provides an append-only trail of security-relevant actions
// with query and export capability.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Well-known categories written by the admin core.
const (
	CategoryClient   = "Client"
	CategoryApiKey   = "ApiKey"
	CategoryProvider = "Provider"
	CategoryPolicy   = "Policy"
)

// Entry is a single audit record. Entries are immutable once written;
// this package owns all write access to the audit log.
type Entry struct {
	ID           uuid.UUID `json:"id"`
	UserID       string    `json:"user_id,omitempty"` // empty for system actions
	Username     string    `json:"user_name,omitempty"`
	Action       string    `json:"action"`
	Category     string    `json:"category"`
	Details      string    `json:"details,omitempty"`
	IPAddress    string    `json:"ip_address,omitempty"`
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"error_message,omitempty"` // set iff Success is false
	CreatedAt    time.Time `json:"created_at"`
}

// NewEntry creates a successful entry for the given category and action.
func NewEntry(category, action string) Entry {
	return Entry{
		Category: category,
		Action:   action,
		Success:  true,
	}
}

// WithActor records who performed the action. The username is a
// denormalized snapshot, not a live reference.
func (e Entry) WithActor(userID, username string) Entry {
	e.UserID = userID
	e.Username = username
	return e
}

// WithDetails attaches free-text or JSON details.
func (e Entry) WithDetails(details string) Entry {
	e.Details = details
	return e
}

// WithIP records the request origin address.
func (e Entry) WithIP(ip string) Entry {
	e.IPAddress = ip
	return e
}

// WithError marks the entry as failed and records the reason.
func (e Entry) WithError(msg string) Entry {
	e.Success = false
	e.ErrorMessage = msg
	return e
}

// Filter narrows Query and Export results. Zero values mean "no
// restriction" for every field except Skip and Take.
type Filter struct {
	From     *time.Time
	To       *time.Time
	Category string
	UserID   string
	Success  *bool
	// Keyword matches as a case-insensitive substring of Action or Details.
	Keyword string
	Skip    int
	Take    int
}

// ExportRow is the flattened shape used by Export.
type ExportRow struct {
	CreatedAt    time.Time `json:"created_at"`
	Category     string    `json:"category"`
	Action       string    `json:"action"`
	Username     string    `json:"user_name,omitempty"`
	IPAddress    string    `json:"ip_address,omitempty"`
	Success      bool      `json:"success"`
	Details      string    `json:"details,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
}
