package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Customer is keyed by the payment processor's customer identifier.
type Customer struct {
	ID         uuid.UUID `json:"id"`
	ExternalID string    `json:"external_id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FirstName is used to greet the customer in emails.
func (c *Customer) FirstName() string {
	if c == nil {
		return ""
	}
	if fields := strings.Fields(c.Name); len(fields) > 0 {
		return fields[0]
	}
	return ""
}

// GuestExternalID keys a customer that checked out without a processor
// customer record.
func GuestExternalID(email string) string {
	return "email:" + strings.ToLower(strings.TrimSpace(email))
}
