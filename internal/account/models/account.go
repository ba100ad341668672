// Package models defines user accounts: the identities that create and
// review records, and the derived records provisioned when a membership is
// approved.
package models

import (
	"time"

	"github.com/google/uuid"

	"saccoflow/internal/workflow"
)

// Account is a user account. Provisioned accounts inherit contact fields from
// the approved membership record and arrive already approved.
type Account struct {
	ID   uuid.UUID `json:"id"`
	Code string    `json:"code,omitempty"`

	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Position  string `json:"position,omitempty"`

	Email           string `json:"email"`
	Mobile          string `json:"mobile,omitempty"`
	AddressPhysical string `json:"addressPhysical,omitempty"`
	AddressPostal   string `json:"addressPostal,omitempty"`

	Role int `json:"role"`

	// PasswordHash is a bcrypt hash; never serialized.
	PasswordHash string `json:"-"`

	Workflow workflow.State `json:"workflow"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// Identity returns the identity string stamped into audit fields. The email
// address doubles as the reviewer identity everywhere in this system.
func (a *Account) Identity() string { return a.Email }
