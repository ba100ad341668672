// Package models defines the membership record.
package models

import (
	"time"

	"github.com/google/uuid"

	"saccoflow/internal/workflow"
)

// Member is a membership application. It enters review on creation; final
// approval provisions a login account carrying the member's contact fields.
type Member struct {
	ID     uuid.UUID `json:"id"`
	Number string    `json:"number"`

	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Position  string `json:"position,omitempty"`

	Email           string    `json:"email"`
	Mobile1         string    `json:"mobile1"`
	Mobile2         string    `json:"mobile2,omitempty"`
	IDType          string    `json:"idType"`
	IDNumber        string    `json:"idNumber"`
	AddressPhysical string    `json:"addressPhysical,omitempty"`
	AddressPostal   string    `json:"addressPostal,omitempty"`
	DateOfBirth     time.Time `json:"dateOfBirth,omitzero"`

	PasswordHash string `json:"-"`

	// Guarantor contact, carried on the membership itself.
	GuarantorFirstName string `json:"guarantorFirstName,omitempty"`
	GuarantorLastName  string `json:"guarantorLastName,omitempty"`
	GuarantorMobile    string `json:"guarantorMobile,omitempty"`
	GuarantorEmail     string `json:"guarantorEmail,omitempty"`

	BankName          string `json:"bankName,omitempty"`
	BankBranch        string `json:"bankBranch,omitempty"`
	BankAccountName   string `json:"bankAccountName,omitempty"`
	BankAccountNumber string `json:"bankAccountNumber,omitempty"`

	Workflow workflow.State `json:"workflow"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}
