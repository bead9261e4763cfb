package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Address belongs to the address book collaborator; checkout only
// verifies ownership and snapshots it onto the order.
type Address struct {
	ID         uuid.UUID `json:"id"`
	UserID     string    `json:"user_id"`
	Recipient  string    `json:"recipient"`
	Line1      string    `json:"line1"`
	Line2      string    `json:"line2,omitempty"`
	City       string    `json:"city"`
	PostalCode string    `json:"postal_code"`
	Country    string    `json:"country"`
}

// Snapshot flattens the address into the single-line form stored on an
// order, so the order keeps its shipping destination even if the address
// book entry is later edited.
func (a Address) Snapshot() string {
	parts := []string{a.Recipient, a.Line1}
	if a.Line2 != "" {
		parts = append(parts, a.Line2)
	}
	parts = append(parts, a.City, a.PostalCode, a.Country)
	return strings.Join(parts, ", ")
}
