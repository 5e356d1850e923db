package models

import (
	"time"

	"github.com/google/uuid"
)

// ContactLinks holds the fixed set of social/web links a person can share.
type ContactLinks struct {
	LinkedIn string `json:"linkedin,omitempty" db:"link_linkedin"`
	GitHub   string `json:"github,omitempty" db:"link_github"`
	Website  string `json:"website,omitempty" db:"link_website"`
}

// IsEmpty reports whether no link is set.
func (l ContactLinks) IsEmpty() bool {
	return l.LinkedIn == "" && l.GitHub == "" && l.Website == ""
}

// ContactVisibility gates read exposure of contact fields. It never gates
// storage. Name is always visible and has no flag.
type ContactVisibility struct {
	Email        bool `json:"email" db:"vis_email"`
	Organization bool `json:"organization" db:"vis_organization"`
	Phone        bool `json:"phone" db:"vis_phone"`
	Links        bool `json:"links" db:"vis_links"`
}

// DefaultVisibility is applied at registration time.
func DefaultVisibility() ContactVisibility {
	return ContactVisibility{
		Email:        true,
		Organization: true,
		Phone:        false,
		Links:        true,
	}
}

// Person is the identity record. Its ID is the persistent token used as the
// QR payload across all events, for both check-in and contact sharing.
type Person struct {
	ID           uuid.UUID         `json:"id" db:"id"`
	UserID       uuid.UUID         `json:"user_id" db:"user_id"`
	Name         string            `json:"name" db:"name"`
	Email        string            `json:"email" db:"email"`
	Organization string            `json:"organization" db:"organization"`
	Phone        string            `json:"phone" db:"phone"`
	Links        ContactLinks      `json:"links" db:"-"`
	Visibility   ContactVisibility `json:"visibility" db:"-"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at" db:"updated_at"`
}

// ContactCard is the visibility-filtered view of a person's contact fields.
type ContactCard struct {
	Name         string        `json:"name"`
	Email        string        `json:"email,omitempty"`
	Organization string        `json:"organization,omitempty"`
	Phone        string        `json:"phone,omitempty"`
	Links        *ContactLinks `json:"links,omitempty"`
}

// VisibleContact returns only the fields the person has marked visible.
// Name is always included; empty fields are dropped even when visible.
func (p *Person) VisibleContact() ContactCard {
	card := ContactCard{Name: p.Name}
	if p.Visibility.Email && p.Email != "" {
		card.Email = p.Email
	}
	if p.Visibility.Organization && p.Organization != "" {
		card.Organization = p.Organization
	}
	if p.Visibility.Phone && p.Phone != "" {
		card.Phone = p.Phone
	}
	if p.Visibility.Links && !p.Links.IsEmpty() {
		links := p.Links
		card.Links = &links
	}
	return card
}

// UpdateContactRequest for patching contact fields. Nil fields are left
// unchanged; only the owning identity may apply it.
type UpdateContactRequest struct {
	Name         *string            `json:"name"`
	Email        *string            `json:"email"`
	Organization *string            `json:"organization"`
	Phone        *string            `json:"phone"`
	Links        *ContactLinks      `json:"links"`
	Visibility   *ContactVisibility `json:"visibility"`
}
