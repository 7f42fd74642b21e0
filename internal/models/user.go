package models

import (
	"errors"
	"net/mail"
	"strings"
)

// UserCollection is the collection users are persisted in.
const UserCollection = "users"

// User roles.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
	RoleViewer = "viewer"
)

// User is a person tasks can be assigned to.
type User struct {
	Record
	Name        string `json:"name"`
	Description string `json:"description"`
	Email       string `json:"email,omitempty"`
	Role        string `json:"role,omitempty"`
}

// UserPatch lists the user fields a caller may write.
type UserPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Email       *string `json:"email,omitempty"`
	Role        *string `json:"role,omitempty"`
}

// Fields returns the set fields of the patch.
func (p UserPatch) Fields() Document {
	d := Document{}
	put(d, "name", p.Name)
	put(d, "description", p.Description)
	put(d, "email", p.Email)
	put(d, "role", p.Role)
	return d
}

// WithDefaults fills the fields a new user needs.
func (p UserPatch) WithDefaults() UserPatch {
	if p.Description == nil {
		p.Description = Ptr("")
	}
	if p.Role == nil {
		p.Role = Ptr(RoleMember)
	}
	return p
}

// Validate checks the fields present in the patch.
func (p UserPatch) Validate(creating bool) error {
	if p.Name != nil || creating {
		if p.Name == nil || strings.TrimSpace(*p.Name) == "" {
			return errors.New("name is required")
		}
	}

	if p.Email != nil && *p.Email != "" {
		if _, err := mail.ParseAddress(*p.Email); err != nil {
			return errors.New("email is not a valid address")
		}
	}

	if p.Role != nil && *p.Role != "" {
		switch *p.Role {
		case RoleAdmin, RoleMember, RoleViewer:
		default:
			return errors.New("role must be 'admin', 'member', or 'viewer'")
		}
	}

	return nil
}
