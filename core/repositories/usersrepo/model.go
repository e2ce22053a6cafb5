package usersrepo

import (
	"time"

	"github.com/jrazmi/growlog/core/models"
	"github.com/jrazmi/growlog/core/repositories"
	"github.com/jrazmi/growlog/core/scaffolding/fop"
	"github.com/jrazmi/growlog/core/schema"
)

// User is the main entity type.
type User = models.User

// CreateUser contains fields for creating a new user. Nil fields take their
// default.
type CreateUser struct {
	ID            *string             `json:"id,omitempty"`
	Name          *string             `json:"name,omitempty"`
	Email         string              `json:"email"`
	EmailVerified *time.Time          `json:"emailVerified,omitempty"`
	Image         *string             `json:"image,omitempty"`
	Role          *schema.Role        `json:"role,omitempty"`
	Permissions   []schema.Permission `json:"permissions,omitempty"`
	CreatedAt     *time.Time          `json:"createdAt,omitempty"`
	UpdatedAt     *time.Time          `json:"updatedAt,omitempty"`
}

// Row returns the create data by field name.
func (c CreateUser) Row() repositories.Row {
	r := repositories.Row{"email": c.Email}
	repositories.Put(r, "id", c.ID)
	repositories.Put(r, "name", c.Name)
	repositories.Put(r, "emailVerified", c.EmailVerified)
	repositories.Put(r, "image", c.Image)
	repositories.Put(r, "role", c.Role)
	if c.Permissions != nil {
		r["permissions"] = c.Permissions
	}
	repositories.Put(r, "createdAt", c.CreatedAt)
	repositories.Put(r, "updatedAt", c.UpdatedAt)
	return r
}

// UpdateUser contains fields for updating an existing user. Unset fields are
// left untouched; fop.Null clears a nullable field.
type UpdateUser struct {
	Name          fop.Optional[string]    `json:"name"`
	Email         *string                 `json:"email,omitempty"`
	EmailVerified fop.Optional[time.Time] `json:"emailVerified"`
	Image         fop.Optional[string]    `json:"image"`
	Role          *schema.Role            `json:"role,omitempty"`
	Permissions   *[]schema.Permission    `json:"permissions,omitempty"`
	UpdatedAt     *time.Time              `json:"updatedAt,omitempty"`
}

// Row returns the update data by field name.
func (u UpdateUser) Row() repositories.Row {
	r := repositories.Row{}
	repositories.PutOptional(r, "name", u.Name)
	repositories.Put(r, "email", u.Email)
	repositories.PutOptional(r, "emailVerified", u.EmailVerified)
	repositories.PutOptional(r, "image", u.Image)
	repositories.Put(r, "role", u.Role)
	repositories.Put(r, "permissions", u.Permissions)
	repositories.Put(r, "updatedAt", u.UpdatedAt)
	return r
}
