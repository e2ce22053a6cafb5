package sessionsrepo

import (
	"time"

	"github.com/jrazmi/growlog/core/models"
	"github.com/jrazmi/growlog/core/repositories"
)

// Session is the main entity type.
type Session = models.Session

// CreateSession contains fields for creating a new session.
type CreateSession struct {
	ID           *string   `json:"id,omitempty"`
	SessionToken string    `json:"sessionToken"`
	UserID       string    `json:"userId"`
	Expires      time.Time `json:"expires"`
}

// Row returns the create data by field name.
func (c CreateSession) Row() repositories.Row {
	r := repositories.Row{
		"sessionToken": c.SessionToken,
		"userId":       c.UserID,
		"expires":      c.Expires,
	}
	repositories.Put(r, "id", c.ID)
	return r
}

// UpdateSession contains fields for updating an existing session.
type UpdateSession struct {
	SessionToken *string    `json:"sessionToken,omitempty"`
	UserID       *string    `json:"userId,omitempty"`
	Expires      *time.Time `json:"expires,omitempty"`
}

// Row returns the update data by field name.
func (u UpdateSession) Row() repositories.Row {
	r := repositories.Row{}
	repositories.Put(r, "sessionToken", u.SessionToken)
	repositories.Put(r, "userId", u.UserID)
	repositories.Put(r, "expires", u.Expires)
	return r
}
