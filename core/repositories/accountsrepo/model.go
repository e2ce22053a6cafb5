package accountsrepo

import (
	"github.com/jrazmi/growlog/core/models"
	"github.com/jrazmi/growlog/core/repositories"
	"github.com/jrazmi/growlog/core/scaffolding/fop"
)

// Account is the main entity type.
type Account = models.Account

// CreateAccount contains fields for creating a new account.
type CreateAccount struct {
	ID                *string `json:"id,omitempty"`
	UserID            string  `json:"userId"`
	Type              string  `json:"type"`
	Provider          string  `json:"provider"`
	ProviderAccountID string  `json:"providerAccountId"`
	RefreshToken      *string `json:"refresh_token,omitempty"`
	AccessToken       *string `json:"access_token,omitempty"`
	ExpiresAt         *int64  `json:"expires_at,omitempty"`
	TokenType         *string `json:"token_type,omitempty"`
	Scope             *string `json:"scope,omitempty"`
	IDToken           *string `json:"id_token,omitempty"`
	SessionState      *string `json:"session_state,omitempty"`
}

// Row returns the create data by field name.
func (c CreateAccount) Row() repositories.Row {
	r := repositories.Row{
		"userId":            c.UserID,
		"type":              c.Type,
		"provider":          c.Provider,
		"providerAccountId": c.ProviderAccountID,
	}
	repositories.Put(r, "id", c.ID)
	repositories.Put(r, "refresh_token", c.RefreshToken)
	repositories.Put(r, "access_token", c.AccessToken)
	repositories.Put(r, "expires_at", c.ExpiresAt)
	repositories.Put(r, "token_type", c.TokenType)
	repositories.Put(r, "scope", c.Scope)
	repositories.Put(r, "id_token", c.IDToken)
	repositories.Put(r, "session_state", c.SessionState)
	return r
}

// UpdateAccount contains fields for updating an existing account, typically
// a token refresh.
type UpdateAccount struct {
	UserID            *string              `json:"userId,omitempty"`
	Type              *string              `json:"type,omitempty"`
	Provider          *string              `json:"provider,omitempty"`
	ProviderAccountID *string              `json:"providerAccountId,omitempty"`
	RefreshToken      fop.Optional[string] `json:"refresh_token"`
	AccessToken       fop.Optional[string] `json:"access_token"`
	ExpiresAt         fop.Optional[int64]  `json:"expires_at"`
	TokenType         fop.Optional[string] `json:"token_type"`
	Scope             fop.Optional[string] `json:"scope"`
	IDToken           fop.Optional[string] `json:"id_token"`
	SessionState      fop.Optional[string] `json:"session_state"`
}

// Row returns the update data by field name.
func (u UpdateAccount) Row() repositories.Row {
	r := repositories.Row{}
	repositories.Put(r, "userId", u.UserID)
	repositories.Put(r, "type", u.Type)
	repositories.Put(r, "provider", u.Provider)
	repositories.Put(r, "providerAccountId", u.ProviderAccountID)
	repositories.PutOptional(r, "refresh_token", u.RefreshToken)
	repositories.PutOptional(r, "access_token", u.AccessToken)
	repositories.PutOptional(r, "expires_at", u.ExpiresAt)
	repositories.PutOptional(r, "token_type", u.TokenType)
	repositories.PutOptional(r, "scope", u.Scope)
	repositories.PutOptional(r, "id_token", u.IDToken)
	repositories.PutOptional(r, "session_state", u.SessionState)
	return r
}
