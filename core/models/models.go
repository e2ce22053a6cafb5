// Package models holds the typed records of the grow journal. JSON names
// match the schema field names so rows decode into these structs directly.
// Fields left out by select or omit decode to their zero value; relation
// fields are filled only when included.
package models

import (
	"encoding/json"
	"time"

	"github.com/jrazmi/growlog/core/schema"
)

// Counts holds related-row counts requested through _count, keyed by
// relation name.
type Counts map[string]int64

type User struct {
	ID            string              `json:"id"`
	Name          *string             `json:"name"`
	Email         string              `json:"email"`
	EmailVerified *time.Time          `json:"emailVerified"`
	Image         *string             `json:"image"`
	Role          schema.Role         `json:"role"`
	Permissions   []schema.Permission `json:"permissions"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`

	Plants   []Plant   `json:"plants,omitempty"`
	Logs     []Log     `json:"logs,omitempty"`
	Strains  []Strain  `json:"strains,omitempty"`
	Accounts []Account `json:"accounts,omitempty"`
	Sessions []Session `json:"sessions,omitempty"`
	Count    Counts    `json:"_count,omitempty"`
}

// HasPermission reports whether the user was granted p. Admins hold every
// permission.
func (u User) HasPermission(p schema.Permission) bool {
	if u.Role == schema.RoleAdmin {
		return true
	}
	for _, have := range u.Permissions {
		if have == p {
			return true
		}
	}
	return false
}

// Account links a user to an external identity provider.
type Account struct {
	ID                string  `json:"id"`
	UserID            string  `json:"userId"`
	Type              string  `json:"type"`
	Provider          string  `json:"provider"`
	ProviderAccountID string  `json:"providerAccountId"`
	RefreshToken      *string `json:"refresh_token"`
	AccessToken       *string `json:"access_token"`
	ExpiresAt         *int64  `json:"expires_at"`
	TokenType         *string `json:"token_type"`
	Scope             *string `json:"scope"`
	IDToken           *string `json:"id_token"`
	SessionState      *string `json:"session_state"`

	User *User `json:"user,omitempty"`
}

// Session is a login session identified by its token.
type Session struct {
	ID           string    `json:"id"`
	SessionToken string    `json:"sessionToken"`
	UserID       string    `json:"userId"`
	Expires      time.Time `json:"expires"`

	User *User `json:"user,omitempty"`
}

// Expired reports whether the session ended before now.
func (s Session) Expired(now time.Time) bool {
	return !s.Expires.After(now)
}

type Plant struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	StrainID    *string      `json:"strainId"`
	Stage       schema.Stage `json:"stage"`
	Location    *string      `json:"location"`
	StartDate   time.Time    `json:"startDate"`
	HarvestDate *time.Time   `json:"harvestDate"`
	Notes       *string      `json:"notes"`
	ImageURL    *string      `json:"imageUrl"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	UserID      string       `json:"userId"`

	Strain *Strain `json:"strain,omitempty"`
	User   *User   `json:"user,omitempty"`
	Logs   []Log   `json:"logs,omitempty"`
	Tags   []Tag   `json:"tags,omitempty"`
	Count  Counts  `json:"_count,omitempty"`
}

type Strain struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Type          *string   `json:"type"`
	Description   *string   `json:"description"`
	ImageURL      *string   `json:"imageUrl"`
	FloweringTime *int64    `json:"floweringTime"`
	THCContent    *float64  `json:"thcContent"`
	CBDContent    *float64  `json:"cbdContent"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	UserID        string    `json:"userId"`

	Plants []Plant `json:"plants,omitempty"`
	User   *User   `json:"user,omitempty"`
	Count  Counts  `json:"_count,omitempty"`
}

// Log is one journal entry for a plant.
type Log struct {
	ID          string          `json:"id"`
	Date        time.Time       `json:"date"`
	Type        schema.LogType  `json:"type"`
	Stage       schema.Stage    `json:"stage"`
	Temperature *float64        `json:"temperature"`
	Humidity    *float64        `json:"humidity"`
	PH          *float64        `json:"ph"`
	EC          *float64        `json:"ec"`
	PAR         *float64        `json:"par"`
	WaterAmount *float64        `json:"waterAmount"`
	Nutrients   []string        `json:"nutrients"`
	Notes       *string         `json:"notes"`
	ImageURL    *string         `json:"imageUrl"`
	PlantID     string          `json:"plantId"`
	UserID      string          `json:"userId"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	Data        json.RawMessage `json:"data"`

	Plant *Plant `json:"plant,omitempty"`
	User  *User  `json:"user,omitempty"`
}

type Tag struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     *string   `json:"color"`
	CreatedAt time.Time `json:"createdAt"`

	Plants []Plant `json:"plants,omitempty"`
	Count  Counts  `json:"_count,omitempty"`
}
