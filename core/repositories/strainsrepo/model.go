package strainsrepo

import (
	"time"

	"github.com/jrazmi/growlog/core/models"
	"github.com/jrazmi/growlog/core/repositories"
	"github.com/jrazmi/growlog/core/scaffolding/fop"
)

// Strain is the main entity type.
type Strain = models.Strain

// CreateStrain contains fields for creating a new strain.
type CreateStrain struct {
	ID            *string    `json:"id,omitempty"`
	Name          string     `json:"name"`
	Type          *string    `json:"type,omitempty"`
	Description   *string    `json:"description,omitempty"`
	ImageURL      *string    `json:"imageUrl,omitempty"`
	FloweringTime *int64     `json:"floweringTime,omitempty"`
	THCContent    *float64   `json:"thcContent,omitempty"`
	CBDContent    *float64   `json:"cbdContent,omitempty"`
	UserID        string     `json:"userId"`
	CreatedAt     *time.Time `json:"createdAt,omitempty"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`
}

// Row returns the create data by field name.
func (c CreateStrain) Row() repositories.Row {
	r := repositories.Row{"name": c.Name, "userId": c.UserID}
	repositories.Put(r, "id", c.ID)
	repositories.Put(r, "type", c.Type)
	repositories.Put(r, "description", c.Description)
	repositories.Put(r, "imageUrl", c.ImageURL)
	repositories.Put(r, "floweringTime", c.FloweringTime)
	repositories.Put(r, "thcContent", c.THCContent)
	repositories.Put(r, "cbdContent", c.CBDContent)
	repositories.Put(r, "createdAt", c.CreatedAt)
	repositories.Put(r, "updatedAt", c.UpdatedAt)
	return r
}

// UpdateStrain contains fields for updating an existing strain.
type UpdateStrain struct {
	Name          *string               `json:"name,omitempty"`
	Type          fop.Optional[string]  `json:"type"`
	Description   fop.Optional[string]  `json:"description"`
	ImageURL      fop.Optional[string]  `json:"imageUrl"`
	FloweringTime fop.Optional[int64]   `json:"floweringTime"`
	THCContent    fop.Optional[float64] `json:"thcContent"`
	CBDContent    fop.Optional[float64] `json:"cbdContent"`
	UserID        *string               `json:"userId,omitempty"`
	UpdatedAt     *time.Time            `json:"updatedAt,omitempty"`
}

// Row returns the update data by field name.
func (u UpdateStrain) Row() repositories.Row {
	r := repositories.Row{}
	repositories.Put(r, "name", u.Name)
	repositories.PutOptional(r, "type", u.Type)
	repositories.PutOptional(r, "description", u.Description)
	repositories.PutOptional(r, "imageUrl", u.ImageURL)
	repositories.PutOptional(r, "floweringTime", u.FloweringTime)
	repositories.PutOptional(r, "thcContent", u.THCContent)
	repositories.PutOptional(r, "cbdContent", u.CBDContent)
	repositories.Put(r, "userId", u.UserID)
	repositories.Put(r, "updatedAt", u.UpdatedAt)
	return r
}
