package plantsrepo

import (
	"time"

	"github.com/jrazmi/growlog/core/models"
	"github.com/jrazmi/growlog/core/repositories"
	"github.com/jrazmi/growlog/core/scaffolding/fop"
	"github.com/jrazmi/growlog/core/schema"
)

// Plant is the main entity type.
type Plant = models.Plant

// CreatePlant contains fields for creating a new plant. TagIDs connects
// existing tags; it is not accepted by CreateMany.
type CreatePlant struct {
	ID          *string       `json:"id,omitempty"`
	Name        string        `json:"name"`
	StrainID    *string       `json:"strainId,omitempty"`
	Stage       *schema.Stage `json:"stage,omitempty"`
	Location    *string       `json:"location,omitempty"`
	StartDate   *time.Time    `json:"startDate,omitempty"`
	HarvestDate *time.Time    `json:"harvestDate,omitempty"`
	Notes       *string       `json:"notes,omitempty"`
	ImageURL    *string       `json:"imageUrl,omitempty"`
	UserID      string        `json:"userId"`
	CreatedAt   *time.Time    `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time    `json:"updatedAt,omitempty"`
	TagIDs      []string      `json:"tagIds,omitempty"`
}

// Row returns the create data by field name.
func (c CreatePlant) Row() repositories.Row {
	r := repositories.Row{"name": c.Name, "userId": c.UserID}
	repositories.Put(r, "id", c.ID)
	repositories.Put(r, "strainId", c.StrainID)
	repositories.Put(r, "stage", c.Stage)
	repositories.Put(r, "location", c.Location)
	repositories.Put(r, "startDate", c.StartDate)
	repositories.Put(r, "harvestDate", c.HarvestDate)
	repositories.Put(r, "notes", c.Notes)
	repositories.Put(r, "imageUrl", c.ImageURL)
	repositories.Put(r, "createdAt", c.CreatedAt)
	repositories.Put(r, "updatedAt", c.UpdatedAt)
	if len(c.TagIDs) > 0 {
		r["tags"] = fop.LinkSet{Connect: c.TagIDs}
	}
	return r
}

// UpdatePlant contains fields for updating an existing plant. Tags changes
// the linked tags.
type UpdatePlant struct {
	Name        *string                 `json:"name,omitempty"`
	StrainID    fop.Optional[string]    `json:"strainId"`
	Stage       *schema.Stage           `json:"stage,omitempty"`
	Location    fop.Optional[string]    `json:"location"`
	StartDate   *time.Time              `json:"startDate,omitempty"`
	HarvestDate fop.Optional[time.Time] `json:"harvestDate"`
	Notes       fop.Optional[string]    `json:"notes"`
	ImageURL    fop.Optional[string]    `json:"imageUrl"`
	UserID      *string                 `json:"userId,omitempty"`
	UpdatedAt   *time.Time              `json:"updatedAt,omitempty"`
	Tags        *fop.LinkSet            `json:"tags,omitempty"`
}

// Row returns the update data by field name.
func (u UpdatePlant) Row() repositories.Row {
	r := repositories.Row{}
	repositories.Put(r, "name", u.Name)
	repositories.PutOptional(r, "strainId", u.StrainID)
	repositories.Put(r, "stage", u.Stage)
	repositories.PutOptional(r, "location", u.Location)
	repositories.Put(r, "startDate", u.StartDate)
	repositories.PutOptional(r, "harvestDate", u.HarvestDate)
	repositories.PutOptional(r, "notes", u.Notes)
	repositories.PutOptional(r, "imageUrl", u.ImageURL)
	repositories.Put(r, "userId", u.UserID)
	repositories.Put(r, "updatedAt", u.UpdatedAt)
	repositories.PutLinks(r, "tags", u.Tags)
	return r
}
