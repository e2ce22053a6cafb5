package tagsrepo

import (
	"time"

	"github.com/jrazmi/growlog/core/models"
	"github.com/jrazmi/growlog/core/repositories"
	"github.com/jrazmi/growlog/core/scaffolding/fop"
)

// Tag is the main entity type.
type Tag = models.Tag

// CreateTag contains fields for creating a new tag.
type CreateTag struct {
	ID        *string    `json:"id,omitempty"`
	Name      string     `json:"name"`
	Color     *string    `json:"color,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	PlantIDs  []string   `json:"plantIds,omitempty"`
}

// Row returns the create data by field name.
func (c CreateTag) Row() repositories.Row {
	r := repositories.Row{"name": c.Name}
	repositories.Put(r, "id", c.ID)
	repositories.Put(r, "color", c.Color)
	repositories.Put(r, "createdAt", c.CreatedAt)
	if len(c.PlantIDs) > 0 {
		r["plants"] = fop.LinkSet{Connect: c.PlantIDs}
	}
	return r
}

// UpdateTag contains fields for updating an existing tag.
type UpdateTag struct {
	Name   *string              `json:"name,omitempty"`
	Color  fop.Optional[string] `json:"color"`
	Plants *fop.LinkSet         `json:"plants,omitempty"`
}

// Row returns the update data by field name.
func (u UpdateTag) Row() repositories.Row {
	r := repositories.Row{}
	repositories.Put(r, "name", u.Name)
	repositories.PutOptional(r, "color", u.Color)
	repositories.PutLinks(r, "plants", u.Plants)
	return r
}
