package plantsrepo

import "github.com/jrazmi/growlog/core/repositories"

// PlantWhereUnique identifies one plant.
type PlantWhereUnique struct {
	ID string `json:"id,omitempty"`
}

// ByID identifies a plant by id.
func ByID(id string) PlantWhereUnique { return PlantWhereUnique{ID: id} }

// Values returns the criteria by field name.
func (w PlantWhereUnique) Values() map[string]any {
	return repositories.Unique("id", w.ID)
}
