package strainsrepo

import "github.com/jrazmi/growlog/core/repositories"

// StrainWhereUnique identifies one strain.
type StrainWhereUnique struct {
	ID string `json:"id,omitempty"`
}

// ByID identifies a strain by id.
func ByID(id string) StrainWhereUnique { return StrainWhereUnique{ID: id} }

// Values returns the criteria by field name.
func (w StrainWhereUnique) Values() map[string]any {
	return repositories.Unique("id", w.ID)
}
