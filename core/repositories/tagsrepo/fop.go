package tagsrepo

import "github.com/jrazmi/growlog/core/repositories"

// TagWhereUnique identifies one tag by id or name.
type TagWhereUnique struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// ByID identifies a tag by id.
func ByID(id string) TagWhereUnique { return TagWhereUnique{ID: id} }

// ByName identifies a tag by name.
func ByName(name string) TagWhereUnique { return TagWhereUnique{Name: name} }

// Values returns the criteria by field name.
func (w TagWhereUnique) Values() map[string]any {
	return repositories.Unique("id", w.ID, "name", w.Name)
}
