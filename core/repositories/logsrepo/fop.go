package logsrepo

import (
	"github.com/jrazmi/growlog/core/repositories"
	"github.com/jrazmi/growlog/core/scaffolding/fop"
)

// LogWhereUnique identifies one log entry.
type LogWhereUnique struct {
	ID string `json:"id,omitempty"`
}

// ByID identifies a log entry by id.
func ByID(id string) LogWhereUnique { return LogWhereUnique{ID: id} }

// Values returns the criteria by field name.
func (w LogWhereUnique) Values() map[string]any {
	return repositories.Unique("id", w.ID)
}

// ForPlant matches the entries of one plant.
func ForPlant(plantID string) fop.Predicate {
	return fop.F("plantId").Equals(plantID)
}
