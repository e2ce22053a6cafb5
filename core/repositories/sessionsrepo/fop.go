package sessionsrepo

import (
	"time"

	"github.com/jrazmi/growlog/core/repositories"
	"github.com/jrazmi/growlog/core/scaffolding/fop"
)

// SessionWhereUnique identifies one session by id or token.
type SessionWhereUnique struct {
	ID           string `json:"id,omitempty"`
	SessionToken string `json:"sessionToken,omitempty"`
}

// ByID identifies a session by id.
func ByID(id string) SessionWhereUnique { return SessionWhereUnique{ID: id} }

// ByToken identifies a session by its token.
func ByToken(token string) SessionWhereUnique { return SessionWhereUnique{SessionToken: token} }

// Values returns the criteria by field name.
func (w SessionWhereUnique) Values() map[string]any {
	return repositories.Unique("id", w.ID, "sessionToken", w.SessionToken)
}

// ExpiredBy matches sessions whose expiry is not after now.
func ExpiredBy(now time.Time) fop.Predicate {
	return fop.F("expires").Lte(now)
}
