package usersrepo

import "github.com/jrazmi/growlog/core/repositories"

// UserWhereUnique identifies one user by id or email.
type UserWhereUnique struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email,omitempty"`
}

// ByID identifies a user by id.
func ByID(id string) UserWhereUnique { return UserWhereUnique{ID: id} }

// ByEmail identifies a user by email.
func ByEmail(email string) UserWhereUnique { return UserWhereUnique{Email: email} }

// Values returns the criteria by field name.
func (w UserWhereUnique) Values() map[string]any {
	return repositories.Unique("id", w.ID, "email", w.Email)
}
