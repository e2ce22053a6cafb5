package accountsrepo

import "github.com/jrazmi/growlog/core/repositories"

// AccountWhereUnique identifies one account by id, or by provider together
// with the provider's account id.
type AccountWhereUnique struct {
	ID                string `json:"id,omitempty"`
	Provider          string `json:"provider,omitempty"`
	ProviderAccountID string `json:"providerAccountId,omitempty"`
}

// ByID identifies an account by id.
func ByID(id string) AccountWhereUnique { return AccountWhereUnique{ID: id} }

// ByProvider identifies an account by its provider identity.
func ByProvider(provider, accountID string) AccountWhereUnique {
	return AccountWhereUnique{Provider: provider, ProviderAccountID: accountID}
}

// Values returns the criteria by field name.
func (w AccountWhereUnique) Values() map[string]any {
	return repositories.Unique("id", w.ID, "provider", w.Provider, "providerAccountId", w.ProviderAccountID)
}
