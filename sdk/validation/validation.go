// Package validation holds small conversion helpers shared by the schema
// and the tooling.
package validation

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
