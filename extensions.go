package vfc

// ReadOnlyStore is implemented by stores that can tell up front that writes
// will fail. Use type assertion to check: if ro, ok := s.(vfc.ReadOnlyStore); ok { ... }
type ReadOnlyStore interface {
	ReadOnly() bool
}

// NamedStore is implemented by stores that are addressed by a path or URL.
type NamedStore interface {
	// Name returns the location the store was opened from, unchanged.
	Name() string
}

// IsReadOnly reports whether s declares itself read-only.
func IsReadOnly(s Store) bool {
	ro, ok := s.(ReadOnlyStore)
	return ok && ro.ReadOnly()
}

// StoreName returns the location of s, or "" for anonymous stores.
func StoreName(s Store) string {
	if n, ok := s.(NamedStore); ok {
		return n.Name()
	}
	return ""
}
