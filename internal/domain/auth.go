package domain

// Identity is the authenticated subject of a single request.
// It is derived from a verified token and never persisted.
type Identity struct {
	ID   string
	Role Role
}
