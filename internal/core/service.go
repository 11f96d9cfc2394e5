package core

// Service exposes the intake operations over an injected Store.
type Service struct {
	store Store
}

// NewService creates a service backed by the given store.
func NewService(store Store) *Service {
	return &Service{store: store}
}
