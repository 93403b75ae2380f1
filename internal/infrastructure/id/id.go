package id

import "github.com/google/uuid"

// Generator issues unique identifiers for orders, invoices and products.
type Generator interface {
	NewID() string
}

type UUIDGenerator struct{}

func NewUUIDGenerator() UUIDGenerator { return UUIDGenerator{} }

// NewID returns a random (version 4) UUID string.
func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}
