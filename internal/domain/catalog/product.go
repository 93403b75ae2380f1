package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/validation"
)

var (
	ErrNotFound        = errors.New("catalog: product not found")
	ErrInvalidProduct  = errors.New("catalog: invalid product")
	ErrUnknownCategory = errors.New("catalog: unknown category")
)

type Category string

const (
	CategoryPhysical   Category = "physical"
	CategoryBook       Category = "book"
	CategoryDigital    Category = "digital"
	CategoryMembership Category = "membership"
)

var categories = []Category{CategoryPhysical, CategoryBook, CategoryDigital, CategoryMembership}

func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range categories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

func (c Category) String() string { return string(c) }

// Product is a catalog entry. Orders copy it into their line items, so a
// Product is never mutated after it is created.
type Product struct {
	ID          string   `json:"id" validate:"required"`
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description"`
	Category    Category `json:"category" validate:"oneof=physical book digital membership"`
	// Price is the unit price in minor currency units.
	Price  int64 `json:"price" validate:"gte=0"`
	Active bool  `json:"active"`
}

func NewProduct(id, name, description string, category Category, price int64) (Product, error) {
	p := Product{
		ID:          id,
		Name:        name,
		Description: description,
		Category:    category,
		Price:       price,
		Active:      true,
	}
	if err := validation.Struct(p); err != nil {
		return Product{}, fmt.Errorf("%w: %w", ErrInvalidProduct, err)
	}
	return p, nil
}

// Deactivated returns a copy of p that can no longer be added to orders.
func (p Product) Deactivated() Product {
	p.Active = false
	return p
}
