// Package bootstrap assembles the service from its configuration and handles
// one-time startup work such as seeding the catalog.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
)

type productSeed struct {
	name        string
	description string
	category    catalog.Category
	price       int64
}

var defaultCatalog = []productSeed{
	{"Mechanical Keyboard", "Tenkeyless, brown switches", catalog.CategoryPhysical, 3500},
	{"The Go Programming Language", "Donovan & Kernighan", catalog.CategoryBook, 2900},
	{"Photo Editor Licence", "Single seat, lifetime updates", catalog.CategoryDigital, 4999},
	{"Premium Membership", "Twelve months of free shipping", catalog.CategoryMembership, 9900},
}

// SeedCatalog stores the default products unless a product with the same name
// already exists. It is safe to call on every startup.
func SeedCatalog(ctx context.Context, repo catalog.Repository, ids IDGenerator, logger observability.Logger) ([]catalog.Product, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}
	existing, err := repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: list catalog: %w", err)
	}
	byName := make(map[string]catalog.Product, len(existing))
	for _, p := range existing {
		byName[p.Name] = p
	}

	out := make([]catalog.Product, 0, len(defaultCatalog))
	var errs []error
	for _, seed := range defaultCatalog {
		if p, ok := byName[seed.name]; ok {
			out = append(out, p)
			continue
		}
		p, err := catalog.NewProduct(ids.NewID(), seed.name, seed.description, seed.category, seed.price)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := repo.Save(ctx, p); err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, p)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("bootstrap: seed catalog: %w", err)
	}

	logger.Info("catalog_seeded", observability.F("products", len(out)))
	return out, nil
}
