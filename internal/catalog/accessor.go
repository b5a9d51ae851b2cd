package catalog

import (
	"context"
	"fmt"

	pkgerrors "github.com/angelmondragon/rentalkit-backend/pkg/errors"
)

// Accessor is the read-only catalog surface used by the kit resolver and the
// cart. Missing records yield NOT_FOUND; store failures yield the retryable
// TRANSIENT_FETCH_ERROR.
type Accessor interface {
	GetProduct(ctx context.Context, id string) (*Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*Product, error)
	ListProductsByCategory(ctx context.Context, categoryID string) ([]Product, error)
	// FindKitTemplateByMainProduct returns nil, nil when the product triggers no kit.
	FindKitTemplateByMainProduct(ctx context.Context, productID string) (*KitTemplate, error)
	// ListKitItems returns the template's items with their products expanded,
	// ordered by display order then creation.
	ListKitItems(ctx context.Context, templateID string) ([]KitItem, error)
}

func productNotFound(key string) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", key))
}

func fetchFailed(err error, what string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeTransientFetch, err, what)
}
