package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/rentalkit-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/rentalkit-backend/pkg/errors"
	"gorm.io/gorm"
)

// Repository serves the catalog from the local database.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) GetProduct(ctx context.Context, id string) (*Product, error) {
	return r.findProduct(ctx, "id = ?", strings.TrimSpace(id))
}

func (r *Repository) GetProductBySlug(ctx context.Context, slug string) (*Product, error) {
	return r.findProduct(ctx, "slug = ?", strings.TrimSpace(slug))
}

func (r *Repository) findProduct(ctx context.Context, query string, key string) (*Product, error) {
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	var row models.Product
	if err := r.db.WithContext(ctx).Where(query, key).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, productNotFound(key)
		}
		return nil, fetchFailed(err, "load product")
	}
	product := productFromModel(row)
	return &product, nil
}

func (r *Repository) ListProductsByCategory(ctx context.Context, categoryID string) ([]Product, error) {
	var rows []models.Product
	if err := r.db.WithContext(ctx).
		Where("category_id = ?", categoryID).
		Order("name ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, fetchFailed(err, "list category products")
	}
	products := make([]Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, productFromModel(row))
	}
	return products, nil
}

func (r *Repository) FindKitTemplateByMainProduct(ctx context.Context, productID string) (*KitTemplate, error) {
	var rows []models.KitTemplate
	if err := r.db.WithContext(ctx).
		Where("main_product_id = ?", productID).
		Order("created_at ASC").
		Order("id ASC").
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, fetchFailed(err, "find kit template")
	}
	if len(rows) == 0 {
		return nil, nil
	}
	tpl := templateFromModel(rows[0])
	return &tpl, nil
}

func (r *Repository) ListKitItems(ctx context.Context, templateID string) ([]KitItem, error) {
	var rows []models.KitItem
	if err := r.db.WithContext(ctx).
		Preload("Product").
		Where("template_id = ?", templateID).
		Order("display_order ASC").
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, fetchFailed(err, "list kit items")
	}
	items := make([]KitItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, kitItemFromModel(row))
	}
	return items, nil
}

func productFromModel(m models.Product) Product {
	return Product{
		ID:          m.ID,
		Name:        m.Name,
		Slug:        m.Slug,
		CategoryID:  deref(m.CategoryID),
		IsAvailable: m.IsAvailable,
		ImageURL:    m.ImageURL,
	}
}

func templateFromModel(m models.KitTemplate) KitTemplate {
	return KitTemplate{
		ID:                m.ID,
		Name:              m.Name,
		MainProductID:     deref(m.MainProductID),
		BasePriceModifier: m.BasePriceModifier,
	}
}

func kitItemFromModel(m models.KitItem) KitItem {
	item := KitItem{
		ID:                  m.ID,
		TemplateID:          m.TemplateID,
		ProductID:           m.ProductID,
		SlotName:            m.SlotName,
		IsMandatory:         m.IsMandatory,
		IsRecommended:       m.IsRecommended,
		DefaultQuantity:     normalizeQuantity(m.DefaultQuantity),
		SwappableCategoryID: deref(m.SwappableCategoryID),
		AllowMultiple:       m.AllowMultiple,
		DisplayOrder:        m.DisplayOrder,
	}
	if m.Product != nil {
		p := productFromModel(*m.Product)
		item.Product = &p
	}
	return item
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
