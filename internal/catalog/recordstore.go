package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/angelmondragon/rentalkit-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/rentalkit-backend/pkg/errors"
	"github.com/angelmondragon/rentalkit-backend/pkg/recordstore"
	"github.com/shopspring/decimal"
)

type recordReader interface {
	FullList(ctx context.Context, collection string, params recordstore.ListParams) ([]recordstore.Record, error)
	First(ctx context.Context, collection string, params recordstore.ListParams) (recordstore.Record, error)
	GetOne(ctx context.Context, collection, id, expand string) (recordstore.Record, error)
}

// RecordStoreSource serves the catalog from the hosted record store, projecting
// loosely typed records into catalog types.
type RecordStoreSource struct {
	client      recordReader
	collections config.CollectionNames
	filesURL    string
}

// NewRecordStoreSource wires the source to a record store client.
func NewRecordStoreSource(client recordReader, cfg config.RecordStoreConfig) (*RecordStoreSource, error) {
	if client == nil {
		return nil, fmt.Errorf("record store client required")
	}
	cols := cfg.Collection
	if cols.Products == "" || cols.KitTemplates == "" || cols.KitItems == "" {
		return nil, fmt.Errorf("record store collection names required")
	}
	filesURL := strings.TrimRight(cfg.FilesURL, "/")
	if filesURL == "" && cfg.BaseURL != "" {
		filesURL = strings.TrimRight(cfg.BaseURL, "/") + "/api/files"
	}
	return &RecordStoreSource{client: client, collections: cols, filesURL: filesURL}, nil
}

func (s *RecordStoreSource) GetProduct(ctx context.Context, id string) (*Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	rec, err := s.client.GetOne(ctx, s.collections.Products, id, "")
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
			return nil, productNotFound(id)
		}
		return nil, fetchFailed(err, "load product")
	}
	product, err := s.projectProduct(rec)
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *RecordStoreSource) GetProductBySlug(ctx context.Context, slug string) (*Product, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product slug is required")
	}
	rec, err := s.client.First(ctx, s.collections.Products, recordstore.ListParams{Filter: filterEq("slug", slug)})
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
			return nil, productNotFound(slug)
		}
		return nil, fetchFailed(err, "load product by slug")
	}
	product, err := s.projectProduct(rec)
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *RecordStoreSource) ListProductsByCategory(ctx context.Context, categoryID string) ([]Product, error) {
	records, err := s.client.FullList(ctx, s.collections.Products, recordstore.ListParams{
		Filter: filterEq("category", categoryID),
		Sort:   "name,id",
	})
	if err != nil {
		return nil, fetchFailed(err, "list category products")
	}
	products := make([]Product, 0, len(records))
	for _, rec := range records {
		product, err := s.projectProduct(rec)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, nil
}

func (s *RecordStoreSource) FindKitTemplateByMainProduct(ctx context.Context, productID string) (*KitTemplate, error) {
	rec, err := s.client.First(ctx, s.collections.KitTemplates, recordstore.ListParams{
		Filter: filterEq("main_product_id", productID),
		Sort:   "created,id",
	})
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
			return nil, nil
		}
		return nil, fetchFailed(err, "find kit template")
	}
	tpl, err := projectTemplate(rec)
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (s *RecordStoreSource) ListKitItems(ctx context.Context, templateID string) ([]KitItem, error) {
	records, err := s.client.FullList(ctx, s.collections.KitItems, recordstore.ListParams{
		Filter: filterEq("template_id", templateID),
		Expand: "product_id",
		Sort:   "display_order,created,id",
	})
	if err != nil {
		return nil, fetchFailed(err, "list kit items")
	}
	items := make([]KitItem, 0, len(records))
	for _, rec := range records {
		item, err := s.projectKitItem(rec)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *RecordStoreSource) projectProduct(rec recordstore.Record) (Product, error) {
	p := Product{
		ID:         rec.ID(),
		Name:       rec.FirstString("name_en", "name"),
		Slug:       rec.String("slug"),
		CategoryID: rec.String("category"),
		ImageURL:   rec.String("image_url"),
	}
	if err := requireFields(s.collections.Products, rec, map[string]string{"id": p.ID, "name": p.Name}); err != nil {
		return Product{}, err
	}
	// availability defaults to true when the field is absent
	p.IsAvailable = true
	if v, ok := rec.Bool("is_available"); ok {
		p.IsAvailable = v
	}
	if p.ImageURL == "" {
		if file := rec.String("image"); file != "" && s.filesURL != "" {
			p.ImageURL = fmt.Sprintf("%s/%s/%s/%s", s.filesURL, s.collections.Products, p.ID, file)
		}
	}
	return p, nil
}

func projectTemplate(rec recordstore.Record) (KitTemplate, error) {
	tpl := KitTemplate{
		ID:            rec.ID(),
		Name:          rec.String("name"),
		MainProductID: rec.String("main_product_id"),
	}
	if err := requireFields("kit template", rec, map[string]string{"id": tpl.ID, "main_product_id": tpl.MainProductID}); err != nil {
		return KitTemplate{}, err
	}
	if v, ok := rec.Float("base_price_modifier"); ok {
		modifier := decimal.NewFromFloat(v).Round(2)
		tpl.BasePriceModifier = &modifier
	}
	return tpl, nil
}

func (s *RecordStoreSource) projectKitItem(rec recordstore.Record) (KitItem, error) {
	item := KitItem{
		ID:                  rec.ID(),
		TemplateID:          rec.String("template_id"),
		ProductID:           rec.String("product_id"),
		SlotName:            strings.TrimSpace(rec.String("slot_name")),
		SwappableCategoryID: rec.String("swappable_category_id"),
	}
	if err := requireFields("kit item", rec, map[string]string{
		"id":          item.ID,
		"template_id": item.TemplateID,
		"product_id":  item.ProductID,
		"slot_name":   item.SlotName,
	}); err != nil {
		return KitItem{}, err
	}
	item.IsMandatory, _ = rec.Bool("is_mandatory")
	item.IsRecommended, _ = rec.Bool("is_recommended")
	item.AllowMultiple, _ = rec.Bool("allow_multiple")
	item.DisplayOrder, _ = rec.Int("display_order")
	qty, _ := rec.Int("default_quantity")
	item.DefaultQuantity = normalizeQuantity(qty)

	if expanded, ok := rec.Expanded("product_id"); ok {
		product, err := s.projectProduct(expanded)
		if err != nil {
			return KitItem{}, err
		}
		item.Product = &product
	}
	return item, nil
}

func requireFields(kind string, rec recordstore.Record, fields map[string]string) error {
	var missing []string
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("malformed %s record %q", kind, rec.ID())).
		WithDetails(map[string]any{"missing_fields": missing})
}

// filterEq renders `field="value"` with the value quoted for the store's filter syntax.
func filterEq(field, value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	return fmt.Sprintf(`%s="%s"`, field, escaped)
}
