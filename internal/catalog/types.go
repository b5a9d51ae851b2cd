package catalog

import "github.com/shopspring/decimal"

// Product is a rentable catalog entry as seen by the kit and cart core.
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	CategoryID  string `json:"category_id,omitempty"`
	IsAvailable bool   `json:"is_available"`
	ImageURL    string `json:"image_url,omitempty"`
}

// Category groups products; kit items reference one as their swap pool.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// KitTemplate is the blueprint triggered by a main product. BasePriceModifier
// is carried through untouched; nothing prices kits.
type KitTemplate struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	MainProductID     string   `json:"main_product_id"`
	BasePriceModifier *decimal.Decimal `json:"base_price_modifier,omitempty"`
}

// KitItem places a product into a named slot of a template.
type KitItem struct {
	ID                  string   `json:"id"`
	TemplateID          string   `json:"template_id"`
	ProductID           string   `json:"product_id"`
	SlotName            string   `json:"slot_name"`
	IsMandatory         bool     `json:"is_mandatory"`
	IsRecommended       bool     `json:"is_recommended"`
	DefaultQuantity     int      `json:"default_quantity"`
	SwappableCategoryID string   `json:"swappable_category_id,omitempty"`
	AllowMultiple       bool     `json:"allow_multiple"`
	DisplayOrder        int      `json:"display_order"`
	Product             *Product `json:"product,omitempty"`
}

// normalizeQuantity keeps default quantities positive.
func normalizeQuantity(qty int) int {
	if qty < 1 {
		return 1
	}
	return qty
}
