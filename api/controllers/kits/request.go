package kits

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/rentalkit-backend/api/validators"
	pkgerrors "github.com/angelmondragon/rentalkit-backend/pkg/errors"
)

const maxParamLength = 200

type applySelectionRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"omitempty,min=1,max=99"`
}

func (r applySelectionRequest) quantity() int {
	if r.Quantity == 0 {
		return 1
	}
	return r.Quantity
}

type swapSelectionRequest struct {
	FromProductID string `json:"from_product_id" validate:"required"`
	ToProductID   string `json:"to_product_id" validate:"required"`
}

// pathParam reads and unescapes a route parameter. Slot names are free text
// and may arrive percent-encoded.
func pathParam(r *http.Request, key string) (string, error) {
	raw := chi.URLParam(r, key)
	value, err := url.PathUnescape(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+key)
	}
	value = validators.SanitizeString(value, maxParamLength)
	if value == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, key+" is required")
	}
	return value, nil
}

func decodeApply(r *http.Request) (applySelectionRequest, error) {
	var payload applySelectionRequest
	if err := validators.DecodeJSONBody(r, &payload); err != nil {
		return payload, err
	}
	payload.ProductID = strings.TrimSpace(payload.ProductID)
	return payload, nil
}

func decodeSwap(r *http.Request) (swapSelectionRequest, error) {
	var payload swapSelectionRequest
	if err := validators.DecodeJSONBody(r, &payload); err != nil {
		return payload, err
	}
	payload.FromProductID = strings.TrimSpace(payload.FromProductID)
	payload.ToProductID = strings.TrimSpace(payload.ToProductID)
	return payload, nil
}
