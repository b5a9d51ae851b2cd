package cart

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/rentalkit-backend/api/middleware"
	cartsvc "github.com/angelmondragon/rentalkit-backend/internal/cart"
	"github.com/angelmondragon/rentalkit-backend/internal/catalog"
	pkgerrors "github.com/angelmondragon/rentalkit-backend/pkg/errors"
)

// putCartRequest is the full-overwrite body sent by the cart synchronizer.
type putCartRequest struct {
	Items       []cartsvc.Line     `json:"items" validate:"dive"`
	GlobalDates *cartsvc.DateRange `json:"global_dates"`
}

func (p putCartRequest) snapshot() cartsvc.Snapshot {
	items := make([]cartsvc.Item, 0, len(p.Items))
	for _, line := range p.Items {
		items = append(items, line.Item(catalog.Product{ID: strings.TrimSpace(line.ProductID)}))
	}
	return cartsvc.Snapshot{Items: items, GlobalDates: p.GlobalDates}
}

type addItemRequest struct {
	ProductID string             `json:"product_id" validate:"required"`
	Quantity  int                `json:"quantity" validate:"omitempty,min=1,max=99"`
	Dates     *cartsvc.DateRange `json:"dates"`
	WithKit   bool               `json:"with_kit"`
}

func (p addItemRequest) toInput(sessionID string) cartsvc.AddItemInput {
	input := cartsvc.AddItemInput{
		ProductID: strings.TrimSpace(p.ProductID),
		Quantity:  p.Quantity,
		WithKit:   p.WithKit,
		SessionID: sessionID,
	}
	if input.Quantity == 0 {
		input.Quantity = 1
	}
	if p.Dates != nil {
		input.Dates = *p.Dates
	}
	return input
}

type updateItemRequest struct {
	Quantity *int               `json:"quantity" validate:"omitempty,min=0,max=99"`
	Dates    *cartsvc.DateRange `json:"dates"`
}

type addItemResponse struct {
	Added []cartsvc.Item `json:"added"`
	Cart  *cartsvc.View  `json:"cart"`
}

type kitGroupResponse struct {
	Group []cartsvc.Item `json:"group"`
	Cart  *cartsvc.View  `json:"cart"`
}

// ownerFromRequest addresses the signed-in user's cart, or the guest
// session's cart for anonymous shoppers.
func ownerFromRequest(r *http.Request) (cartsvc.Owner, error) {
	ctx := r.Context()
	if userID := middleware.UserIDFromContext(ctx); userID != "" {
		return cartsvc.UserOwner(userID), nil
	}
	if sessionID := middleware.SessionIDFromContext(ctx); sessionID != "" {
		return cartsvc.GuestOwner(sessionID), nil
	}
	return cartsvc.Owner{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "a user or session id is required")
}
