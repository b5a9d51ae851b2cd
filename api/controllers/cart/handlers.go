package cart

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/rentalkit-backend/api/middleware"
	"github.com/angelmondragon/rentalkit-backend/api/responses"
	"github.com/angelmondragon/rentalkit-backend/api/validators"
	cartsvc "github.com/angelmondragon/rentalkit-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/rentalkit-backend/pkg/errors"
	"github.com/angelmondragon/rentalkit-backend/pkg/logger"
)

// CartFetch returns the caller's cart with hydrated products.
func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := cartOwner(w, r, svc, logg)
		if !ok {
			return
		}

		view, err := svc.GetCart(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

// CartReplace overwrites the caller's cart with the submitted item set.
func CartReplace(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := cartOwner(w, r, svc, logg)
		if !ok {
			return
		}

		var payload putCartRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.UpsertCart(r.Context(), owner, payload.snapshot())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

// CartClear empties the caller's cart.
func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := cartOwner(w, r, svc, logg)
		if !ok {
			return
		}

		if err := svc.ClearCart(r.Context(), owner); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// CartAddItem adds a product, or with with_kit the session's configured kit.
func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := cartOwner(w, r, svc, logg)
		if !ok {
			return
		}

		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		added, view, err := svc.AddItem(r.Context(), owner, payload.toInput(middleware.SessionIDFromContext(r.Context())))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, addItemResponse{Added: added, Cart: view})
	}
}

// CartUpdateItem changes an item's quantity and/or rental dates.
func CartUpdateItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := cartOwner(w, r, svc, logg)
		if !ok {
			return
		}
		itemID, ok := itemIDParam(w, r, logg)
		if !ok {
			return
		}

		var payload updateItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.UpdateItem(r.Context(), owner, itemID, cartsvc.UpdateItemInput{
			Quantity: payload.Quantity,
			Dates:    payload.Dates,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

// CartRemoveItem removes an item; removing a kit anchor removes its group.
func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := cartOwner(w, r, svc, logg)
		if !ok {
			return
		}
		itemID, ok := itemIDParam(w, r, logg)
		if !ok {
			return
		}

		view, err := svc.RemoveItem(r.Context(), owner, itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

// CartReopenKit loads a cart kit group back into the session's kit builder.
func CartReopenKit(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := cartOwner(w, r, svc, logg)
		if !ok {
			return
		}
		itemID, ok := itemIDParam(w, r, logg)
		if !ok {
			return
		}

		view, err := svc.ReopenKit(r.Context(), owner, middleware.SessionIDFromContext(r.Context()), itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

// CartUpdateKit commits the session's edited kit configuration back onto the
// cart group it was reopened from.
func CartUpdateKit(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := cartOwner(w, r, svc, logg)
		if !ok {
			return
		}
		itemID, ok := itemIDParam(w, r, logg)
		if !ok {
			return
		}

		group, view, err := svc.UpdateKit(r.Context(), owner, middleware.SessionIDFromContext(r.Context()), itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, kitGroupResponse{Group: group, Cart: view})
	}
}

// CartMerge folds the session's guest cart into the signed-in user's cart.
func CartMerge(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		userID := middleware.UserIDFromContext(r.Context())
		if userID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to merge a guest cart"))
			return
		}
		sessionID := middleware.SessionIDFromContext(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "X-Session-Id header is required"))
			return
		}

		view, err := svc.MergeGuestIntoUser(r.Context(), sessionID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

func cartOwner(w http.ResponseWriter, r *http.Request, svc cartsvc.Service, logg *logger.Logger) (cartsvc.Owner, bool) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
		return cartsvc.Owner{}, false
	}
	owner, err := ownerFromRequest(r)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return cartsvc.Owner{}, false
	}
	return owner, true
}

func itemIDParam(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (string, bool) {
	itemID := strings.TrimSpace(chi.URLParam(r, "itemId"))
	if itemID == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "item id is required"))
		return "", false
	}
	return itemID, true
}
