package kits

import (
	"net/http"

	"github.com/angelmondragon/rentalkit-backend/api/middleware"
	"github.com/angelmondragon/rentalkit-backend/api/responses"
	kitsvc "github.com/angelmondragon/rentalkit-backend/internal/kits"
	pkgerrors "github.com/angelmondragon/rentalkit-backend/pkg/errors"
	"github.com/angelmondragon/rentalkit-backend/pkg/logger"
)

// KitResolve returns the resolved kit for a product, or null data when the
// product triggers no kit.
func KitResolve(svc kitsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "kit service unavailable"))
			return
		}

		productID, err := pathParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		kit, err := svc.ResolveKit(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if kit == nil {
			responses.WriteSuccess(w, nil)
			return
		}

		responses.WriteSuccess(w, kit)
	}
}

// KitSelectionOpen returns the session's selection state, seeding it from the
// kit defaults on first use.
func KitSelectionOpen(svc kitsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, productID, ok := selectionScope(w, r, svc, logg)
		if !ok {
			return
		}

		view, err := svc.OpenSelection(r.Context(), sessionID, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

// KitSelectionDiscard drops the session's selection state.
func KitSelectionDiscard(svc kitsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, productID, ok := selectionScope(w, r, svc, logg)
		if !ok {
			return
		}

		if err := svc.DiscardSelection(r.Context(), sessionID, productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// KitSelectionApply selects a product in a slot. Single-select slots replace
// their current choice.
func KitSelectionApply(svc kitsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, productID, ok := selectionScope(w, r, svc, logg)
		if !ok {
			return
		}
		slot, err := pathParam(r, "slot")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload, err := decodeApply(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.ApplySelection(r.Context(), sessionID, productID, slot, payload.ProductID, payload.quantity())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

// KitSelectionRemove drops one product from a slot.
func KitSelectionRemove(svc kitsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, productID, ok := selectionScope(w, r, svc, logg)
		if !ok {
			return
		}
		slot, err := pathParam(r, "slot")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemProductID, err := pathParam(r, "itemProductId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.RemoveSelection(r.Context(), sessionID, productID, slot, itemProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

// KitSelectionSwap replaces one selected product with another in a slot.
func KitSelectionSwap(svc kitsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, productID, ok := selectionScope(w, r, svc, logg)
		if !ok {
			return
		}
		slot, err := pathParam(r, "slot")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload, err := decodeSwap(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.SwapSelection(r.Context(), sessionID, productID, slot, payload.FromProductID, payload.ToProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

func selectionScope(w http.ResponseWriter, r *http.Request, svc kitsvc.Service, logg *logger.Logger) (string, string, bool) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "kit service unavailable"))
		return "", "", false
	}
	sessionID := middleware.SessionIDFromContext(r.Context())
	if sessionID == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "X-Session-Id header is required"))
		return "", "", false
	}
	productID, err := pathParam(r, "productId")
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return "", "", false
	}
	return sessionID, productID, true
}
