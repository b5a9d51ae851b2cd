package kits

import (
	"context"
	"fmt"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/rentalkit-backend/pkg/errors"
	"github.com/angelmondragon/rentalkit-backend/pkg/logger"
	"github.com/angelmondragon/rentalkit-backend/pkg/metrics"
	"github.com/angelmondragon/rentalkit-backend/pkg/types"
)

// Service exposes kit resolution and session-scoped selection editing.
type Service interface {
	ResolveKit(ctx context.Context, productID string) (*ResolvedKit, error)
	OpenSelection(ctx context.Context, sessionID, productID string) (*SelectionView, error)
	ApplySelection(ctx context.Context, sessionID, productID, slotName, itemProductID string, quantity int) (*SelectionView, error)
	RemoveSelection(ctx context.Context, sessionID, productID, slotName, itemProductID string) (*SelectionView, error)
	SwapSelection(ctx context.Context, sessionID, productID, slotName, fromProductID, toProductID string) (*SelectionView, error)
	DiscardSelection(ctx context.Context, sessionID, productID string) error
	Resume(ctx context.Context, sessionID, productID string, selections types.KitSelections) (*SelectionView, error)
	Configuration(ctx context.Context, sessionID, productID string) (*Configuration, error)
}

// SelectionView is what the kit builder renders: the kit with current
// selections and whether it can be added to the cart yet.
type SelectionView struct {
	Kit        *ResolvedKit        `json:"kit"`
	Selections types.KitSelections `json:"selections"`
	Complete   bool                `json:"complete"`
	Notes      []string            `json:"notes,omitempty"`
}

type kitResolver interface {
	ResolveKit(ctx context.Context, productID string) (*ResolvedKit, error)
}

type service struct {
	resolver kitResolver
	store    SelectionStore
	metrics  *metrics.KitMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewService wires the resolver and the selection store.
func NewService(resolver kitResolver, store SelectionStore, m *metrics.KitMetrics, logg *logger.Logger) (Service, error) {
	if resolver == nil {
		return nil, fmt.Errorf("kit resolver required")
	}
	if store == nil {
		return nil, fmt.Errorf("selection store required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{resolver: resolver, store: store, metrics: m, logg: logg, now: time.Now}, nil
}

func (s *service) ResolveKit(ctx context.Context, productID string) (*ResolvedKit, error) {
	return s.resolver.ResolveKit(ctx, productID)
}

func (s *service) OpenSelection(ctx context.Context, sessionID, productID string) (*SelectionView, error) {
	state, notes, err := s.load(ctx, sessionID, productID)
	if err != nil {
		return nil, err
	}
	if len(notes) > 0 {
		if err := s.save(ctx, sessionID, state); err != nil {
			return nil, err
		}
	}
	return view(state, notes), nil
}

func (s *service) ApplySelection(ctx context.Context, sessionID, productID, slotName, itemProductID string, quantity int) (*SelectionView, error) {
	return s.mutate(ctx, "apply", sessionID, productID, func(state *SelectionState) error {
		return state.ApplySelection(slotName, strings.TrimSpace(itemProductID), quantity)
	})
}

func (s *service) RemoveSelection(ctx context.Context, sessionID, productID, slotName, itemProductID string) (*SelectionView, error) {
	return s.mutate(ctx, "remove", sessionID, productID, func(state *SelectionState) error {
		return state.RemoveSelection(slotName, strings.TrimSpace(itemProductID))
	})
}

func (s *service) SwapSelection(ctx context.Context, sessionID, productID, slotName, fromProductID, toProductID string) (*SelectionView, error) {
	return s.mutate(ctx, "swap", sessionID, productID, func(state *SelectionState) error {
		return state.SwapSelection(slotName, strings.TrimSpace(fromProductID), strings.TrimSpace(toProductID))
	})
}

func (s *service) DiscardSelection(ctx context.Context, sessionID, productID string) error {
	return s.store.Delete(ctx, sessionID, productID)
}

// Resume accepts a selection snapshot taken from a cart kit group back into
// edit state, reconciled against the kit as it resolves now.
func (s *service) Resume(ctx context.Context, sessionID, productID string, selections types.KitSelections) (*SelectionView, error) {
	kit, err := s.resolve(ctx, productID)
	if err != nil {
		return nil, err
	}
	state, notes, err := RestoreSelectionState(kit, Snapshot{
		MainProductID: kit.MainProduct.ID,
		TemplateID:    kit.Template.ID,
		Slots:         selections,
	})
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, sessionID, state); err != nil {
		return nil, err
	}
	s.metrics.IncMutation("resume", metrics.OutcomeOK)
	return view(state, notes), nil
}

func (s *service) Configuration(ctx context.Context, sessionID, productID string) (*Configuration, error) {
	state, _, err := s.load(ctx, sessionID, productID)
	if err != nil {
		return nil, err
	}
	return state.Configuration()
}

func (s *service) mutate(ctx context.Context, op, sessionID, productID string, fn func(*SelectionState) error) (*SelectionView, error) {
	state, notes, err := s.load(ctx, sessionID, productID)
	if err != nil {
		return nil, err
	}
	if err := fn(state); err != nil {
		s.metrics.IncMutation(op, metrics.OutcomeRejected)
		return nil, err
	}
	if err := s.save(ctx, sessionID, state); err != nil {
		s.metrics.IncMutation(op, metrics.OutcomeError)
		return nil, err
	}
	s.metrics.IncMutation(op, metrics.OutcomeOK)
	return view(state, notes), nil
}

func (s *service) resolve(ctx context.Context, productID string) (*ResolvedKit, error) {
	kit, err := s.resolver.ResolveKit(ctx, productID)
	if err != nil {
		return nil, err
	}
	if kit == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s has no kit", productID))
	}
	return kit, nil
}

// load resolves the kit and restores the session's snapshot, or seeds defaults.
func (s *service) load(ctx context.Context, sessionID, productID string) (*SelectionState, []string, error) {
	kit, err := s.resolve(ctx, productID)
	if err != nil {
		return nil, nil, err
	}
	snap, err := s.store.Load(ctx, sessionID, kit.MainProduct.ID)
	if err != nil {
		return nil, nil, err
	}
	if snap == nil {
		state, err := NewSelectionState(kit)
		return state, nil, err
	}
	state, notes, err := RestoreSelectionState(kit, *snap)
	if err != nil {
		return nil, nil, err
	}
	if len(notes) > 0 {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"product_id": kit.MainProduct.ID,
			"notes":      notes,
		}), "kit selection reconciled with current kit")
	}
	return state, notes, nil
}

func (s *service) save(ctx context.Context, sessionID string, state *SelectionState) error {
	snap := state.Snapshot()
	snap.UpdatedAt = s.now().UTC()
	return s.store.Save(ctx, sessionID, snap)
}

func view(state *SelectionState, notes []string) *SelectionView {
	return &SelectionView{
		Kit:        state.Kit(),
		Selections: state.Selections(),
		Complete:   state.Validate() == nil,
		Notes:      notes,
	}
}
