package cart

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/rentalkit-backend/internal/catalog"
	"github.com/angelmondragon/rentalkit-backend/internal/kits"
	"github.com/angelmondragon/rentalkit-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentalkit-backend/pkg/errors"
	"github.com/angelmondragon/rentalkit-backend/pkg/logger"
	"github.com/angelmondragon/rentalkit-backend/pkg/metrics"
	"github.com/angelmondragon/rentalkit-backend/pkg/types"
	"github.com/google/uuid"
)

// View is a hydrated cart as returned to clients.
type View struct {
	Items       []Item           `json:"items"`
	GlobalDates *DateRange       `json:"global_dates"`
	ItemCount   int              `json:"item_count"`
	Status      enums.CartStatus `json:"status"`
	UpdatedAt   *time.Time       `json:"updated_at,omitempty"`
}

// AddItemInput describes one add-to-cart request. WithKit consumes the
// session's in-progress kit configuration for the product.
type AddItemInput struct {
	ProductID string
	Dates     DateRange
	Quantity  int
	WithKit   bool
	SessionID string
}

// UpdateItemInput changes an item's quantity, dates, or both.
type UpdateItemInput struct {
	Quantity *int
	Dates    *DateRange
}

// Service owns server-side carts.
type Service interface {
	GetCart(ctx context.Context, owner Owner) (*View, error)
	UpsertCart(ctx context.Context, owner Owner, snap Snapshot) (*View, error)
	ClearCart(ctx context.Context, owner Owner) error
	AddItem(ctx context.Context, owner Owner, input AddItemInput) ([]Item, *View, error)
	UpdateItem(ctx context.Context, owner Owner, itemID string, input UpdateItemInput) (*View, error)
	RemoveItem(ctx context.Context, owner Owner, itemID string) (*View, error)
	ReopenKit(ctx context.Context, owner Owner, sessionID, itemID string) (*kits.SelectionView, error)
	UpdateKit(ctx context.Context, owner Owner, sessionID, itemID string) ([]Item, *View, error)
	MergeGuestIntoUser(ctx context.Context, sessionID, userID string) (*View, error)
	Mutate(ctx context.Context, owner Owner, fn func(*Cart) error) (*View, error)
}

type kitConfigurer interface {
	Configuration(ctx context.Context, sessionID, productID string) (*kits.Configuration, error)
	DiscardSelection(ctx context.Context, sessionID, productID string) error
	Resume(ctx context.Context, sessionID, productID string, selections types.KitSelections) (*kits.SelectionView, error)
}

// ServiceParams groups the collaborators of NewService. Guests is optional;
// without it guest carts are kept in Users' backing store.
type ServiceParams struct {
	Catalog catalog.Accessor
	Kits    kitConfigurer
	Users   Store
	Guests  Store
	Metrics *metrics.CartMetrics
	Logger  *logger.Logger
}

type service struct {
	catalog catalog.Accessor
	kits    kitConfigurer
	users   Store
	guests  Store
	metrics *metrics.CartMetrics
	logg    *logger.Logger
}

// NewService wires the cart service.
func NewService(params ServiceParams) (Service, error) {
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog accessor required")
	}
	if params.Kits == nil {
		return nil, fmt.Errorf("kit service required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("cart store required")
	}
	guests := params.Guests
	if guests == nil {
		guests = params.Users
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		catalog: params.Catalog,
		kits:    params.Kits,
		users:   params.Users,
		guests:  guests,
		metrics: params.Metrics,
		logg:    logg,
	}, nil
}

func (s *service) GetCart(ctx context.Context, owner Owner) (*View, error) {
	c, rec, err := s.load(ctx, owner)
	if err != nil {
		return nil, err
	}
	return viewOf(c.Snapshot(), rec), nil
}

// UpsertCart replaces the owner's cart with snap. Products are re-read from
// the catalog so clients only need to send ids.
func (s *service) UpsertCart(ctx context.Context, owner Owner, snap Snapshot) (*View, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	c := New()
	if err := c.Replace(snap.Items); err != nil {
		return nil, err
	}
	if err := c.SetGlobalDates(snap.GlobalDates); err != nil {
		return nil, err
	}
	if err := s.save(ctx, owner, c.Snapshot()); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, owner)
}

func (s *service) ClearCart(ctx context.Context, owner Owner) error {
	if err := owner.Validate(); err != nil {
		return err
	}
	return s.save(ctx, owner, Snapshot{})
}

func (s *service) AddItem(ctx context.Context, owner Owner, input AddItemInput) ([]Item, *View, error) {
	product, err := s.catalog.GetProduct(ctx, input.ProductID)
	if err != nil {
		return nil, nil, err
	}
	if !product.IsAvailable {
		return nil, nil, pkgerrors.New(pkgerrors.CodeInvalidOperation, fmt.Sprintf("product %s is not available", product.ID))
	}

	var cfg *kits.Configuration
	if input.WithKit {
		if strings.TrimSpace(input.SessionID) == "" {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required to add a kit")
		}
		cfg, err = s.kits.Configuration(ctx, input.SessionID, product.ID)
		if err != nil {
			return nil, nil, err
		}
	}

	var added []Item
	view, err := s.Mutate(ctx, owner, func(c *Cart) error {
		items, addErr := c.Add(*product, input.Dates, input.Quantity, cfg)
		added = items
		return addErr
	})
	if err != nil {
		return nil, nil, err
	}
	if cfg != nil {
		if err := s.kits.DiscardSelection(ctx, input.SessionID, product.ID); err != nil {
			s.logg.Warn(s.logg.WithProductID(ctx, product.ID), "discard kit selection after add failed: "+err.Error())
		}
	}
	return added, view, nil
}

func (s *service) UpdateItem(ctx context.Context, owner Owner, itemID string, input UpdateItemInput) (*View, error) {
	if input.Quantity == nil && input.Dates == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity or dates required")
	}
	return s.Mutate(ctx, owner, func(c *Cart) error {
		// quantity first so a date change that folds the line carries it over
		if input.Quantity != nil {
			if err := c.UpdateQuantity(itemID, *input.Quantity); err != nil {
				return err
			}
			if *input.Quantity <= 0 {
				return nil
			}
		}
		if input.Dates != nil {
			return c.UpdateDates(itemID, *input.Dates)
		}
		return nil
	})
}

func (s *service) RemoveItem(ctx context.Context, owner Owner, itemID string) (*View, error) {
	return s.Mutate(ctx, owner, func(c *Cart) error {
		return c.Remove(itemID)
	})
}

// ReopenKit sends a cart kit group back to the kit builder for the session.
// Any member of the group may be referenced.
func (s *service) ReopenKit(ctx context.Context, owner Owner, sessionID, itemID string) (*kits.SelectionView, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required to edit a kit")
	}
	c, _, err := s.load(ctx, owner)
	if err != nil {
		return nil, err
	}
	anchor, err := kitAnchor(c, itemID)
	if err != nil {
		return nil, err
	}
	return s.kits.Resume(ctx, sessionID, anchor.Product.ID, anchor.KitSelections)
}

// UpdateKit writes the session's edited kit configuration back onto the cart
// group of itemID, keeping the group id, anchor and dates. The session's
// selection is discarded afterwards.
func (s *service) UpdateKit(ctx context.Context, owner Owner, sessionID, itemID string) ([]Item, *View, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required to edit a kit")
	}
	var (
		anchor  Item
		updated []Item
	)
	view, err := s.Mutate(ctx, owner, func(c *Cart) error {
		var err error
		anchor, err = kitAnchor(c, itemID)
		if err != nil {
			return err
		}
		cfg, err := s.kits.Configuration(ctx, sessionID, anchor.Product.ID)
		if err != nil {
			return err
		}
		updated, err = c.ReplaceKitGroup(anchor.GroupID, cfg)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	if err := s.kits.DiscardSelection(ctx, sessionID, anchor.Product.ID); err != nil {
		s.logg.Warn(s.logg.WithProductID(ctx, anchor.Product.ID), "discard kit selection after update failed: "+err.Error())
	}
	return updated, view, nil
}

// kitAnchor returns the anchor line of the kit group itemID belongs to.
func kitAnchor(c *Cart, itemID string) (Item, error) {
	item, ok := c.Item(itemID)
	if !ok {
		return Item{}, itemNotFound(itemID)
	}
	if !item.InGroup() {
		return Item{}, pkgerrors.New(pkgerrors.CodeInvalidOperation, "cart item is not part of a kit")
	}
	for _, candidate := range c.Items() {
		if candidate.GroupID == item.GroupID && candidate.IsAnchor {
			return candidate, nil
		}
	}
	return Item{}, pkgerrors.New(pkgerrors.CodeInvalidOperation, "kit group has no anchor item")
}

// MergeGuestIntoUser folds a guest cart into the user's cart on login. The
// user's items win on conflicts; the guest cart is deleted afterwards.
func (s *service) MergeGuestIntoUser(ctx context.Context, sessionID, userID string) (*View, error) {
	guest := GuestOwner(sessionID)
	user := UserOwner(userID)
	if err := guest.Validate(); err != nil {
		return nil, err
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	ctx = s.logg.WithUserID(s.logg.WithSessionID(ctx, guest.ID), user.ID)

	local, _, err := s.load(ctx, guest)
	if err != nil {
		return nil, err
	}
	remote, _, err := s.load(ctx, user)
	if err != nil {
		return nil, err
	}

	remoteItems := remote.Items()
	appended := LocalOnly(local.Items(), remoteItems)
	for i := range appended {
		appended[i].ID = uuid.NewString()
	}
	merged := append(remoteItems, appended...)

	dates := remote.GlobalDates()
	if dates == nil {
		dates = local.GlobalDates()
	}
	result := Snapshot{Items: merged, GlobalDates: dates}
	if err := s.save(ctx, user, result); err != nil {
		return nil, err
	}
	if err := s.store(guest).Delete(ctx, guest); err != nil {
		s.logg.Error(ctx, "delete merged guest cart", err)
	}
	s.metrics.AddMergedLocal(len(appended))
	s.logg.Info(s.logg.WithField(ctx, "appended", len(appended)), "guest cart merged")
	return viewOf(result, nil), nil
}

// Mutate loads the owner's cart, applies fn and saves the full result. Nothing
// is saved when fn fails.
func (s *service) Mutate(ctx context.Context, owner Owner, fn func(*Cart) error) (*View, error) {
	c, _, err := s.load(ctx, owner)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	snap := c.Snapshot()
	if err := s.save(ctx, owner, snap); err != nil {
		return nil, err
	}
	return viewOf(snap, nil), nil
}

func (s *service) store(owner Owner) Store {
	if owner.Kind == enums.OwnerKindGuest {
		return s.guests
	}
	return s.users
}

// load reads the owner's cart and hydrates its products. Lines whose product
// left the catalog are dropped.
func (s *service) load(ctx context.Context, owner Owner) (*Cart, *Record, error) {
	if err := owner.Validate(); err != nil {
		return nil, nil, err
	}
	rec, err := s.store(owner).Load(ctx, owner)
	if err != nil {
		s.metrics.IncLoad(metrics.OutcomeError)
		return nil, nil, err
	}
	s.metrics.IncLoad(metrics.OutcomeOK)
	c := New()
	if rec == nil {
		return c, nil, nil
	}

	items := make([]Item, 0, len(rec.Lines))
	for _, line := range rec.Lines {
		product, err := s.catalog.GetProduct(ctx, line.ProductID)
		if err != nil {
			if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
				s.logg.Warn(s.logg.WithProductID(ctx, line.ProductID), "dropping cart line for missing product")
				continue
			}
			return nil, nil, err
		}
		items = append(items, line.Item(*product))
	}
	c.Restore(Snapshot{Items: items, GlobalDates: rec.GlobalDates})
	return c, rec, nil
}

func (s *service) save(ctx context.Context, owner Owner, snap Snapshot) error {
	if err := s.store(owner).Save(ctx, RecordFromSnapshot(owner, snap)); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "owner", owner.String()), "save cart", err)
		return err
	}
	return nil
}

func viewOf(snap Snapshot, rec *Record) *View {
	view := &View{
		Items:       snap.Items,
		GlobalDates: snap.GlobalDates,
		ItemCount:   snap.ItemCount(),
		Status:      enums.CartStatusActive,
	}
	if view.Items == nil {
		view.Items = []Item{}
	}
	if rec != nil && rec.Status.IsValid() {
		view.Status = rec.Status
	}
	if rec != nil && !rec.UpdatedAt.IsZero() {
		updated := rec.UpdatedAt
		view.UpdatedAt = &updated
	}
	return view
}
