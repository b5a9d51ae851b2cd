package cart

import (
	"fmt"
	"strings"
	"sync"

	"github.com/angelmondragon/rentalkit-backend/internal/catalog"
	"github.com/angelmondragon/rentalkit-backend/internal/kits"
	pkgerrors "github.com/angelmondragon/rentalkit-backend/pkg/errors"
	"github.com/google/uuid"
)

// Snapshot is a point-in-time copy of a cart.
type Snapshot struct {
	Items       []Item     `json:"items"`
	GlobalDates *DateRange `json:"global_dates"`
}

// ItemCount sums the quantities of every line.
func (s Snapshot) ItemCount() int {
	total := 0
	for _, item := range s.Items {
		total += item.Quantity
	}
	return total
}

// Listener receives the cart state after each successful mutation.
type Listener func(Snapshot)

// Cart is the in-memory cart aggregator. All mutations go through its methods,
// are serialised by a mutex and notify listeners once they succeed.
type Cart struct {
	mu          sync.Mutex
	items       []Item
	globalDates *DateRange

	listenerMu sync.Mutex
	listeners  map[int]Listener
	nextSub    int

	newID func() string
}

// Option configures a Cart.
type Option func(*Cart)

// WithIDGenerator overrides how item and group ids are minted.
func WithIDGenerator(fn func() string) Option {
	return func(c *Cart) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// New builds an empty cart.
func New(opts ...Option) *Cart {
	c := &Cart{listeners: map[int]Listener{}, newID: uuid.NewString}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe registers fn and returns a function that removes it.
func (c *Cart) Subscribe(fn Listener) func() {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.listeners[id] = fn
	return func() {
		c.listenerMu.Lock()
		defer c.listenerMu.Unlock()
		delete(c.listeners, id)
	}
}

// Add puts product into the cart. Without a kit it yields one line, merging
// into an existing standalone line with the same product and dates. With a kit
// it yields the anchor followed by one line per selected slot product, all
// sharing a new group id; an identical kit already in the cart is incremented
// instead. Undated adds inherit the cart's global dates.
func (c *Cart) Add(product catalog.Product, dates DateRange, quantity int, kit *kits.Configuration) ([]Item, error) {
	if strings.TrimSpace(product.ID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a positive integer")
	}
	dates, err := dates.Normalize()
	if err != nil {
		return nil, err
	}
	if kit != nil {
		if err := kit.Validate(); err != nil {
			return nil, err
		}
		if kit.MainProduct.ID != product.ID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("kit configuration belongs to %s, not %s", kit.MainProduct.ID, product.ID))
		}
	}

	c.mu.Lock()
	if dates.IsZero() && c.globalDates != nil {
		dates = *c.globalDates
	}
	var added []Item
	if kit == nil {
		added = c.addSimpleLocked(product, dates, quantity)
	} else {
		added = c.addKitLocked(product, dates, quantity, kit)
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	return added, nil
}

func (c *Cart) addSimpleLocked(product catalog.Product, dates DateRange, quantity int) []Item {
	for i := range c.items {
		item := &c.items[i]
		if item.InGroup() || item.Product.ID != product.ID || item.Dates != dates {
			continue
		}
		item.Quantity += quantity
		return []Item{item.clone()}
	}
	item := Item{ID: c.newID(), Product: product, Quantity: quantity, Dates: dates}
	c.items = append(c.items, item)
	return []Item{item.clone()}
}

func (c *Cart) addKitLocked(product catalog.Product, dates DateRange, quantity int, kit *kits.Configuration) []Item {
	selections := kit.Selections()
	fingerprint := selections.Fingerprint()

	for _, anchor := range c.items {
		if !anchor.IsAnchor || anchor.Product.ID != product.ID || anchor.Dates != dates ||
			anchor.KitTemplateID != kit.TemplateID || anchor.KitSelections.Fingerprint() != fingerprint {
			continue
		}
		return c.incrementGroupLocked(anchor.GroupID, quantity, kit)
	}

	groupID := c.newID()
	added := []Item{{
		ID:            c.newID(),
		Product:       product,
		Quantity:      quantity,
		Dates:         dates,
		GroupID:       groupID,
		KitTemplateID: kit.TemplateID,
		KitSelections: selections,
		IsAnchor:      true,
	}}
	for _, slot := range kit.Slots {
		for _, selected := range slot.Items {
			added = append(added, Item{
				ID:            c.newID(),
				Product:       selected.Product,
				Quantity:      selected.Quantity * quantity,
				Dates:         dates,
				GroupID:       groupID,
				KitTemplateID: kit.TemplateID,
				SlotName:      slot.Name,
			})
		}
	}
	c.items = append(c.items, added...)
	return cloneItems(added)
}

func (c *Cart) incrementGroupLocked(groupID string, quantity int, kit *kits.Configuration) []Item {
	perKit := map[string]int{}
	for _, slot := range kit.Slots {
		for _, selected := range slot.Items {
			perKit[slot.Name+"\x00"+selected.Product.ID] = selected.Quantity
		}
	}

	var out []Item
	for i := range c.items {
		item := &c.items[i]
		if item.GroupID != groupID {
			continue
		}
		if item.IsAnchor {
			item.Quantity += quantity
		} else {
			item.Quantity += perKit[item.SlotName+"\x00"+item.Product.ID] * quantity
		}
		out = append(out, item.clone())
	}
	return out
}

// ReplaceKitGroup rewrites an existing kit group from an edited configuration.
// The anchor keeps its id, quantity and dates; member lines are rebuilt from
// the configuration, reusing the ids of members whose slot and product did
// not change. The group stays where its anchor was.
func (c *Cart) ReplaceKitGroup(groupID string, kit *kits.Configuration) ([]Item, error) {
	if strings.TrimSpace(groupID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "kit group id is required")
	}
	if err := kit.Validate(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	anchorIdx := -1
	existing := map[string]string{}
	for i, item := range c.items {
		if item.GroupID != groupID {
			continue
		}
		if item.IsAnchor {
			anchorIdx = i
			continue
		}
		existing[item.SlotName+"\x00"+item.Product.ID] = item.ID
	}
	if anchorIdx < 0 {
		c.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("kit group %s not found", groupID))
	}
	anchor := c.items[anchorIdx].clone()
	if anchor.Product.ID != kit.MainProduct.ID {
		c.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("kit configuration belongs to %s, not %s", kit.MainProduct.ID, anchor.Product.ID))
	}
	anchor.KitTemplateID = kit.TemplateID
	anchor.KitSelections = kit.Selections()

	group := []Item{anchor}
	for _, slot := range kit.Slots {
		for _, selected := range slot.Items {
			id, ok := existing[slot.Name+"\x00"+selected.Product.ID]
			if !ok {
				id = c.newID()
			}
			group = append(group, Item{
				ID:            id,
				Product:       selected.Product,
				Quantity:      selected.Quantity * anchor.Quantity,
				Dates:         anchor.Dates,
				GroupID:       groupID,
				KitTemplateID: kit.TemplateID,
				SlotName:      slot.Name,
			})
		}
	}

	rebuilt := make([]Item, 0, len(c.items)+len(group))
	for i, item := range c.items {
		switch {
		case i == anchorIdx:
			rebuilt = append(rebuilt, group...)
		case item.GroupID == groupID:
		default:
			rebuilt = append(rebuilt, item)
		}
	}
	c.items = rebuilt
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	return cloneItems(group), nil
}

// Remove deletes an item. Removing a kit anchor removes its whole group.
func (c *Cart) Remove(itemID string) error {
	c.mu.Lock()
	idx := c.indexLocked(itemID)
	if idx < 0 {
		c.mu.Unlock()
		return itemNotFound(itemID)
	}
	c.removeLocked(idx)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	return nil
}

func (c *Cart) removeLocked(idx int) {
	target := c.items[idx]
	kept := c.items[:0:0]
	for i, item := range c.items {
		if i == idx || (target.IsAnchor && item.GroupID == target.GroupID) {
			continue
		}
		kept = append(kept, item)
	}
	c.items = kept
}

// UpdateQuantity sets an item's quantity. A quantity of zero or less removes it.
func (c *Cart) UpdateQuantity(itemID string, quantity int) error {
	if quantity <= 0 {
		return c.Remove(itemID)
	}
	c.mu.Lock()
	idx := c.indexLocked(itemID)
	if idx < 0 {
		c.mu.Unlock()
		return itemNotFound(itemID)
	}
	c.items[idx].Quantity = quantity
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	return nil
}

// UpdateDates re-dates an item. Kit members move with their whole group. A
// standalone item that lands on another standalone line for the same product
// and dates is folded into it.
func (c *Cart) UpdateDates(itemID string, dates DateRange) error {
	dates, err := dates.Normalize()
	if err != nil {
		return err
	}

	c.mu.Lock()
	idx := c.indexLocked(itemID)
	if idx < 0 {
		c.mu.Unlock()
		return itemNotFound(itemID)
	}
	target := c.items[idx]
	switch {
	case target.InGroup():
		for i := range c.items {
			if c.items[i].GroupID == target.GroupID {
				c.items[i].Dates = dates
			}
		}
	default:
		merged := false
		for i := range c.items {
			other := &c.items[i]
			if i == idx || other.InGroup() || other.Product.ID != target.Product.ID || other.Dates != dates {
				continue
			}
			other.Quantity += target.Quantity
			c.removeLocked(idx)
			merged = true
			break
		}
		if !merged {
			c.items[idx].Dates = dates
		}
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	return nil
}

// SetGlobalDates sets or clears (nil) the cart-wide rental period used for
// undated adds.
func (c *Cart) SetGlobalDates(dates *DateRange) error {
	var normalized *DateRange
	if dates != nil {
		d, err := dates.Normalize()
		if err != nil {
			return err
		}
		if !d.IsZero() {
			normalized = &d
		}
	}

	c.mu.Lock()
	c.globalDates = normalized
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	return nil
}

// GlobalDates returns the cart-wide rental period, if any.
func (c *Cart) GlobalDates() *DateRange {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyDates(c.globalDates)
}

// Replace swaps the whole item list, as done after a merge or a server load.
// Items are validated and missing ids are minted.
func (c *Cart) Replace(items []Item) error {
	next := make([]Item, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.Product.ID) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart item product id is required")
		}
		if item.Quantity < 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity for %s must be a positive integer", item.Product.ID))
		}
		dates, err := item.Dates.Normalize()
		if err != nil {
			return err
		}
		item = item.clone()
		item.Dates = dates
		next = append(next, item)
	}

	c.mu.Lock()
	for i := range next {
		if next[i].ID == "" {
			next[i].ID = c.newID()
		}
	}
	c.items = next
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	return nil
}

// Restore loads state without notifying listeners. It is used to hydrate a cart
// from storage before anyone observes it.
func (c *Cart) Restore(snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = cloneItems(snap.Items)
	c.globalDates = copyDates(snap.GlobalDates)
}

// Clear empties the cart and drops its global dates.
func (c *Cart) Clear() {
	c.mu.Lock()
	c.items = nil
	c.globalDates = nil
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
}

// Items returns a copy of the cart lines in order.
func (c *Cart) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneItems(c.items)
}

// Item returns a copy of one line.
func (c *Cart) Item(itemID string) (Item, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.indexLocked(itemID)
	if idx < 0 {
		return Item{}, false
	}
	return c.items[idx].clone(), true
}

// ItemCount sums the quantities of every line.
func (c *Cart) ItemCount() int {
	return c.Snapshot().ItemCount()
}

// Snapshot returns a copy of the whole cart.
func (c *Cart) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Cart) snapshotLocked() Snapshot {
	return Snapshot{Items: cloneItems(c.items), GlobalDates: copyDates(c.globalDates)}
}

func (c *Cart) indexLocked(itemID string) int {
	for i := range c.items {
		if c.items[i].ID == itemID {
			return i
		}
	}
	return -1
}

func (c *Cart) notify(snap Snapshot) {
	c.listenerMu.Lock()
	listeners := make([]Listener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.listenerMu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

func copyDates(d *DateRange) *DateRange {
	if d == nil {
		return nil
	}
	out := *d
	return &out
}

func itemNotFound(itemID string) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("cart item %s not found", itemID))
}
