package cart

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/rentalkit-backend/pkg/db"
	"github.com/angelmondragon/rentalkit-backend/pkg/db/models"
	"github.com/angelmondragon/rentalkit-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentalkit-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists carts in cart_records and cart_items.
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

func (r *Repository) Load(ctx context.Context, owner Owner) (*Record, error) {
	var row models.CartRecord
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("owner_kind = ? AND owner_id = ?", owner.Kind, owner.ID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	rec := recordFromModel(owner, row)
	return &rec, nil
}

// Save overwrites the owner's cart and its items in one transaction.
func (r *Repository) Save(ctx context.Context, rec Record) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.CartRecord
		isNew := false
		err := tx.Where("owner_kind = ? AND owner_id = ?", rec.Owner.Kind, rec.Owner.ID).First(&row).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = models.CartRecord{ID: uuid.NewString(), OwnerKind: rec.Owner.Kind, OwnerID: rec.Owner.ID}
			isNew = true
		case err != nil:
			return err
		}

		row.Status = rec.Status
		if !row.Status.IsValid() {
			row.Status = enums.CartStatusActive
		}
		row.StartDate, row.EndDate = nil, nil
		if rec.GlobalDates != nil {
			start, end := rec.GlobalDates.Start, rec.GlobalDates.End
			row.StartDate, row.EndDate = &start, &end
		}
		row.Items = nil
		write := tx.Omit("Items").Save
		if isNew {
			write = tx.Omit("Items").Create
		}
		if err := write(&row).Error; err != nil {
			return err
		}

		if err := tx.Where("cart_id = ?", row.ID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		if len(rec.Lines) == 0 {
			return nil
		}
		items := make([]models.CartItem, 0, len(rec.Lines))
		for pos, line := range rec.Lines {
			items = append(items, itemModel(row.ID, pos, line))
		}
		return tx.Create(&items).Error
	})
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflictOnSync, err, "cart created concurrently").
			WithDetails(map[string]any{"owner": rec.Owner.String()})
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save cart")
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, owner Owner) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.CartRecord
		err := tx.Where("owner_kind = ? AND owner_id = ?", owner.Kind, owner.ID).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.Where("cart_id = ?", row.ID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&row).Error
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete cart")
	}
	return nil
}

// MarkAbandoned flags active user carts untouched since before as abandoned
// and returns how many changed.
func (r *Repository) MarkAbandoned(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CartRecord{}).
		Where("owner_kind = ? AND status = ? AND updated_at < ?", enums.OwnerKindUser, enums.CartStatusActive, before).
		Update("status", enums.CartStatusAbandoned)
	if res.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "mark abandoned carts")
	}
	return res.RowsAffected, nil
}

// DeleteGuestCartsBefore removes guest carts held in the database that were
// last written before the cutoff, items included.
func (r *Repository) DeleteGuestCartsBefore(ctx context.Context, before time.Time) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stale := tx.Model(&models.CartRecord{}).
			Select("id").
			Where("owner_kind = ? AND updated_at < ?", enums.OwnerKindGuest, before)
		if err := tx.Where("cart_id IN (?)", stale).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		res := tx.Where("owner_kind = ? AND updated_at < ?", enums.OwnerKindGuest, before).Delete(&models.CartRecord{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete stale guest carts")
	}
	return deleted, nil
}

func recordFromModel(owner Owner, row models.CartRecord) Record {
	rec := Record{Owner: owner, Status: row.Status, UpdatedAt: row.UpdatedAt}
	if row.StartDate != nil && row.EndDate != nil {
		rec.GlobalDates = &DateRange{Start: *row.StartDate, End: *row.EndDate}
	}
	rec.Lines = make([]Line, 0, len(row.Items))
	for _, item := range row.Items {
		rec.Lines = append(rec.Lines, Line{
			ID:            item.ID,
			ProductID:     item.ProductID,
			Quantity:      item.Quantity,
			Dates:         DateRange{Start: item.StartDate, End: item.EndDate},
			GroupID:       deref(item.GroupID),
			KitTemplateID: deref(item.KitTemplateID),
			KitSelections: item.KitSelections,
			IsAnchor:      item.IsAnchor,
			SlotName:      deref(item.SlotName),
		})
	}
	return rec
}

func itemModel(cartID string, pos int, line Line) models.CartItem {
	id := line.ID
	if id == "" {
		id = uuid.NewString()
	}
	return models.CartItem{
		ID:            id,
		CartID:        cartID,
		Position:      pos,
		ProductID:     line.ProductID,
		Quantity:      line.Quantity,
		StartDate:     line.Dates.Start,
		EndDate:       line.Dates.End,
		GroupID:       optional(line.GroupID),
		KitTemplateID: optional(line.KitTemplateID),
		SlotName:      optional(line.SlotName),
		IsAnchor:      line.IsAnchor,
		KitSelections: line.KitSelections,
	}
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
