package cart

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/rentalkit-backend/pkg/db/models"
	"github.com/angelmondragon/rentalkit-backend/pkg/enums"
	"github.com/angelmondragon/rentalkit-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, conn.AutoMigrate(&models.CartRecord{}, &models.CartItem{}))
	return conn
}

func sampleRecord(owner Owner) Record {
	return Record{
		Owner:       owner,
		Status:      enums.CartStatusActive,
		GlobalDates: &march,
		Lines: []Line{
			{ID: "item-anchor", ProductID: "camera-alexa35", Quantity: 1, Dates: march, GroupID: "grp-1", KitTemplateID: "tpl-alexa35", IsAnchor: true,
				KitSelections: types.KitSelections{"Lens": {{ProductID: "zeiss-supreme-50mm", Quantity: 1, Mandatory: true}}}},
			{ID: "item-lens", ProductID: "zeiss-supreme-50mm", Quantity: 1, Dates: march, GroupID: "grp-1", KitTemplateID: "tpl-alexa35", SlotName: "Lens"},
			{ID: "item-tripod", ProductID: "tripod-sachtler", Quantity: 2, Dates: march},
		},
	}
}

func TestRepositorySaveAndLoad(t *testing.T) {
	repo := NewRepository(openSQLite(t))
	ctx := context.Background()
	owner := UserOwner("user-1")

	rec, err := repo.Load(ctx, owner)
	require.NoError(t, err)
	assert.Nil(t, rec)

	require.NoError(t, repo.Save(ctx, sampleRecord(owner)))

	rec, err = repo.Load(ctx, owner)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, enums.CartStatusActive, rec.Status)
	assert.Equal(t, &march, rec.GlobalDates)
	assert.Equal(t, sampleRecord(owner).Lines, rec.Lines)
	assert.False(t, rec.UpdatedAt.IsZero())
}

func TestRepositorySaveOverwritesItems(t *testing.T) {
	conn := openSQLite(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	owner := UserOwner("user-1")

	require.NoError(t, repo.Save(ctx, sampleRecord(owner)))
	require.NoError(t, repo.Save(ctx, Record{
		Owner: owner,
		Lines: []Line{{ID: "item-media", ProductID: "cfexpress-card", Quantity: 4, Dates: march}},
	}))

	rec, err := repo.Load(ctx, owner)
	require.NoError(t, err)
	require.Len(t, rec.Lines, 1)
	assert.Equal(t, "item-media", rec.Lines[0].ID)
	assert.Nil(t, rec.GlobalDates)
	assert.Equal(t, enums.CartStatusActive, rec.Status)

	var count int64
	require.NoError(t, conn.Model(&models.CartItem{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var carts int64
	require.NoError(t, conn.Model(&models.CartRecord{}).Count(&carts).Error)
	assert.Equal(t, int64(1), carts)
}

func TestRepositoryKeepsOwnersApart(t *testing.T) {
	repo := NewRepository(openSQLite(t))
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, sampleRecord(UserOwner("user-1"))))
	rec, err := repo.Load(ctx, GuestOwner("user-1"))
	require.NoError(t, err)
	assert.Nil(t, rec)

	require.NoError(t, repo.Delete(ctx, UserOwner("user-1")))
	rec, err = repo.Load(ctx, UserOwner("user-1"))
	require.NoError(t, err)
	assert.Nil(t, rec)
	require.NoError(t, repo.Delete(ctx, UserOwner("user-1")))
}

func TestRepositoryMarkAbandoned(t *testing.T) {
	conn := openSQLite(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, Record{Owner: UserOwner("stale")}))
	require.NoError(t, repo.Save(ctx, Record{Owner: UserOwner("fresh")}))
	require.NoError(t, repo.Save(ctx, Record{Owner: GuestOwner("stale-guest")}))

	old := time.Now().Add(-72 * time.Hour)
	require.NoError(t, conn.Model(&models.CartRecord{}).
		Where("owner_id IN ?", []string{"stale", "stale-guest"}).
		UpdateColumn("updated_at", old).Error)

	affected, err := repo.MarkAbandoned(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	rec, err := repo.Load(ctx, UserOwner("stale"))
	require.NoError(t, err)
	assert.Equal(t, enums.CartStatusAbandoned, rec.Status)

	require.NoError(t, repo.Save(ctx, Record{Owner: UserOwner("stale"), Status: enums.CartStatusActive}))
	rec, err = repo.Load(ctx, UserOwner("stale"))
	require.NoError(t, err)
	assert.Equal(t, enums.CartStatusActive, rec.Status)
}

func TestRepositoryDeleteGuestCartsBefore(t *testing.T) {
	conn := openSQLite(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, sampleRecord(GuestOwner("old-guest"))))
	require.NoError(t, repo.Save(ctx, Record{Owner: GuestOwner("new-guest"), Lines: []Line{{ID: "fresh-line", ProductID: "tripod-sachtler", Quantity: 1}}}))
	require.NoError(t, repo.Save(ctx, Record{Owner: UserOwner("old-user")}))
	require.NoError(t, conn.Model(&models.CartRecord{}).
		Where("owner_id IN ?", []string{"old-guest", "old-user"}).
		UpdateColumn("updated_at", time.Now().Add(-90*24*time.Hour)).Error)

	deleted, err := repo.DeleteGuestCartsBefore(ctx, time.Now().Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	rec, err := repo.Load(ctx, GuestOwner("old-guest"))
	require.NoError(t, err)
	assert.Nil(t, rec)
	rec, err = repo.Load(ctx, UserOwner("old-user"))
	require.NoError(t, err)
	assert.NotNil(t, rec)

	var items int64
	require.NoError(t, conn.Model(&models.CartItem{}).Count(&items).Error)
	assert.Equal(t, int64(1), items)
}
