package cart

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/rentalkit-backend/internal/kits"
	"github.com/angelmondragon/rentalkit-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentalkit-backend/pkg/errors"
	"github.com/angelmondragon/rentalkit-backend/pkg/logger"
	"github.com/angelmondragon/rentalkit-backend/pkg/metrics"
	"github.com/angelmondragon/rentalkit-backend/pkg/redis/redistest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serviceFixture struct {
	svc     Service
	kits    kits.Service
	catalog *stubCatalog
	users   *Repository
	guests  *GuestStore
}

func newServiceFixture(t *testing.T) serviceFixture {
	t.Helper()
	cat := newStubCatalog()
	kv := redistest.New(t)

	resolver, err := kits.NewResolver(cat, nil, logger.Nop())
	require.NoError(t, err)
	selections, err := kits.NewRedisSelectionStore(kv, time.Hour)
	require.NoError(t, err)
	kitSvc, err := kits.NewService(resolver, selections, nil, logger.Nop())
	require.NoError(t, err)

	users := NewRepository(openSQLite(t))
	guests, err := NewGuestStore(kv, time.Hour)
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Catalog: cat,
		Kits:    kitSvc,
		Users:   users,
		Guests:  guests,
		Metrics: metrics.NewCartMetrics(prometheus.NewRegistry()),
		Logger:  logger.Nop(),
	})
	require.NoError(t, err)
	return serviceFixture{svc: svc, kits: kitSvc, catalog: cat, users: users, guests: guests}
}

func TestServiceAddKitFromSessionSelection(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	owner := GuestOwner("sess-1")

	_, err := f.kits.OpenSelection(ctx, "sess-1", "camera-alexa35")
	require.NoError(t, err)

	added, view, err := f.svc.AddItem(ctx, owner, AddItemInput{ProductID: "camera-alexa35", Dates: march, Quantity: 1, WithKit: true, SessionID: "sess-1"})
	require.NoError(t, err)
	require.Len(t, added, 3)
	assert.Equal(t, 4, view.ItemCount)

	loaded, err := f.svc.GetCart(ctx, owner)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 3)
	assert.Equal(t, "ARRI ALEXA 35", loaded.Items[0].Product.Name)
	assert.Equal(t, added[0].GroupID, loaded.Items[2].GroupID)

	stored, err := f.guests.Load(ctx, owner)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Len(t, stored.Lines, 3)

	rec, err := f.users.Load(ctx, owner)
	require.NoError(t, err)
	assert.Nil(t, rec, "guest carts stay out of the database when redis is available")
}

func TestServiceAddRejectsUnavailableAndMissingProducts(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	owner := UserOwner("user-1")

	_, _, err := f.svc.AddItem(ctx, owner, AddItemInput{ProductID: "retired-monitor", Quantity: 1})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInvalidOperation))

	_, _, err = f.svc.AddItem(ctx, owner, AddItemInput{ProductID: "nope", Quantity: 1})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	_, _, err = f.svc.AddItem(ctx, owner, AddItemInput{ProductID: "camera-alexa35", Quantity: 1, WithKit: true})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, _, err = f.svc.AddItem(ctx, Owner{Kind: enums.OwnerKindUser}, AddItemInput{ProductID: "tripod-sachtler", Quantity: 1})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized))
}

func TestServiceUpdateAndRemoveItems(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	owner := UserOwner("user-1")

	added, _, err := f.svc.AddItem(ctx, owner, AddItemInput{ProductID: "tripod-sachtler", Dates: march, Quantity: 1})
	require.NoError(t, err)
	itemID := added[0].ID

	qty := 3
	april := DateRange{Start: "2026-04-01", End: "2026-04-04"}
	view, err := f.svc.UpdateItem(ctx, owner, itemID, UpdateItemInput{Quantity: &qty, Dates: &april})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 3, view.Items[0].Quantity)
	assert.Equal(t, april, view.Items[0].Dates)

	_, err = f.svc.UpdateItem(ctx, owner, itemID, UpdateItemInput{})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	view, err = f.svc.RemoveItem(ctx, owner, itemID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)

	_, err = f.svc.RemoveItem(ctx, owner, itemID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestServiceUpsertOverwritesAndHydrates(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	owner := UserOwner("user-1")

	_, _, err := f.svc.AddItem(ctx, owner, AddItemInput{ProductID: "cfexpress-card", Dates: march, Quantity: 1})
	require.NoError(t, err)

	view, err := f.svc.UpsertCart(ctx, owner, Snapshot{
		Items:       []Item{line("", "tripod-sachtler", 2, march)},
		GlobalDates: &march,
	})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "Sachtler Tripod", view.Items[0].Product.Name)
	assert.NotEmpty(t, view.Items[0].ID)
	assert.Equal(t, &march, view.GlobalDates)
	require.NotNil(t, view.UpdatedAt)

	_, err = f.svc.UpsertCart(ctx, owner, Snapshot{Items: []Item{line("", "tripod-sachtler", -1, march)}})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	require.NoError(t, f.svc.ClearCart(ctx, owner))
	cleared, err := f.svc.GetCart(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, cleared.Items)
	assert.Nil(t, cleared.GlobalDates)
}

func TestServiceGetCartDropsLinesForMissingProducts(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	owner := UserOwner("user-1")

	require.NoError(t, f.users.Save(ctx, Record{Owner: owner, Lines: []Line{
		{ID: "a", ProductID: "tripod-sachtler", Quantity: 1, Dates: march},
		{ID: "b", ProductID: "discontinued", Quantity: 1, Dates: march},
	}}))

	view, err := f.svc.GetCart(ctx, owner)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "a", view.Items[0].ID)
	assert.Equal(t, enums.CartStatusActive, view.Status)
}

func TestServiceMergeGuestIntoUser(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	guest := GuestOwner("sess-1")
	user := UserOwner("user-1")

	_, _, err := f.svc.AddItem(ctx, user, AddItemInput{ProductID: "tripod-sachtler", Dates: march, Quantity: 3})
	require.NoError(t, err)
	_, _, err = f.svc.AddItem(ctx, guest, AddItemInput{ProductID: "tripod-sachtler", Dates: march, Quantity: 1})
	require.NoError(t, err)
	guestOnly, _, err := f.svc.AddItem(ctx, guest, AddItemInput{ProductID: "cfexpress-card", Dates: march, Quantity: 2})
	require.NoError(t, err)

	view, err := f.svc.MergeGuestIntoUser(ctx, "sess-1", "user-1")
	require.NoError(t, err)
	require.Len(t, view.Items, 2)
	assert.Equal(t, "tripod-sachtler", view.Items[0].Product.ID)
	assert.Equal(t, 3, view.Items[0].Quantity)
	assert.Equal(t, "cfexpress-card", view.Items[1].Product.ID)
	assert.NotEqual(t, guestOnly[0].ID, view.Items[1].ID)

	rec, err := f.guests.Load(ctx, guest)
	require.NoError(t, err)
	assert.Nil(t, rec)

	again, err := f.svc.MergeGuestIntoUser(ctx, "sess-1", "user-1")
	require.NoError(t, err)
	assert.Len(t, again.Items, 2)
}

func TestServiceReopenKit(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	owner := UserOwner("user-1")

	_, err := f.kits.OpenSelection(ctx, "sess-1", "camera-alexa35")
	require.NoError(t, err)
	added, _, err := f.svc.AddItem(ctx, owner, AddItemInput{ProductID: "camera-alexa35", Dates: march, Quantity: 1, WithKit: true, SessionID: "sess-1"})
	require.NoError(t, err)
	tripod, _, err := f.svc.AddItem(ctx, owner, AddItemInput{ProductID: "tripod-sachtler", Dates: march, Quantity: 1})
	require.NoError(t, err)

	view, err := f.svc.ReopenKit(ctx, owner, "sess-2", added[2].ID)
	require.NoError(t, err)
	assert.True(t, view.Complete)
	assert.Equal(t, "zeiss-supreme-50mm", view.Selections["Lens"][0].ProductID)

	_, err = f.svc.ReopenKit(ctx, owner, "sess-2", tripod[0].ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInvalidOperation))

	_, err = f.svc.ReopenKit(ctx, owner, "", added[0].ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestServiceUpdateKitCommitsEditToSameGroup(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	owner := UserOwner("user-1")

	_, err := f.kits.OpenSelection(ctx, "sess-1", "camera-alexa35")
	require.NoError(t, err)
	added, _, err := f.svc.AddItem(ctx, owner, AddItemInput{ProductID: "camera-alexa35", Dates: march, Quantity: 1, WithKit: true, SessionID: "sess-1"})
	require.NoError(t, err)

	_, err = f.svc.ReopenKit(ctx, owner, "sess-2", added[1].ID)
	require.NoError(t, err)
	_, err = f.kits.ApplySelection(ctx, "sess-2", "camera-alexa35", "Media", "cfexpress-card", 4)
	require.NoError(t, err)

	updated, view, err := f.svc.UpdateKit(ctx, owner, "sess-2", added[2].ID)
	require.NoError(t, err)
	require.Len(t, updated, 3)
	require.Len(t, view.Items, 3)
	assert.Equal(t, 6, view.ItemCount)
	for _, item := range view.Items {
		assert.Equal(t, added[0].GroupID, item.GroupID)
	}
	assert.Equal(t, added[0].ID, view.Items[0].ID)
	assert.Equal(t, 4, view.Items[2].Quantity)

	loaded, err := f.svc.GetCart(ctx, owner)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 3)
	assert.Equal(t, 4, loaded.Items[2].Quantity)
	assert.Equal(t, 4, loaded.Items[0].KitSelections["Media"][0].Quantity)

	reopened, err := f.kits.OpenSelection(ctx, "sess-2", "camera-alexa35")
	require.NoError(t, err)
	assert.Equal(t, 2, reopened.Selections["Media"][0].Quantity)
}

func TestServiceUpdateKitRejectsStandaloneItems(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	owner := UserOwner("user-1")

	tripod, _, err := f.svc.AddItem(ctx, owner, AddItemInput{ProductID: "tripod-sachtler", Dates: march, Quantity: 1})
	require.NoError(t, err)

	_, _, err = f.svc.UpdateKit(ctx, owner, "sess-1", tripod[0].ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInvalidOperation))

	_, _, err = f.svc.UpdateKit(ctx, owner, "", tripod[0].ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, _, err = f.svc.UpdateKit(ctx, owner, "sess-1", "missing")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestServiceUpdateItemCarriesQuantityIntoFoldedLine(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	owner := UserOwner("user-1")
	april := DateRange{Start: "2026-04-01", End: "2026-04-04"}

	_, _, err := f.svc.AddItem(ctx, owner, AddItemInput{ProductID: "tripod-sachtler", Dates: april, Quantity: 2})
	require.NoError(t, err)
	moving, _, err := f.svc.AddItem(ctx, owner, AddItemInput{ProductID: "tripod-sachtler", Dates: march, Quantity: 1})
	require.NoError(t, err)

	qty := 3
	view, err := f.svc.UpdateItem(ctx, owner, moving[0].ID, UpdateItemInput{Quantity: &qty, Dates: &april})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 5, view.Items[0].Quantity)
	assert.Equal(t, april, view.Items[0].Dates)

	zero := 0
	view, err = f.svc.UpdateItem(ctx, owner, view.Items[0].ID, UpdateItemInput{Quantity: &zero, Dates: &march})
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}

func TestNewServiceRequiresCollaborators(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatalf("expected error for missing catalog")
	}
}
