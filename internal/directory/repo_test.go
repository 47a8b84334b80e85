package directory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/fulfillment-backend/pkg/db/dbtest"
	"github.com/angelmondragon/fulfillment-backend/pkg/db/models"
)

func TestFindCustomer(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seeded := dbtest.SeedCustomer(t, db, "Acme Bakery")

	got, err := repo.FindCustomer(ctx, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Bakery", got.Name)

	_, err = repo.FindCustomer(ctx, uuid.New())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestFindInventoryItemIncludesSubItems(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()

	parent := dbtest.SeedInventoryItem(t, db, "Gift box", "12.50")
	sub := models.InventoryItem{
		ID:        uuid.New(),
		ParentID:  &parent.ID,
		Name:      "Gift box - red ribbon",
		UnitPrice: decimal.RequireFromString("13.00"),
	}
	require.NoError(t, db.Create(&sub).Error)

	got, err := repo.FindInventoryItem(ctx, parent.ID)
	require.NoError(t, err)
	assert.True(t, got.UnitPrice.Equal(decimal.RequireFromString("12.50")))

	got, err = repo.FindInventoryItem(ctx, sub.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ParentID)
	assert.Equal(t, parent.ID, *got.ParentID)

	_, err = repo.FindInventoryItem(ctx, uuid.New())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
