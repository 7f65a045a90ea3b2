package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matintgp/ecommerce-proj/internal/domain/models"
	"github.com/matintgp/ecommerce-proj/internal/service"
)

func TestProductService(t *testing.T) {
	products := newFakeProductRepo()
	products.add(1, "Shirt", "10.00", 3)
	products.add(2, "Hidden", "1.00", 1).IsActive = false
	movements := &fakeMovementRepo{}
	require.NoError(t, movements.CreateMovementTx(context.Background(), nil, 1, nil, -1, models.MovementCheckout))
	svc := service.NewProductService(newLogger(), products, movements)
	ctx := context.Background()

	list, err := svc.List(ctx, models.ProductFilter{Brand: "acme"})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, models.ProductFilter{Brand: "acme"}, products.filter)

	_, err = svc.Get(ctx, 2)
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = svc.StockMovements(ctx, 1, false)
	assert.ErrorIs(t, err, service.ErrForbidden)

	journal, err := svc.StockMovements(ctx, 1, true)
	require.NoError(t, err)
	require.Len(t, journal, 1)
	assert.Equal(t, -1, journal[0].Delta)
}

func TestProductService_CategoryTree(t *testing.T) {
	products := newFakeProductRepo()
	clothes := int64(1)
	dresses := int64(2)
	products.categories = []*models.Category{
		{ID: 1, Name: "Clothes", Slug: "clothes"},
		{ID: 2, Name: "Dresses", Slug: "dresses", ParentID: &clothes},
		{ID: 3, Name: "Maxi", Slug: "maxi", ParentID: &dresses},
		{ID: 4, Name: "Shoes", Slug: "shoes"},
	}
	products.brands = []*models.Brand{{ID: 1, Name: "Acme", Slug: "acme"}}
	svc := service.NewProductService(newLogger(), products, &fakeMovementRepo{})
	ctx := context.Background()

	tree, err := svc.Categories(ctx)
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, "clothes", tree[0].Slug)
	assert.Equal(t, "shoes", tree[1].Slug)
	assert.Empty(t, tree[1].Children)
	require.Len(t, tree[0].Children, 1)
	require.Len(t, tree[0].Children[0].Children, 1)
	assert.Equal(t, "maxi", tree[0].Children[0].Children[0].Slug)

	brands, err := svc.Brands(ctx)
	require.NoError(t, err)
	assert.Len(t, brands, 1)
}

func TestAddressService_DefaultIsUnique(t *testing.T) {
	db, mock := newMockDB(t)
	addresses := newFakeAddressRepo()
	svc := service.NewAddressService(newLogger(), db, addresses)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	first := &models.UserAddress{UserID: 1, Address: "1 Main St", IsDefault: true}
	require.NoError(t, svc.Create(ctx, first))
	second := &models.UserAddress{UserID: 1, Address: "2 Side St", IsDefault: true}
	require.NoError(t, svc.Create(ctx, second))

	list, err := svc.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.False(t, list[0].IsDefault)
	assert.True(t, list[1].IsDefault)

	assert.ErrorIs(t, svc.Delete(ctx, 2, first.ID), service.ErrNotFound)
	require.NoError(t, svc.Delete(ctx, 1, first.ID))

	assert.NoError(t, mock.ExpectationsWereMet())
}
