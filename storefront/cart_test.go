// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package storefront_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/VA7DBI/storefrontAPI/storefront"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	himsagar = storefront.Product{ID: "himsagar", Name: "Himsagar Mango", Category: storefront.CategoryMango, Price: 140, Unit: "kg"}
	litchi   = storefront.Product{ID: "litchi-honey", Name: "Litchi Flower Honey", Category: storefront.CategoryHoney, Price: 800, Unit: "kg"}
)

func TestCartArithmetic(t *testing.T) {
	cart := storefront.NewCart("")

	require.NoError(t, cart.Add(himsagar, 2))
	require.NoError(t, cart.Add(himsagar, 3))
	require.NoError(t, cart.Add(litchi, 1))
	assert.Equal(t, 5*140.0+800.0, cart.Total())

	items := cart.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "himsagar", items[0].Product.ID)
	assert.Equal(t, 5, items[0].Quantity)

	assert.ErrorIs(t, cart.Add(himsagar, 0), storefront.ErrInvalidQuantity)
	assert.ErrorIs(t, cart.SetQuantity("fazli", 1), storefront.ErrNotInCart)

	require.NoError(t, cart.SetQuantity("himsagar", 0))
	assert.Len(t, cart.Items(), 1)

	order := cart.OrderItems()
	require.Len(t, order, 1)
	assert.Equal(t, storefront.OrderItem{ProductID: "litchi-honey", Name: "Litchi Flower Honey", Quantity: 1, Price: 800}, order[0])

	require.NoError(t, cart.Clear())
	assert.Empty(t, cart.Items())
	assert.Zero(t, cart.Total())
}

func TestCartPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cart.yaml")

	empty, err := storefront.LoadCart(path)
	require.NoError(t, err)
	assert.Empty(t, empty.Items())

	require.NoError(t, empty.Add(himsagar, 4))
	require.NoError(t, empty.Add(litchi, 2))
	require.NoError(t, empty.Remove("himsagar"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := storefront.LoadCart(path)
	require.NoError(t, err)
	items := loaded.Items()
	require.Len(t, items, 1)
	assert.Equal(t, litchi, items[0].Product)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestCartSave(t *testing.T) {
	cart := storefront.NewCart("")
	require.NoError(t, cart.Add(himsagar, 1))

	path := filepath.Join(t.TempDir(), "cart.yaml")
	require.NoError(t, cart.Save(path))
	require.NoError(t, cart.Add(himsagar, 1))

	loaded, err := storefront.LoadCart(path)
	require.NoError(t, err)
	require.Len(t, loaded.Items(), 1)
	assert.Equal(t, 2, loaded.Items()[0].Quantity)
}

func TestCartUnchangedWhenWriteFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cart.yaml")
	cart := storefront.NewCart(path)
	require.NoError(t, cart.Add(himsagar, 2))

	// A regular file where the cart directory should be
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))
	assert.Error(t, cart.Save(filepath.Join(blocker, "cart.yaml")))

	// Save failed, so mutations still write through to the old path
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.Mkdir(path, 0o700))

	assert.Error(t, cart.Add(litchi, 1))
	assert.Error(t, cart.SetQuantity("himsagar", 7))
	assert.Error(t, cart.Remove("himsagar"))
	assert.Error(t, cart.Clear())

	items := cart.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "himsagar", items[0].Product.ID)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, 2*140.0, cart.Total())
}

func TestLoadCartRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cart.yaml")
	require.NoError(t, os.WriteFile(path, []byte("product: [unterminated"), 0o600))

	_, err := storefront.LoadCart(path)
	assert.Error(t, err)
}
