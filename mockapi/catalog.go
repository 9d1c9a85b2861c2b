// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package mockapi

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/VA7DBI/storefrontAPI/client"
	"github.com/VA7DBI/storefrontAPI/storefront"
	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 12
	maxPageSize     = 100
)

func seedProducts() []storefront.Product {
	return []storefront.Product{
		{ID: "himsagar", Name: "Himsagar Mango", Category: storefront.CategoryMango, Variety: "Himsagar", Price: 140, Unit: "kg", Stock: 400},
		{ID: "langra", Name: "Langra Mango", Category: storefront.CategoryMango, Variety: "Langra", Price: 120, Unit: "kg", Stock: 350},
		{ID: "fazli", Name: "Fazli Mango", Category: storefront.CategoryMango, Variety: "Fazli", Price: 90, Unit: "kg", Stock: 500},
		{ID: "amrapali", Name: "Amrapali Mango", Category: storefront.CategoryMango, Variety: "Amrapali", Price: 110, Unit: "kg", Stock: 300},
		{ID: "sundarbans-honey", Name: "Sundarbans Wild Honey", Category: storefront.CategoryHoney, Variety: "Khalisha", Price: 1200, Unit: "kg", Stock: 60},
		{ID: "mustard-honey", Name: "Mustard Flower Honey", Category: storefront.CategoryHoney, Variety: "Mustard", Price: 650, Unit: "kg", Stock: 120},
		{ID: "litchi-honey", Name: "Litchi Flower Honey", Category: storefront.CategoryHoney, Variety: "Litchi", Price: 800, Unit: "kg", Stock: 90},
	}
}

// Catalog is the stub's product table.
type Catalog struct {
	mu       sync.RWMutex
	products map[string]storefront.Product
}

func NewCatalog(products []storefront.Product) *Catalog {
	c := &Catalog{products: make(map[string]storefront.Product, len(products))}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

func (c *Catalog) Get(id string) (storefront.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	return p, ok
}

// Reserve takes qty units out of stock, failing when there are not enough.
func (c *Catalog) Reserve(id string, qty int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok || p.Stock < qty {
		return false
	}
	p.Stock -= qty
	c.products[id] = p
	return true
}

func (c *Catalog) Release(id string, qty int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.products[id]; ok {
		p.Stock += qty
		c.products[id] = p
	}
}

func (c *Catalog) search(text, category string) []storefront.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	text = strings.ToLower(text)
	out := make([]storefront.Product, 0, len(c.products))
	for _, p := range c.products {
		if category != "" && p.Category != category {
			continue
		}
		if text != "" &&
			!strings.Contains(strings.ToLower(p.Name), text) &&
			!strings.Contains(strings.ToLower(p.Variety), text) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// pageParams reads page and limit query parameters with defaults and bounds.
func pageParams(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if err != nil || limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

func paginate[T any](items []T, page, limit int) ([]T, client.Pagination) {
	total := len(items)
	totalPages := (total + limit - 1) / limit
	// page is bounded before multiplying
	start := total
	if page-1 <= total/limit {
		start = min((page-1)*limit, total)
	}
	end := start + limit
	if end > total {
		end = total
	}
	return items[start:end], client.Pagination{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
}

// @Summary     List products
// @Description Search the mango and honey catalog
// @Tags        products
// @Produce     json
// @Param       search   query string false "Name or variety substring"
// @Param       category query string false "mango or honey"
// @Param       page     query int    false "Page number"
// @Param       limit    query int    false "Page size"
// @Success     200 {object} client.Envelope
// @Router      /products [get]
func (s *Server) listProducts(c *gin.Context) {
	page, limit := pageParams(c)
	matches := s.catalog.search(c.Query("search"), c.Query("category"))
	items, pagination := paginate(matches, page, limit)
	c.JSON(http.StatusOK, gin.H{"success": true, "data": items, "pagination": pagination})
}

// @Summary     Get product
// @Tags        products
// @Produce     json
// @Param       id path string true "Product ID"
// @Success     200 {object} client.Envelope
// @Failure     404 {object} client.Envelope
// @Router      /products/{id} [get]
func (s *Server) getProduct(c *gin.Context) {
	p, ok := s.catalog.Get(c.Param("id"))
	if !ok {
		respondError(c, http.StatusNotFound, "Product not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": p})
}
