// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package storefront

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	ErrNotInCart       = errors.New("product not in cart")
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

type CartLine struct {
	Product  Product `yaml:"product"`
	Quantity int     `yaml:"quantity"`
}

// Cart is a product-keyed map of lines. When it has a path, every
// mutation is written through to that file.
type Cart struct {
	mu    sync.Mutex
	path  string
	lines map[string]CartLine
}

func NewCart(path string) *Cart {
	return &Cart{path: path, lines: make(map[string]CartLine)}
}

// LoadCart reads the cart saved at path. A missing file is an empty cart.
func LoadCart(path string) (*Cart, error) {
	cart := NewCart(path)

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cart, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading cart file: %w", err)
	}

	var lines []CartLine
	if err := yaml.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("error parsing cart file: %w", err)
	}
	for _, line := range lines {
		if line.Product.ID == "" || line.Quantity <= 0 {
			continue
		}
		cart.lines[line.Product.ID] = line
	}
	return cart, nil
}

// Add puts qty more of p in the cart.
func (c *Cart) Add(p Product, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	return c.update(func(lines map[string]CartLine) error {
		line := lines[p.ID]
		line.Product = p
		line.Quantity += qty
		lines[p.ID] = line
		return nil
	})
}

// SetQuantity replaces the quantity of a line; zero or less removes it.
func (c *Cart) SetQuantity(productID string, qty int) error {
	return c.update(func(lines map[string]CartLine) error {
		line, ok := lines[productID]
		if !ok {
			return ErrNotInCart
		}
		if qty <= 0 {
			delete(lines, productID)
		} else {
			line.Quantity = qty
			lines[productID] = line
		}
		return nil
	})
}

func (c *Cart) Remove(productID string) error {
	return c.update(func(lines map[string]CartLine) error {
		delete(lines, productID)
		return nil
	})
}

func (c *Cart) Clear() error {
	return c.update(func(lines map[string]CartLine) error {
		clear(lines)
		return nil
	})
}

// update applies fn to a copy of the lines and keeps the copy only once it
// is written through. On any error the cart is unchanged.
func (c *Cart) update(fn func(lines map[string]CartLine) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := maps.Clone(c.lines)
	if err := fn(next); err != nil {
		return err
	}
	if err := persistLines(c.path, next); err != nil {
		return err
	}
	c.lines = next
	return nil
}

// Items returns the lines ordered by product ID.
func (c *Cart) Items() []CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sortedLines(c.lines)
}

func (c *Cart) Total() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var total float64
	for _, line := range c.lines {
		total += line.Product.Price * float64(line.Quantity)
	}
	return total
}

// OrderItems converts the cart into checkout form items.
func (c *Cart) OrderItems() []OrderItem {
	lines := c.Items()
	items := make([]OrderItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, OrderItem{
			ProductID: line.Product.ID,
			Name:      line.Product.Name,
			Quantity:  line.Quantity,
			Price:     line.Product.Price,
		})
	}
	return items
}

func sortedLines(lines map[string]CartLine) []CartLine {
	out := make([]CartLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, line)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Product.ID < out[j].Product.ID })
	return out
}

// Save writes the cart to path and makes it the write-through target of
// later mutations.
func (c *Cart) Save(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := persistLines(path, c.lines); err != nil {
		return err
	}
	c.path = path
	return nil
}

func persistLines(path string, lines map[string]CartLine) error {
	if path == "" {
		return nil
	}

	data, err := yaml.Marshal(sortedLines(lines))
	if err != nil {
		return fmt.Errorf("error encoding cart: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("error creating cart directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("error writing cart file: %w", err)
	}
	return nil
}
