// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

// Package storefront is the typed catalog, order and checkout surface of
// the storefront API, built on the authenticated client.
package storefront

import (
	"context"
	"net/url"
	"strconv"

	"github.com/VA7DBI/storefrontAPI/client"
)

// Product categories
const (
	CategoryMango = "mango"
	CategoryHoney = "honey"
)

type Product struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Category    string   `json:"category" yaml:"category"`
	Variety     string   `json:"variety,omitempty" yaml:"variety,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Price       float64  `json:"price" yaml:"price"`
	Unit        string   `json:"unit" yaml:"unit"`
	Stock       int      `json:"stock" yaml:"stock"`
	Images      []string `json:"images,omitempty" yaml:"images,omitempty"`
}

// ProductQuery filters a product listing. Zero values are omitted.
type ProductQuery struct {
	Search   string
	Category string
	Page     int
	Limit    int
}

func (q ProductQuery) values() url.Values {
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

// Service exposes the storefront resources over one client session.
type Service struct {
	client *client.Client
}

func NewService(c *client.Client) *Service {
	return &Service{client: c}
}

func (s *Service) ListProducts(ctx context.Context, q ProductQuery) ([]Product, *client.Pagination, error) {
	resp, err := s.client.Get(ctx, "/products", q.values())
	if err != nil {
		return nil, nil, err
	}

	var products []Product
	env, err := resp.Decode(&products)
	if err != nil {
		return nil, nil, err
	}
	return products, env.Pagination, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (*Product, error) {
	resp, err := s.client.Get(ctx, "/products/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var product Product
	if _, err := resp.Decode(&product); err != nil {
		return nil, err
	}
	return &product, nil
}
