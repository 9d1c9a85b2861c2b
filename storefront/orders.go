// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package storefront

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/VA7DBI/storefrontAPI/client"
)

// Order statuses as reported by the API
const (
	OrderPending   = "pending"
	OrderConfirmed = "confirmed"
	OrderShipped   = "shipped"
	OrderDelivered = "delivered"
	OrderCancelled = "cancelled"
)

type OrderItem struct {
	ProductID string  `json:"productId" validate:"required"`
	Name      string  `json:"name,omitempty"`
	Quantity  int     `json:"quantity" validate:"required,min=1,max=50"`
	Price     float64 `json:"price,omitempty"`
}

type ShippingAddress struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
}

type Order struct {
	ID            string          `json:"id"`
	Items         []OrderItem     `json:"items"`
	Total         float64         `json:"total"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"paymentMethod"`
	Shipping      ShippingAddress `json:"shipping"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// TrackingEvent is one step in an order's delivery history.
type TrackingEvent struct {
	Status    string    `json:"status"`
	Note      string    `json:"note,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Tracking struct {
	OrderID string          `json:"orderId"`
	Status  string          `json:"status"`
	Events  []TrackingEvent `json:"events"`
}

func (s *Service) GetOrder(ctx context.Context, id string) (*Order, error) {
	resp, err := s.client.Get(ctx, "/orders/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var order Order
	if _, err := resp.Decode(&order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Service) ListOrders(ctx context.Context, page, limit int) ([]Order, *client.Pagination, error) {
	query := url.Values{}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	resp, err := s.client.Get(ctx, "/orders", query)
	if err != nil {
		return nil, nil, err
	}

	var orders []Order
	env, err := resp.Decode(&orders)
	if err != nil {
		return nil, nil, err
	}
	return orders, env.Pagination, nil
}

func (s *Service) TrackOrder(ctx context.Context, id string) (*Tracking, error) {
	resp, err := s.client.Get(ctx, "/orders/"+url.PathEscape(id)+"/tracking", nil)
	if err != nil {
		return nil, err
	}

	var tracking Tracking
	if _, err := resp.Decode(&tracking); err != nil {
		return nil, err
	}
	return &tracking, nil
}
