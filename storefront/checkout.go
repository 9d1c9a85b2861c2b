// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package storefront

import (
	"context"
	"net/url"
)

// Payment methods
const (
	PaymentCashOnDelivery = "cod"
	PaymentOnline         = "online"
)

// CheckoutForm is the order placement form.
type CheckoutForm struct {
	Name          string      `json:"name" validate:"required,min=2,max=80"`
	Phone         string      `json:"phone" validate:"required,phone"`
	Email         string      `json:"email,omitempty" validate:"omitempty,email"`
	Address       string      `json:"address" validate:"required,min=5,max=200"`
	City          string      `json:"city" validate:"required,max=60"`
	PostalCode    string      `json:"postalCode" validate:"required,numeric,min=4,max=10"`
	PaymentMethod string      `json:"paymentMethod" validate:"required,oneof=cod online"`
	Items         []OrderItem `json:"items" validate:"required,min=1,dive"`
	Note          string      `json:"note,omitempty" validate:"max=500"`
}

// PlaceOrder validates form and submits it. An invalid form is rejected
// locally with a *client.ValidationError and nothing is sent.
func (s *Service) PlaceOrder(ctx context.Context, form *CheckoutForm) (*Order, error) {
	if err := Validate(form); err != nil {
		return nil, err
	}

	resp, err := s.client.Post(ctx, "/orders", form)
	if err != nil {
		return nil, err
	}

	var order Order
	if _, err := resp.Decode(&order); err != nil {
		return nil, err
	}
	return &order, nil
}

// CancelOrder asks the API to cancel a pending order.
func (s *Service) CancelOrder(ctx context.Context, id string) (*Order, error) {
	resp, err := s.client.Patch(ctx, "/orders/"+url.PathEscape(id)+"/cancel", nil)
	if err != nil {
		return nil, err
	}

	var order Order
	if _, err := resp.Decode(&order); err != nil {
		return nil, err
	}
	return &order, nil
}
