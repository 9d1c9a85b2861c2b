// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package mockapi

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/VA7DBI/storefrontAPI/client"
	"github.com/VA7DBI/storefrontAPI/config"
	"github.com/VA7DBI/storefrontAPI/middleware"
	"github.com/VA7DBI/storefrontAPI/storefront"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type orderRecord struct {
	owner  string
	order  storefront.Order
	events []storefront.TrackingEvent
}

type orderBook struct {
	mu     sync.Mutex
	orders map[string]*orderRecord
}

func newOrderBook() *orderBook {
	return &orderBook{orders: make(map[string]*orderRecord)}
}

// caller returns the session behind the request's bearer token. Configured
// static tokens act as an admin session.
func (s *Server) caller(c *gin.Context) Session {
	token := c.GetString(middleware.ContextTokenKey)
	if ok, _ := middleware.StaticTokens(s.cfg.MockServer.StaticTokens).ValidateToken(token); ok {
		return Session{Subject: "static", Scope: config.ScopeAdmin}
	}
	sess, _ := s.sessions.Lookup(token)
	return sess
}

// visible reports whether sess may see rec; admins see every order.
func visible(sess Session, rec *orderRecord) bool {
	return sess.Scope == config.ScopeAdmin || rec.owner == sess.Subject
}

func respondValidation(c *gin.Context, vErr *client.ValidationError) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"success": false,
		"error":   gin.H{"message": vErr.Message},
		"fields":  vErr.Fields,
	})
}

// @Summary     Place order
// @Tags        orders
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       order body storefront.CheckoutForm true "Checkout form"
// @Success     201 {object} client.Envelope
// @Failure     409 {object} client.Envelope
// @Failure     422 {object} client.Envelope
// @Router      /orders [post]
func (s *Server) createOrder(c *gin.Context) {
	var form storefront.CheckoutForm
	if err := c.ShouldBindJSON(&form); err != nil {
		respondError(c, http.StatusBadRequest, "Malformed order body")
		return
	}

	if err := storefront.Validate(&form); err != nil {
		var vErr *client.ValidationError
		if errors.As(err, &vErr) {
			respondValidation(c, vErr)
			return
		}
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	var unknown []client.FieldError
	for i, item := range form.Items {
		if _, ok := s.catalog.Get(item.ProductID); !ok {
			unknown = append(unknown, client.FieldError{
				Name:    fmt.Sprintf("items[%d].productId", i),
				Message: "Unknown product",
			})
		}
	}
	if len(unknown) > 0 {
		respondValidation(c, &client.ValidationError{Message: "Invalid order items", Fields: unknown})
		return
	}

	items := make([]storefront.OrderItem, 0, len(form.Items))
	var total float64
	for i, item := range form.Items {
		product, _ := s.catalog.Get(item.ProductID)
		if !s.catalog.Reserve(item.ProductID, item.Quantity) {
			for _, reserved := range form.Items[:i] {
				s.catalog.Release(reserved.ProductID, reserved.Quantity)
			}
			respondError(c, http.StatusConflict, "Insufficient stock for "+product.Name)
			return
		}
		items = append(items, storefront.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  item.Quantity,
			Price:     product.Price,
		})
		total += product.Price * float64(item.Quantity)
	}

	now := time.Now().UTC()
	order := storefront.Order{
		ID:            uuid.NewString(),
		Items:         items,
		Total:         total,
		Status:        storefront.OrderPending,
		PaymentMethod: form.PaymentMethod,
		Shipping: storefront.ShippingAddress{
			Name:       form.Name,
			Phone:      form.Phone,
			Address:    form.Address,
			City:       form.City,
			PostalCode: form.PostalCode,
		},
		CreatedAt: now,
	}

	s.orders.mu.Lock()
	s.orders.orders[order.ID] = &orderRecord{
		owner:  s.caller(c).Subject,
		order:  order,
		events: []storefront.TrackingEvent{{Status: storefront.OrderPending, Note: "Order placed", Timestamp: now}},
	}
	s.orders.mu.Unlock()

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": order})
}

// @Summary     List orders
// @Tags        orders
// @Produce     json
// @Security    BearerAuth
// @Param       page  query int false "Page number"
// @Param       limit query int false "Page size"
// @Success     200 {object} client.Envelope
// @Router      /orders [get]
func (s *Server) listOrders(c *gin.Context) {
	sess := s.caller(c)
	page, limit := pageParams(c)

	s.orders.mu.Lock()
	list := make([]storefront.Order, 0, len(s.orders.orders))
	for _, rec := range s.orders.orders {
		if visible(sess, rec) {
			list = append(list, rec.order)
		}
	}
	s.orders.mu.Unlock()

	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})

	items, pagination := paginate(list, page, limit)
	c.JSON(http.StatusOK, gin.H{"success": true, "data": items, "pagination": pagination})
}

// lookup returns a copy of the caller-visible order record named in the path.
func (s *Server) lookup(c *gin.Context) (orderRecord, bool) {
	sess := s.caller(c)

	s.orders.mu.Lock()
	defer s.orders.mu.Unlock()
	rec, ok := s.orders.orders[c.Param("id")]
	if !ok || !visible(sess, rec) {
		return orderRecord{}, false
	}
	copied := *rec
	copied.events = append([]storefront.TrackingEvent(nil), rec.events...)
	return copied, true
}

// @Summary     Get order
// @Tags        orders
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Order ID"
// @Success     200 {object} client.Envelope
// @Failure     404 {object} client.Envelope
// @Router      /orders/{id} [get]
func (s *Server) getOrder(c *gin.Context) {
	rec, ok := s.lookup(c)
	if !ok {
		respondError(c, http.StatusNotFound, "Order not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": rec.order})
}

// @Summary     Track order
// @Tags        orders
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Order ID"
// @Success     200 {object} client.Envelope
// @Failure     404 {object} client.Envelope
// @Router      /orders/{id}/tracking [get]
func (s *Server) trackOrder(c *gin.Context) {
	rec, ok := s.lookup(c)
	if !ok {
		respondError(c, http.StatusNotFound, "Order not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": storefront.Tracking{
		OrderID: rec.order.ID,
		Status:  rec.order.Status,
		Events:  rec.events,
	}})
}

// @Summary     Cancel order
// @Tags        orders
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Order ID"
// @Success     200 {object} client.Envelope
// @Failure     404 {object} client.Envelope
// @Failure     409 {object} client.Envelope
// @Router      /orders/{id}/cancel [patch]
func (s *Server) cancelOrder(c *gin.Context) {
	sess := s.caller(c)

	s.orders.mu.Lock()
	rec, ok := s.orders.orders[c.Param("id")]
	if !ok || !visible(sess, rec) {
		s.orders.mu.Unlock()
		respondError(c, http.StatusNotFound, "Order not found")
		return
	}
	if rec.order.Status != storefront.OrderPending {
		s.orders.mu.Unlock()
		respondError(c, http.StatusConflict, "Order can no longer be cancelled")
		return
	}
	rec.order.Status = storefront.OrderCancelled
	rec.events = append(rec.events, storefront.TrackingEvent{
		Status:    storefront.OrderCancelled,
		Note:      "Cancelled by customer",
		Timestamp: time.Now().UTC(),
	})
	order := rec.order
	s.orders.mu.Unlock()

	for _, item := range order.Items {
		s.catalog.Release(item.ProductID, item.Quantity)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": order})
}
