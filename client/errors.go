// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrSessionExpired is wrapped by every error returned after a failed
// refresh exchange. The token store has been cleared; the caller must log in.
var ErrSessionExpired = errors.New("session expired, please log in again")

// NetworkError is a transport failure: no HTTP response was received.
type NetworkError struct {
	Op  string
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// APIError is a failed response without field-level detail.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// ValidationError is a failed response that names the offending fields.
type ValidationError struct {
	Status  int
	Message string
	Fields  []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Name+": "+f.Message)
	}
	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(parts, "; "))
}

// Field returns the message for the named field, if it failed.
func (e *ValidationError) Field(name string) (string, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f.Message, true
		}
	}
	return "", false
}

// DecodeError classifies a failed response by the shape of its body:
// a non-empty fields array gives a *ValidationError, anything else an
// *APIError. Bodies that are not JSON, or lack a message, fall back to the
// HTTP status text.
func DecodeError(resp *Response) error {
	var message string
	var fields []FieldError

	if gjson.ValidBytes(resp.Body) {
		root := gjson.ParseBytes(resp.Body)

		switch {
		case root.Get("error.message").Type == gjson.String:
			message = root.Get("error.message").String()
		case root.Get("error").Type == gjson.String:
			message = root.Get("error").String()
		case root.Get("message").Type == gjson.String:
			message = root.Get("message").String()
		}

		if f := root.Get("fields"); f.IsArray() {
			for _, item := range f.Array() {
				if !item.IsObject() {
					continue
				}
				fields = append(fields, FieldError{
					Name:    item.Get("name").String(),
					Message: item.Get("message").String(),
				})
			}
		}
	}

	if len(fields) > 0 {
		if message == "" {
			message = "validation failed"
		}
		return &ValidationError{Status: resp.StatusCode, Message: message, Fields: fields}
	}

	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	if message == "" {
		message = "request failed"
	}
	return &APIError{Status: resp.StatusCode, Message: message}
}
