// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package client

import (
	"encoding/json"
	"fmt"
)

// Envelope is the uniform wrapper around every API response body.
type Envelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data,omitempty"`
	Error      *ErrorBody      `json:"error,omitempty"`
	Pagination *Pagination     `json:"pagination,omitempty"`
	Fields     []FieldError    `json:"fields,omitempty"`
}

type ErrorBody struct {
	Message string `json:"message"`
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// FieldError is one failed validation rule, keyed by form field name.
type FieldError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// tokenResponse is the body returned by the login and refresh endpoints.
type tokenResponse struct {
	Success bool `json:"success"`
	Tokens  struct {
		AccessToken string `json:"accessToken"`
	} `json:"tokens"`
}

// Decode unwraps the envelope and fills v from its data member. Non-2xx
// responses and envelopes with success=false come back as the error
// DecodeError produces. v may be nil.
func (r *Response) Decode(v any) (*Envelope, error) {
	if !r.IsSuccess() {
		return nil, DecodeError(r)
	}

	var env Envelope
	if err := json.Unmarshal(r.Body, &env); err != nil {
		return nil, fmt.Errorf("invalid response envelope: %w", err)
	}
	if !env.Success {
		return &env, DecodeError(r)
	}

	if v != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, v); err != nil {
			return &env, fmt.Errorf("invalid response data: %w", err)
		}
	}
	return &env, nil
}
