// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package storefront

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/VA7DBI/storefrontAPI/client"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

var phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	if err := validate.RegisterValidation("phone", validatePhone); err != nil {
		panic(err)
	}
}

func GetValidator() *validator.Validate {
	return validate
}

func validatePhone(fl validator.FieldLevel) bool {
	phone := strings.NewReplacer(" ", "", "-", "").Replace(fl.Field().String())
	return phonePattern.MatchString(phone)
}

// Validate checks v against its validate tags and reports failures as a
// *client.ValidationError with one entry per failed field. Status is zero
// because nothing was sent.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}
	return &client.ValidationError{
		Message: "Validation failed",
		Fields:  FormatValidationErrors(validationErrors),
	}
}

func FormatValidationErrors(validationErrors validator.ValidationErrors) []client.FieldError {
	fields := make([]client.FieldError, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		var message string

		switch fieldError.Tag() {
		case "required":
			message = fieldError.Field() + " is required"
		case "email":
			message = "Invalid email format"
		case "phone":
			message = "Invalid phone number"
		case "min":
			if fieldError.Kind() == reflect.Int || fieldError.Kind() == reflect.Slice {
				message = fieldError.Field() + " must be at least " + fieldError.Param()
			} else {
				message = fieldError.Field() + " must be at least " + fieldError.Param() + " characters"
			}
		case "max":
			if fieldError.Kind() == reflect.Int || fieldError.Kind() == reflect.Slice {
				message = fieldError.Field() + " must be at most " + fieldError.Param()
			} else {
				message = fieldError.Field() + " must be at most " + fieldError.Param() + " characters"
			}
		case "numeric":
			message = fieldError.Field() + " must contain only numbers"
		case "oneof":
			message = fieldError.Field() + " must be one of: " + fieldError.Param()
		default:
			message = fieldError.Field() + " is invalid"
		}

		fields = append(fields, client.FieldError{
			Name:    fieldPath(fieldError.Namespace()),
			Message: message,
		})
	}
	return fields
}

// fieldPath drops the root struct name: "CheckoutForm.items[0].quantity"
// becomes "items[0].quantity".
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}
