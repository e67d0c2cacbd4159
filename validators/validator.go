// Package validators wires go-playground/validator into echo's Validator
// hook so handlers can call c.Validate on bound request DTOs.
package validators

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Validator adapts a validator.Validate instance to echo.Validator
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator
func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// Validate checks struct tags and converts failures to 400 responses
func (v *Validator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
