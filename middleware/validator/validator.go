package validator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sweetpotato0/mcpx-agents/middleware"
)

// ValidatorFunc validates input
type ValidatorFunc func(string) error

// InputValidator rejects runs whose latest user input fails validation
type InputValidator struct {
	validator ValidatorFunc
}

// NewInputValidator creates an input validation middleware
func NewInputValidator(validator ValidatorFunc) *InputValidator {
	return &InputValidator{validator: validator}
}

// Name returns the middleware name
func (m *InputValidator) Name() string {
	return "InputValidator"
}

// Execute validates the input
func (m *InputValidator) Execute(ctx *middleware.Context, next middleware.Handler) error {
	if m.validator != nil {
		if err := m.validator(ctx.Input); err != nil {
			return fmt.Errorf("%w: %w", middleware.ErrInputRejected, err)
		}
	}
	return next(ctx)
}

// MaxLength rejects inputs longer than limit runes. A non-positive limit
// accepts everything.
func MaxLength(limit int) ValidatorFunc {
	return func(input string) error {
		if limit > 0 && utf8.RuneCountInString(input) > limit {
			return fmt.Errorf("input exceeds %d characters", limit)
		}
		return nil
	}
}

// NonBlank rejects inputs made only of whitespace.
func NonBlank() ValidatorFunc {
	return func(input string) error {
		if strings.TrimSpace(input) == "" {
			return fmt.Errorf("input is empty")
		}
		return nil
	}
}

// All combines validators, returning the first failure.
func All(validators ...ValidatorFunc) ValidatorFunc {
	return func(input string) error {
		for _, v := range validators {
			if v == nil {
				continue
			}
			if err := v(input); err != nil {
				return err
			}
		}
		return nil
	}
}
