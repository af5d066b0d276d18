// Package store holds conversation history backends.
package store

import (
	"fmt"
	"regexp"

	mcpxerrors "github.com/sweetpotato0/mcpx-agents/errors"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validateID(conversationID string) error {
	if conversationID == "" {
		return fmt.Errorf("store: %w: empty conversation id", mcpxerrors.ErrInvalidInput)
	}
	return nil
}

func validateIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("store: %w: invalid identifier %q", mcpxerrors.ErrInvalidConfig, name)
	}
	return nil
}
