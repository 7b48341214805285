// Package models holds the stored entities and their JSON shapes.
package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrInvalidModel = errors.New("invalid model")

// Model is implemented by every stored entity
type Model interface {
	// TypeName is the human name used in error messages
	TypeName() string
	// RequiredValues is a hint appended to missing/invalid body errors
	RequiredValues() string
	Validate() error
	// Public is the value rendered to clients
	Public() any
}

// CreateErrorMsg is the 400 message for a failed insert
func CreateErrorMsg(m Model) string {
	return fmt.Sprintf("Error creating %s.", m.TypeName())
}

// Decode unmarshals raw into a fresh T. Unknown fields are ignored.
func Decode[T Model](raw []byte) (T, error) {
	var m T
	if err := json.Unmarshal(raw, &m); err != nil {
		return m, fmt.Errorf("%w: failed to parse to %s: %w", ErrInvalidModel, m.TypeName(), err)
	}
	return m, nil
}

// Merge applies a partial JSON document onto stored. Fields absent from
// patch keep their stored value.
func Merge[T Model](stored T, patch []byte) (T, error) {
	merged := stored
	if err := json.Unmarshal(patch, &merged); err != nil {
		return stored, fmt.Errorf("%w: failed to parse to %s: %w", ErrInvalidModel, stored.TypeName(), err)
	}
	return merged, nil
}

func invalid(m Model, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidModel, m.TypeName(), reason)
}
