// Package validate holds request-shape checks applied before the service
// layer runs.
package validate

import (
	"fmt"

	"github.com/geoffjay/berry/internal/model"
)

// MaxContentBytes bounds the embedded content field.
const MaxContentBytes = 8192

// MaxLimit caps how many results one search may request.
const MaxLimit = 100

// Content validates the free-text body of a memory.
func Content(v string) error {
	if v == "" {
		return fmt.Errorf("content is required")
	}
	if len(v) > MaxContentBytes {
		return fmt.Errorf("content exceeds %d bytes", MaxContentBytes)
	}
	return nil
}

// MemoryType validates an optional type value; empty defers to the service
// default.
func MemoryType(v string) error {
	if v == "" {
		return nil
	}
	if !model.MemoryType(v).Valid() {
		return fmt.Errorf("type must be one of question, request, information")
	}
	return nil
}

// VisibilityValue validates an optional visibility value.
func VisibilityValue(v string) error {
	if v == "" {
		return nil
	}
	if !model.Visibility(v).Valid() {
		return fmt.Errorf("visibility must be one of private, shared, public")
	}
	return nil
}

// Limit validates a search result cap; zero defers to the engine default.
func Limit(v int) error {
	if v < 0 {
		return fmt.Errorf("limit must not be negative")
	}
	if v > MaxLimit {
		return fmt.Errorf("limit exceeds %d", MaxLimit)
	}
	return nil
}
