package storage

import (
	"context"
	"fmt"

	"github.com/marloweh/suggestd/internal/model"
)

func validateContext(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}
	return ctx.Err()
}

func validateString(value, name string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	return nil
}

func validateSuggestion(s *model.Suggestion) error {
	if s == nil {
		return fmt.Errorf("suggestion cannot be nil")
	}
	if s.ID == "" {
		return fmt.Errorf("suggestion id cannot be empty")
	}
	if s.TransactionID == "" {
		return fmt.Errorf("suggestion transaction id cannot be empty")
	}
	if s.Label == "" {
		return fmt.Errorf("suggestion label cannot be empty")
	}
	if s.Confidence < 0 || s.Confidence > 1 {
		return fmt.Errorf("suggestion confidence %.3f out of range [0,1]", s.Confidence)
	}
	return nil
}

func validateMemory(m *model.MerchantMemory) error {
	if m == nil {
		return fmt.Errorf("merchant memory cannot be nil")
	}
	if m.Raw == "" {
		return fmt.Errorf("merchant memory raw key cannot be empty")
	}
	if m.Canonical == "" {
		return fmt.Errorf("merchant memory canonical form cannot be empty")
	}
	if m.Confidence < 0 || m.Confidence > 1 {
		return fmt.Errorf("merchant memory confidence %.3f out of range [0,1]", m.Confidence)
	}
	return nil
}
