package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError_Error(t *testing.T) {
	err := ErrValidation(CodeTopicEmpty, "topic is empty")
	if got := err.Error(); got != "[validation] TOPIC_EMPTY: topic is empty" {
		t.Errorf("Error() = %q", got)
	}

	wrapped := ErrPersistence("update state", errors.New("disk full"))
	if got := wrapped.Error(); got != "[persistence] PERSISTENCE_FAILED: update state failed (disk full)" {
		t.Errorf("Error() = %q", got)
	}
}

func TestDomainError_IsAndAs(t *testing.T) {
	err := fmt.Errorf("handler: %w", ErrNotFound("project", "p1"))

	if !errors.Is(err, &DomainError{Category: ErrCatNotFound, Code: CodeNotFound}) {
		t.Error("errors.Is should match on category and code")
	}
	if !IsCategory(err, ErrCatNotFound) {
		t.Error("IsCategory() = false")
	}
	if GetCategory(errors.New("plain")) != ErrCatInternal {
		t.Error("plain errors should be internal")
	}
}

func TestDomainError_Details(t *testing.T) {
	err := ErrProvider("brave", "status 500").WithDetail("status", 500)
	if err.Details["provider"] != "brave" || err.Details["status"] != 500 {
		t.Errorf("Details = %v", err.Details)
	}
	if !IsRetryable(err) {
		t.Error("provider errors should be retryable")
	}
	if IsRetryable(ErrValidation("X", "y")) {
		t.Error("validation errors should not be retryable")
	}
}
