package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestServiceUnavailableDetection(t *testing.T) {
	var err error = &ServiceUnavailableError{QueryID: "q", Backends: []string{"a", "b"}}
	if !IsServiceUnavailable(err) {
		t.Fatalf("direct value must be detected")
	}
	wrapped := fmt.Errorf("routing: %w", err)
	if !IsServiceUnavailable(wrapped) {
		t.Fatalf("wrapped value must be detected")
	}
	if IsServiceUnavailable(stderrors.New("other")) {
		t.Fatalf("unrelated error must not match")
	}
}

func TestIntegrityViolationDetection(t *testing.T) {
	err := fmt.Errorf("verify: %w", &IntegrityError{EntryID: "e", StoredHash: "a", ActualHash: "b"})
	if !IsIntegrityViolation(err) {
		t.Fatalf("wrapped integrity error must be detected")
	}
	if IsServiceUnavailable(err) {
		t.Fatalf("integrity error is not service-unavailable")
	}
}

func TestClassification(t *testing.T) {
	transient := NewTransient(stderrors.New("connection refused"), "backend unreachable")
	if Classify(transient) != ErrorTypeTransient {
		t.Fatalf("transient wrapper must classify transient")
	}

	permanent := NewPermanent(stderrors.New("bad request"), "rejected")
	if Classify(permanent) != ErrorTypePermanent {
		t.Fatalf("permanent wrapper must classify permanent")
	}
	if IsTransient(permanent) {
		t.Fatalf("permanent must never be transient")
	}

	degraded := NewDegraded(stderrors.New("model offline"), "triage degraded", "heuristic")
	if Classify(degraded) != ErrorTypeDegraded {
		t.Fatalf("degraded wrapper must classify degraded")
	}

	if Classify(stderrors.New("something odd")) != ErrorTypePermanent {
		t.Fatalf("unknown errors default to permanent")
	}
}

func TestNetworkErrorsAreTransient(t *testing.T) {
	if !IsTransient(stderrors.New("dial tcp: connection refused")) {
		t.Fatalf("connection refused is retry-able")
	}
	if !IsTransient(stderrors.New("context deadline exceeded")) {
		t.Fatalf("deadline exceeded is retry-able")
	}
	if IsTransient(stderrors.New("invalid configuration")) {
		t.Fatalf("non-network unknown errors are not transient")
	}
}
