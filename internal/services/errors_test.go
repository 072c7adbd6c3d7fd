package services_test

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"shiptrack/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("disk full")
	err := services.Wrap(services.ErrPersistence, "jobs", "save stage record", "write failed", base)
	if !errors.Is(err, services.ErrPersistence) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"jobs", "save stage record", "write failed", "disk full"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapNilMarkerDefaultsToPersistence(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrPersistence) {
		t.Fatalf("expected persistence marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected default detail, got %q", err.Error())
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		marker error
		status int
		kind   string
	}{
		{services.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
		{services.ErrForbidden, http.StatusForbidden, "forbidden"},
		{services.ErrInvalidTransition, http.StatusBadRequest, "invalid_transition"},
		{services.ErrValidation, http.StatusBadRequest, "validation"},
		{services.ErrNotFound, http.StatusNotFound, "not_found"},
		{services.ErrConflict, http.StatusConflict, "conflict"},
		{services.ErrPersistence, http.StatusInternalServerError, "persistence"},
		{errors.New("unclassified"), http.StatusInternalServerError, "persistence"},
	}
	for _, tt := range tests {
		err := fmt.Errorf("outer: %w", services.Wrap(tt.marker, "workflow", "op", "msg", nil))
		if got := services.HTTPStatus(err); got != tt.status {
			t.Fatalf("HTTPStatus(%v) = %d, want %d", tt.marker, got, tt.status)
		}
		if got := services.Kind(err); got != tt.kind {
			t.Fatalf("Kind(%v) = %q, want %q", tt.marker, got, tt.kind)
		}
	}
	if services.HTTPStatus(nil) != http.StatusOK {
		t.Fatal("expected 200 for nil error")
	}
}
