package apperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestFromStatus(t *testing.T) {
	t.Run("401 -> unauthorized", func(t *testing.T) {
		err := FromStatus(http.StatusUnauthorized, "")
		if err.Kind != KindUnauthorized || err.Status != 401 {
			t.Fatalf("got %+v", err)
		}
		if err.Message != "request failed with status 401" {
			t.Fatalf("unexpected message %q", err.Message)
		}
	})

	t.Run("403 -> unauthorized", func(t *testing.T) {
		if err := FromStatus(http.StatusForbidden, "nope"); err.Kind != KindUnauthorized || err.Message != "nope" {
			t.Fatalf("got %+v", err)
		}
	})

	t.Run("422 -> domain", func(t *testing.T) {
		if err := FromStatus(http.StatusUnprocessableEntity, "name taken"); err.Kind != KindDomain {
			t.Fatalf("got %+v", err)
		}
	})
}

func TestFromTransportTimeout(t *testing.T) {
	err := FromTransport(fmt.Errorf("do: %w", context.DeadlineExceeded))
	if err.Kind != KindTimeout {
		t.Fatalf("expected timeout kind, got %s", err.Kind)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("cause lost")
	}
}

func TestNormalize(t *testing.T) {
	if Normalize(nil, "x") != nil {
		t.Fatalf("nil should stay nil")
	}

	server := FromStatus(http.StatusBadRequest, "server says no")
	if got := Normalize(fmt.Errorf("wrapped: %w", server), "fallback"); got.Message != "server says no" {
		t.Fatalf("server message should win, got %q", got.Message)
	}

	if got := Normalize(errors.New("dial tcp: refused"), "fallback"); got.Message != "dial tcp: refused" || got.Kind != KindTransport {
		t.Fatalf("unexpected %+v", got)
	}

	if got := Normalize(&Error{Kind: KindDomain}, "fallback"); got.Message != "fallback" {
		t.Fatalf("expected fallback, got %q", got.Message)
	}
}

func TestSentinelMatching(t *testing.T) {
	err := fmt.Errorf("login: %w", ErrTokenNotFound)
	if !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound")
	}
	if errors.Is(err, ErrDuplicateName) {
		t.Fatalf("should not match ErrDuplicateName")
	}
	if !IsKind(ErrDuplicateName, KindValidation) {
		t.Fatalf("duplicate name is a validation error")
	}
}
