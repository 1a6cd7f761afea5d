package auth

import (
	"context"
	"testing"
	"time"
)

func TestLocalValidator_RoundTrip(t *testing.T) {
	v := NewLocalValidator([]byte("secret"))
	identity := Identity{UserID: "u_1", Email: "a@example.com", WorkspaceID: "ws_1", IsSuperAdmin: true}

	cookie, err := v.Sign(identity, time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	got, err := v.Validate(context.Background(), cookie)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got.UserID != identity.UserID || got.Email != identity.Email || !got.IsSuperAdmin {
		t.Fatalf("unexpected identity: %+v", got)
	}
}

func TestLocalValidator_RejectsTamperedSignature(t *testing.T) {
	v := NewLocalValidator([]byte("secret"))
	cookie, _ := v.Sign(Identity{UserID: "u_1"}, time.Hour)

	tampered := cookie[:len(cookie)-1] + "0"
	if _, err := v.Validate(context.Background(), tampered); err != ErrInvalidSession {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
}

func TestLocalValidator_RejectsWrongSecret(t *testing.T) {
	v1 := NewLocalValidator([]byte("secret-a"))
	v2 := NewLocalValidator([]byte("secret-b"))

	cookie, _ := v1.Sign(Identity{UserID: "u_1"}, time.Hour)
	if _, err := v2.Validate(context.Background(), cookie); err != ErrInvalidSession {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
}

func TestLocalValidator_RejectsExpiredSession(t *testing.T) {
	v := NewLocalValidator([]byte("secret"))
	cookie, _ := v.Sign(Identity{UserID: "u_1"}, -time.Hour)

	if _, err := v.Validate(context.Background(), cookie); err != ErrInvalidSession {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
}
