package auth

import (
	"context"
	"testing"
	"time"
)

func TestGenerateAndValidateJWT(t *testing.T) {
	svc := NewJWTService("test-secret-key")

	token, err := svc.GenerateToken("user-123", "test@example.com")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}

	if claims.UserID != "user-123" {
		t.Errorf("expected UserID 'user-123', got '%s'", claims.UserID)
	}
	if claims.Email != "test@example.com" {
		t.Errorf("expected Email 'test@example.com', got '%s'", claims.Email)
	}
}

func TestValidateExpiredToken(t *testing.T) {
	svc := &JWTService{
		secretKey:      []byte("test-secret-key"),
		accessDuration: -1 * time.Hour,
	}

	token, err := svc.GenerateToken("user-123", "test@example.com")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	_, err = svc.ValidateToken(token)
	if err == nil {
		t.Fatal("expected error for expired token, got nil")
	}
}

func TestValidateInvalidToken(t *testing.T) {
	svc := NewJWTService("test-secret-key")

	_, err := svc.ValidateToken("not-a-valid-token")
	if err == nil {
		t.Fatal("expected error for invalid token, got nil")
	}

	// Token signed with a different key
	otherSvc := NewJWTService("different-secret-key")
	token, err := otherSvc.GenerateToken("user-123", "test@example.com")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	_, err = svc.ValidateToken(token)
	if err == nil {
		t.Fatal("expected error for token signed with different key, got nil")
	}
}

func TestClaimsContextRoundTrip(t *testing.T) {
	claims := &Claims{UserID: "user-9", Email: "u9@example.com"}
	ctx := ContextWithClaims(context.Background(), claims)

	got, ok := ClaimsFromContext(ctx)
	if !ok {
		t.Fatal("expected claims in context")
	}
	if got.UserID != "user-9" {
		t.Errorf("expected UserID 'user-9', got '%s'", got.UserID)
	}

	if _, ok := ClaimsFromContext(context.Background()); ok {
		t.Error("expected no claims in empty context")
	}
}
