package auth

import (
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	tokens, err := Issue("teacher-1", "teacher", "attendance-api", "secret", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatal("expected non-empty tokens")
	}

	claims, err := Parse(tokens.AccessToken, "secret", "attendance-api")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if claims.Subject != "teacher-1" {
		t.Errorf("expected subject teacher-1, got %s", claims.Subject)
	}
	if claims.Role != "teacher" {
		t.Errorf("expected role teacher, got %s", claims.Role)
	}
}

func TestParse_WrongKey(t *testing.T) {
	tokens, err := Issue("teacher-1", "teacher", "attendance-api", "secret", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := Parse(tokens.AccessToken, "other-secret", "attendance-api"); err == nil {
		t.Error("expected error for wrong signing key")
	}
}

func TestParse_IssuerMismatch(t *testing.T) {
	tokens, err := Issue("teacher-1", "teacher", "other-issuer", "secret", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := Parse(tokens.AccessToken, "secret", "attendance-api"); err == nil {
		t.Error("expected error for issuer mismatch")
	}
}

func TestParse_Expired(t *testing.T) {
	tokens, err := Issue("teacher-1", "teacher", "attendance-api", "secret", -time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := Parse(tokens.AccessToken, "secret", "attendance-api"); err == nil {
		t.Error("expected error for expired token")
	}
}
